// Package schema validates report payloads against the embedded CUE schema.
//
// Validation runs off the delivery hot path: enqueueing never gains failure
// modes beyond persistence itself. The CLI's `queue verify` and the harness
// use this package to catch payloads that drifted from the wire contract.
package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed report.cue
var reportCUE string

var (
	compileOnce sync.Once
	reportDef   cue.Value
	compileErr  error
)

// compiled returns the #Report definition, compiling the embedded schema on
// first use. Uses the CUE SDK's Go API directly (not a CLI subprocess).
func compiled() (cue.Value, error) {
	compileOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(reportCUE)
		if err := v.Err(); err != nil {
			compileErr = fmt.Errorf("compile report schema: %w", err)
			return
		}
		reportDef = v.LookupPath(cue.ParsePath("#Report"))
		if err := reportDef.Err(); err != nil {
			compileErr = fmt.Errorf("lookup #Report: %w", err)
		}
	})
	return reportDef, compileErr
}

// ValidationError reports a payload that does not satisfy the report schema.
type ValidationError struct {
	// Details holds the CUE error messages, one per violation.
	Details []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Details) == 1 {
		return fmt.Sprintf("payload does not match report schema: %s", e.Details[0])
	}
	return fmt.Sprintf("payload does not match report schema (%d violations)", len(e.Details))
}

// Validate checks a JSON payload against the report schema.
// Returns a *ValidationError for schema violations and a plain error when the
// payload is not parseable at all.
func Validate(payload []byte) error {
	def, err := compiled()
	if err != nil {
		return err
	}

	// CUE is a superset of JSON, so the payload compiles directly.
	// Must use the schema's context - values from different contexts
	// cannot unify.
	val := def.Context().CompileBytes(payload)
	if err := val.Err(); err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}

	result := def.Unify(val)
	if err := result.Validate(cue.Concrete(true), cue.Final()); err != nil {
		ve := &ValidationError{}
		for _, e := range cueerrors.Errors(err) {
			ve.Details = append(ve.Details, e.Error())
		}
		return ve
	}
	return nil
}
