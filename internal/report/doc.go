// Package report defines the telemetry report payload model.
//
// A Report is a point-in-time snapshot of a collector's accumulated state:
// the session identity, every level started during the session (open or
// closed), and the free-form raw metric map. Reports are value snapshots -
// once produced they are never mutated by the collector, and Clone guarantees
// holders cannot reach back into collector state.
//
// The JSON shape of a Report is the wire contract shared by every delivery
// channel and by the durable queue:
//
//	{
//	  "session": { "game_name": ..., "session_id": ..., "timestamp": ... },
//	  "levels":  [ { "level_id": ..., "tasks": [...] }, ... ],
//	  "rawData": { ... }
//	}
//
// MarshalCanonical produces the deterministic serialization used for queue
// persistence and golden-file comparison: object keys sorted by UTF-16 code
// units, NFC-normalized strings, no HTML escaping.
package report
