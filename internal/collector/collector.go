package collector

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lumenplay/gametrics/internal/report"
)

// Collector accumulates gameplay telemetry for one session.
//
// The zero value is not usable; construct with New. A Collector is an
// explicit instance owned by the embedding application - there is no
// package-level singleton.
type Collector struct {
	mu sync.Mutex

	session *report.Session
	levels  []report.Level
	// current indexes the open level in levels, -1 when none is open.
	current int
	metrics map[string]any

	clock  func() time.Time
	logger *slog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock overrides the wall clock. Used by tests for deterministic
// timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Collector) { c.clock = clock }
}

// WithLogger sets the logger for soft-rejection warnings.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// New creates an empty collector: no session, no levels, no metrics.
func New(opts ...Option) *Collector {
	c := &Collector{
		current: -1,
		metrics: make(map[string]any),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Initialize creates the session with the current timestamp. It always
// succeeds and overwrites any prior session without merging; levels and
// metrics accumulated so far are kept.
func (c *Collector) Initialize(gameName, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = &report.Session{
		GameName:  gameName,
		SessionID: sessionID,
		Timestamp: c.nowMs(),
	}
}

// StartLevel opens a new level and makes it current.
//
// If another level is already open it is NOT closed: it stays in the level
// sequence with a nil end time and completed=false, and only the current
// pointer moves. Interrupted levels are visible in reports exactly as they
// were left.
func (c *Collector) StartLevel(levelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current >= 0 {
		c.logger.Warn("starting level over an open level",
			"level_id", levelID,
			"open_level_id", c.levels[c.current].LevelID)
	}

	c.levels = append(c.levels, report.Level{
		LevelID:   levelID,
		StartTime: c.nowMs(),
		Tasks:     []report.Task{},
	})
	c.current = len(c.levels) - 1
}

// RecordTask appends a task to the current level. The task is recorded only
// when a level is open and its id equals levelID; otherwise the call is a
// no-op returning a *StateError and no level's task sequence changes.
func (c *Collector) RecordTask(levelID string, task report.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireCurrent("record_task", levelID); err != nil {
		return err
	}

	lvl := &c.levels[c.current]
	lvl.Tasks = append(lvl.Tasks, task)
	return nil
}

// EndLevel closes the current level. Succeeds only when a level is open and
// its id equals levelID; otherwise it is a no-op returning a *StateError and
// the current pointer is unchanged.
//
// Duration, xp, and the completed flag are taken from the caller as-is -
// duration is NOT recomputed from the start/end timestamps.
func (c *Collector) EndLevel(levelID string, completed bool, durationMs, xpEarned int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireCurrent("end_level", levelID); err != nil {
		return err
	}

	end := c.nowMs()
	lvl := &c.levels[c.current]
	lvl.EndTime = &end
	lvl.DurationMs = &durationMs
	lvl.Completed = completed
	lvl.XPEarned = xpEarned
	c.current = -1
	return nil
}

// AddRawMetric upserts a free-form metric. Last write wins. Always succeeds.
func (c *Collector) AddRawMetric(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics[key] = value
}

// Snapshot returns a deep-copied report of the state at the moment of the
// call, including a level that is still open. Mutating the returned report
// never affects collector state. When Initialize was never called the
// report's Session is nil.
func (c *Collector) Snapshot() *report.Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &report.Report{
		Session: c.session,
		Levels:  c.levels,
		RawData: c.metrics,
	}
	return snap.Clone()
}

// Reset clears session, levels, the current pointer, and metrics together.
// No reader can observe a partial reset.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = nil
	c.levels = nil
	c.current = -1
	c.metrics = make(map[string]any)
}

// requireCurrent checks that a level is open and matches levelID.
// Callers must hold c.mu.
func (c *Collector) requireCurrent(op, levelID string) error {
	if c.current < 0 {
		err := newNoCurrentLevelError(op, levelID)
		c.logger.Warn("operation rejected", "op", op, "level_id", levelID, "code", err.Code)
		return err
	}
	if current := c.levels[c.current].LevelID; current != levelID {
		err := newLevelMismatchError(op, levelID, current)
		c.logger.Warn("operation rejected",
			"op", op, "level_id", levelID, "open_level_id", current, "code", err.Code)
		return err
	}
	return nil
}

func (c *Collector) nowMs() int64 {
	return c.clock().UnixMilli()
}
