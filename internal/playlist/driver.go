package playlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

var log = logging.Component("playlist")

// DefaultGCThreshold is the number of sessions between GC requests.
const DefaultGCThreshold = 1000

// State is the lifecycle state of a Driver.
type State int32

// A session moves Idle, Opening, Draining, Closing and back to Idle. A
// session that fails to open or ends in an error other than a shutdown
// leaves the driver in StateFailed until the next session starts.
const (
	StateIdle State = iota
	StateOpening
	StateDraining
	StateClosing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateDraining:
		return "draining"
	case StateClosing:
		return "closing"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Evaluator handles the lines of a playlist.
type Evaluator interface {
	Evaluate(ctx context.Context, scope *Scope, line string) error
}

// Finisher is implemented by evaluators that need a call after the last line.
type Finisher interface {
	Finish(ctx context.Context, scope *Scope) error
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, scope *Scope, line string) error

func (f EvaluatorFunc) Evaluate(ctx context.Context, scope *Scope, line string) error {
	return f(ctx, scope, line)
}

// GCRequester releases memory held by evaluators. memory.Monitor
// implements it.
type GCRequester interface {
	RequestGC() error
}

// Options configures a Driver.
type Options struct {
	// GC is asked to collect every GCThreshold sessions. Nil disables it.
	GC GCRequester
	// GCThreshold defaults to DefaultGCThreshold.
	GCThreshold int
	// Retry is used when opening playlist files.
	Retry filesystem.RetryConfig
}

// Driver feeds the lines of one playlist at a time to an Evaluator.
// A Driver runs at most one session; callers sharing a Driver between
// goroutines must serialize Process themselves.
type Driver struct {
	eval        Evaluator
	gc          GCRequester
	gcThreshold int
	retry       filesystem.RetryConfig

	active    atomic.Bool
	state     atomic.Int32
	completed atomic.Int64
}

// NewDriver creates a Driver for eval.
func NewDriver(eval Evaluator, opts Options) *Driver {
	if opts.GCThreshold <= 0 {
		opts.GCThreshold = DefaultGCThreshold
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialBackoff == 0 {
		opts.Retry = filesystem.DefaultRetryConfig()
	}
	return &Driver{
		eval:        eval,
		gc:          opts.GC,
		gcThreshold: opts.GCThreshold,
		retry:       opts.Retry,
	}
}

// State returns the current lifecycle state.
func (d *Driver) State() State {
	return State(d.state.Load())
}

func (d *Driver) setState(s State) {
	d.state.Store(int32(s))
}

// Process evaluates every line of the playlist item. The file is closed and
// the Scope unbound before Process returns, whatever the outcome.
func (d *Driver) Process(ctx context.Context, item *database.Object) (err error) {
	if !d.active.CompareAndSwap(false, true) {
		metrics.PlaylistSessionsTotal.WithLabelValues("recursion").Inc()
		return ErrRecursion
	}
	defer d.active.Store(false)

	if !item.IsFile() || item.Type != database.ObjectTypePlaylist {
		metrics.PlaylistSessionsTotal.WithLabelValues("unsupported").Inc()
		return ErrUnsupportedType
	}

	start := time.Now()
	d.setState(StateOpening)
	f, openErr := filesystem.OpenWithRetry(ctx, item.Path, d.retry)
	if openErr != nil {
		d.setState(StateFailed)
		metrics.PlaylistSessionsTotal.WithLabelValues("open_error").Inc()
		return &OpenError{Path: item.Path, Err: openErr}
	}

	sess := newSession(item, f)
	metrics.PlaylistActiveSessions.Inc()
	defer func() {
		d.setState(StateClosing)
		if cerr := sess.close(); cerr != nil {
			log.Warn("Failed to close %s: %v", sess.path, cerr)
		}
		metrics.PlaylistActiveSessions.Dec()
		metrics.PlaylistSessionDuration.Observe(time.Since(start).Seconds())
		metrics.PlaylistSessionsTotal.WithLabelValues(sessionResult(err)).Inc()
		if err != nil && !errors.Is(err, ErrShutdownRequested) {
			d.setState(StateFailed)
		} else {
			d.setState(StateIdle)
		}
		d.sessionDone()
	}()

	d.setState(StateDraining)
	err = d.drain(withSession(ctx, sess), sess)
	switch {
	case errors.Is(err, ErrShutdownRequested):
		log.Info("Stopped %s at line %d: shutdown requested", sess.path, sess.reader.LineNumber())
	case err != nil:
		log.Warn("%v", err)
	default:
		log.Debug("Processed %s (%d lines) in %v", sess.path, sess.reader.LineNumber(), time.Since(start))
	}
	return err
}

func (d *Driver) drain(ctx context.Context, sess *session) error {
	for {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", sess.path, ErrShutdownRequested)
		}
		line, err := sess.reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &EvaluationError{Path: sess.path, Line: sess.reader.LineNumber(), Err: err}
		}
		sess.scope.Line = sess.reader.LineNumber()
		metrics.PlaylistLinesTotal.Inc()
		if err := d.eval.Evaluate(ctx, sess.scope, line); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return fmt.Errorf("%s: %w", sess.path, ErrShutdownRequested)
			}
			return &EvaluationError{Path: sess.path, Line: sess.scope.Line, Err: err}
		}
	}

	// Next reports io.EOF for a cancelled context as well.
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", sess.path, ErrShutdownRequested)
	}

	if f, ok := d.eval.(Finisher); ok {
		sess.scope.Line = 0
		if err := f.Finish(ctx, sess.scope); err != nil {
			return &EvaluationError{Path: sess.path, Err: err}
		}
	}
	return nil
}

// sessionDone counts a closed session and asks for a collection once the
// threshold is exceeded. A failed request is only logged.
func (d *Driver) sessionDone() {
	if d.gc == nil {
		return
	}
	if d.completed.Add(1) <= int64(d.gcThreshold) {
		return
	}
	d.completed.Store(0)
	if err := d.gc.RequestGC(); err != nil {
		metrics.PlaylistGCRequests.WithLabelValues("error").Inc()
		log.Debug("GC request after %d playlists failed: %v", d.gcThreshold, err)
		return
	}
	metrics.PlaylistGCRequests.WithLabelValues("success").Inc()
}

func sessionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrShutdownRequested):
		return "shutdown"
	default:
		return "evaluation_error"
	}
}
