// Package effects runs asynchronous handlers in response to dispatched
// request events. A handler performs the side effect for one intent type and
// returns the terminal event that ends its lifecycle.
package effects

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TheMichaelB/songdeck/internal/events"
	"github.com/TheMichaelB/songdeck/internal/intent"
)

// Policy controls how runs of the same intent type relate to each other.
type Policy int

const (
	// Every starts a run for each event, in parallel with runs already in flight.
	Every Policy = iota
	// Serial queues events and runs them one at a time in arrival order.
	Serial
)

func (p Policy) String() string {
	switch p {
	case Serial:
		return "serial"
	default:
		return "every"
	}
}

// ParsePolicy converts a configuration value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "every":
		return Every, nil
	case "serial":
		return Serial, nil
	default:
		return Every, fmt.Errorf("unknown effect policy %q", s)
	}
}

// PolicyFunc chooses the policy for an intent type.
type PolicyFunc func(t intent.Type) Policy

// Handler performs the work for ev. The returned event is dispatched when
// its Type is non-empty.
type Handler func(ctx context.Context, ev intent.Event) intent.Event

// Dispatcher receives terminal events.
type Dispatcher interface {
	Dispatch(ev intent.Event)
}

// Option configures a registration.
type Option func(*registration)

// WithPolicy sets the concurrency policy for the intent type.
func WithPolicy(p Policy) Option {
	return func(reg *registration) {
		reg.policy = p
	}
}

// WithFailure sets the event dispatched when the handler panics.
func WithFailure(fn func(msg string) intent.Event) Option {
	return func(reg *registration) {
		reg.onPanic = fn
	}
}

type registration struct {
	handler Handler
	policy  Policy
	onPanic func(msg string) intent.Event

	queue   []intent.Event
	running bool
}

// Runner maps intent types to handlers.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	out    Dispatcher
	logger *events.Logger

	mu       sync.Mutex
	idle     *sync.Cond
	handlers map[intent.Type]*registration
	pending  int
	stopped  bool
}

// NewRunner creates a runner whose handlers dispatch into out. Runs derive
// their context from ctx.
func NewRunner(ctx context.Context, out Dispatcher, logger *events.Logger) *Runner {
	if logger == nil {
		logger = events.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(ctx)
	r := &Runner{
		ctx:      ctx,
		cancel:   cancel,
		out:      out,
		logger:   logger.WithField("component", "effects"),
		handlers: make(map[intent.Type]*registration),
	}
	r.idle = sync.NewCond(&r.mu)
	return r
}

// Register installs h for events of type t, replacing any previous handler.
func (r *Runner) Register(t intent.Type, h Handler, opts ...Option) {
	reg := &registration{handler: h, policy: Every}
	for _, opt := range opts {
		opt(reg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[t]; exists {
		r.logger.WithField("intent", string(t)).Warn("Replacing effect handler")
	}
	r.handlers[t] = reg

	r.logger.WithFields(map[string]interface{}{
		"intent": string(t),
		"policy": reg.policy.String(),
	}).Debug("Registered effect handler")
}

// Handle starts a run for ev if a handler is registered for its type. It
// never blocks, so it can be called from a store observer.
func (r *Runner) Handle(ev intent.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	reg, ok := r.handlers[ev.Type]
	if !ok {
		return
	}

	r.pending++

	if reg.policy == Serial {
		reg.queue = append(reg.queue, ev)
		if !reg.running {
			reg.running = true
			go r.drain(reg)
		}
		return
	}

	go func() {
		r.run(reg, ev)
		r.done()
	}()
}

// Wait blocks until no runs are queued or in flight. Runs started by the
// terminal events of other runs are waited for as well.
func (r *Runner) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.pending > 0 {
		r.idle.Wait()
	}
}

// Stop cancels the context of in-flight runs, ignores new events and waits
// for the runs already accepted.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.cancel()
	r.Wait()
}

func (r *Runner) drain(reg *registration) {
	for {
		r.mu.Lock()
		if len(reg.queue) == 0 {
			reg.running = false
			r.mu.Unlock()
			return
		}
		ev := reg.queue[0]
		reg.queue = reg.queue[1:]
		r.mu.Unlock()

		r.run(reg, ev)
		r.done()
	}
}

func (r *Runner) done() {
	r.mu.Lock()
	r.pending--
	if r.pending == 0 {
		r.idle.Broadcast()
	}
	r.mu.Unlock()
}

func (r *Runner) run(reg *registration, ev intent.Event) {
	ctx := events.WithLogger(r.ctx, r.logger)
	ctx = events.WithIntent(ctx, string(ev.Type))
	ctx = events.WithRequestID(ctx, uuid.NewString())
	logger := events.FromContext(ctx)

	start := time.Now()
	logger.Debug("Effect started")

	result, ok := r.invoke(ctx, reg, ev)
	if !ok {
		return
	}

	fields := map[string]interface{}{
		"result":   string(result.Type),
		"duration": time.Since(start).String(),
	}
	if msg, failed := intent.FailureMessage(result); failed {
		fields["error"] = msg
		logger.WithFields(fields).Warn("Effect failed")
	} else {
		logger.WithFields(fields).Debug("Effect finished")
	}

	if result.Type != "" {
		r.out.Dispatch(result)
	}
}

// invoke calls the handler and converts a panic into the registration's
// failure event. ok is false when there is nothing to dispatch.
func (r *Runner) invoke(ctx context.Context, reg *registration, ev intent.Event) (result intent.Event, ok bool) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		logger := events.FromContext(ctx)
		logger.WithError(fmt.Errorf("%v", rec)).Error("Effect handler panicked")
		if reg.onPanic == nil {
			result, ok = intent.Event{}, false
			return
		}
		result, ok = reg.onPanic(fmt.Sprint(rec)), true
	}()

	return reg.handler(ctx, ev), true
}
