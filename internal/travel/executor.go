package travel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Prasann123/Tradition-RAG/internal/agent/telemetry"
)

// Tag names a category of state that a tool produces or consumes.
type Tag string

const (
	TagPlaces    Tag = "places"
	TagWeather   Tag = "weather"
	TagRates     Tag = "rates"
	TagFlights   Tag = "flights"
	TagBudget    Tag = "budget"
	TagItinerary Tag = "itinerary"
)

// Tool enriches the shared state with one category of trip data. Execute
// records its own audit message and leaves default values on failure; the
// returned error is only reported.
type Tool interface {
	Name() string
	Requires() []Tag
	Produces() []Tag
	Execute(ctx context.Context, state *State) error
}

var (
	// ErrMissingProducer indicates a tool that requires a tag no earlier tool produces.
	ErrMissingProducer = errors.New("required tag has no earlier producer")
	// ErrDuplicateProducer indicates two tools producing the same tag.
	ErrDuplicateProducer = errors.New("tag produced more than once")
)

// Executor runs a validated, ordered tool chain.
type Executor struct {
	tools     []Tool
	prefix    int
	parallel  bool
	timeout   time.Duration
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// Option configures executor behaviour.
type Option func(*Executor)

// WithParallel runs the leading tools without requirements concurrently.
func WithParallel(on bool) Option {
	return func(ex *Executor) { ex.parallel = on }
}

// WithToolTimeout bounds each tool call.
func WithToolTimeout(d time.Duration) Option {
	return func(ex *Executor) { ex.timeout = d }
}

// WithTelemetry records one source event per tool.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(ex *Executor) { ex.telemetry = t }
}

// WithLogger sets the executor logger.
func WithLogger(l *log.Logger) Option {
	return func(ex *Executor) { ex.logger = l }
}

// NewExecutor validates the declared ordering: every required tag must be
// produced by an earlier tool and no tag may be produced twice.
func NewExecutor(tools []Tool, opts ...Option) (*Executor, error) {
	produced := make(map[Tag]string)
	names := make(map[string]struct{})
	for _, t := range tools {
		if _, dup := names[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate tool %q", t.Name())
		}
		names[t.Name()] = struct{}{}
		for _, req := range t.Requires() {
			if _, ok := produced[req]; !ok {
				return nil, fmt.Errorf("%w: %s requires %s", ErrMissingProducer, t.Name(), req)
			}
		}
		for _, p := range t.Produces() {
			if prev, dup := produced[p]; dup {
				return nil, fmt.Errorf("%w: %s by %s and %s", ErrDuplicateProducer, p, prev, t.Name())
			}
			produced[p] = t.Name()
		}
	}

	ex := &Executor{tools: tools}
	for _, opt := range opts {
		opt(ex)
	}
	if ex.logger == nil {
		ex.logger = log.New(io.Discard, "", 0)
	}
	if ex.telemetry == nil {
		ex.telemetry = telemetry.Discard()
	}
	for ex.prefix < len(tools) && len(tools[ex.prefix].Requires()) == 0 {
		ex.prefix++
	}
	return ex, nil
}

// Order lists tool names in execution order.
func (e *Executor) Order() []string {
	out := make([]string, len(e.tools))
	for i, t := range e.tools {
		out[i] = t.Name()
	}
	return out
}

// Run applies every tool to state. Tool failures never stop the chain.
func (e *Executor) Run(ctx context.Context, state *State) {
	rest := e.tools
	if e.parallel && e.prefix > 1 {
		e.runForks(ctx, state, e.tools[:e.prefix])
		rest = e.tools[e.prefix:]
	}
	for _, t := range rest {
		e.runTool(ctx, t, state)
	}
}

// runForks executes independent tools on copies of state and merges them
// back in declared order.
func (e *Executor) runForks(ctx context.Context, state *State, tools []Tool) {
	base := len(state.Messages)
	forks := make([]*State, len(tools))
	var wg sync.WaitGroup
	for i, t := range tools {
		forks[i] = state.fork()
		wg.Add(1)
		go func(t Tool, f *State) {
			defer wg.Done()
			e.runTool(ctx, t, f)
		}(t, forks[i])
	}
	wg.Wait()
	for i, t := range tools {
		state.merge(forks[i], t.Produces(), base)
	}
}

func (e *Executor) runTool(ctx context.Context, t Tool, state *State) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	start := time.Now()
	err := e.safeExecute(ctx, t, state)
	ev := telemetry.SourceEvent{Source: "travel." + t.Name(), Duration: time.Since(start), Success: err == nil}
	if err != nil {
		ev.Error = err.Error()
		e.logger.Printf("tool %s failed: %v", t.Name(), err)
	}
	e.telemetry.RecordSourceEvent(ctx, ev)
}

func (e *Executor) safeExecute(ctx context.Context, t Tool, state *State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			state.tool(t.Name(), fmt.Sprintf("Error in %s: %v", t.Name(), r), nil)
		}
	}()
	return t.Execute(ctx, state)
}
