package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Prasann123/Tradition-RAG/internal/agent/telemetry"
)

var orchestratorTracer trace.Tracer = otel.Tracer("github.com/Prasann123/Tradition-RAG/internal/agent/orchestrator")

// OrchestratorConfig bounds a routed chat run.
type OrchestratorConfig struct {
	// MaxCycles is the number of router passes allowed before the run is
	// terminated with the last candidate. Required.
	MaxCycles int
	// CallTimeout bounds each node; zero disables it.
	CallTimeout time.Duration
	// RequestTimeout bounds the whole run; zero disables it.
	RequestTimeout time.Duration
	// Defaults fills unset per-request retrieval settings.
	Defaults RequestConfig
}

// Orchestrator drives supervisor -> strategy -> generation -> validator until
// the answer is accepted or the cycle cap is reached.
type Orchestrator struct {
	cfg        OrchestratorConfig
	router     *Router
	strategies map[Agent]Strategy
	validator  *Validator
	telemetry  *telemetry.Telemetry
	logger     *log.Logger
}

// NewOrchestrator wires the nodes. A generation strategy is mandatory; the
// retrieval and web strategies are optional and the router falls back to
// generation when the chosen one is missing.
func NewOrchestrator(cfg OrchestratorConfig, router *Router, validator *Validator, tel *telemetry.Telemetry, logger *log.Logger, strategies ...Strategy) (*Orchestrator, error) {
	if cfg.MaxCycles <= 0 {
		return nil, fmt.Errorf("max cycles must be positive, got %d", cfg.MaxCycles)
	}
	if router == nil || validator == nil {
		return nil, errors.New("router and validator are required")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if tel == nil {
		tel = telemetry.Discard()
	}
	byName := make(map[Agent]Strategy, len(strategies))
	for _, s := range strategies {
		switch s.Name() {
		case AgentRetrieval, AgentWeb, AgentGeneration:
		default:
			return nil, fmt.Errorf("strategy %q is not a strategy node", s.Name())
		}
		if _, dup := byName[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate strategy %q", s.Name())
		}
		byName[s.Name()] = s
	}
	if _, ok := byName[AgentGeneration]; !ok {
		return nil, errors.New("generation strategy is required")
	}
	return &Orchestrator{
		cfg:        cfg,
		router:     router,
		strategies: byName,
		validator:  validator,
		telemetry:  tel,
		logger:     logger,
	}, nil
}

// Invoke answers query. The returned result is populated even when err is a
// *ConfigError so callers can report the state they saw.
func (o *Orchestrator) Invoke(ctx context.Context, query string, cfg RequestConfig) (InvokeResult, error) {
	state, err := NewChatState(uuid.NewString(), query, cfg.withDefaults(o.cfg.Defaults))
	if err != nil {
		return InvokeResult{}, err
	}
	err = o.Run(ctx, state)
	return state.result(), err
}

// Run drives an existing state to termination.
func (o *Orchestrator) Run(ctx context.Context, state *ChatState) (err error) {
	if o.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RequestTimeout)
		defer cancel()
	}
	ctx, span := orchestratorTracer.Start(ctx, "agent.invoke",
		trace.WithAttributes(
			attribute.String("invocation.id", state.ID),
			attribute.String("retrieval.backend", state.Config.VectorDB),
		))
	defer span.End()

	event := telemetry.ProcessingEvent{ID: state.ID, StartTime: time.Now()}
	defer func() {
		event.EndTime = time.Now()
		event.Cycles = state.Cycles
		event.Success = state.IsValid == ValidityValid
		event.MaxRetriesExceeded = state.MaxRetriesExceeded
		event.AnswerSource = state.AnswerSource
		if err != nil {
			event.Error = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("invocation.cycles", state.Cycles),
				attribute.Bool("invocation.valid", event.Success),
				attribute.Bool("invocation.max_retries_exceeded", state.MaxRetriesExceeded),
			)
			span.SetStatus(codes.Ok, "completed")
		}
		o.telemetry.RecordProcessingEvent(ctx, event)
	}()

	o.logger.Printf("invocation %s started: %q", state.ID, state.Query)
	for state.NextAgent != AgentTerminal {
		if err := o.checkDeadline(ctx); err != nil {
			return err
		}
		if err := o.step(ctx, state); err != nil {
			return err
		}
	}
	o.logger.Printf("invocation %s finished after %d cycles (valid=%t, max_retries_exceeded=%t)",
		state.ID, state.Cycles, state.IsValid == ValidityValid, state.MaxRetriesExceeded)
	return nil
}

// step executes state.NextAgent and sets the transition.
func (o *Orchestrator) step(ctx context.Context, state *ChatState) error {
	switch state.NextAgent {
	case AgentSupervisor:
		if state.Cycles >= o.cfg.MaxCycles {
			state.MaxRetriesExceeded = true
			state.FinalAnswer = state.CandidateAnswer
			state.note(AgentSupervisor, "Max retries exceeded after %d cycles; returning the last candidate.", state.Cycles)
			o.logger.Printf("invocation %s: max retries exceeded after %d cycles", state.ID, state.Cycles)
			state.NextAgent = AgentTerminal
			return nil
		}
		state.beginCycle()
		var next Agent
		err := o.runNode(ctx, state, AgentSupervisor, func(c context.Context) error {
			var err error
			next, err = o.router.Route(c, state)
			return err
		})
		if err != nil {
			return err
		}
		if _, ok := o.strategies[next]; !ok {
			if next != "" {
				state.note(AgentSupervisor, "Strategy %s is not available; using generation.", next)
			}
			next = AgentGeneration
		}
		state.NextAgent = next

	case AgentRetrieval, AgentWeb:
		s := o.strategies[state.NextAgent]
		if s == nil {
			return fmt.Errorf("no strategy registered for %q", state.NextAgent)
		}
		if err := o.runNode(ctx, state, state.NextAgent, func(c context.Context) error { return s.Produce(c, state) }); err != nil {
			// the aborted cycle produced no candidate
			if IsConfigError(err) {
				state.Cycles--
			}
			return err
		}
		state.NextAgent = AgentGeneration

	case AgentGeneration:
		s := o.strategies[AgentGeneration]
		if err := o.runNode(ctx, state, AgentGeneration, func(c context.Context) error { return s.Produce(c, state) }); err != nil {
			return err
		}
		state.NextAgent = AgentValidator

	case AgentValidator:
		if err := o.runNode(ctx, state, AgentValidator, func(c context.Context) error { return o.validator.Validate(c, state) }); err != nil {
			return err
		}
		if state.IsValid == ValidityUnknown {
			state.IsValid = ValidityInvalid
			if state.Feedback == "" {
				state.Feedback = "The answer could not be validated in time."
			}
		}
		if state.IsValid == ValidityValid {
			state.NextAgent = AgentTerminal
		} else {
			state.NextAgent = AgentSupervisor
		}

	default:
		return fmt.Errorf("unknown next agent %q", state.NextAgent)
	}
	return nil
}

// runNode runs fn under the per-call timeout and a tracing span. A per-call
// timeout is absorbed into the audit log; a request deadline is not.
func (o *Orchestrator) runNode(ctx context.Context, state *ChatState, node Agent, fn func(context.Context) error) error {
	callCtx := ctx
	cancel := func() {}
	if o.cfg.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.CallTimeout)
	}
	callCtx, span := orchestratorTracer.Start(callCtx, "agent.node."+string(node),
		trace.WithAttributes(
			attribute.String("invocation.id", state.ID),
			attribute.Int("invocation.cycle", state.Cycles),
		))
	done := o.telemetry.TimeNode(ctx, state.ID, string(node))

	err := fn(callCtx)
	cancel()
	done(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	if err == nil {
		return nil
	}
	if IsConfigError(err) {
		o.logger.Printf("invocation %s: configuration error in %s: %v", state.ID, node, err)
		return err
	}
	if derr := o.checkDeadline(ctx); derr != nil {
		return derr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		o.logger.Printf("invocation %s: %s timed out after %s", state.ID, node, o.cfg.CallTimeout)
		state.note(node, "The %s step timed out.", node)
		return nil
	}
	return fmt.Errorf("%s: %w", node, err)
}

func (o *Orchestrator) checkDeadline(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return ErrDeadlineExceeded
	default:
		return err
	}
}
