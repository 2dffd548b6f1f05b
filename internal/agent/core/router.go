package core

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
)

var routeLabels = map[string]Agent{
	"A": AgentRetrieval,
	"B": AgentWeb,
	"C": AgentGeneration,
}

// Router picks the strategy for the next cycle. Any failure to obtain or
// parse a decision falls back to generation.
type Router struct {
	oracle DecisionOracle
	logger *log.Logger
}

func NewRouter(oracle DecisionOracle, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Router{oracle: oracle, logger: logger}
}

// Route returns the next strategy. Only cancellation of ctx is reported as an error.
func (r *Router) Route(ctx context.Context, state *ChatState) (Agent, error) {
	raw, err := r.oracle.Route(ctx, RouteRequest{Query: state.Query, Feedback: state.Feedback})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		r.logger.Printf("route %s: oracle failed, defaulting to generation: %v", state.ID, err)
		state.note(AgentSupervisor, "Routing failed (%v); defaulting to generation.", err)
		return AgentGeneration, nil
	}
	next, ok := parseRoute(raw)
	if !ok {
		r.logger.Printf("route %s: could not parse decision %q, defaulting to generation", state.ID, raw)
		state.note(AgentSupervisor, "Unparseable routing decision; defaulting to generation.")
		return AgentGeneration, nil
	}
	state.note(AgentSupervisor, "Routing to %s.", next)
	return next, nil
}

// parseRoute maps {"agent": "A|B|C"} to a strategy. Unknown labels map to
// generation; ok is false only when no decision object could be decoded.
func parseRoute(raw string) (Agent, bool) {
	var decision struct {
		Agent *string `json:"agent"`
	}
	if err := json.Unmarshal([]byte(extractFirstJSON(raw)), &decision); err != nil || decision.Agent == nil {
		return AgentGeneration, false
	}
	if next, ok := routeLabels[strings.ToUpper(strings.TrimSpace(*decision.Agent))]; ok {
		return next, true
	}
	return AgentGeneration, true
}
