package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
)

// Validator judges the candidate answer against the cycle's evidence.
type Validator struct {
	oracle DecisionOracle
	logger *log.Logger
}

func NewValidator(oracle DecisionOracle, logger *log.Logger) *Validator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Validator{oracle: oracle, logger: logger}
}

// Validate sets IsValid and Feedback. A valid verdict promotes the candidate
// to FinalAnswer. A blank candidate is rejected without asking the oracle.
// Only cancellation of ctx is reported as an error.
func (v *Validator) Validate(ctx context.Context, state *ChatState) error {
	if strings.TrimSpace(state.CandidateAnswer) == "" {
		state.IsValid = ValidityInvalid
		state.Feedback = EmptyAnswer
		state.note(AgentValidator, EmptyAnswer)
		return nil
	}
	raw, err := v.oracle.Judge(ctx, JudgeRequest{
		Query:     state.Query,
		Candidate: state.CandidateAnswer,
		Evidence:  state.Evidence(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		v.logger.Printf("validate %s: oracle failed: %v", state.ID, err)
		state.IsValid = ValidityInvalid
		state.Feedback = fmt.Sprintf("The validator could not be reached: %v", err)
		state.note(AgentValidator, "Validation failed: %v", err)
		return nil
	}

	valid, reason, ok := parseJudgment(raw)
	if !ok {
		v.logger.Printf("validate %s: malformed judgment %q", state.ID, raw)
		state.IsValid = ValidityInvalid
		state.Feedback = MalformedJudgment
		state.note(AgentValidator, MalformedJudgment)
		return nil
	}

	state.Feedback = reason
	if valid {
		state.IsValid = ValidityValid
		state.FinalAnswer = state.CandidateAnswer
		state.note(AgentValidator, "Answer accepted: %s", reason)
		return nil
	}
	state.IsValid = ValidityInvalid
	state.note(AgentValidator, "Answer rejected: %s", reason)
	return nil
}

// parseJudgment decodes {"is_valid": bool, "reason": string}. The is_valid
// field must be present and boolean.
func parseJudgment(raw string) (bool, string, bool) {
	var j struct {
		IsValid *bool  `json:"is_valid"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(extractFirstJSON(strings.TrimSpace(raw))), &j); err != nil || j.IsValid == nil {
		return false, "", false
	}
	return *j.IsValid, strings.TrimSpace(j.Reason), true
}
