package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Prasann123/Tradition-RAG/config"
)

// RouteRequest is what the router asks the oracle to classify.
type RouteRequest struct {
	Query    string
	Feedback string
}

// JudgeRequest is what the validator asks the oracle to judge.
type JudgeRequest struct {
	Query     string
	Candidate string
	Evidence  string
}

// DecisionOracle answers the two structured questions of a chat run and
// returns its raw output; callers own parsing and defaulting.
type DecisionOracle interface {
	Route(ctx context.Context, req RouteRequest) (string, error)
	Judge(ctx context.Context, req JudgeRequest) (string, error)
}

// LLMOracle delegates both decisions to a language model.
type LLMOracle struct {
	llm    TextGenerator
	topics config.RouterConfig
}

func NewLLMOracle(llm TextGenerator, topics config.RouterConfig) *LLMOracle {
	return &LLMOracle{llm: llm, topics: topics}
}

func (o *LLMOracle) Route(ctx context.Context, req RouteRequest) (string, error) {
	return o.llm.Generate(ctx, routePrompt(o.topics, req))
}

func (o *LLMOracle) Judge(ctx context.Context, req JudgeRequest) (string, error) {
	return o.llm.Generate(ctx, judgePrompt(req))
}

func routePrompt(topics config.RouterConfig, req RouteRequest) string {
	var sb strings.Builder
	sb.WriteString("You are a routing assistant. Choose the agent best suited to answer the user's request.\n\n")
	fmt.Fprintf(&sb, "A: internal document search, for %s.\n", topics.RetrievalDescription)
	fmt.Fprintf(&sb, "B: live web search, for %s.\n", topics.WebDescription)
	fmt.Fprintf(&sb, "C: the language model alone, for %s.\n\n", topics.GeneralDescription)
	sb.WriteString(`Respond ONLY with JSON of the form {"agent": "A"} using one of the letters A, B or C.`)
	sb.WriteString("\n\nUser query: ")
	sb.WriteString(req.Query)
	if req.Feedback != "" {
		sb.WriteString("\nValidation feedback: ")
		sb.WriteString(req.Feedback)
	}
	return sb.String()
}

func judgePrompt(req JudgeRequest) string {
	evidence := req.Evidence
	if strings.TrimSpace(evidence) == "" {
		evidence = "(none)"
	}
	return fmt.Sprintf(`You are a strict answer validator. Decide whether the candidate answer correctly and completely answers the question. When evidence is provided, the answer must be supported by it.

Question: %s

Evidence:
%s

Candidate answer:
%s

Respond ONLY with JSON: {"is_valid": true or false, "reason": "short explanation"}`, req.Query, evidence, req.Candidate)
}

// RuleOracle is a deterministic oracle driven by keyword lists. It routes
// without a model and accepts any non-empty answer that shares vocabulary
// with the evidence.
type RuleOracle struct {
	RetrievalKeywords []string
	WebKeywords       []string
}

func NewRuleOracle(cfg config.RulesConfig) *RuleOracle {
	return &RuleOracle{RetrievalKeywords: cfg.RetrievalKeywords, WebKeywords: cfg.WebKeywords}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func (o *RuleOracle) Route(ctx context.Context, req RouteRequest) (string, error) {
	text := strings.ToLower(req.Query + " " + req.Feedback)
	label := "C"
	switch {
	case containsAny(text, o.WebKeywords):
		label = "B"
	case containsAny(text, o.RetrievalKeywords):
		label = "A"
	}
	return fmt.Sprintf(`{"agent": %q}`, label), nil
}

func (o *RuleOracle) Judge(ctx context.Context, req JudgeRequest) (string, error) {
	verdict := struct {
		IsValid bool   `json:"is_valid"`
		Reason  string `json:"reason"`
	}{IsValid: true, Reason: "The answer addresses the question."}

	switch {
	case strings.TrimSpace(req.Candidate) == "":
		verdict.IsValid, verdict.Reason = false, "The answer is empty."
	case strings.TrimSpace(req.Evidence) != "" && !sharesVocabulary(req.Candidate, req.Evidence):
		verdict.IsValid, verdict.Reason = false, "The answer is not supported by the supplied evidence."
	}
	b, err := json.Marshal(verdict)
	return string(b), err
}

func sharesVocabulary(a, b string) bool {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(b), isSeparator) {
		if len(w) > 3 {
			words[w] = struct{}{}
		}
	}
	for _, w := range strings.FieldsFunc(strings.ToLower(a), isSeparator) {
		if _, ok := words[w]; ok {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
}
