package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Agent names a node of the routed chat state machine.
type Agent string

const (
	AgentSupervisor Agent = "supervisor"
	AgentRetrieval  Agent = "retrieval"
	AgentWeb        Agent = "web"
	AgentGeneration Agent = "generation"
	AgentValidator  Agent = "validator"
	AgentTerminal   Agent = "terminal"
)

// Valid reports whether a is a known node.
func (a Agent) Valid() bool {
	switch a {
	case AgentSupervisor, AgentRetrieval, AgentWeb, AgentGeneration, AgentValidator, AgentTerminal:
		return true
	}
	return false
}

// Answer provenance labels.
const (
	AnswerSourceDocuments = "internal documents"
	AnswerSourceWeb       = "live web search"
	AnswerSourceGeneral   = "general knowledge"
)

// MalformedJudgment is the feedback recorded when the validator's output cannot be parsed.
const MalformedJudgment = "The validator's response was malformed and could not be parsed."

// EmptyAnswer is the feedback recorded when there is no candidate to judge.
const EmptyAnswer = "The answer is empty."

// Validity is a tri-state verdict: not yet judged, valid, or invalid.
type Validity int

const (
	ValidityUnknown Validity = iota
	ValidityValid
	ValidityInvalid
)

func (v Validity) MarshalJSON() ([]byte, error) {
	switch v {
	case ValidityValid:
		return []byte("true"), nil
	case ValidityInvalid:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (v *Validity) UnmarshalJSON(b []byte) error {
	switch strings.TrimSpace(string(b)) {
	case "true":
		*v = ValidityValid
	case "false":
		*v = ValidityInvalid
	case "null":
		*v = ValidityUnknown
	default:
		return fmt.Errorf("invalid validity %s", b)
	}
	return nil
}

var (
	ErrEmptyQuery       = errors.New("query is required")
	ErrDeadlineExceeded = errors.New("agent run deadline exceeded")
)

// ConfigError marks a caller-side configuration problem (HTTP 4xx).
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// IsConfigError reports whether err wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// RequestConfig carries the per-request retrieval settings.
type RequestConfig struct {
	VectorDB       string `json:"vectordb,omitempty"`
	K              int    `json:"k,omitempty"`
	CollectionName string `json:"collection_name,omitempty"`
	RetrieverType  string `json:"retriever_type,omitempty"`
}

// withDefaults fills unset fields from d.
func (c RequestConfig) withDefaults(d RequestConfig) RequestConfig {
	if strings.TrimSpace(c.VectorDB) == "" {
		c.VectorDB = d.VectorDB
	}
	if c.K <= 0 {
		c.K = d.K
	}
	if strings.TrimSpace(c.CollectionName) == "" {
		c.CollectionName = d.CollectionName
	}
	if strings.TrimSpace(c.RetrieverType) == "" {
		c.RetrieverType = d.RetrieverType
	}
	return c
}

// Source is a citation for a retrieved chunk.
type Source struct {
	SourceName  string         `json:"source_name"`
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

// Message is an audit log entry.
type Message struct {
	Role    string `json:"role"`
	Agent   Agent  `json:"agent,omitempty"`
	Content string `json:"content"`
}

// ChatState is the per-request record threaded through every node.
type ChatState struct {
	ID     string
	Query  string
	Config RequestConfig

	Context         []string
	WebData         []string
	CandidateAnswer string
	FinalAnswer     string
	IsValid         Validity
	Feedback        string
	NextAgent       Agent
	AnswerSource    string
	Sources         []Source
	Error           string

	Cycles             int
	MaxRetriesExceeded bool
	Messages           []Message
}

// NewChatState validates the query and builds a fresh state.
func NewChatState(id, query string, cfg RequestConfig) (*ChatState, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	return &ChatState{ID: id, Query: query, Config: cfg, NextAgent: AgentSupervisor}, nil
}

// note appends to the audit log.
func (s *ChatState) note(agent Agent, format string, args ...any) {
	s.Messages = append(s.Messages, Message{Role: "system", Agent: agent, Content: fmt.Sprintf(format, args...)})
}

// beginCycle clears per-cycle evidence so at most one strategy's output is present.
func (s *ChatState) beginCycle() {
	s.Cycles++
	s.Context = nil
	s.WebData = nil
	s.Sources = nil
	s.CandidateAnswer = ""
	s.AnswerSource = ""
	s.IsValid = ValidityUnknown
}

// Evidence joins context and web data the way the generator sees them.
func (s *ChatState) Evidence() string {
	parts := make([]string, 0, len(s.Context)+len(s.WebData))
	parts = append(parts, s.Context...)
	parts = append(parts, s.WebData...)
	return strings.Join(parts, "\n\n")
}

// InvokeResult is the caller-facing outcome of a routed chat run.
type InvokeResult struct {
	FinalAnswer        string    `json:"final_answer"`
	Feedback           string    `json:"feedback"`
	IsValid            Validity  `json:"is_valid"`
	Sources            []Source  `json:"sources"`
	AnswerSource       string    `json:"answer_source"`
	Cycles             int       `json:"cycles"`
	MaxRetriesExceeded bool      `json:"max_retries_exceeded,omitempty"`
	Messages           []Message `json:"messages,omitempty"`
}

func (s *ChatState) result() InvokeResult {
	sources := s.Sources
	if sources == nil {
		sources = []Source{}
	}
	return InvokeResult{
		FinalAnswer:        s.FinalAnswer,
		Feedback:           s.Feedback,
		IsValid:            s.IsValid,
		Sources:            sources,
		AnswerSource:       s.AnswerSource,
		Cycles:             s.Cycles,
		MaxRetriesExceeded: s.MaxRetriesExceeded,
		Messages:           s.Messages,
	}
}

// TextGenerator produces free text from a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
