package retrieval

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/Prasann123/Tradition-RAG/provider"
)

const multiQueryVariants = 3

var listPrefix = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s*`)

// MultiQuery asks the LLM for alternative phrasings and unions their results.
type MultiQuery struct {
	base   Retriever
	llm    provider.Provider
	logger *log.Logger
}

func multiQueryPrompt(question string) string {
	return fmt.Sprintf(`You are an AI language model assistant. Your task is to generate %d different versions of the given user question to retrieve relevant documents from a vector database. By generating multiple perspectives on the user question, your goal is to help the user overcome some of the limitations of distance-based similarity search. Provide these alternative questions separated by newlines.
Original question: %s`, multiQueryVariants, question)
}

func parseVariants(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(listPrefix.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == multiQueryVariants {
			break
		}
	}
	return out
}

func (m *MultiQuery) Retrieve(ctx context.Context, query string, k int) ([]Document, error) {
	queries := []string{query}
	if m.llm != nil {
		raw, err := m.llm.Generate(ctx, multiQueryPrompt(query))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.logger.Printf("multi_query: variant generation failed, using original query: %v", err)
		} else {
			queries = append(queries, parseVariants(raw)...)
		}
	}

	seen := make(map[string]struct{})
	var out []Document
	var firstErr error
	for _, q := range queries {
		docs, err := m.base.Retrieve(ctx, q, k)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, d := range docs {
			if _, dup := seen[d.Content]; dup {
				continue
			}
			seen[d.Content] = struct{}{}
			out = append(out, d)
		}
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}
