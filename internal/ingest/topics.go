package ingest

import (
	"sort"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/mapping"

	"github.com/Prasann123/Tradition-RAG/internal/retrieval"
)

const topicsPerDocument = 5

// DocumentTopics is one entry of /list_topics.
type DocumentTopics struct {
	Source any      `json:"source"`
	Topics []string `json:"topics"`
}

// TopicExtractor ranks the analyzed terms of a text by frequency.
type TopicExtractor struct {
	mapping *mapping.IndexMappingImpl
}

func NewTopicExtractor() *TopicExtractor {
	return &TopicExtractor{mapping: bleve.NewIndexMapping()}
}

// Keywords returns up to n terms, most frequent first, ties in order of
// first appearance. Stop words, numbers and terms shorter than 3 are skipped.
func (e *TopicExtractor) Keywords(text string, n int) []string {
	tokens, err := e.mapping.AnalyzeText(standard.Name, []byte(text))
	if err != nil {
		return []string{}
	}
	counts := map[string]int{}
	first := map[string]int{}
	for i, tok := range tokens {
		term := string(tok.Term)
		if len([]rune(term)) < 3 || isNumeric(term) {
			continue
		}
		if _, seen := first[term]; !seen {
			first[term] = i
		}
		counts[term]++
	}
	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return first[terms[i]] < first[terms[j]]
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// Topics extracts keywords for every document with content.
func (e *TopicExtractor) Topics(docs []retrieval.Document) []DocumentTopics {
	out := []DocumentTopics{}
	for _, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		var source any
		if d.Metadata != nil {
			source = d.Metadata["source"]
		}
		out = append(out, DocumentTopics{Source: source, Topics: e.Keywords(d.Content, topicsPerDocument)})
	}
	return out
}

func isNumeric(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) && r != '.' && r != ',' }) < 0
}
