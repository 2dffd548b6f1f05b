package ingest

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	ParserRecursive = "recursive"
	ParserSimple    = "simple"

	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

var (
	recursiveSeparators = []string{"\n\n", "\n", " ", ""}
	simpleSeparators    = []string{"\n\n"}
)

// Splitter cuts text into overlapping chunks measured in characters.
type Splitter struct {
	parser  string
	size    int
	overlap int
	text    textsplitter.RecursiveCharacter
}

// NewSplitter validates the parser type and sizes. A zero size selects the
// default size and, unless given, the default overlap.
func NewSplitter(parser string, size, overlap int) (*Splitter, error) {
	parser = strings.ToLower(strings.TrimSpace(parser))
	if parser == "" {
		parser = ParserRecursive
	}
	var separators []string
	switch parser {
	case ParserRecursive:
		separators = recursiveSeparators
	case ParserSimple:
		separators = simpleSeparators
	default:
		return nil, fmt.Errorf("unsupported parser_type %q (valid: %s, %s)", parser, ParserRecursive, ParserSimple)
	}
	if size <= 0 {
		size = DefaultChunkSize
		if overlap <= 0 {
			overlap = DefaultChunkOverlap
		}
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk_overlap %d must be smaller than chunk_size %d", overlap, size)
	}
	return &Splitter{
		parser:  parser,
		size:    size,
		overlap: overlap,
		text: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(separators),
			textsplitter.WithLenFunc(runeLen),
		),
	}, nil
}

func (s *Splitter) Parser() string { return s.parser }

// Split returns the non-empty chunks of text.
func (s *Splitter) Split(text string) ([]string, error) {
	chunks, err := s.text.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}
	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
