package ingest

import (
	"reflect"
	"testing"

	"github.com/Prasann123/Tradition-RAG/internal/retrieval"
)

func TestKeywordsRankByFrequency(t *testing.T) {
	e := NewTopicExtractor()
	got := e.Keywords("Milvus stores vectors. Milvus indexes vectors quickly. The index is fast.", 2)
	want := []string{"milvus", "vectors"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestKeywordsSkipNumbersAndShortTerms(t *testing.T) {
	got := NewTopicExtractor().Keywords("an ox 2024 2024 2024 harbor", 5)
	want := []string{"harbor"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestTopicsPerDocument(t *testing.T) {
	docs := []retrieval.Document{
		{Content: "kubernetes pods schedule containers; kubernetes restarts pods", Metadata: map[string]any{"source": "k8s.txt"}},
		{Content: "   "},
		{Content: "plain text without metadata"},
	}
	topics := NewTopicExtractor().Topics(docs)
	if len(topics) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(topics))
	}
	if topics[0].Source != "k8s.txt" || topics[0].Topics[0] != "kubernetes" || len(topics[0].Topics) > topicsPerDocument {
		t.Fatalf("unexpected first entry %+v", topics[0])
	}
	if topics[1].Source != nil {
		t.Fatalf("expected nil source, got %v", topics[1].Source)
	}
}
