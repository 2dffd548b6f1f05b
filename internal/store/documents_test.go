package store

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/Prasann123/Tradition-RAG/config"
	"github.com/Prasann123/Tradition-RAG/internal/retrieval"
)

func TestInsertDocuments(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO documents`)
	prep.ExpectExec().
		WithArgs("doc-1", "milvus", "documents", "alpha", []byte(`{"source":"a.txt"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), "milvus", "documents", "beta", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	docs := []retrieval.Document{
		{ID: "doc-1", Content: "alpha", Metadata: map[string]any{"source": "a.txt"}},
		{Content: "beta"},
	}
	if err := st.InsertDocuments(context.Background(), "milvus", "documents", docs); err != nil {
		t.Fatalf("InsertDocuments returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertDocumentsRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO documents`).
		ExpectExec().
		WillReturnError(&pq.Error{Code: "23502", Message: "null value"})
	mock.ExpectRollback()

	err = st.InsertDocuments(context.Background(), "chroma", "documents", []retrieval.Document{{ID: "x", Content: "c"}})
	if err == nil {
		t.Fatal("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertDocumentsEmptyIsNoop(t *testing.T) {
	st := &Store{}
	if err := st.InsertDocuments(context.Background(), "milvus", "documents", nil); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestListDocuments(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	rows := sqlmock.NewRows([]string{"id", "page_content", "metadata"}).
		AddRow("1", "first chunk", []byte(`{"source":"a.pdf","page":0}`)).
		AddRow("2", "second chunk", nil)
	mock.ExpectQuery(`SELECT id, page_content, metadata FROM documents`).
		WithArgs(20).
		WillReturnRows(rows)

	docs, err := st.ListDocuments(context.Background(), 20)
	if err != nil {
		t.Fatalf("ListDocuments returned error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Source() != "a.pdf" {
		t.Fatalf("expected source a.pdf, got %q", docs[0].Source())
	}
	if docs[1].Metadata == nil || len(docs[1].Metadata) != 0 {
		t.Fatalf("expected empty metadata map, got %#v", docs[1].Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDSN(t *testing.T) {
	got := DSN(config.PostgresConfig{Host: "db", User: "rag", Password: "p@ss", DBName: "ragagent"})
	want := "postgres://rag:p%40ss@db:5432/ragagent?sslmode=disable"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := DSN(config.PostgresConfig{URL: "postgres://x"}); got != "postgres://x" {
		t.Fatalf("expected explicit url, got %q", got)
	}
}
