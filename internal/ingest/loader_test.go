package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello world\nsecond line\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	pages, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Text != "hello world\nsecond line\n" {
		t.Fatalf("unexpected text %q", pages[0].Text)
	}
	if pages[0].Metadata["source"] != "notes.txt" {
		t.Fatalf("unexpected metadata %#v", pages[0].Metadata)
	}
}

func TestLoadRejectsBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	if err := os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0xff, 0xfe, 0x00}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
