package storage

import (
	"strings"
	"testing"
)

func TestSaveAndRead(t *testing.T) {
	s := New(t.TempDir(), "http://localhost:8080")

	path, err := s.Save("attachments", "note.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if path != "attachments/note.txt" {
		t.Errorf("unexpected object path: %q", path)
	}

	data, err := s.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("roundtrip mismatch: %q", data)
	}
}

func TestSaveRejectsTraversal(t *testing.T) {
	s := New(t.TempDir(), "")

	if _, err := s.Save("../etc", "passwd", strings.NewReader("x")); err == nil {
		t.Error("expected error for bucket traversal")
	}
	if _, err := s.Save("attachments", "../../x", strings.NewReader("x")); err == nil {
		t.Error("expected error for name traversal")
	}
	if _, err := s.Read("../go.mod"); err == nil {
		t.Error("expected error for read traversal")
	}
}

func TestUniqueNameKeepsExtension(t *testing.T) {
	a := UniqueName("Report.PDF")
	b := UniqueName("Report.PDF")

	if !strings.HasSuffix(a, ".pdf") {
		t.Errorf("expected lowercased extension, got %q", a)
	}
	if a == b {
		t.Error("expected distinct names for repeated uploads")
	}
}

func TestPublicURL(t *testing.T) {
	s := New("/tmp/uploads", "http://localhost:8080/")

	if got := s.PublicURL("attachments/a.png"); got != "http://localhost:8080/uploads/attachments/a.png" {
		t.Errorf("unexpected url: %q", got)
	}
	if got := s.PublicURL(""); got != "" {
		t.Errorf("expected empty url for empty path, got %q", got)
	}
}
