package chat

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandInsertCommandsPassthrough(t *testing.T) {
	in := "just a normal message\nwith two lines"
	out, err := expandInsertCommands(in, io.Discard)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if out != in {
		t.Errorf("plain message changed: %q", out)
	}
}

func TestExpandReadEmbedsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("line one\nline two\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := expandInsertCommands("look at this:\n:read "+path+"\nthanks", io.Discard)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := "look at this:\nline one\nline two\nthanks"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestExpandReadMissingFile(t *testing.T) {
	_, err := expandInsertCommands(":read /definitely/not/here.txt", io.Discard)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExpandReadRejectsBinary(t *testing.T) {
	dir := t.TempDir()

	// Binary by extension.
	png := filepath.Join(dir, "image.png")
	if err := os.WriteFile(png, []byte("pretend image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := expandInsertCommands(":read "+png, io.Discard); err == nil {
		t.Error("png accepted")
	}

	// Binary by content.
	blob := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(blob, []byte{0xff, 0xfe, 0x00, 0x01}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := expandInsertCommands(":read "+blob, io.Discard); err == nil {
		t.Error("invalid utf-8 accepted")
	}
}

func TestExpandWebEmbedsPageText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><head><style>body{}</style><script>var x=1;</script></head>`+
			`<body><h1>Title</h1><p>Useful text.</p></body></html>`)
	}))
	defer srv.Close()

	out, err := expandInsertCommands(":web "+srv.URL, io.Discard)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if !strings.Contains(out, "Useful text.") {
		t.Errorf("page text missing: %q", out)
	}
	if strings.Contains(out, "var x=1") || strings.Contains(out, "body{}") {
		t.Errorf("script or style leaked into extraction: %q", out)
	}
	if !strings.Contains(out, srv.URL) {
		t.Errorf("source url missing from embed: %q", out)
	}
}

func TestExpandWebBadURL(t *testing.T) {
	if _, err := expandInsertCommands(":web not-a-url", io.Discard); err == nil {
		t.Error("bad url accepted")
	}
}

func TestExpandWebErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := expandInsertCommands(":web "+srv.URL, io.Discard); err == nil {
		t.Error("404 accepted")
	}
}
