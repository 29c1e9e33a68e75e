package main

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"am-client/internal/app"
)

func testDeps() app.Deps {
	return app.Deps{Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestExtractTextPlain(t *testing.T) {
	got := extractText(testDeps(), "notes.txt", []byte("plain text content"))
	if got != "plain text content" {
		t.Errorf("expected passthrough for text files, got %q", got)
	}
}

func TestExtractTextBrokenPDFFallsBack(t *testing.T) {
	content := []byte("not actually a pdf")
	got := extractText(testDeps(), "broken.PDF", content)
	if got != string(content) {
		t.Errorf("expected raw bytes fallback for unparseable pdf, got %q", got)
	}
}

func TestExtractPDFRejectsGarbage(t *testing.T) {
	if _, err := extractPDF([]byte("garbage")); err == nil {
		t.Error("expected error for non-pdf input")
	}
}

func TestAskCommandRequiresQuestion(t *testing.T) {
	if err := askCmd.Args(askCmd, nil); err == nil {
		t.Error("expected error when no question is given")
	}
	if err := askCmd.Args(askCmd, []string{"what", "is", "this"}); err != nil {
		t.Errorf("unexpected error for valid args: %v", err)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	want := []string{"ask", "status", "sync", "clear", "import"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if strings.HasPrefix(c.Use, name) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
