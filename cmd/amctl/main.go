package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/cobra"

	"am-client/internal/app"
	"am-client/internal/chunker"
	"am-client/internal/client"
	"am-client/internal/docstore"
)

var (
	askSession    string
	askContext    string
	askNoFallback bool
	askStream     bool
	askJSON       bool

	importMaxWords int
	importOverlap  int
)

var rootCmd = &cobra.Command{
	Use:   "amctl",
	Short: "AnswerMate client CLI - ask questions with offline fallback",
	Long: `amctl talks to the AnswerMate assistant API and keeps a local cache of
reference documents so questions still get answered when the backend is
unreachable.

Example usage:
  amctl ask "What is the return policy?"
  amctl sync                       # Refresh the local document cache
  amctl status                     # Show connection and cache health
  amctl import docs/*.pdf          # Seed the cache from local files`,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection state, cache health, and system settings",
	RunE:  runStatus,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the local document cache from the backend",
	RunE:  runSync,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached documents",
	RunE:  runClear,
}

var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Seed the local cache from PDF or text files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "session id for conversation continuity")
	askCmd.Flags().StringVar(&askContext, "context", "", "extra context sent with the question")
	askCmd.Flags().BoolVar(&askNoFallback, "no-fallback", false, "fail instead of answering from the local cache")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "stream the answer token by token")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")

	importCmd.Flags().IntVar(&importMaxWords, "max-words", 400, "maximum words per imported chunk")
	importCmd.Flags().IntVar(&importOverlap, "overlap", 40, "words shared between adjacent chunks")

	rootCmd.AddCommand(askCmd, statusCmd, syncCmd, clearCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	deps, err := app.Build()
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")
	opts := client.AskOptions{
		SessionID:    askSession,
		Context:      askContext,
		SkipFallback: askNoFallback,
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	if askStream && !askJSON {
		var final client.Answer
		deps.Client.AskStream(ctx, question, opts, client.StreamCallbacks{
			OnToken: func(token string) { fmt.Print(token) },
			OnComplete: func(a client.Answer) {
				final = a
				fmt.Println()
			},
		})
		printAnswerFooter(final)
		return nil
	}

	answer := deps.Client.Ask(ctx, question, opts)
	if askJSON {
		output, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(answer.Reply)
	printAnswerFooter(answer)
	return nil
}

func printAnswerFooter(a client.Answer) {
	if a.Offline {
		fmt.Printf("\n[offline answer from local cache, confidence: %s]\n", a.Confidence)
	}
	if a.RetryAfter > 0 {
		fmt.Printf("\n[rate limited, retry in %ds]\n", a.RetryAfter)
	}
	for i, s := range a.Sources {
		fmt.Printf("  [%d] %s (%.2f)\n", i+1, s.Title, s.Relevance)
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	deps, err := app.Build()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	deps.Client.CheckConnection(ctx)
	report := deps.Client.Status(ctx)

	output, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(output))
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	deps, err := app.Build()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	if err := deps.Client.SyncCache(ctx); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	status, err := deps.Store.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Cache synced: %d documents\n", status.DocumentCount)
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	deps, err := app.Build()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	if err := deps.Client.ClearCache(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Println("Cache cleared.")
	return nil
}

// runImport seeds the cache from local PDF or text files so fallback answers
// work before the first successful sync.
func runImport(cmd *cobra.Command, args []string) error {
	deps, err := app.Build()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	var docs []docstore.ReferenceDocument
	now := time.Now()
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		text := extractText(deps, path, content)

		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		chunks := chunker.Split(text, chunker.Options{MaxWords: importMaxWords, Overlap: importOverlap})
		for _, c := range chunks {
			title := base
			if len(chunks) > 1 {
				title = fmt.Sprintf("%s (part %d)", base, c.Index+1)
			}
			docs = append(docs, docstore.ReferenceDocument{
				ID:        fmt.Sprintf("local-%s-%d", base, c.Index),
				Title:     title,
				Content:   c.Text,
				UpdatedAt: now,
			})
		}
	}
	if len(docs) == 0 {
		return fmt.Errorf("no text extracted from the given files")
	}

	existing, err := deps.Store.Retrieve(ctx)
	if err != nil {
		deps.Log.Warn("failed to read existing cache; importing fresh set only", "err", err)
		existing = nil
	}

	byID := make(map[string]int, len(existing))
	merged := existing
	for i, doc := range merged {
		byID[doc.ID] = i
	}
	for _, doc := range docs {
		if i, ok := byID[doc.ID]; ok {
			merged[i] = doc
			continue
		}
		byID[doc.ID] = len(merged)
		merged = append(merged, doc)
	}

	if err := deps.Store.Store(ctx, merged); err != nil {
		return fmt.Errorf("failed to store imported documents: %w", err)
	}
	fmt.Printf("Imported %d chunks from %d files (%d documents cached).\n", len(docs), len(args), len(merged))
	return nil
}

// extractText extracts text from local files, with PDF support.
func extractText(deps app.Deps, path string, content []byte) string {
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		text, err := extractPDF(content)
		if err != nil {
			deps.Log.Warn("pdf extraction failed, using raw bytes", "err", err, "path", path)
			return string(content)
		}
		return text
	}
	// Treat other files as plain text
	return string(content)
}

func extractPDF(content []byte) (string, error) {
	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		return "", err
	}

	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}
