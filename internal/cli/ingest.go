package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/modules/ingestion/extractor"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/dbctx"
)

var ingestExcludes []string

var ingestCmd = &cobra.Command{
	Use:   "ingest <pattern>...",
	Short: "Index local documents",
	Long: `Extract, chunk and index local documents synchronously.
Patterns support ** globs. Files with unsupported extensions are skipped.

Examples:
  bajaj-cloud ingest policy.pdf
  bajaj-cloud ingest "docs/**/*.{pdf,docx}" --exclude "**/drafts/**"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringArrayVar(&ingestExcludes, "exclude", nil, "glob of paths to skip (repeatable)")
}

// expandPatterns resolves each pattern to the supported files it names,
// sorted and deduplicated.
func expandPatterns(patterns, excludes []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, path := range matches {
			if seen[path] || excluded(path, excludes) {
				continue
			}
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			if _, err := extractor.ParseFormat(path); err != nil {
				continue
			}
			seen[path] = true
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

func excluded(path string, excludes []string) bool {
	slashed := filepath.ToSlash(path)
	trimmed := strings.TrimPrefix(slashed, "/")
	for _, pattern := range excludes {
		if matched, err := doublestar.Match(pattern, slashed); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, trimmed); err == nil && matched {
			return true
		}
	}
	return false
}

func runIngest(cmd *cobra.Command, args []string) error {
	files, err := expandPatterns(args, ingestExcludes)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported documents matched")
	}

	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range files {
		format, _ := extractor.ParseFormat(path)
		documentID := uuid.NewString() + format.Ext()
		info, _ := os.Stat(path)

		row := &domain.DocumentStatus{
			DocumentID:   documentID,
			Status:       domain.StatusPending,
			Source:       domain.SourceCLI,
			DocumentType: domain.DocumentTypeUnknown,
		}
		if info != nil {
			row.FileSize = info.Size()
		}
		statuses := a.Services.Statuses
		if err := statuses.Create(dbctx.New(ctx), row); err != nil {
			return fmt.Errorf("register %s: %w", path, err)
		}

		res, err := a.Services.Pipeline.Process(ctx, path, documentID)
		if err != nil {
			failed++
			_ = statuses.MarkFailed(dbctx.New(ctx), documentID, err.Error())
			fmt.Fprintf(out, "%s  %d  %s  %s: %v\n", documentID, 0, domain.StatusFailed, path, err)
		} else {
			_ = statuses.MarkReady(dbctx.New(ctx), documentID, &res.Document, res.ChunkCount)
			fmt.Fprintf(out, "%s  %d  %s  %s\n", documentID, res.ChunkCount, domain.StatusReady, path)
		}
		_ = bar.Add(1)
	}
	if inv := a.Services.Invalidator; inv != nil {
		if err := inv.Invalidate(ctx, "*"); err != nil {
			a.Log.Warn("Answer cache invalidation failed", "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(files))
	}
	return nil
}
