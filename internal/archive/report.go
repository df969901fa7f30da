package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// PrintSummary writes a readable pass summary to the provided writer.
func PrintSummary(res Result, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "Found %d bookmarks tagged %q, %d older than %s\n",
		res.Found, res.Tag, res.Selected, res.MaxAge)
	switch {
	case res.Selected == 0:
		builder.WriteString("No bookmarks to archive\n")
	case res.DryRun:
		fmt.Fprintf(&builder, "Dry-run: %d would be archived\n", res.Selected)
	default:
		fmt.Fprintf(&builder, "Summary: %d archived, %d failed, %d skipped\n",
			res.Archived, res.Failed, res.Skipped)
	}
	if _, err := io.WriteString(w, builder.String()); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// WriteJSON serializes the pass result to disk.
func WriteJSON(res Result, path string) error {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return fmt.Errorf("path must not be empty")
	}
	clean = filepath.Clean(clean)
	if filepath.IsAbs(clean) {
		return fmt.Errorf("output path must be relative, got %s", clean)
	}
	if strings.HasPrefix(clean, "..") {
		return fmt.Errorf("output path %s escapes working directory", clean)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	abs := filepath.Join(wd, clean)
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("create %s: %w", abs, err)
	}
	defer func() { _ = f.Close() }()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if encodeErr := enc.Encode(res); encodeErr != nil {
		return fmt.Errorf("encode result: %w", encodeErr)
	}
	return nil
}
