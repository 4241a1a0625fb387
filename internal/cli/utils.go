// Package cli provides output helpers for the notemind command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/notemind/internal/indexer"
	"github.com/hyperjump/notemind/internal/models"
	"github.com/hyperjump/notemind/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --format flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	if len(response.Results) == 0 {
		_, err := fmt.Fprintf(w, "No notes match %q.\n", response.Query)
		return err
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for i, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%d. %s | Score: %.4f\n", i+1, result.Title, result.Score)
		if result.Path != "" && result.Path != result.Title {
			fmt.Fprintf(w, "Path: %s\n", result.Path)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(oneLine(result.ContentSnippet), 200))
	}
	return nil
}

// WriteChat writes a composed answer to w in the given format.
func WriteChat(w io.Writer, response *models.ChatResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	_, err := fmt.Fprintln(w, response.Answer)
	return err
}

// WriteSummary writes the result of a directory indexing run.
func WriteSummary(w io.Writer, sum indexer.Summary, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{
			"indexed":     sum.Indexed,
			"unchanged":   sum.Unchanged,
			"failed":      sum.Failed,
			"pruned":      sum.Pruned,
			"duration_ms": sum.Duration.Milliseconds(),
		})
	}
	_, err := fmt.Fprintf(w, "Indexed %d notes (%d unchanged, %d failed, %d pruned) in %s\n",
		sum.Indexed, sum.Unchanged, sum.Failed, sum.Pruned, sum.Duration.Round(1e6))
	return err
}

// WriteStatus writes store status key/value pairs in a stable order.
func WriteStatus(w io.Writer, status map[string]interface{}, keys []string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	width := 0
	for _, k := range keys {
		if len(k)+1 > width {
			width = len(k) + 1
		}
	}
	for _, k := range keys {
		v, ok := status[k]
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "%-*s  %v\n", width, k+":", v); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
