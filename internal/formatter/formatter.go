// Package formatter renders imported media and import results as CSV, Markdown or plain text.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
)

// Format is an export format accepted by [Export] and [WriteExport].
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "text"
	JSON     Format = "json"
)

// Extension returns the file extension used for f.
func (f Format) Extension() string {
	switch f {
	case CSV:
		return "csv"
	case Markdown:
		return "md"
	case JSON:
		return "json"
	default:
		return "txt"
	}
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case CSV, Markdown, Text, JSON:
		return f, nil
	case "md":
		return Markdown, nil
	case "txt", "":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// FormatBytes renders n with a binary unit, e.g. 1.5 MiB.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// MediaToCSV converts ledger rows to CSV with columns: ID, Filename, Original Name,
// Google Photo ID, Type, MIME Type, Original Size, Processed Size, URL, Created At
func MediaToCSV(media []*models.ImportedMedia) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Filename", "Original Name", "Google Photo ID", "Type", "MIME Type", "Original Size", "Processed Size", "URL", "Created At"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, m := range media {
		record := []string{
			m.ID,
			m.Filename,
			m.OriginalName,
			m.RemoteID,
			string(m.Kind),
			m.MimeType,
			strconv.FormatInt(m.OriginalSize, 10),
			strconv.FormatInt(m.ProcessedSize, 10),
			m.URL,
			m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// MediaToMarkdown renders a gallery page. Images are embedded; videos are linked.
func MediaToMarkdown(media []*models.ImportedMedia, stats *models.MediaStats) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Imported Media\n\n")

	if stats != nil {
		buf.WriteString(fmt.Sprintf("**Files**: %d (%s)\n", stats.TotalFiles, FormatBytes(stats.TotalSize)))
		buf.WriteString(fmt.Sprintf("**Images**: %d (%s)\n", stats.Images.Count, FormatBytes(stats.Images.Size)))
		buf.WriteString(fmt.Sprintf("**Videos**: %d (%s)\n\n", stats.Videos.Count, FormatBytes(stats.Videos.Size)))
	}

	for i, m := range media {
		switch m.Kind {
		case models.KindVideo:
			buf.WriteString(fmt.Sprintf("%d. [%s](%s) (video, %s)\n", i+1, m.OriginalName, m.URL, FormatBytes(m.ProcessedSize)))
		default:
			buf.WriteString(fmt.Sprintf("%d. ![%s](%s) (%s)\n", i+1, m.OriginalName, m.URL, FormatBytes(m.ProcessedSize)))
		}
	}

	return buf.Bytes(), nil
}

// MediaToText converts ledger rows to one line each.
func MediaToText(media []*models.ImportedMedia) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Imported media: %d\n\n", len(media)))
	for i, m := range media {
		buf.WriteString(fmt.Sprintf("%d. %s <- %s [%s, %s]\n", i+1, m.Filename, m.OriginalName, m.Kind, FormatBytes(m.ProcessedSize)))
	}

	return buf.Bytes(), nil
}

// ResultToText summarizes an import batch.
func ResultToText(r *models.ImportResult) string {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Imported %d of %d item(s)\n", r.Count, r.Requested))
	if r.Count > 0 {
		saved := r.TotalOriginalSize - r.TotalProcessedSize
		buf.WriteString(fmt.Sprintf("Downloaded %s, stored %s", FormatBytes(r.TotalOriginalSize), FormatBytes(r.TotalProcessedSize)))
		if saved > 0 {
			buf.WriteString(fmt.Sprintf(" (saved %s)", FormatBytes(saved)))
		}
		buf.WriteString("\n")
	}
	for _, m := range r.Media {
		buf.WriteString(fmt.Sprintf("  ✓ %s -> %s\n", m.OriginalName, m.URL))
	}
	for _, f := range r.Failures {
		buf.WriteString(fmt.Sprintf("  ✗ %s: %s\n", f.Filename, f.Err))
	}

	return buf.String()
}

// Export renders media in format.
func Export(media []*models.ImportedMedia, stats *models.MediaStats, format Format) ([]byte, error) {
	switch format {
	case CSV:
		return MediaToCSV(media)
	case Markdown:
		return MediaToMarkdown(media, stats)
	case JSON:
		return json.MarshalIndent(media, "", "  ")
	default:
		return MediaToText(media)
	}
}

// WriteExport writes media to path in format.
//
// Defaults to familybook_media.{ext} as the filename.
func WriteExport(media []*models.ImportedMedia, stats *models.MediaStats, format Format, path string) (string, error) {
	if path == "" {
		path = "familybook_media." + format.Extension()
	}

	data, err := Export(media, stats, format)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
