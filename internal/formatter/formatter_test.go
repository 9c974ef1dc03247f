package formatter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
	tu "github.com/spinnelein/familybook/internal/testing"
)

func sampleMedia() []*models.ImportedMedia {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return []*models.ImportedMedia{
		{
			ID:            "id-1",
			Filename:      "img_0123456789abcdef0123456789abcdef.jpg",
			OriginalName:  "beach.jpg",
			RemoteID:      "remote-1",
			Kind:          models.KindImage,
			Extension:     "jpg",
			MimeType:      "image/jpeg",
			URL:           "/uploads/img_0123456789abcdef0123456789abcdef.jpg",
			OriginalSize:  4096,
			ProcessedSize: 2048,
			CreatedAt:     created,
		},
		{
			ID:            "id-2",
			Filename:      "vid_fedcba9876543210fedcba9876543210.mp4",
			OriginalName:  "party.mp4",
			RemoteID:      "remote-2",
			Kind:          models.KindVideo,
			Extension:     "mp4",
			MimeType:      "video/mp4",
			URL:           "/uploads/vid_fedcba9876543210fedcba9876543210.mp4",
			OriginalSize:  3 << 20,
			ProcessedSize: 3 << 20,
			CreatedAt:     created,
		},
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in       int64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{3 << 20, "3.0 MiB"},
		{5 << 30, "5.0 GiB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, expected := range map[string]Format{"csv": CSV, "md": Markdown, "markdown": Markdown, "": Text, "json": JSON} {
		got, err := ParseFormat(in)
		if err != nil {
			t.Fatalf("expected no error for %q, got %v", in, err)
		}
		if got != expected {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, expected)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestExporters(t *testing.T) {
	media := sampleMedia()

	t.Run("MediaToCSV", func(t *testing.T) {
		data, err := MediaToCSV(media)
		if err != nil {
			t.Fatalf("MediaToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
		}
		if !strings.HasPrefix(lines[0], "ID,Filename,Original Name,Google Photo ID") {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if !strings.Contains(lines[1], "beach.jpg") || !strings.Contains(lines[1], "remote-1") {
			t.Errorf("CSV missing first row fields, got: %s", lines[1])
		}
		if !strings.Contains(lines[2], "2024-05-01T10:00:00Z") {
			t.Errorf("CSV missing timestamp, got: %s", lines[2])
		}
	})

	t.Run("MediaToMarkdown", func(t *testing.T) {
		stats := &models.MediaStats{}
		for _, m := range media {
			stats.Observe(m.Kind, m.ProcessedSize)
		}

		data, err := MediaToMarkdown(media, stats)
		if err != nil {
			t.Fatalf("MediaToMarkdown failed: %v", err)
		}
		output := string(data)

		if !strings.Contains(output, "# Imported Media") {
			t.Errorf("Markdown missing title")
		}
		if !strings.Contains(output, "**Files**: 2") {
			t.Errorf("Markdown missing stats, got: %s", output)
		}
		if !strings.Contains(output, "![beach.jpg](/uploads/img_") {
			t.Errorf("Markdown should embed images")
		}
		if !strings.Contains(output, "[party.mp4](/uploads/vid_") || strings.Contains(output, "![party.mp4]") {
			t.Errorf("Markdown should link videos without embedding")
		}

		t.Run("without stats", func(t *testing.T) {
			data, err := MediaToMarkdown(media, nil)
			if err != nil {
				t.Fatalf("MediaToMarkdown failed: %v", err)
			}
			if strings.Contains(string(data), "**Files**") {
				t.Errorf("expected no stats section")
			}
		})
	})

	t.Run("MediaToText", func(t *testing.T) {
		data, err := MediaToText(media)
		if err != nil {
			t.Fatalf("MediaToText failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, "Imported media: 2") {
			t.Errorf("Text missing count")
		}
		if !strings.Contains(output, "2. vid_fedcba9876543210fedcba9876543210.mp4 <- party.mp4 [video, 3.0 MiB]") {
			t.Errorf("Text missing video line, got: %s", output)
		}
	})

	t.Run("ResultToText", func(t *testing.T) {
		r := &models.ImportResult{Requested: 2}
		r.Add(*media[0])
		r.Fail("remote-9", "broken.jpg", errors.New("download returned 404"))

		output := ResultToText(r)
		if !strings.Contains(output, "Imported 1 of 2 item(s)") {
			t.Errorf("missing summary, got: %s", output)
		}
		if !strings.Contains(output, "saved 2.0 KiB") {
			t.Errorf("missing savings, got: %s", output)
		}
		if !strings.Contains(output, "✗ broken.jpg: download returned 404") {
			t.Errorf("missing failure line, got: %s", output)
		}
	})
}

func TestWriteExport(t *testing.T) {
	media := sampleMedia()

	t.Run("WithCustomPath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "media.csv")
		written, err := WriteExport(media, nil, CSV, path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if written != path {
			t.Errorf("expected %s, got %s", path, written)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "party.mp4") {
			t.Errorf("export missing rows")
		}
	})

	t.Run("WithDefaultPath", func(t *testing.T) {
		dir := t.TempDir()
		wd, err := os.Getwd()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := os.Chdir(dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer os.Chdir(wd)

		written, err := WriteExport(media, nil, JSON, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if written != "familybook_media.json" {
			t.Errorf("expected default filename, got %s", written)
		}
		if !strings.Contains(tu.MustReadFile(t, filepath.Join(dir, written)), `"google_photo_id": "remote-1"`) {
			t.Errorf("JSON export missing fields")
		}
	})
}
