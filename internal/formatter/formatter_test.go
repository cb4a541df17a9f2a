package formatter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mixtape-labs/mixtape/internal/models"
)

func samplePlaylist() (*models.CreatedPlaylist, []models.SuggestedTrack) {
	playlist := &models.CreatedPlaylist{
		ID:              "pl-1",
		Name:            "Late Night Drive",
		Description:     "AI-generated playlist: Late Night Drive",
		ExternalURL:     "https://open.spotify.com/playlist/pl-1",
		TracksAdded:     2,
		TracksRequested: 3,
	}
	tracks := []models.SuggestedTrack{
		{Artist: "The Midnight", Title: "Los Angeles"},
		{Artist: "FM-84", Title: "Running in the Night"},
	}
	return playlist, tracks
}

func TestExportToCSV(t *testing.T) {
	playlist, tracks := samplePlaylist()

	data, err := ExportToCSV(playlist, tracks)
	if err != nil {
		t.Fatalf("ExportToCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "#,Artist,Title" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "The Midnight") {
		t.Errorf("first row missing artist: %q", lines[1])
	}
}

func TestExportToMarkdown(t *testing.T) {
	playlist, tracks := samplePlaylist()

	data, err := ExportToMarkdown(playlist, tracks)
	if err != nil {
		t.Fatalf("ExportToMarkdown failed: %v", err)
	}

	text := string(data)
	for _, want := range []string{
		"# Late Night Drive",
		"**Link**: https://open.spotify.com/playlist/pl-1",
		"2 of 3 added",
		"1. The Midnight - Los Angeles",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestExportToText(t *testing.T) {
	playlist, tracks := samplePlaylist()

	data, err := ExportToText(playlist, tracks)
	if err != nil {
		t.Fatalf("ExportToText failed: %v", err)
	}

	text := string(data)
	if !strings.Contains(text, "Playlist: Late Night Drive") {
		t.Errorf("text export missing title:\n%s", text)
	}
	if !strings.Contains(text, "2. FM-84 - Running in the Night") {
		t.Errorf("text export missing numbered track:\n%s", text)
	}
}

func TestWriteExport(t *testing.T) {
	playlist, tracks := samplePlaylist()

	t.Run("writes the requested format", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "playlist.md")
		written, err := WriteExport(playlist, tracks, "md", path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		content, err := os.ReadFile(written)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if !strings.HasPrefix(string(content), "# Late Night Drive") {
			t.Errorf("unexpected content: %q", string(content[:40]))
		}
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		if _, err := WriteExport(playlist, tracks, "xlsx", filepath.Join(t.TempDir(), "x")); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}
