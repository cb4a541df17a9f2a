// package formatter renders created playlists to shareable formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mixtape-labs/mixtape/internal/models"
)

// ExportToCSV renders a created playlist and its suggestions as CSV with columns: #, Artist, Title.
func ExportToCSV(playlist *models.CreatedPlaylist, tracks []models.SuggestedTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"#", "Artist", "Title"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range tracks {
		record := []string{strconv.Itoa(i + 1), track.Artist, track.Title}
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

// ExportToMarkdown renders a created playlist as a Markdown document.
func ExportToMarkdown(playlist *models.CreatedPlaylist, tracks []models.SuggestedTrack) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", playlist.Name))

	if playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", playlist.Description))
	}
	if playlist.ExternalURL != "" {
		buf.WriteString(fmt.Sprintf("**Link**: %s\n\n", playlist.ExternalURL))
	}
	buf.WriteString(fmt.Sprintf("**Tracks**: %d of %d added\n\n", playlist.TracksAdded, playlist.TracksRequested))

	buf.WriteString("## Tracks\n\n")
	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Title))
	}

	return buf.Bytes(), nil
}

// ExportToText renders a created playlist as plain text.
func ExportToText(playlist *models.CreatedPlaylist, tracks []models.SuggestedTrack) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", playlist.Name))
	if playlist.ExternalURL != "" {
		buf.WriteString(fmt.Sprintf("Link: %s\n", playlist.ExternalURL))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d of %d added\n\n", playlist.TracksAdded, playlist.TracksRequested))

	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, track.String()))
	}

	return buf.Bytes(), nil
}

// WriteExport renders the playlist in the named format and writes it to path.
//
// Supported formats: csv, md (markdown), txt (text).
func WriteExport(playlist *models.CreatedPlaylist, tracks []models.SuggestedTrack, format, path string) (string, error) {
	var data []byte
	var err error

	switch format {
	case "csv":
		data, err = ExportToCSV(playlist, tracks)
	case "md", "markdown":
		data, err = ExportToMarkdown(playlist, tracks)
	case "txt", "text":
		data, err = ExportToText(playlist, tracks)
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}

	return path, nil
}
