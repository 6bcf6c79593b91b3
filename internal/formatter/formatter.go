// package formatter renders top artist summaries to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/shared"
)

// Supported output formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// FormatFromPath picks a format from the file extension, defaulting to JSON.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".md", ".markdown":
		return FormatMarkdown
	case ".txt":
		return FormatText
	default:
		return FormatJSON
	}
}

// ArtistsToCSV renders summaries with columns: Rank, ID, Name, Image, Top Track, Top Track URI, Spotify URL
func ArtistsToCSV(summaries []models.ArtistSummary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rank", "ID", "Name", "Image", "Top Track", "Top Track URI", "Spotify URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, s := range summaries {
		track, _ := s.TopTrack()
		record := []string{
			strconv.Itoa(i + 1),
			s.Artist.ID,
			s.Artist.Name,
			s.Artist.Thumbnail(),
			track.Name,
			track.URI,
			track.ExternalURL,
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

// ArtistsToMarkdown renders summaries as a numbered Markdown list with thumbnails.
func ArtistsToMarkdown(summaries []models.ArtistSummary) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Top Artists\n\n")
	buf.WriteString(fmt.Sprintf("**Artists**: %d\n\n", len(summaries)))

	for i, s := range summaries {
		buf.WriteString(fmt.Sprintf("## %d. %s\n\n", i+1, s.Artist.Name))
		if img := s.Artist.Thumbnail(); img != "" {
			buf.WriteString(fmt.Sprintf("![%s](%s)\n\n", s.Artist.Name, img))
		}

		switch {
		case s.Error != "":
			buf.WriteString(fmt.Sprintf("_Top tracks unavailable: %s_\n\n", s.Error))
		case len(s.TopTracks) == 0:
			buf.WriteString("_No top tracks_\n\n")
		default:
			for _, t := range s.TopTracks {
				if t.ExternalURL != "" {
					buf.WriteString(fmt.Sprintf("- [%s](%s)\n", t.Name, t.ExternalURL))
				} else {
					buf.WriteString(fmt.Sprintf("- %s\n", t.Name))
				}
			}
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

// ArtistsToText renders summaries as plain text, one artist per line.
func ArtistsToText(summaries []models.ArtistSummary) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Top artists: %d\n\n", len(summaries)))
	for i, s := range summaries {
		if track, ok := s.TopTrack(); ok {
			buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, s.Artist.Name, track.Name))
		} else {
			buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, s.Artist.Name))
		}
	}
	return buf.Bytes(), nil
}

// ArtistsToJSON renders summaries as indented JSON.
func ArtistsToJSON(summaries []models.ArtistSummary) ([]byte, error) {
	if summaries == nil {
		summaries = []models.ArtistSummary{}
	}
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Render renders summaries in format. An empty format means JSON.
func Render(summaries []models.ArtistSummary, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ArtistsToCSV(summaries)
	case FormatMarkdown, "md":
		return ArtistsToMarkdown(summaries)
	case FormatText, "text":
		return ArtistsToText(summaries)
	case FormatJSON, "":
		return ArtistsToJSON(summaries)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteArtistReport renders summaries and writes them to path, creating parent directories.
//
// An empty format is inferred from the file extension.
func WriteArtistReport(summaries []models.ArtistSummary, format, path string) error {
	if path == "" {
		return fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}
	if format == "" {
		format = FormatFromPath(path)
	}

	data, err := Render(summaries, format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteArtistTable writes a ranked, aligned artist listing to w.
func WriteArtistTable(w io.Writer, artists []models.Artist) error {
	if len(artists) == 0 {
		_, err := fmt.Fprintln(w, "No top artists.")
		return err
	}

	width := 0
	for _, a := range artists {
		width = max(width, len(a.Name))
	}

	for i, a := range artists {
		if _, err := fmt.Fprintf(w, "%3d. %-*s  %s\n", i+1, width, a.Name, a.ID); err != nil {
			return err
		}
	}
	return nil
}
