// Package template splices a generated artwork block into a machine-specific
// instruction template between its ;START_ART and ;END_ART markers.
package template

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	StartMarker = ";START_ART"
	EndMarker   = ";END_ART"

	artworkOpen  = "; --- START ARTWORK ---"
	artworkClose = "; --- END ARTWORK ---"
)

// ErrNoStartMarker accompanies a merge whose template lacked the start
// marker. The merged text is still valid: the artwork follows the whole
// template.
var ErrNoStartMarker = errors.New("template: no " + StartMarker + " marker, artwork appended at the end")

// Template is raw instruction text loaded once and never modified.
type Template struct {
	raw string
}

func New(raw string) *Template {
	return &Template{raw: raw}
}

// Load reads a template file.
func Load(path string) (*Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	return New(string(b)), nil
}

func (t *Template) String() string { return t.raw }

// Markers reports which markers the template contains.
func (t *Template) Markers() (start, end bool) {
	s := findLine(t.raw, StartMarker)
	if s < 0 {
		return false, findLine(t.raw, EndMarker) >= 0
	}
	return true, findLine(t.raw[lineEnd(t.raw, s):], EndMarker) >= 0
}

// Merge returns the header through the start-marker line, the change block,
// the framed artwork and the footer from the end-marker line on. Lines
// between the markers are dropped. Without an end marker the footer is
// everything after the start-marker line.
func (t *Template) Merge(change, art string) (string, error) {
	var sb strings.Builder
	s := findLine(t.raw, StartMarker)
	if s < 0 {
		sb.WriteString(t.raw)
		if t.raw != "" && !strings.HasSuffix(t.raw, "\n") {
			sb.WriteByte('\n')
		}
		writeArtwork(&sb, change, art)
		return sb.String(), ErrNoStartMarker
	}

	headerEnd := lineEnd(t.raw, s)
	header := t.raw[:headerEnd]
	rest := t.raw[headerEnd:]
	footer := rest
	if e := findLine(rest, EndMarker); e >= 0 {
		footer = rest[e:]
	}

	sb.WriteString(header)
	if !strings.HasSuffix(header, "\n") {
		sb.WriteByte('\n')
	}
	writeArtwork(&sb, change, art)
	sb.WriteString(footer)
	return sb.String(), nil
}

func writeArtwork(sb *strings.Builder, change, art string) {
	sb.WriteString(change)
	sb.WriteString("\n" + artworkOpen + "\n")
	sb.WriteString(art)
	sb.WriteString("\n" + artworkClose + "\n")
}

// findLine returns the offset of the first line containing marker,
// case-insensitively, or -1.
func findLine(text, marker string) int {
	m := strings.ToLower(marker)
	for off := 0; off < len(text); {
		end := lineEnd(text, off)
		if strings.Contains(strings.ToLower(text[off:end]), m) {
			return off
		}
		off = end
	}
	return -1
}

// lineEnd returns the offset just past the newline ending the line at off,
// or len(text) for the last line.
func lineEnd(text string, off int) int {
	if i := strings.IndexByte(text[off:], '\n'); i >= 0 {
		return off + i + 1
	}
	return len(text)
}
