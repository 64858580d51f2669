// Package deck extracts per-slide speaker notes from PPTX files. A PPTX is a
// zip of XML parts; each slide part links its notes slide through a
// relationship part.
package deck

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/domain"
)

const notesRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"

var slidePartPattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Reader extracts speaker notes from decks on disk.
type Reader struct{}

// NewReader creates a notes reader.
func NewReader() *Reader {
	return &Reader{}
}

// Notes returns one SlideNote per slide, 1-based and in deck order. Slides
// without a notes part, or whose notes trim to nothing, get empty text and
// HasNotes false.
func (r *Reader) Notes(deckPath string) ([]domain.SlideNote, error) {
	archive, err := zip.OpenReader(deckPath)
	if err != nil {
		return nil, fmt.Errorf("deck: open %s: %w", deckPath, err)
	}
	defer archive.Close()

	parts := make(map[string]*zip.File, len(archive.File))
	var slideNumbers []int
	for _, f := range archive.File {
		parts[f.Name] = f
		if m := slidePartPattern.FindStringSubmatch(f.Name); m != nil {
			n, convErr := strconv.Atoi(m[1])
			if convErr == nil {
				slideNumbers = append(slideNumbers, n)
			}
		}
	}
	if len(slideNumbers) == 0 {
		return nil, fmt.Errorf("deck: %s contains no slides", deckPath)
	}
	sort.Ints(slideNumbers)

	notes := make([]domain.SlideNote, 0, len(slideNumbers))
	for i, slideNum := range slideNumbers {
		text, err := r.slideNotes(parts, slideNum)
		if err != nil {
			return nil, fmt.Errorf("deck: slide %d: %w", slideNum, err)
		}
		text = strings.TrimSpace(text)
		notes = append(notes, domain.SlideNote{
			Index:    i + 1,
			Text:     text,
			HasNotes: text != "",
		})
	}
	return notes, nil
}

// slideNotes resolves the slide's notes part through its relationships and
// returns its body text, or "" when the slide has no notes part.
func (r *Reader) slideNotes(parts map[string]*zip.File, slideNum int) (string, error) {
	relsName := fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slideNum)
	relsPart, ok := parts[relsName]
	if !ok {
		return "", nil
	}

	var rels struct {
		Relationships []struct {
			Type   string `xml:"Type,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := decodePart(relsPart, &rels); err != nil {
		return "", fmt.Errorf("parse relationships: %w", err)
	}

	var notesTarget string
	for _, rel := range rels.Relationships {
		if rel.Type == notesRelType {
			notesTarget = rel.Target
			break
		}
	}
	if notesTarget == "" {
		return "", nil
	}

	// Targets are relative to ppt/slides/.
	notesName := path.Clean(path.Join("ppt/slides", notesTarget))
	notesPart, ok := parts[notesName]
	if !ok {
		return "", nil
	}
	return extractBodyText(notesPart)
}

// extractBodyText pulls the text runs from the notes slide's body
// placeholder, skipping slide-number and header placeholders.
func extractBodyText(part *zip.File) (string, error) {
	rc, err := part.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	type shape struct {
		Ph struct {
			Type string `xml:"type,attr"`
		} `xml:"nvSpPr>nvPr>ph"`
		Paragraphs []struct {
			Runs []struct {
				Text string `xml:"t"`
			} `xml:"r"`
		} `xml:"txBody>p"`
	}

	decoder := xml.NewDecoder(rc)
	var paragraphs []string
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "sp" {
			continue
		}
		var sp shape
		if err := decoder.DecodeElement(&sp, &start); err != nil {
			return "", fmt.Errorf("parse shape: %w", err)
		}
		if sp.Ph.Type != "body" {
			continue
		}
		for _, p := range sp.Paragraphs {
			var runs []string
			for _, run := range p.Runs {
				runs = append(runs, run.Text)
			}
			paragraphs = append(paragraphs, strings.Join(runs, ""))
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

func decodePart(part *zip.File, v any) error {
	rc, err := part.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(v)
}
