package splitter

import (
	"strings"

	"github.com/seiri-lab/mathrag/pkg/domain/types"
)

// Profile is the window/overlap configuration of the secondary splitter
// for one content type. Sizes are in runes. Record-shaped content gets
// larger windows with proportionally large overlap so a record is not cut
// mid-field; code gets smaller windows.
type Profile struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

// ProfileFor returns the splitter profile for a detected content type
func ProfileFor(ct types.ContentType) Profile {
	switch ct {
	case types.ContentTypeRecordLines:
		return Profile{ChunkSize: 512, Overlap: 128, Separators: []string{"\n\n", "\n", "}", "{"}}
	case types.ContentTypeCode:
		return Profile{ChunkSize: 256, Overlap: 64, Separators: defaultSeparators()}
	case types.ContentTypeTable:
		return Profile{ChunkSize: 384, Overlap: 96, Separators: defaultSeparators()}
	case types.ContentTypeRecord:
		return Profile{ChunkSize: 512, Overlap: 128, Separators: defaultSeparators()}
	default:
		return Profile{ChunkSize: 512, Overlap: 128, Separators: defaultSeparators()}
	}
}

func defaultSeparators() []string {
	return []string{"\n\n", "\n", "。", " "}
}

// Piece is a span produced by a splitter, with its rune offset in the input
type Piece struct {
	Text   string
	Offset int
}

// Split cuts text into overlapping windows of at most ChunkSize runes,
// preferring to end a window at the last separator occurrence inside it.
func (p Profile) Split(text string) []Piece {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= p.ChunkSize {
		return []Piece{{Text: text, Offset: 0}}
	}

	step := p.ChunkSize - p.Overlap
	if step <= 0 {
		step = p.ChunkSize
	}

	var pieces []Piece
	for start := 0; start < len(runes); {
		end := start + p.ChunkSize
		if end >= len(runes) {
			pieces = append(pieces, Piece{Text: string(runes[start:]), Offset: start})
			break
		}

		cut := p.preferredCut(runes[start:end])
		pieces = append(pieces, Piece{Text: string(runes[start : start+cut]), Offset: start})

		next := start + cut - p.Overlap
		if next <= start {
			next = start + step
		}
		start = next
	}

	return pieces
}

// preferredCut finds the cut point inside a full window: the end of the
// last separator occurrence, or the window size when no separator fits in
// the second half.
func (p Profile) preferredCut(window []rune) int {
	text := string(window)
	best := -1
	for _, sep := range p.Separators {
		if sep == "" {
			continue
		}
		if idx := strings.LastIndex(text, sep); idx >= 0 {
			end := idx + len(sep)
			cut := len([]rune(text[:end]))
			if cut > best {
				best = cut
			}
		}
	}

	// A separator in the first half would produce badly undersized windows
	if best < len(window)/2 {
		return len(window)
	}
	return best
}
