// Package textsplit cuts long text into bounded, overlapping chunks.
package textsplit

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	DefaultSeparator = "\n"
	DefaultSize      = 3000
	DefaultOverlap   = 200
)

var (
	ErrInvalidSize    = errors.New("chunk size must be at least 4 bytes")
	ErrInvalidOverlap = errors.New("chunk overlap must be within [0, size)")
)

// Chunk is one piece of the input. Overlap is the number of leading bytes of Text
// repeated from the end of the previous chunk.
type Chunk struct {
	Text    string
	Overlap int
}

// Splitter keeps separator-delimited segments (lines by default) whole where it
// can and hard-splits any segment longer than Size on a rune boundary. Sizes are
// measured in bytes.
type Splitter struct {
	Size      int
	Overlap   int
	Separator string
}

func New(size, overlap int) (*Splitter, error) {
	if size < utf8.UTFMax {
		return nil, ErrInvalidSize
	}
	if overlap < 0 || overlap >= size {
		return nil, ErrInvalidOverlap
	}
	return &Splitter{Size: size, Overlap: overlap, Separator: DefaultSeparator}, nil
}

// Split returns the chunks of text. Every chunk is at most Size bytes, and
// joining the first chunk with every later chunk minus its Overlap prefix gives
// back text exactly.
func (s *Splitter) Split(text string) []Chunk {
	if text == "" {
		return nil
	}
	offs := s.segments(text)
	n := len(offs) - 1
	span := func(from, to int) int { return offs[to] - offs[from] }

	var chunks []Chunk
	prevStart := -1
	for next := 0; next < n; {
		start := next
		if len(chunks) > 0 {
			// Reuse trailing segments of the previous chunk, but never its first one.
			for start-1 > prevStart && span(start-1, next) <= s.Overlap {
				start--
			}
		}
		for start < next && span(start, next+1) > s.Size {
			start++
		}
		end := next + 1
		for end < n && span(start, end+1) <= s.Size {
			end++
		}
		chunks = append(chunks, Chunk{
			Text:    text[offs[start]:offs[end]],
			Overlap: span(start, next),
		})
		prevStart, next = start, end
	}
	return chunks
}

// segments returns the boundary offsets of the separator-delimited pieces, with
// oversized pieces cut into Size-bounded parts. The last offset is len(text).
func (s *Splitter) segments(text string) []int {
	sep := s.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	offs := []int{0}
	pos := 0
	for _, piece := range strings.SplitAfter(text, sep) {
		if piece == "" {
			continue
		}
		end := pos + len(piece)
		for end-pos > s.Size {
			cut := pos + s.Size
			for cut > pos && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == pos {
				// not valid UTF-8; cut on the byte limit
				cut = pos + s.Size
			}
			offs = append(offs, cut)
			pos = cut
		}
		offs = append(offs, end)
		pos = end
	}
	return offs
}

// Reassemble undoes Split.
func Reassemble(chunks []Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c.Text)
			continue
		}
		b.WriteString(c.Text[c.Overlap:])
	}
	return b.String()
}
