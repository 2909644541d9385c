// Package rechunk implements the optional sentence re-chunker (§4.7): it
// buffers incoming text cues into one expanding string, repairs common OCR
// misreads, de-duplicates overlapping recognitions across cues, and emits
// complete sentences as they're scanned out of the buffer.
//
// Grounded on the teacher's accumulate-then-flush buffering style
// (internal/mpegts's PES reassembly) and on go-difflib (carried from
// ausocean-av's go.mod) for the cross-cue dedup heuristic, in place of a
// hand-rolled Levenshtein routine.
package rechunk

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/zsiec/ccx/subtitle"
)

// cueSpan records where in the buffer one merged-in cue's characters
// start, and its original time span, so emitted sentences can interpolate
// across however many cues contributed to them.
type cueSpan struct {
	startRune   int // rune offset into buf where this cue begins
	startMS     int64
	endMS       int64
	alnumBefore int // count of alphanumeric runes in buf before this cue
}

// Chunker accumulates text cues and emits complete sentences.
type Chunker struct {
	buf       []rune
	cues      []cueSpan
	emittedTo int // rune offset up to which sentences have been emitted
}

// NewChunker returns an empty Chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// normalise collapses whitespace runs to single spaces and repairs `|`
// misreads at word starts (space or start-of-string before, space or
// apostrophe after) to `I`.
func normalise(s string) string {
	fields := strings.Fields(s)
	joined := strings.Join(fields, " ")
	runes := []rune(joined)
	for i, r := range runes {
		if r != '|' {
			continue
		}
		prevOK := i == 0 || runes[i-1] == ' '
		nextOK := i == len(runes)-1 || runes[i+1] == ' ' || runes[i+1] == '\''
		if prevOK && nextOK {
			runes[i] = 'I'
		}
	}
	return string(runes)
}

// dedupCutPoint finds the longest suffix of buf that matches a prefix of
// next (case-insensitive) and returns the rune offset in buf to cut at.
// Returns len(buf) (no overlap) if nothing matches. The go-difflib check
// compares the suffix and prefix as one-element sequences, so its ratio is
// 1 for equal strings and 0 otherwise: only exact (case-insensitive)
// overlaps are accepted, and near matches are not.
func dedupCutPoint(buf []rune, next string) int {
	bufLower := strings.ToLower(string(buf))
	nextLower := strings.ToLower(next)

	maxOverlap := len(buf)
	if len(nextLower) < maxOverlap {
		maxOverlap = len(nextLower)
	}

	for overlap := maxOverlap; overlap > 0; overlap-- {
		tail := bufLower[len(bufLower)-overlap:]
		head := nextLower[:overlap]
		if tail == head {
			return len([]rune(bufLower[:len(bufLower)-overlap]))
		}

		allowedDist := overlap / 5
		if allowedDist < 1 {
			allowedDist = 1
		}
		sm := difflib.NewMatcher([]string{tail}, []string{head})
		ratio := sm.Ratio()
		// Each side is a single sequence element, so ratio is 1 only when
		// tail == head (already returned above) and 0 otherwise.
		threshold := 1.0 - float64(allowedDist)/float64(overlap)
		if overlap <= 4 {
			threshold = 0.85
		}
		if ratio >= threshold {
			return len([]rune(bufLower[:len(bufLower)-overlap]))
		}
	}
	return len(buf)
}

// Add merges a new cue into the buffer (§4.7's normalise + dedup steps).
func (c *Chunker) Add(text string, startMS, endMS int64) {
	norm := normalise(text)
	if norm == "" {
		return
	}
	nextRunes := []rune(norm)

	cut := len(c.buf)
	if len(c.buf) > 0 {
		cut = dedupCutPoint(c.buf, norm)
	}
	if cut < c.emittedTo {
		cut = c.emittedTo
	}

	c.buf = append(c.buf[:cut], nextRunes...)

	alnumBefore := countAlnum(c.buf[:cut])
	c.cues = append(c.cues, cueSpan{
		startRune:   cut,
		startMS:     startMS,
		endMS:       endMS,
		alnumBefore: alnumBefore,
	})
}

func countAlnum(rs []rune) int {
	n := 0
	for _, r := range rs {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// Drain scans forward from the last-emitted position for sentence
// terminators not immediately followed by another terminator, emitting a
// Subtitle{Kind: Text} per sentence found, with a linearly-interpolated
// time span.
func (c *Chunker) Drain() []*subtitle.Subtitle {
	var out []*subtitle.Subtitle
	for {
		cut := c.nextTerminator(c.emittedTo)
		if cut < 0 {
			break
		}
		sentence := strings.TrimSpace(string(c.buf[c.emittedTo : cut+1]))
		if sentence != "" {
			start, end := c.interpolate(c.emittedTo, cut+1)
			out = append(out, &subtitle.Subtitle{
				Kind:    subtitle.KindText,
				StartMS: start,
				EndMS:   end,
				Text:    sentence,
			})
		}
		c.emittedTo = cut + 1
	}
	return out
}

// Flush emits whatever remains in the buffer as a final, possibly
// sentence-incomplete cue, and resets the chunker.
func (c *Chunker) Flush() *subtitle.Subtitle {
	remaining := strings.TrimSpace(string(c.buf[c.emittedTo:]))
	if remaining == "" {
		c.reset()
		return nil
	}
	start, end := c.interpolate(c.emittedTo, len(c.buf))
	c.reset()
	return &subtitle.Subtitle{Kind: subtitle.KindText, StartMS: start, EndMS: end, Text: remaining}
}

func (c *Chunker) reset() {
	c.buf = nil
	c.cues = nil
	c.emittedTo = 0
}

func (c *Chunker) nextTerminator(from int) int {
	for i := from; i < len(c.buf); i++ {
		if !isTerminator(c.buf[i]) {
			continue
		}
		if i+1 < len(c.buf) && isTerminator(c.buf[i+1]) {
			continue
		}
		return i
	}
	return -1
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// interpolate maps a [startRune, endRune) span of the buffer onto a
// millisecond time range by alphanumeric character count across whichever
// cues overlap that span, falling back to total rune count if the span
// has no alphanumeric characters.
func (c *Chunker) interpolate(startRune, endRune int) (int64, int64) {
	if len(c.cues) == 0 {
		return 0, 0
	}

	first := c.cues[0]
	last := c.cues[len(c.cues)-1]
	for _, cue := range c.cues {
		if cue.startRune <= startRune {
			first = cue
		}
		if cue.startRune < endRune {
			last = cue
		}
	}

	totalAlnum := countAlnum(c.buf)
	startFrac, endFrac := 0.0, 1.0
	if totalAlnum > 0 {
		startFrac = float64(countAlnum(c.buf[:startRune])) / float64(totalAlnum)
		endFrac = float64(countAlnum(c.buf[:endRune])) / float64(totalAlnum)
	} else if len(c.buf) > 0 {
		startFrac = float64(startRune) / float64(len(c.buf))
		endFrac = float64(endRune) / float64(len(c.buf))
	}

	spanStart := first.startMS
	spanEnd := last.endMS
	total := float64(spanEnd - spanStart)
	startMS := spanStart + int64(startFrac*total)
	endMS := spanStart + int64(endFrac*total)
	return startMS, endMS
}
