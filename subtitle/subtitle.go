// Package subtitle defines Subtitle, the single tagged record that
// crosses the boundary between the caption/timing core and everything
// downstream of it (§3.1). The CC608, CC708 and VOBSUB decoders emit these
// records; the XDS decoder reports its metadata as xds.Event values
// instead, and no decoder produces KindXDS records. Encoders, OCR, and
// container demuxers are external collaborators.
package subtitle

// Kind tags which payload a Subtitle carries.
type Kind int

const (
	KindCC608 Kind = iota
	KindCC708
	KindBitmap
	KindText
	KindXDS
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindCC608:
		return "CC608"
	case KindCC708:
		return "CC708"
	case KindBitmap:
		return "Bitmap"
	case KindText:
		return "Text"
	case KindXDS:
		return "XDS"
	case KindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// Color is the 4-bit CC608 / 6-bit CC708 colour index space folded into a
// single enum; only the first eight values are meaningful for CC608.
type Color int

const (
	ColorWhite Color = iota
	ColorGreen
	ColorBlue
	ColorCyan
	ColorRed
	ColorYellow
	ColorMagenta
	ColorUserDefined
	ColorBlack
	ColorTransparent
)

// Font is the CC608 2-bit font index (§3.2); CC708 pens carry a richer
// attribute set (see the cc708 package), and CC708 records do not use Font.
type Font int

const (
	FontRegular Font = iota
	FontItalics
	FontUnderlined
	FontUnderlinedItalics
)

// CC608Cell is one character cell of a CC608 screen buffer.
type CC608Cell struct {
	Char  rune
	Color Color
	Font  Font
}

// CC608Row is one row of a CC608 screen buffer.
type CC608Row struct {
	Cells [32]CC608Cell
	Used  bool
}

// CC608Screen is the payload for a KindCC608 Subtitle: a completed,
// emitted 608 screen (§3.2).
type CC608Screen struct {
	Rows  [15]CC608Row
	Empty bool
}

// CC708Symbol is one cell of a CEA-708 window or TV grid (§3.4).
type CC708Symbol struct {
	Sym rune
	Len int // 0 = empty, 1 = single-byte, 2 = two-byte (P16/extended)
}

// CC708Screen is the payload for a KindCC708 Subtitle: a composited TV
// grid snapshot (§4.3.4), 75 rows x 210 columns.
type CC708Screen struct {
	Rows [75][210]CC708Symbol
}

// Bitmap is the payload for a KindBitmap Subtitle (§3.5): a DVD/VOBSUB
// SubPicture decoded to an indexed pixel plane with an RGBA palette.
type Bitmap struct {
	X, Y, W, H int
	Pixels     []byte // w*h bytes, each an index into Palette
	Palette    [4]RGBA
	OCRText    string // populated by an external OCR collaborator, if any
}

// RGBA is a single palette entry.
type RGBA struct {
	R, G, B, A byte
}

// Subtitle is the one record type that crosses the core boundary (§3.1).
// Kind selects the payload field (CC608, CC708, Bmp, Text or Raw); CC608
// and CC708 records also carry a plain-text rendering of the screen in Text.
type Subtitle struct {
	Kind    Kind
	StartMS int64
	EndMS   int64

	CC608 *CC608Screen
	CC708 *CC708Screen
	Bmp   *Bitmap
	Text  string
	TextEncoding string
	Raw   []byte

	LanguageHint string
	Channel      int
	Field        int
	Mode         string

	// Prev/Next form a deque when one logical cue splits into several
	// (e.g. a roll-up screen that scrolls multiple times before EDM).
	Prev *Subtitle
	Next *Subtitle
}

// Append links next after s, forming (or extending) a deque.
func (s *Subtitle) Append(next *Subtitle) {
	tail := s
	for tail.Next != nil {
		tail = tail.Next
	}
	tail.Next = next
	next.Prev = tail
}

// All walks the deque starting at s (inclusive) and returns every linked
// record in order.
func (s *Subtitle) All() []*Subtitle {
	if s == nil {
		return nil
	}
	var out []*Subtitle
	for n := s; n != nil; n = n.Next {
		out = append(out, n)
	}
	return out
}
