package cc708

import "golang.org/x/text/encoding/charmap"

// g0 maps G0 bytes (0x20-0x7F) to internal code points: plain ASCII
// except 0x7F, which CEA-708 repurposes as the musical note glyph (§4.3.5).
func g0(b byte) rune {
	if b == 0x7F {
		return '♪'
	}
	return rune(b)
}

// g1 maps G1 bytes (0xA0-0xFF) through ISO-8859-1, the encoding CEA-708's
// G1 set is drawn from, rather than hand-rolling a Latin-1 table.
func g1(b byte) rune {
	r, ok := charmap.ISO8859_1.DecodeByte(b)
	if !ok {
		return rune(b)
	}
	return rune(r)
}

// g2Table holds the small set of non-space G2 extended-miscellaneous glyphs
// (EXT1 then 0x20-0x7F); everything not listed maps to a space, matching
// the original decoder's sparse table.
var g2Table = map[byte]rune{
	0x20: ' ', // transparent space rendered as NBSP
	0x21: '¡', // inverted exclamation mark
	0x25: '…', // horizontal ellipsis
	0x2A: 'Š', // S with caron
	0x2C: 'Œ', // OE ligature
	0x30: '█', // solid block
	0x31: '‘', // left single quote
	0x32: '’', // right single quote
	0x33: '“', // left double quote
	0x34: '”', // right double quote
	0x35: '•', // bullet
	0x39: '™', // trademark
	0x3A: 'š', // s with caron
	0x3C: 'œ', // oe ligature
	0x3D: '℠', // service mark
	0x3F: 'Ÿ', // Y with diaeresis
}

func g2(b byte) rune {
	if r, ok := g2Table[b]; ok {
		return r
	}
	return ' '
}

// g3Table defines the CC logo code point at 0xA0 (EXT1 then 0xA0-0xFF); all
// other G3 bytes are reserved and render as a space.
var g3Table = map[byte]rune{
	0xA0: '■', // CC logo placeholder glyph
}

func g3(b byte) rune {
	if r, ok := g3Table[b]; ok {
		return r
	}
	return ' '
}
