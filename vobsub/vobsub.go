// Package vobsub implements the DVD/VOBSUB SPU (SubPicture Unit) decoder:
// RLE pixel decoding, control-sequence command parsing, and palette/alpha
// synthesis (§4.5).
//
// Grounded on the spec's byte-for-byte framing (no VOBSUB source survived
// into original_source/), carried into the teacher's hand-rolled bit/nibble
// reader style (internal/bitio, adapted from internal/scte35's bitReader).
package vobsub

import (
	"fmt"

	"github.com/zsiec/ccx/internal/bitio"
	"github.com/zsiec/ccx/subtitle"
	"github.com/zsiec/ccx/timing"
)

// Decoder decodes VOBSUB SPU packets into Bitmap subtitles.
type Decoder struct {
	Timing *timing.Context

	// ExternalPalette is the 16-entry RGB palette from the container's
	// VOBSUB idx header, if any. When nil, greys are synthesised.
	ExternalPalette *[16][3]byte
}

// NewDecoder returns a Decoder with no external palette.
func NewDecoder() *Decoder {
	return &Decoder{Timing: timing.NewContext()}
}

// controlCmd is one parsed command from a control-sequence block.
type controlCmd struct {
	op     byte
	params []byte
}

// DecodeSPU parses one concatenated SPU packet and returns the Bitmap
// subtitle it describes.
func (d *Decoder) DecodeSPU(buf []byte) (*subtitle.Subtitle, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("vobsub: packet too short: %d bytes", len(buf))
	}
	spuSize := int(buf[0])<<8 | int(buf[1])
	ctrlOffset := int(buf[2])<<8 | int(buf[3])
	if ctrlOffset > len(buf) || ctrlOffset < 4 {
		return nil, fmt.Errorf("vobsub: control offset %d out of range (packet %d bytes)", ctrlOffset, len(buf))
	}
	if spuSize > len(buf) {
		spuSize = len(buf)
	}

	// RLE data runs from byte 4 up to ctrlOffset; the 0x06 field offsets,
	// like ctrlOffset, count from the start of the packet.
	rleData := buf[:ctrlOffset]

	var x1, x2, y1, y2 int
	var colorIdx [4]byte
	var alpha [4]byte
	var startTimeMS, stopTimeMS int64
	haveStop := false
	var pixelOffset [2]int

	off := ctrlOffset
	for off < spuSize && off < len(buf) {
		if off+4 > len(buf) {
			break
		}
		date := int(buf[off])<<8 | int(buf[off+1])
		nextCtrl := int(buf[off+2])<<8 | int(buf[off+3])
		p := off + 4

		for p < len(buf) {
			op := buf[p]
			p++
			switch op {
			case 0x01:
				startTimeMS = int64(date) * 1024 / 90
			case 0x02:
				stopTimeMS = int64(date) * 1024 / 90
				haveStop = true
			case 0x03:
				if p+2 > len(buf) {
					break
				}
				colorIdx[0] = buf[p] >> 4
				colorIdx[1] = buf[p] & 0x0F
				colorIdx[2] = buf[p+1] >> 4
				colorIdx[3] = buf[p+1] & 0x0F
				p += 2
			case 0x04:
				if p+2 > len(buf) {
					break
				}
				alpha[0] = buf[p] >> 4
				alpha[1] = buf[p] & 0x0F
				alpha[2] = buf[p+1] >> 4
				alpha[3] = buf[p+1] & 0x0F
				p += 2
			case 0x05:
				if p+6 > len(buf) {
					break
				}
				br := bitio.NewBitReader(buf[p : p+6])
				x1 = int(br.ReadUint(12))
				x2 = int(br.ReadUint(12))
				y1 = int(br.ReadUint(12))
				y2 = int(br.ReadUint(12))
				p += 6
			case 0x06:
				if p+4 > len(buf) {
					break
				}
				pixelOffset[0] = int(buf[p])<<8 | int(buf[p+1])
				pixelOffset[1] = int(buf[p+2])<<8 | int(buf[p+3])
				p += 4
			case 0x07:
				if p+2 > len(buf) {
					break
				}
				// The 2-byte length counts itself.
				skip := int(buf[p])<<8 | int(buf[p+1])
				if skip < 2 {
					skip = 2
				}
				p += skip
			case 0xFF:
				goto doneBlock
			default:
				goto doneBlock
			}
		}
	doneBlock:

		if nextCtrl == off {
			break
		}
		off = nextCtrl
	}

	w := x2 - x1 + 1
	h := y2 - y1 + 1
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("vobsub: invalid display area %dx%d", w, h)
	}

	pixels := decodeRLE(rleData, w, h, pixelOffset)
	palette := d.buildPalette(colorIdx, alpha)

	startMS := d.Timing.GetVisibleStart(timing.Field1)
	if startTimeMS > 0 {
		startMS += startTimeMS
	}
	endMS := startMS
	if haveStop {
		endMS = startMS + stopTimeMS
	}

	sub := &subtitle.Subtitle{
		Kind:    subtitle.KindBitmap,
		StartMS: startMS,
		EndMS:   endMS,
		Bmp: &subtitle.Bitmap{
			X: x1, Y: y1, W: w, H: h,
			Pixels:  pixels,
			Palette: palette,
		},
	}
	return sub, nil
}

// decodeRLE decodes the two interlaced RLE fields into a single w*h index
// plane (§4.5's RLE rules).
func decodeRLE(data []byte, w, h int, fieldOffsets [2]int) []byte {
	out := make([]byte, w*h)

	decodeField := func(start int, firstRow int) {
		if start < 0 || start >= len(data) {
			return
		}
		nr := bitio.NewNibbleReader(data[start:])
		for row := firstRow; row < h; row += 2 {
			col := 0
			for col < w {
				colorIdx, runLen, ok := readRun(nr)
				if !ok {
					nr.AlignToByte()
					break
				}
				if runLen == 0 {
					runLen = w - col
				}
				for i := 0; i < runLen && col < w; i++ {
					out[row*w+col] = colorIdx
					col++
				}
			}
			nr.AlignToByte()
		}
	}

	decodeField(fieldOffsets[0], 0)
	decodeField(fieldOffsets[1], 1)
	return out
}

// readRun decodes one variable-length RLE code of one to four nibbles (4,
// 8, 12, or 16 bits): the low 2 bits of the accumulated code are always the
// colour index, the rest (up to 14 bits) the run length. A 16-bit code with
// run length 0 means "fill to end of line" (the caller substitutes the
// remaining column count).
func readRun(nr *bitio.NibbleReader) (byte, int, bool) {
	var code uint32
	for i := 0; i < 4; i++ {
		nibble, ok := nr.Next4()
		if !ok {
			return 0, 0, false
		}
		code = code<<4 | uint32(nibble)
		switch i {
		case 0:
			if code >= 0x4 {
				return byte(code & 0x3), int(code >> 2), true
			}
		case 1:
			if code >= 0x10 {
				return byte(code & 0x3), int(code >> 2), true
			}
		case 2:
			if code >= 0x40 {
				return byte(code & 0x3), int(code >> 2), true
			}
		case 3:
			return byte(code & 0x3), int(code >> 2), true
		}
	}
	return 0, 0, true
}

// buildPalette synthesises the 4-entry RGBA palette from the 4 colour
// indices and 4 alpha nibbles, via the external idx palette if present,
// else a 4-level grey ramp by slot (see greyForOpaqueCount).
func (d *Decoder) buildPalette(colorIdx, alpha [4]byte) [4]subtitle.RGBA {
	var out [4]subtitle.RGBA
	opaqueCount := 0
	for _, a := range alpha {
		if a > 0 {
			opaqueCount++
		}
	}
	for i := 0; i < 4; i++ {
		a := byte(int(alpha[i]) * 255 / 15)
		if d.ExternalPalette != nil {
			idx := colorIdx[i]
			rgb := d.ExternalPalette[idx]
			out[i] = subtitle.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: a}
			continue
		}
		grey := greyForOpaqueCount(i, opaqueCount)
		out[i] = subtitle.RGBA{R: grey, G: grey, B: grey, A: a}
	}
	return out
}

// greyForOpaqueCount maps a palette slot to a grey level when no real
// palette is available: black for every slot when no slot is opaque,
// otherwise 0x00, 0x55, 0xAA, 0xFF for slots 0-3. Beyond zero versus
// non-zero, the number of opaque slots does not change the result.
func greyForOpaqueCount(slot, opaqueCount int) byte {
	levels := [4]byte{0x00, 0x55, 0xAA, 0xFF}
	if opaqueCount == 0 {
		return levels[0]
	}
	return levels[slot%4]
}
