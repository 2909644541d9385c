package cc708

import "log/slog"

// DTVCCPacketSize returns the number of bytes (including the header byte)
// a DTVCC packet whose header is hdr occupies: 128 when the low 6 bits
// (size_code) are zero, size_code*2 otherwise (§3.3).
func DTVCCPacketSize(hdr byte) int {
	sizeCode := int(hdr & 0x3F)
	if sizeCode == 0 {
		return 128
	}
	return sizeCode * 2
}

// Sequence returns the packet sequence number (top 2 bits of the header).
func Sequence(hdr byte) int {
	return int(hdr>>6) & 0x03
}

// Block is one service block extracted from a DTVCC packet: which service
// it belongs to, and its raw command bytes.
type Block struct {
	ServiceNum int
	Data       []byte
}

// ParseDTVCCPacket walks a complete DTVCC packet's (service_no, block_len,
// block_data) tuples (§4.3.1 step 2). packet must include its header byte
// at index 0; service_no == 0 terminates parsing early, per spec.
func ParseDTVCCPacket(packet []byte) []Block {
	if len(packet) < 1 {
		return nil
	}
	var blocks []Block
	i := 1
	for i < len(packet) {
		header := packet[i]
		serviceNo := int(header>>5) & 0x07
		blockLen := int(header & 0x1F)
		i++

		if serviceNo == 0 && blockLen == 0 {
			break
		}
		if serviceNo == 0 && blockLen != 0 {
			// Illegal: data for service 0. Stop rather than risk
			// misreading trailing padding as further service blocks.
			break
		}

		if serviceNo == 7 {
			if i >= len(packet) {
				break
			}
			ext := packet[i]
			i++
			serviceNo = int(ext & 0x3F)
			if serviceNo < 7 {
				break
			}
		}

		if i+blockLen > len(packet) {
			blockLen = len(packet) - i
			if blockLen < 0 {
				blockLen = 0
			}
		}
		data := append([]byte(nil), packet[i:i+blockLen]...)
		i += blockLen

		if serviceNo != 0 {
			blocks = append(blocks, Block{ServiceNum: serviceNo, Data: data})
		}
	}
	return blocks
}

// Packetiser reassembles 3-byte (cc_valid, cc_type, byte_a, byte_b) router
// triplets into complete DTVCC packets (§4.3.1). A packet start (cc_type 3)
// discards any in-flight packet; a sequence number that does not follow
// the previous one is logged, and the packet is still returned.
type Packetiser struct {
	buf          []byte
	lastSequence int // -1 means none seen yet

	// Log receives UnexpectedSequence diagnostics; nil means slog.Default().
	// A sequence skip is logged and tolerated, never treated as a reason to
	// reset decoder state (observed samples break if we do).
	Log *slog.Logger
}

// NewPacketiser returns a Packetiser with no in-flight packet.
func NewPacketiser() *Packetiser {
	return &Packetiser{lastSequence: -1}
}

func (p *Packetiser) log() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

// Feed processes one cc_type/byte_a/byte_b triplet and returns a complete
// packet's bytes (header included) whenever one finishes, else nil.
func (p *Packetiser) Feed(ccType int, byteA, byteB byte) []byte {
	switch ccType {
	case 3: // packet start
		p.buf = []byte{byteA, byteB}
	case 2: // continuation
		if p.buf == nil {
			return nil
		}
		p.buf = append(p.buf, byteA, byteB)
	default:
		return nil
	}

	if len(p.buf) < 1 {
		return nil
	}
	want := DTVCCPacketSize(p.buf[0])
	if len(p.buf) < want {
		return nil
	}

	pkt := p.buf[:want]
	p.buf = nil

	seq := Sequence(pkt[0])
	if p.lastSequence != -1 && (p.lastSequence+1)%4 != seq {
		p.log().Debug("dtvcc packet sequence discrepancy", "last", p.lastSequence, "got", seq)
	}
	p.lastSequence = seq

	return pkt
}
