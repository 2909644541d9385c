package router

// NAL unit types this extractor cares about (ITU-T H.264 Table 7-1).
const (
	nalTypeSEI = 6
)

// SEI payload type for user data registered by an ITU-T recommendation
// (Rec. ITU-T T.35), the carrier ATSC A/53 uses for cc_data().
const seiPayloadTypeUserDataRegistered = 4

// itu_t_t35 country code / provider code / identifier that precede an
// ATSC A/53 cc_data() payload inside a T.35 user-data SEI message.
const (
	t35CountryUSA        = 0xB5
	t35ProviderATSC      = 0x31
	t35UserIdentifierGA94 = 0x47413934 // "GA94"
	t35UserDataTypeCCData = 0x03
)

// ExtractCaptions scans one Annex B H.264 access unit for SEI NAL units
// carrying ATSC A/53 cc_data() and returns the raw (flags, byte_a, byte_b)
// triples found, in bitstream order.
//
// Grounded on the teacher's parseAnnexBGeneric start-code walk and its
// ParsePicTimingSEI payload-length varint decoding, adapted from
// pic_timing payloads to user_data_registered_itu_t_t35 payloads.
func ExtractCaptions(accessUnit []byte) []Record {
	var out []Record
	for _, nal := range parseAnnexB(accessUnit) {
		if len(nal) < 1 || nal[0]&0x1F != nalTypeSEI {
			continue
		}
		out = append(out, extractFromSEINAL(nal)...)
	}
	return out
}

type nalUnit = []byte

// parseAnnexB walks 3- and 4-byte start codes and returns each NAL's raw
// bytes, including the NAL header byte.
func parseAnnexB(data []byte) []nalUnit {
	var units []nalUnit
	n := len(data)
	if n < 4 {
		return nil
	}

	type scPos struct{ scStart, dataStart int }
	var positions []scPos
	i := 0
	for i < n-2 {
		if data[i] == 0 && data[i+1] == 0 {
			if i < n-3 && data[i+2] == 0 && data[i+3] == 1 {
				positions = append(positions, scPos{i, i + 4})
				i += 4
				continue
			}
			if data[i+2] == 1 {
				positions = append(positions, scPos{i, i + 3})
				i += 3
				continue
			}
		}
		i++
	}

	for idx, pos := range positions {
		if pos.dataStart >= n {
			continue
		}
		end := n
		if idx+1 < len(positions) {
			end = positions[idx+1].scStart
		}
		if pos.dataStart >= end {
			continue
		}
		units = append(units, data[pos.dataStart:end])
	}
	return units
}

// removeEmulationPrevention strips 0x03 emulation-prevention bytes from an
// RBSP per Annex B (the same three-byte lookahead rule the teacher uses
// for SPS/pic_timing parsing).
func removeEmulationPrevention(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if i+2 < len(data) && data[i] == 0 && data[i+1] == 0 && data[i+2] == 3 &&
			(i+3 >= len(data) || data[i+3] <= 3) {
			out = append(out, 0, 0)
			i += 2
		} else {
			out = append(out, data[i])
		}
	}
	return out
}

// extractFromSEINAL walks one SEI NAL's payload list (payload_type/
// payload_size varints, each possibly run-length-extended with 0xFF
// bytes) looking for a user_data_registered_itu_t_t35 message wrapping
// ATSC A/53 cc_data, and decodes the cc_data() triples it finds.
func extractFromSEINAL(seiNALU []byte) []Record {
	if len(seiNALU) < 2 {
		return nil
	}
	rbsp := removeEmulationPrevention(seiNALU[1:])

	var out []Record
	i := 0
	for i < len(rbsp) {
		if rbsp[i] == 0x80 {
			break
		}

		payloadType := 0
		for i < len(rbsp) && rbsp[i] == 0xFF {
			payloadType += 255
			i++
		}
		if i >= len(rbsp) {
			break
		}
		payloadType += int(rbsp[i])
		i++

		payloadSize := 0
		for i < len(rbsp) && rbsp[i] == 0xFF {
			payloadSize += 255
			i++
		}
		if i >= len(rbsp) {
			break
		}
		payloadSize += int(rbsp[i])
		i++

		if i+payloadSize > len(rbsp) {
			break
		}

		if payloadType == seiPayloadTypeUserDataRegistered {
			out = append(out, decodeT35CCData(rbsp[i:i+payloadSize])...)
		}
		i += payloadSize
	}
	return out
}

// decodeT35CCData parses a user_data_registered_itu_t_t35 payload down to
// its ATSC A/53 cc_data() triples: country code, provider code, ATSC1
// user identifier "GA94", user data type code 0x03, then
// process_cc_data_flag / cc_count / reserved, then cc_count triples.
func decodeT35CCData(payload []byte) []Record {
	if len(payload) < 8 || payload[0] != t35CountryUSA {
		return nil
	}
	providerCode := int(payload[1])<<8 | int(payload[2])
	if providerCode != t35ProviderATSC {
		return nil
	}
	userIdentifier := uint32(payload[3])<<24 | uint32(payload[4])<<16 | uint32(payload[5])<<8 | uint32(payload[6])
	if userIdentifier != t35UserIdentifierGA94 {
		return nil
	}
	if payload[7] != t35UserDataTypeCCData {
		return nil
	}

	rest := payload[8:]
	if len(rest) < 2 {
		return nil
	}
	processFlag := rest[0]&0x40 != 0
	ccCount := int(rest[0] & 0x1F)
	if !processFlag {
		return nil
	}

	body := rest[2:]
	need := ccCount * 3
	if len(body) < need {
		return nil
	}

	out := make([]Record, 0, ccCount)
	for c := 0; c < ccCount; c++ {
		off := c * 3
		out = append(out, Record{Flags: body[off], ByteA: body[off+1], ByteB: body[off+2]})
	}
	return out
}
