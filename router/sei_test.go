package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildCCDataSEI wraps cc_data triples in a user_data_registered_itu_t_t35
// SEI message, then in a SEI NAL unit, Annex B start-code delimited.
func buildCCDataSEI(records []Record) []byte {
	var body []byte
	body = append(body, t35CountryUSA)
	body = append(body, byte(t35ProviderATSC>>8), byte(t35ProviderATSC))
	body = append(body,
		byte(t35UserIdentifierGA94>>24), byte(t35UserIdentifierGA94>>16),
		byte(t35UserIdentifierGA94>>8), byte(t35UserIdentifierGA94))
	body = append(body, t35UserDataTypeCCData)
	body = append(body, 0x40|byte(len(records)&0x1F)) // process_cc_data_flag=1
	body = append(body, 0xFF)                         // reserved byte (em_data marker-ish)
	for _, r := range records {
		body = append(body, r.Flags, r.ByteA, r.ByteB)
	}

	var sei []byte
	sei = append(sei, byte(nalTypeSEI)) // NAL header, nal_ref_idc=0
	sei = append(sei, seiPayloadTypeUserDataRegistered)
	sei = append(sei, byte(len(body)))
	sei = append(sei, body...)
	sei = append(sei, 0x80) // rbsp_trailing_bits

	var au []byte
	au = append(au, 0x00, 0x00, 0x00, 0x01)
	au = append(au, sei...)
	return au
}

func TestExtractCaptions_FindsCCDataInSEI(t *testing.T) {
	want := []Record{{Flags: 0xFC, ByteA: 0x80, ByteB: 0x80}, {Flags: 0xFD, ByteA: 0x20, ByteB: 0x20}}
	au := buildCCDataSEI(want)
	got := ExtractCaptions(au)
	require.Len(t, got, 2)
	assert.Equal(t, want, got)
}

func TestExtractCaptions_IgnoresNonSEINALs(t *testing.T) {
	au := []byte{0x00, 0x00, 0x00, 0x01, 0x65, 0xAA, 0xBB} // NAL type 5 (IDR slice)
	assert.Empty(t, ExtractCaptions(au))
}

func TestDecodeT35CCData_RejectsWrongIdentifier(t *testing.T) {
	body := []byte{t35CountryUSA, 0x00, 0x31, 0x00, 0x00, 0x00, 0x00, t35UserDataTypeCCData}
	assert.Empty(t, decodeT35CCData(body))
}
