package cc708

// defineWindowParams is the decoded 6-byte DFx payload (§4.3.3).
type defineWindowParams struct {
	Priority    byte
	ColLock     bool
	RowLock     bool
	Visible     bool
	AnchorV     int
	RelativePos bool
	AnchorH     int
	RowCount    int
	AnchorPoint AnchorPoint
	ColCount    int
	PenStyle    byte
	WinStyle    byte
}

// decodeDefineWindow unpacks the 6 parameter bytes following a DFx opcode,
// applying the axis clamps the spec requires for malformed (e.g. Korean
// sample) streams that swap the vertical/horizontal anchors.
func decodeDefineWindow(p []byte) defineWindowParams {
	var out defineWindowParams
	out.Priority = p[0] & 0x07
	out.ColLock = (p[0]>>3)&0x01 == 1
	out.RowLock = (p[0]>>4)&0x01 == 1
	out.Visible = (p[0]>>5)&0x01 == 1

	out.AnchorV = int(p[1] & 0x7F)
	out.RelativePos = p[1]>>7 == 1

	out.AnchorH = int(p[2])

	out.AnchorPoint = AnchorPoint((p[3] >> 4) & 0x0F)
	out.RowCount = int(p[3]&0x0F) + 1

	out.ColCount = int(p[4]&0x3F) + 1

	out.PenStyle = p[5] & 0x07
	out.WinStyle = (p[5] >> 3) & 0x07

	if out.AnchorV > tvGridRows-out.RowCount {
		out.AnchorV = tvGridRows - out.RowCount
	}
	if out.AnchorH > tvGridCols-out.ColCount {
		out.AnchorH = tvGridCols - out.ColCount
	}
	if out.AnchorV < 0 {
		out.AnchorV = 0
	}
	if out.AnchorH < 0 {
		out.AnchorH = 0
	}
	return out
}

// topLeftFor computes the TV-grid row/column of a window's top-left cell
// given its anchor point and geometry (§4.3.4's nine anchor cases).
func topLeftFor(anchor AnchorPoint, anchorV, anchorH, rowCount, colCount int) (row, col int) {
	row, col = anchorV, anchorH
	switch anchor {
	case AnchorTopLeft:
		// anchor IS the top-left corner already.
	case AnchorTopCenter:
		col = anchorH - colCount/2
	case AnchorTopRight:
		col = anchorH - colCount
	case AnchorMiddleLeft:
		row = anchorV - rowCount/2
	case AnchorMiddleCenter:
		row = anchorV - rowCount/2
		col = anchorH - colCount/2
	case AnchorMiddleRight:
		row = anchorV - rowCount/2
		col = anchorH - colCount
	case AnchorBottomLeft:
		row = anchorV - rowCount
	case AnchorBottomCenter:
		row = anchorV - rowCount
		col = anchorH - colCount/2
	case AnchorBottomRight:
		row = anchorV - rowCount
		col = anchorH - colCount
	}
	if row < 0 {
		row = 0
	}
	if col < 0 {
		col = 0
	}
	if row+rowCount > tvGridRows {
		row = tvGridRows - rowCount
	}
	if col+colCount > tvGridCols {
		col = tvGridCols - colCount
	}
	return row, col
}
