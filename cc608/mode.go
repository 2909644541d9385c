package cc608

// Mode is the CEA-608 caption display mode (§3.2).
type Mode int

const (
	ModePopOn Mode = iota
	ModeRollUp1
	ModeRollUp2
	ModeRollUp3
	ModeRollUp4
	ModePaintOn
	ModeText
)

func (m Mode) String() string {
	switch m {
	case ModePopOn:
		return "pop-on"
	case ModeRollUp1:
		return "roll-up-1"
	case ModeRollUp2:
		return "roll-up-2"
	case ModeRollUp3:
		return "roll-up-3"
	case ModeRollUp4:
		return "roll-up-4"
	case ModePaintOn:
		return "paint-on"
	case ModeText:
		return "text"
	default:
		return "unknown"
	}
}

func (m Mode) isRollUp() bool {
	switch m {
	case ModeRollUp1, ModeRollUp2, ModeRollUp3, ModeRollUp4:
		return true
	}
	return false
}

// keepLines is the number of visible rows a roll-up mode retains, used by
// checkRollUp/rollUp. Text mode keeps 7 per the handbook's unspecified
// 7..15 range; the original decoder picks 7 and so do we.
func (m Mode) keepLines() int {
	switch m {
	case ModeRollUp1:
		return 1
	case ModeRollUp2:
		return 2
	case ModeRollUp3:
		return 3
	case ModeRollUp4:
		return 4
	case ModeText:
		return 7
	default:
		return 0
	}
}
