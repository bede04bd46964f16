package escrow

type EscrowInstruction uint8

const (
	EscrowInstructionOpen EscrowInstruction = iota
	EscrowInstructionFulfill
	EscrowInstructionCancel

	Unknown EscrowInstruction = 0xff
)

func (i EscrowInstruction) String() string {
	switch i {
	case EscrowInstructionOpen:
		return "open"
	case EscrowInstructionFulfill:
		return "fulfill"
	case EscrowInstructionCancel:
		return "cancel"
	}
	return "unknown"
}

// GetEscrowInstruction returns the instruction selected by the leading
// discriminator byte.
func GetEscrowInstruction(data []byte) (EscrowInstruction, error) {
	if len(data) == 0 {
		return Unknown, ErrInvalidInstructionData
	}

	switch v := EscrowInstruction(data[0]); v {
	case EscrowInstructionOpen, EscrowInstructionFulfill, EscrowInstructionCancel:
		return v, nil
	}
	return Unknown, ErrInvalidInstructionData
}

func putEscrowInstruction(dst []byte, v EscrowInstruction, offset *int) {
	dst[*offset] = uint8(v)
	*offset += 1
}
