package types

import "fmt"

// Phase is the transaction sub-step currently executing. It is fixed for
// the lifetime of one sub-step and read-only to guest code.
type Phase uint8

const (
	PhaseSystem Phase = iota
	PhasePayment
	PhaseSession
	PhaseFinalizePayment
)

// PhaseSerializedLength is the wire size of a Phase.
const PhaseSerializedLength = 1

func (p Phase) String() string {
	switch p {
	case PhaseSystem:
		return "system"
	case PhasePayment:
		return "payment"
	case PhaseSession:
		return "session"
	case PhaseFinalizePayment:
		return "finalize-payment"
	default:
		return fmt.Sprintf("phase-%d", uint8(p))
	}
}

// ParsePhase converts a phase name to its value.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "system":
		return PhaseSystem, nil
	case "payment":
		return PhasePayment, nil
	case "session":
		return PhaseSession, nil
	case "finalize-payment":
		return PhaseFinalizePayment, nil
	default:
		return 0, fmt.Errorf("unknown phase %q", s)
	}
}

// BlockTime is the host clock reading for the current block, in
// milliseconds since the epoch. It is the only time source guest code may
// observe.
type BlockTime uint64

// BlockTimeSerializedLength is the wire size of a BlockTime.
const BlockTimeSerializedLength = 8

// ToBytes encodes the block time as a little-endian u64.
func (bt BlockTime) ToBytes() []byte {
	return AppendU64(nil, uint64(bt))
}

// BlockTimeFromBytes decodes a complete serialized block time.
func BlockTimeFromBytes(b []byte) (BlockTime, error) {
	v, rest, err := TakeU64(b)
	if err != nil {
		return 0, err
	}
	return BlockTime(v), expectEmpty(rest)
}
