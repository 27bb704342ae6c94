package types

// EncodeCLValues encodes an argument list: a u32 count followed by each
// envelope. Used for the guest-to-host side of contract invocation.
func EncodeCLValues(args []CLValue) []byte {
	b := AppendU32(nil, uint32(len(args)))
	for _, a := range args {
		b = append(b, a.ToBytes()...)
	}
	return b
}

// DecodeCLValues decodes a complete argument list.
func DecodeCLValues(b []byte) ([]CLValue, error) {
	n, rest, err := TakeU32(b)
	if err != nil {
		return nil, err
	}
	args := make([]CLValue, 0, n)
	for i := uint32(0); i < n; i++ {
		var v CLValue
		v, rest, err = TakeCLValue(rest)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, expectEmpty(rest)
}
