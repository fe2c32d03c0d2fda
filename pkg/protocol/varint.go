package protocol

// MaxVarintLen is the maximum number of bytes a varint can occupy.
// A uint64 requires at most 10 bytes in varint encoding.
const MaxVarintLen = 10

// UvarintLen returns the number of bytes needed to encode v as a varint.
// Header implementations use it to report WireSize for string fields.
func UvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		n++
		v >>= 7
	}
	return n
}

// StringLen returns the encoded size of s as written by Encoder.WriteString.
func StringLen(s string) int {
	return UvarintLen(uint64(len(s))) + len(s)
}
