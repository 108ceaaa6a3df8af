package pgp

// BytesToUint interprets b as a big-endian unsigned integer.
// An empty slice yields 0. Only the low-order 64 bits of longer inputs are kept.
func BytesToUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// UintToBytes returns the minimal big-endian encoding of v, without leading
// zero bytes. Zero encodes as an empty slice.
func UintToBytes(v uint64) []byte {
	var b []byte
	for ; v > 0; v >>= 8 {
		b = append([]byte{byte(v)}, b...)
	}
	return b
}

// padLeft returns b left-padded with zero bytes to n bytes.
// b is returned as-is when already at least n bytes long.
func padLeft(b []byte, n int) []byte {
	if len(b) >= n {
		return b
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

// cursor reads successive fields from an in-memory buffer. Every read past
// the end of buf is a framing error tagged with the current stage.
type cursor struct {
	buf   []byte
	off   int
	stage string
}

func (c *cursor) remaining() int { return len(c.buf) - c.off }

func (c *cursor) next(n int) ([]byte, error) {
	if n < 0 || n > c.remaining() {
		return nil, errorf(ErrFraming, c.stage, c.off, "need %d bytes, %d left", n, c.remaining())
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *cursor) byte() (byte, error) {
	b, err := c.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) uint(n int) (uint64, error) {
	b, err := c.next(n)
	if err != nil {
		return 0, err
	}
	return BytesToUint(b), nil
}
