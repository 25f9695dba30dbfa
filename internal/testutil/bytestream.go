package testutil

import (
	"net/url"
	"strconv"
)

// ByteStream reads bytes sequentially from a byte slice.
//
// Fuzz tests use it to derive request parameters deterministically. When the
// stream is exhausted, all reads return zero values.
type ByteStream struct {
	bytes []byte
	pos   int
}

// NewByteStream creates a stream over the given bytes.
func NewByteStream(b []byte) *ByteStream {
	return &ByteStream{bytes: b}
}

// HasMore reports whether unread bytes remain.
func (s *ByteStream) HasMore() bool {
	return s.pos < len(s.bytes)
}

// NextByte returns the next byte, or 0 if exhausted.
func (s *ByteStream) NextByte() byte {
	if s.pos >= len(s.bytes) {
		return 0
	}

	v := s.bytes[s.pos]
	s.pos++

	return v
}

// NextInt returns a non-negative int below maxVal derived from the next byte.
func (s *ByteStream) NextInt(maxVal int) int {
	if maxVal <= 0 {
		return 0
	}

	return int(s.NextByte()) % maxVal
}

// NextBool returns a boolean derived from the next byte.
func (s *ByteStream) NextBool() bool {
	return s.NextByte()&1 == 1
}

// NextRaw returns up to maxLen raw bytes as a string. The result may hold
// invalid UTF-8 and control characters.
func (s *ByteStream) NextRaw(maxLen int) string {
	n := s.NextInt(maxLen + 1)
	out := make([]byte, n)

	for i := range out {
		out[i] = s.NextByte()
	}

	return string(out)
}

// paramPool mixes valid names, system names and hostile values.
var paramPool = []string{
	"", "title", "name", "sku", "price", "created", "modified", "status",
	"desc", "DESC", "asc", "0", "-1", "2", "999999999999999999999",
	"title;DROP TABLE pages", "<script>", "%", "_", "\x00", " price ",
}

// NextParams derives a set of lister request parameters. Each parameter is
// either absent, drawn from a pool of interesting values, or raw bytes.
func (s *ByteStream) NextParams() url.Values {
	params := url.Values{}

	for _, key := range []string{"q", "by", "sort", "dir", "pg"} {
		switch s.NextInt(4) {
		case 0:
			continue
		case 1, 2:
			params.Set(key, paramPool[s.NextInt(len(paramPool))])
		default:
			params.Set(key, s.NextRaw(16))
		}
	}

	if s.NextBool() {
		params.Add("pg", strconv.Itoa(int(s.NextByte())))
	}

	return params
}
