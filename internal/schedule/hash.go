package schedule

import (
	"encoding/binary"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
)

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// Hash is the base-31 polynomial string hash modulo 2^32. It folds UTF-16
// code units, so a character outside the BMP contributes both halves of its
// surrogate pair.
func Hash(s string) uint32 {
	var h uint32
	for _, u := range codeUnits(s) {
		h = 31*h + uint32(u)
	}
	return h
}

// HashHex renders Hash(s) as lowercase hex without padding.
func HashHex(s string) string {
	return strconv.FormatUint(uint64(Hash(s)), 16)
}

func codeUnits(s string) []uint16 {
	b, err := utf16BE.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return utf16.Encode([]rune(s))
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return units
}
