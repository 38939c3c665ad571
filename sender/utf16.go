package sender

import "unicode/utf16"

// utf16Units slices identifiers the way the gateway that issued them counts characters.
func utf16Units(s string) []uint16 {
	return utf16.Encode([]rune(s))
}
