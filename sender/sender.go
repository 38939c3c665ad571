// Package sender derives a friendly display name from a connection identifier.
package sender

import (
	"fmt"
	"strings"
)

var adjectives = [...]string{
	"Happy", "Lucky", "Sunny", "Clever", "Swift",
	"Brave", "Bright", "Wild", "Silent", "Calm",
	"Gentle", "Mighty", "Noble", "Proud", "Wise",
}

var animals = [...]string{
	"Panda", "Tiger", "Dolphin", "Eagle", "Wolf",
	"Fox", "Owl", "Koala", "Lion", "Bear",
	"Hawk", "Deer", "Otter", "Seal", "Duck",
}

const (
	seedLength   = 8
	suffixLength = 3
)

// Generate returns the same name for the same connection id, every time.
//
// The seed is the sum of the character codes of the first 8 characters. It picks
// the adjective (seed mod 15) and the animal ((seed / 100) mod 15). The numeric
// suffix is made of the digits found in the last 3 characters, or the seed mod 100
// padded to two digits when there are none.
func Generate(connectionID string) string {
	s := seed(connectionID)

	adjective := adjectives[s%len(adjectives)]
	animal := animals[(s/100)%len(animals)]

	suffix := trailingDigits(connectionID)
	if suffix == "" {
		suffix = fmt.Sprintf("%02d", s%100)
	}
	return adjective + animal + suffix
}

func seed(connectionID string) int {
	units := utf16Units(connectionID)
	if len(units) > seedLength {
		units = units[:seedLength]
	}
	sum := 0
	for _, u := range units {
		sum += int(u)
	}
	return sum
}

func trailingDigits(connectionID string) string {
	units := utf16Units(connectionID)
	if len(units) > suffixLength {
		units = units[len(units)-suffixLength:]
	}
	var b strings.Builder
	for _, u := range units {
		if u >= '0' && u <= '9' {
			b.WriteByte(byte(u))
		}
	}
	return b.String()
}
