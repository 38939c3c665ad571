package sender

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var namePattern = regexp.MustCompile(`^[A-Z][a-z]+[A-Z][a-z]+[0-9]{1,3}$`)

func TestGenerate_KnownValues(t *testing.T) {
	tests := []struct {
		connectionID string
		want         string
	}{
		// a=97 b=98 c=99 '1'..'5'=49..53 -> 294+255 = 549; 549%15=9 Calm; 5%15=5 Fox; suffix "345"
		{connectionID: "abc12345", want: "CalmFox345"},
		// 8 * 'a' = 776; 776%15=11 Mighty; 7 Koala; no digits -> 776%100=76
		{connectionID: "aaaaaaaaaa", want: "MightyKoala76"},
		// "A" = 65; 65%15=5 Brave; 0 Panda; 65%100 -> "65"
		{connectionID: "A", want: "BravePanda65"},
		// "Zx9" = 90+120+57 = 267; 267%15=12 Noble; 2 Dolphin; suffix "9"
		{connectionID: "Zx9", want: "NobleDolphin9"},
		// empty id: seed 0 -> Happy Panda "00"
		{connectionID: "", want: "HappyPanda00"},
	}
	for _, tt := range tests {
		t.Run(tt.connectionID, func(t *testing.T) {
			require.Equal(t, tt.want, Generate(tt.connectionID))
		})
	}
}

func TestGenerate_SmallSeedPadsSuffix(t *testing.T) {
	// "\x05" has seed 5 -> "05"
	require.Equal(t, "BravePanda05", Generate("\x05"))
}

func TestGenerate_IsDeterministic(t *testing.T) {
	req := require.New(t)
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("conn-%d-XyZ", i*7919)
		req.Equal(Generate(id), Generate(id))
	}
}

func TestGenerate_Shape(t *testing.T) {
	req := require.New(t)
	ids := []string{"abc12345", "Jh3kLmQ=", "f47ac10b-58cc-4372-a567-0e02b2c3d479", "Zz", "LKJHGFDSAqwe"}
	for _, id := range ids {
		req.Regexp(namePattern, Generate(id), id)
	}
}

func TestGenerate_Distribution(t *testing.T) {
	req := require.New(t)
	adjectivesSeen := map[string]bool{}
	animalsSeen := map[string]bool{}

	for i := 0; i < 5000; i++ {
		id := fmt.Sprintf("%08x", i*2654435761)
		name := Generate(id)
		for _, a := range adjectives {
			if !strings.HasPrefix(name, a) {
				continue
			}
			adjectivesSeen[a] = true
			for _, b := range animals {
				if strings.HasPrefix(name[len(a):], b) {
					animalsSeen[b] = true
				}
			}
		}
	}

	req.Len(adjectivesSeen, len(adjectives))
	req.GreaterOrEqual(len(animalsSeen), 3)
}
