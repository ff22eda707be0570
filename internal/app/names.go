package app

import "math/rand"

const (
	nameLetters = "abcdefghijklmnopqrstuvwxyz"
	nameDigits  = "0123456789"
)

// generateName builds a player name of 5 distinct letters followed by 3 distinct digits.
func generateName(rnd *rand.Rand) string {
	buf := make([]byte, 0, 8)
	for _, i := range rnd.Perm(len(nameLetters))[:5] {
		buf = append(buf, nameLetters[i])
	}
	for _, i := range rnd.Perm(len(nameDigits))[:3] {
		buf = append(buf, nameDigits[i])
	}
	return string(buf)
}
