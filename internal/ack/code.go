package ack

import (
	"math/rand"
	"strings"
)

const (
	// codeLength is the fixed length of acknowledgment codes. The gateway's
	// reply parsing expects exactly six characters.
	codeLength = 6

	// codeAlphabet matches what recipients can comfortably type in a reply.
	codeAlphabet = "0123456789"
)

// randomCode returns a fixed-length code drawn uniformly from the numeric
// alphabet. Uniqueness against live registry entries is the caller's concern.
func randomCode() string {
	var b strings.Builder

	b.Grow(codeLength)

	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}

	return b.String()
}
