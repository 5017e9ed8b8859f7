package utils

import (
	"crypto/rand"
	"encoding/base32"
	"regexp"
	"strings"
)

// Payment link tokens are bearer credentials: whoever holds one can open the
// corresponding invoice's payment page without authenticating. They must
// therefore come from a CSPRNG, not from timestamps or math/rand.

const paymentTokenBytes = 16 // 128 bits

var lowerBase32 = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

var paymentTokenRe = regexp.MustCompile(`^[a-z2-7]{26}$`)

// NewPaymentToken returns a fresh 26-character lowercase Base32 token carrying
// 128 bits of entropy.
func NewPaymentToken() string {
	buf := make([]byte, paymentTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic("utils: crypto/rand unavailable: " + err.Error())
	}
	return lowerBase32.EncodeToString(buf)
}

// IsPaymentToken reports whether s has the shape of a token produced by
// NewPaymentToken. Used to reject junk before hitting the database.
func IsPaymentToken(s string) bool {
	return paymentTokenRe.MatchString(strings.TrimSpace(s))
}
