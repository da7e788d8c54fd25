package crypto

import (
	"crypto/rand"
)

const (
	idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	idMask     = len(idAlphabet) - 1

	// IDLength gives 126 random bits, on par with a UUIDv4.
	IDLength = 21
)

// NewID returns a random URL-safe identifier of IDLength characters.
// The alphabet has 64 symbols so every masked byte is usable.
func NewID() (string, error) {
	return newID(IDLength)
}

func newID(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)&idMask]
	}
	return string(buf), nil
}
