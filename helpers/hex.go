package helpers

import "encoding/hex"

// MustHex decodes test vectors.
func MustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
