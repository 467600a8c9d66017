package finance

import (
	"crypto/rand"
	"time"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode builds a human-shareable transaction code, e.g.
// "TXN-20260115-7K2QX9". The date prefix makes codes easy to relate to a
// statement; the random suffix keeps them unique and hard to mistype into
// someone else's entry.
func GenerateCode(now time.Time) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform RNG is broken; there is
		// no useful recovery for a 6-char suffix.
		panic(err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return "TXN-" + now.Format("20060102") + "-" + string(buf)
}
