package tracking

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"
)

const (
	unknownIP    = "unknown"
	maxHeaderLen = 500
)

// HashIP returns the hex SHA-256 of salt+ip. Raw addresses are never stored.
func HashIP(salt, ip string) string {
	if ip == "" {
		ip = unknownIP
	}
	sum := sha256.Sum256([]byte(salt + ip))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
