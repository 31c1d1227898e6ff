package bestpay

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// SigningString joins pairs as NAME=value with '&' and appends KEY=key last.
func SigningString(pairs []Pair, key string) string {
	var sb strings.Builder
	for _, p := range pairs {
		sb.WriteString(p.Name)
		sb.WriteByte('=')
		sb.WriteString(p.Value)
		sb.WriteByte('&')
	}
	sb.WriteString("KEY=")
	sb.WriteString(key)
	return sb.String()
}

// Sign returns the lowercase hex MD5 of the signing string.
func Sign(pairs []Pair, key string) string {
	sum := md5.Sum([]byte(SigningString(pairs, key)))
	return hex.EncodeToString(sum[:])
}
