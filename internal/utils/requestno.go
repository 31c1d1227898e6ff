package utils

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateRequestNo returns prefix + yyyyMMddHHmmss + 8 random hex digits, uppercased.
// The result stays within the gateway's 32 character limit for prefixes up to 10
// characters.
func GenerateRequestNo(prefix string) string {
	now := time.Now()
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strings.ToUpper(prefix + now.Format("20060102150405") + random)
}
