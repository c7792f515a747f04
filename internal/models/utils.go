package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateArchiveID creates a unique ID for an archived result batch
func GenerateArchiveID() string {
	return "batch_" + uuid.NewString()
}

// NormalizePhone trims the whitespace a pasted number list leaves around entries
func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

// ExpiresAt returns the TTL attribute value for an item living ttl from now
func ExpiresAt(now time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return now.Add(ttl).Unix()
}
