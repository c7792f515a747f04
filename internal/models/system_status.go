package models

import (
	"fmt"
	"strings"
	"time"
)

// Store keys shared by the status and lock handlers
const (
	SystemLockKey        = "system_lock"
	DailyUsageKeyPrefix  = "daily_limit_"
	DailyUsageDateLayout = "2006-01-02"
)

// DefaultDailyLimit is the number of lookups the whole team may run per day
const DefaultDailyLimit = 100

// DailyUsageTTL keeps yesterday's counter readable across time zone edges
const DailyUsageTTL = 48 * time.Hour

// KVItem is one record of the key-value table
type KVItem struct {
	Key       string `json:"key" dynamodbav:"key"`
	Value     string `json:"value" dynamodbav:"value"`
	ExpiresAt int64  `json:"expires_at,omitempty" dynamodbav:"expires_at,omitempty"` // TTL, unix seconds
	UpdatedAt string `json:"updated_at,omitempty" dynamodbav:"updated_at,omitempty"`
}

// Expired reports whether the item's TTL has passed at now
func (i *KVItem) Expired(now time.Time) bool {
	return i.ExpiresAt > 0 && i.ExpiresAt <= now.Unix()
}

// SystemStatus is the snapshot returned by GET /api/get-status
type SystemStatus struct {
	Locked     bool    `json:"locked"`
	LockedBy   *string `json:"lockedBy"`
	DailyUsed  int     `json:"dailyUsed"`
	DailyLimit int     `json:"dailyLimit"`
	Remaining  int     `json:"remaining"`
}

// NewSystemStatus computes the status snapshot from the raw store reads
func NewSystemStatus(lockHolder string, locked bool, dailyUsed, dailyLimit int) SystemStatus {
	status := SystemStatus{
		Locked:     locked,
		DailyUsed:  dailyUsed,
		DailyLimit: dailyLimit,
		Remaining:  RemainingChecks(dailyUsed, dailyLimit),
	}
	if locked {
		holder := lockHolder
		status.LockedBy = &holder
	}
	return status
}

// RemainingChecks never goes below zero
func RemainingChecks(dailyUsed, dailyLimit int) int {
	if dailyUsed >= dailyLimit {
		return 0
	}
	return dailyLimit - dailyUsed
}

// LockRequest is the body of POST /api/lock-system
type LockRequest struct {
	UserName string `json:"userName"`
	Count    int    `json:"count,omitempty"` // checks to reserve against the daily limit
}

// Validate checks the lock request
func (r *LockRequest) Validate() error {
	if strings.TrimSpace(r.UserName) == "" {
		return fmt.Errorf("userName is required")
	}
	if r.Count < 0 {
		return fmt.Errorf("count must not be negative")
	}
	return nil
}

// UnlockRequest is the optional body of POST /api/unlock-system
type UnlockRequest struct {
	UserName string `json:"userName,omitempty"`
}

// LockResponse is returned by the lock and unlock handlers
type LockResponse struct {
	Success   bool    `json:"success"`
	Locked    bool    `json:"locked"`
	LockedBy  *string `json:"lockedBy,omitempty"`
	DailyUsed *int    `json:"dailyUsed,omitempty"`
	Remaining *int    `json:"remaining,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// GenerateDailyUsageKey returns the counter key for the day containing t
func GenerateDailyUsageKey(t time.Time) string {
	return DailyUsageKeyPrefix + t.Format(DailyUsageDateLayout)
}
