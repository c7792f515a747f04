package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"telegram-phone-checker/internal/models"
)

// KeyValueStore is the hosted key-value store holding the lock and usage records
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, string, error)
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
	DeleteIfValue(ctx context.Context, key, value string) (bool, error)
}

// Errors returned by the lock operations
var (
	ErrLockHeld           = errors.New("system is locked")
	ErrLockNotOwned       = errors.New("lock is held by another user")
	ErrDailyLimitExceeded = errors.New("daily limit exceeded")
	ErrInvalidCounter     = errors.New("daily usage counter is not an integer")
)

// LockHeldError reports who holds the lock
type LockHeldError struct {
	Holder string
}

func (e *LockHeldError) Error() string {
	if e.Holder == "" {
		return ErrLockHeld.Error()
	}
	return fmt.Sprintf("%s by %s", ErrLockHeld, e.Holder)
}

func (e *LockHeldError) Is(target error) bool { return target == ErrLockHeld }

// DailyLimitError reports how many checks are left today
type DailyLimitError struct {
	Used      int
	Requested int
	Remaining int
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("%s: %d requested, %d remaining", ErrDailyLimitExceeded, e.Requested, e.Remaining)
}

func (e *DailyLimitError) Is(target error) bool { return target == ErrDailyLimitExceeded }

// StatusConfig holds the limits applied by StatusService
type StatusConfig struct {
	DailyLimit int
	LockTTL    time.Duration
	Location   *time.Location
}

// StatusService computes the shared usage/lock status and manages the lock
type StatusService struct {
	store      KeyValueStore
	dailyLimit int
	lockTTL    time.Duration
	location   *time.Location
	now        func() time.Time
}

// NewStatusService creates a status service over store
func NewStatusService(store KeyValueStore, cfg StatusConfig) *StatusService {
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = models.DefaultDailyLimit
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &StatusService{
		store:      store,
		dailyLimit: cfg.DailyLimit,
		lockTTL:    cfg.LockTTL,
		location:   cfg.Location,
		now:        time.Now,
	}
}

// Today returns the current time in the configured time zone
func (s *StatusService) Today() time.Time {
	return s.now().In(s.location)
}

// GetStatus reads the lock holder and today's usage counter
func (s *StatusService) GetStatus(ctx context.Context) (models.SystemStatus, error) {
	holder, locked, err := s.store.Get(ctx, models.SystemLockKey)
	if err != nil {
		return models.SystemStatus{}, fmt.Errorf("failed to read lock: %w", err)
	}

	used, err := s.dailyUsed(ctx)
	if err != nil {
		return models.SystemStatus{}, err
	}

	return models.NewSystemStatus(holder, locked, used, s.dailyLimit), nil
}

// AcquireLock takes the system lock for req.UserName and reserves req.Count
// checks against today's limit
func (s *StatusService) AcquireLock(ctx context.Context, req models.LockRequest) (models.LockResponse, error) {
	if err := req.Validate(); err != nil {
		return models.LockResponse{}, err
	}
	userName := strings.TrimSpace(req.UserName)

	used, err := s.dailyUsed(ctx)
	if err != nil {
		return models.LockResponse{}, err
	}
	if req.Count > 0 && used+req.Count > s.dailyLimit {
		return models.LockResponse{}, &DailyLimitError{
			Used:      used,
			Requested: req.Count,
			Remaining: models.RemainingChecks(used, s.dailyLimit),
		}
	}

	acquired, holder, err := s.store.PutIfAbsent(ctx, models.SystemLockKey, userName, s.lockTTL)
	if err != nil {
		return models.LockResponse{}, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return models.LockResponse{}, &LockHeldError{Holder: holder}
	}

	if req.Count > 0 {
		total, err := s.store.Increment(ctx, models.GenerateDailyUsageKey(s.Today()), int64(req.Count), models.DailyUsageTTL)
		if err != nil {
			reserveErr := fmt.Errorf("failed to reserve %d checks: %w", req.Count, err)
			if _, releaseErr := s.store.DeleteIfValue(ctx, models.SystemLockKey, userName); releaseErr != nil {
				return models.LockResponse{}, errors.Join(reserveErr, fmt.Errorf("failed to release lock: %w", releaseErr))
			}
			return models.LockResponse{}, reserveErr
		}
		used = int(total)
	}

	remaining := models.RemainingChecks(used, s.dailyLimit)
	return models.LockResponse{
		Success:   true,
		Locked:    true,
		LockedBy:  &userName,
		DailyUsed: &used,
		Remaining: &remaining,
	}, nil
}

// ReleaseLock frees the system lock. With a user name only that user's lock
// is released; without one the lock is removed unconditionally.
func (s *StatusService) ReleaseLock(ctx context.Context, userName string) error {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		if err := s.store.Delete(ctx, models.SystemLockKey); err != nil {
			return fmt.Errorf("failed to release lock: %w", err)
		}
		return nil
	}

	released, err := s.store.DeleteIfValue(ctx, models.SystemLockKey, userName)
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if released {
		return nil
	}

	holder, locked, err := s.store.Get(ctx, models.SystemLockKey)
	if err != nil {
		return fmt.Errorf("failed to read lock: %w", err)
	}
	if !locked {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrLockNotOwned, holder)
}

func (s *StatusService) dailyUsed(ctx context.Context) (int, error) {
	key := models.GenerateDailyUsageKey(s.Today())

	raw, found, err := s.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to read daily usage: %w", err)
	}
	if !found || raw == "" {
		return 0, nil
	}

	used, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidCounter, key, raw)
	}
	return used, nil
}
