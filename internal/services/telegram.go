package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/sirupsen/logrus"

	"telegram-phone-checker/internal/logging"
	"telegram-phone-checker/internal/models"
)

// DefaultSessionPath is where the one-shot client keeps its session file
const DefaultSessionPath = "/tmp/session.json"

// ErrNotAuthorized is returned when the session file holds no logged-in user
var ErrNotAuthorized = errors.New("telegram session is not authorized")

// ContactsAPI is the part of the Telegram API used for lookups. *tg.Client implements it.
type ContactsAPI interface {
	ContactsImportContacts(ctx context.Context, contacts []tg.InputPhoneContact) (*tg.ContactsImportedContacts, error)
	ContactsDeleteContacts(ctx context.Context, id []tg.InputUserClass) (tg.UpdatesClass, error)
}

// SessionRunner opens a client session, runs f against it and disconnects
type SessionRunner interface {
	Run(ctx context.Context, apiID int, apiHash string, f func(ctx context.Context, api ContactsAPI) error) error
}

// GotdSessionRunner runs sessions with the gotd MTProto client
type GotdSessionRunner struct {
	SessionPath string
	Logger      *logrus.Logger
}

// Run connects, checks the stored session is logged in and calls f
func (r *GotdSessionRunner) Run(ctx context.Context, apiID int, apiHash string, f func(ctx context.Context, api ContactsAPI) error) error {
	path := r.SessionPath
	if path == "" {
		path = DefaultSessionPath
	}
	logger := logging.TelegramLogger(logging.EntryFromContext(ctx, r.Logger))

	client := telegram.NewClient(apiID, apiHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: path},
		Logger:         logger,
		NoUpdates:      true,
	})

	return client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get auth status: %w", err)
		}
		if !status.Authorized {
			return ErrNotAuthorized
		}

		return f(ctx, client.API())
	})
}

// TelegramService checks whether phone numbers belong to Telegram accounts
// by importing them as contacts and deleting them again
type TelegramService struct {
	runner SessionRunner
}

// NewTelegramService creates a new lookup service
func NewTelegramService(runner SessionRunner) *TelegramService {
	return &TelegramService{runner: runner}
}

// CheckPhone looks up req.Phone. The trimmed number is imported but results
// echo req.Phone as sent. Failures are reported in the result's Error field
// rather than returned.
func (s *TelegramService) CheckPhone(ctx context.Context, req models.PhoneCheckRequest) models.PhoneCheckResult {
	phone := models.NormalizePhone(req.Phone)

	if err := req.Validate(); err != nil {
		return models.NewFailedResult(req.Phone, err)
	}

	result := models.NewNotFoundResult(req.Phone)
	err := s.runner.Run(ctx, int(req.APIID), req.APIHash, func(ctx context.Context, api ContactsAPI) error {
		imported, err := api.ContactsImportContacts(ctx, []tg.InputPhoneContact{{
			ClientID:  0,
			Phone:     phone,
			FirstName: models.LookupContactFirstName,
			LastName:  models.LookupContactLastName,
		}})
		if err != nil {
			return fmt.Errorf("failed to import contact: %w", describeRPCError(err))
		}

		account, ok := firstAccount(imported.Users)
		if !ok {
			return nil
		}

		_, err = api.ContactsDeleteContacts(ctx, []tg.InputUserClass{
			&tg.InputUser{UserID: account.ID, AccessHash: account.AccessHash},
		})
		if err != nil {
			return fmt.Errorf("failed to delete contact: %w", describeRPCError(err))
		}

		result = models.NewFoundResult(req.Phone, account)
		return nil
	})
	if err != nil {
		return models.NewFailedResult(req.Phone, err)
	}

	return result
}

// firstAccount returns the first real user of an import result
func firstAccount(users []tg.UserClass) (models.TelegramAccount, bool) {
	for _, u := range users {
		user, ok := u.(*tg.User)
		if !ok {
			continue
		}
		return models.TelegramAccount{
			ID:         user.ID,
			AccessHash: user.AccessHash,
			Username:   user.Username,
			FirstName:  user.FirstName,
			LastName:   user.LastName,
		}, true
	}
	return models.TelegramAccount{}, false
}

// describeRPCError spells out flood waits, which callers are expected to back off on
func describeRPCError(err error) error {
	if d, ok := tgerr.AsFloodWait(err); ok {
		return fmt.Errorf("flood wait, retry after %s: %w", d, err)
	}
	return err
}
