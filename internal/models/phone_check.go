package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Contact placeholder names used when importing a phone number for lookup
const (
	LookupContactFirstName = "Check"
	LookupContactLastName  = ""
)

// UsernameNotSpecified is reported when a found account has no public username
const UsernameNotSpecified = "Не указан"

// APIID is a Telegram application ID that accepts both JSON numbers and strings
type APIID int

// UnmarshalJSON accepts 12345 and "12345"
func (id *APIID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*id = 0
			return nil
		}
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("api_id must be an integer: %q", raw)
	}
	*id = APIID(value)
	return nil
}

// PhoneCheckRequest is the body of POST /api/check-phone
type PhoneCheckRequest struct {
	Phone   string `json:"phone"`
	APIID   APIID  `json:"api_id"`
	APIHash string `json:"api_hash"`
}

// Validate checks the request carries everything needed to open a session
func (r *PhoneCheckRequest) Validate() error {
	if strings.TrimSpace(r.Phone) == "" {
		return fmt.Errorf("phone is required")
	}
	if r.APIID <= 0 {
		return fmt.Errorf("api_id is required")
	}
	if strings.TrimSpace(r.APIHash) == "" {
		return fmt.Errorf("api_hash is required")
	}
	return nil
}

// PhoneCheckResult is the found/not-found record returned by check-phone.
// Only Phone and Found are always present; the account fields are set when
// Found is true and Error is set when the lookup failed.
type PhoneCheckResult struct {
	Phone     string `json:"phone"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
	Found     bool   `json:"found"`
	Error     string `json:"error,omitempty"`
}

// MarshalJSON keeps first_name and last_name present (possibly empty) on found records
func (r PhoneCheckResult) MarshalJSON() ([]byte, error) {
	if !r.Found {
		type notFound PhoneCheckResult
		return json.Marshal(notFound(r))
	}
	return json.Marshal(struct {
		Phone     string `json:"phone"`
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		UserID    int64  `json:"user_id"`
		Found     bool   `json:"found"`
		Error     string `json:"error,omitempty"`
	}{r.Phone, r.Username, r.FirstName, r.LastName, r.UserID, r.Found, r.Error})
}

// TelegramAccount is the subset of a Telegram user reported by a lookup
type TelegramAccount struct {
	ID         int64
	AccessHash int64
	Username   string
	FirstName  string
	LastName   string
}

// NewFoundResult builds the record for a phone number that belongs to account
func NewFoundResult(phone string, account TelegramAccount) PhoneCheckResult {
	username := account.Username
	if username == "" {
		username = UsernameNotSpecified
	}
	return PhoneCheckResult{
		Phone:     phone,
		Username:  username,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		UserID:    account.ID,
		Found:     true,
	}
}

// NewNotFoundResult builds the record for a phone number with no account
func NewNotFoundResult(phone string) PhoneCheckResult {
	return PhoneCheckResult{Phone: phone, Found: false}
}

// NewFailedResult builds the record for a lookup that could not complete
func NewFailedResult(phone string, err error) PhoneCheckResult {
	return PhoneCheckResult{Phone: phone, Found: false, Error: err.Error()}
}
