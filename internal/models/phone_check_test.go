package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expected    APIID
		expectError bool
	}{
		{name: "number", body: `{"api_id": 123456}`, expected: 123456},
		{name: "string", body: `{"api_id": "123456"}`, expected: 123456},
		{name: "padded string", body: `{"api_id": " 42 "}`, expected: 42},
		{name: "empty string", body: `{"api_id": ""}`, expected: 0},
		{name: "null", body: `{"api_id": null}`, expected: 0},
		{name: "missing", body: `{}`, expected: 0},
		{name: "not a number", body: `{"api_id": "abc"}`, expectError: true},
		{name: "float", body: `{"api_id": 1.5}`, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req PhoneCheckRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req.APIID)
		})
	}
}

func TestPhoneCheckRequest_Validate(t *testing.T) {
	tests := []struct {
		name     string
		request  PhoneCheckRequest
		errorMsg string
	}{
		{
			name:    "valid request",
			request: PhoneCheckRequest{Phone: "+79001234567", APIID: 1, APIHash: "hash"},
		},
		{
			name:     "missing phone",
			request:  PhoneCheckRequest{Phone: "  ", APIID: 1, APIHash: "hash"},
			errorMsg: "phone is required",
		},
		{
			name:     "missing api_id",
			request:  PhoneCheckRequest{Phone: "+79001234567", APIHash: "hash"},
			errorMsg: "api_id is required",
		},
		{
			name:     "missing api_hash",
			request:  PhoneCheckRequest{Phone: "+79001234567", APIID: 1},
			errorMsg: "api_hash is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.errorMsg, err.Error())
		})
	}
}

func TestNewFoundResult_DefaultsUsername(t *testing.T) {
	result := NewFoundResult("+79001234567", TelegramAccount{ID: 777, FirstName: "Ivan"})

	assert.True(t, result.Found)
	assert.Equal(t, UsernameNotSpecified, result.Username)
	assert.Equal(t, "Ivan", result.FirstName)
	assert.Equal(t, "", result.LastName)
	assert.Equal(t, int64(777), result.UserID)
}

func TestPhoneCheckResult_MarshalJSON(t *testing.T) {
	t.Run("found record keeps empty names", func(t *testing.T) {
		result := NewFoundResult("+79001234567", TelegramAccount{ID: 5, Username: "ivan"})
		data, err := json.Marshal(result)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"phone": "+79001234567",
			"username": "ivan",
			"first_name": "",
			"last_name": "",
			"user_id": 5,
			"found": true
		}`, string(data))
	})

	t.Run("not found record", func(t *testing.T) {
		data, err := json.Marshal(NewNotFoundResult("+79001234567"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"phone": "+79001234567", "found": false}`, string(data))
	})

	t.Run("failed record", func(t *testing.T) {
		data, err := json.Marshal(NewFailedResult("+1", errors.New("FLOOD_WAIT")))
		require.NoError(t, err)
		assert.JSONEq(t, `{"phone": "+1", "found": false, "error": "FLOOD_WAIT"}`, string(data))
	})
}
