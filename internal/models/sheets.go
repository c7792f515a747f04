package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Worksheet layout for newly created result sheets
const (
	WorksheetRows      = 1000
	WorksheetColumns   = 7
	CheckedAtLayout    = "2006-01-02 15:04:05"
	ArchiveKeyPrefix   = "results"
	ArchiveContentType = "application/json"
)

// WorksheetHeader is the first row of every result sheet:
// number, username, first name, last name, ID, check date, checked by
var WorksheetHeader = []string{
	"Номер", "Username", "Имя", "Фамилия", "ID",
	"Дата проверки", "Проверил",
}

// UserIDCell is the user_id of a result record. Any JSON scalar is kept
// as its text form so it can be written verbatim to the sheet.
type UserIDCell string

// UnmarshalJSON keeps strings unquoted. Integer-valued numbers are written
// in plain decimal form (4.2e1 becomes 42); other numbers keep their text.
func (c *UserIDCell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = UserIDCell(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("user_id must be a string or number: %w", err)
		}
		*c = UserIDCell(integerText(n.String()))
	}
	return nil
}

func integerText(number string) string {
	if !strings.ContainsAny(number, ".eE") {
		return number
	}
	r, ok := new(big.Rat).SetString(number)
	if !ok || !r.IsInt() {
		return number
	}
	return r.Num().String()
}

// SheetResult is one found record submitted for logging
type SheetResult struct {
	Phone     string     `json:"phone"`
	Username  string     `json:"username"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	UserID    UserIDCell `json:"user_id"`
	CheckedBy string     `json:"checked_by"`
}

// Row returns the worksheet row for the record, in header column order
func (r SheetResult) Row(checkedAt time.Time) []interface{} {
	return []interface{}{
		r.Phone,
		r.Username,
		r.FirstName,
		r.LastName,
		string(r.UserID),
		checkedAt.Format(CheckedAtLayout),
		r.CheckedBy,
	}
}

// SheetWriteRequest is the body of POST /api/write-sheets
type SheetWriteRequest struct {
	SheetID   string        `json:"sheet_id"`
	SheetName string        `json:"sheet_name"`
	Results   []SheetResult `json:"results"`
}

// Validate checks the request targets a spreadsheet and worksheet
func (r *SheetWriteRequest) Validate() error {
	if strings.TrimSpace(r.SheetID) == "" {
		return fmt.Errorf("sheet_id is required")
	}
	if strings.TrimSpace(r.SheetName) == "" {
		return fmt.Errorf("sheet_name is required")
	}
	return nil
}

// Rows converts every result to a worksheet row stamped with checkedAt
func (r *SheetWriteRequest) Rows(checkedAt time.Time) [][]interface{} {
	rows := make([][]interface{}, 0, len(r.Results))
	for _, result := range r.Results {
		rows = append(rows, result.Row(checkedAt))
	}
	return rows
}

// SheetWriteResponse is returned by write-sheets
type SheetWriteResponse struct {
	Success      bool   `json:"success"`
	RowsWritten  int    `json:"rows_written"`
	SheetCreated bool   `json:"sheet_created"`
	ArchiveKey   string `json:"archive_key,omitempty"`
	ArchiveURL   string `json:"archive_url,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HeaderRow returns WorksheetHeader as a sheet row
func HeaderRow() []interface{} {
	row := make([]interface{}, len(WorksheetHeader))
	for i, cell := range WorksheetHeader {
		row[i] = cell
	}
	return row
}

// ResultArchive is the document stored for each submitted batch
type ResultArchive struct {
	ArchiveID  string        `json:"archive_id"`
	SheetID    string        `json:"sheet_id"`
	SheetName  string        `json:"sheet_name"`
	ReceivedAt time.Time     `json:"received_at"`
	Results    []SheetResult `json:"results"`
}

// GenerateArchiveKey builds results/<sheet name>/<date>/<id>.json
func GenerateArchiveKey(sheetName string, receivedAt time.Time, archiveID string) string {
	name := strings.TrimSpace(sheetName)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	return fmt.Sprintf("%s/%s/%s/%s.json", ArchiveKeyPrefix, name, receivedAt.Format(DailyUsageDateLayout), archiveID)
}
