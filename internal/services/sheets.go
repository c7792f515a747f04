package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"telegram-phone-checker/internal/models"
)

const driveScope = "https://www.googleapis.com/auth/drive"

// Values are written as typed so phone numbers like +7900... are not parsed as formulas or numbers
const (
	valueInputOption = "RAW"
	insertDataOption = "INSERT_ROWS"
)

// SheetsService appends lookup results to Google Sheets worksheets
type SheetsService struct {
	service *sheets.Service
}

// NewSheetsService authorizes with a service-account JSON key
func NewSheetsService(ctx context.Context, credentialsJSON []byte) (*SheetsService, error) {
	if len(credentialsJSON) == 0 {
		return nil, fmt.Errorf("google credentials are not configured")
	}

	return NewSheetsServiceWithOptions(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsScope, driveScope),
	)
}

// NewSheetsServiceWithOptions creates the service with explicit client options
func NewSheetsServiceWithOptions(ctx context.Context, opts ...option.ClientOption) (*SheetsService, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return &SheetsService{service: service}, nil
}

// WriteResults appends one row per result to the worksheet named in req,
// creating it with a header row first if it does not exist
func (s *SheetsService) WriteResults(ctx context.Context, req *models.SheetWriteRequest, checkedAt time.Time) (bool, int, error) {
	created, err := s.EnsureWorksheet(ctx, req.SheetID, req.SheetName)
	if err != nil {
		return false, 0, err
	}

	written, err := s.AppendRows(ctx, req.SheetID, req.SheetName, req.Rows(checkedAt))
	if err != nil {
		return created, 0, err
	}

	return created, written, nil
}

// EnsureWorksheet reports whether it had to create the worksheet
func (s *SheetsService) EnsureWorksheet(ctx context.Context, spreadsheetID, title string) (bool, error) {
	spreadsheet, err := s.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return false, fmt.Errorf("failed to open spreadsheet %s: %w", spreadsheetID, err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return false, nil
		}
	}

	_, err = s.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						RowCount:    models.WorksheetRows,
						ColumnCount: models.WorksheetColumns,
					},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to add worksheet %q: %w", title, err)
	}

	if _, err := s.AppendRows(ctx, spreadsheetID, title, [][]interface{}{models.HeaderRow()}); err != nil {
		return true, fmt.Errorf("failed to write header: %w", err)
	}

	return true, nil
}

// AppendRows appends rows after the last row of the worksheet's data
func (s *SheetsService) AppendRows(ctx context.Context, spreadsheetID, title string, rows [][]interface{}) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	resp, err := s.service.Spreadsheets.Values.Append(spreadsheetID, A1Range(title), &sheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         rows,
	}).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("failed to append rows to %q: %w", title, err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRows > 0 {
		return int(resp.Updates.UpdatedRows), nil
	}
	return len(rows), nil
}

// A1Range returns the range addressing the first cell of a worksheet
func A1Range(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!A1"
}
