package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"telegram-phone-checker/internal/models"
)

// fakeSheetsAPI emulates the three Sheets endpoints used by SheetsService
type fakeSheetsAPI struct {
	mu        sync.Mutex
	titles    []string
	added     []*sheets.AddSheetRequest
	appends   []appendCall
	failOpen  bool
	spreadsID string
}

type appendCall struct {
	Range            string
	ValueInputOption string
	InsertDataOption string
	Values           [][]interface{}
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := "/v4/spreadsheets/" + f.spreadsID
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == prefix:
		if f.failOpen {
			http.Error(w, `{"error": {"code": 404, "message": "Requested entity was not found."}}`, http.StatusNotFound)
			return
		}
		spreadsheet := sheets.Spreadsheet{SpreadsheetId: f.spreadsID}
		for _, title := range f.titles {
			spreadsheet.Sheets = append(spreadsheet.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: title}})
		}
		_ = json.NewEncoder(w).Encode(spreadsheet)

	case r.Method == http.MethodPost && path == prefix+":batchUpdate":
		var req sheets.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, sub := range req.Requests {
			if sub.AddSheet != nil {
				f.added = append(f.added, sub.AddSheet)
				f.titles = append(f.titles, sub.AddSheet.Properties.Title)
			}
		}
		_ = json.NewEncoder(w).Encode(sheets.BatchUpdateSpreadsheetResponse{SpreadsheetId: f.spreadsID})

	case r.Method == http.MethodPost && strings.HasPrefix(path, prefix+"/values/") && strings.HasSuffix(path, ":append"):
		var body sheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		call := appendCall{
			Range:            strings.TrimSuffix(strings.TrimPrefix(path, prefix+"/values/"), ":append"),
			ValueInputOption: r.URL.Query().Get("valueInputOption"),
			InsertDataOption: r.URL.Query().Get("insertDataOption"),
			Values:           body.Values,
		}
		f.appends = append(f.appends, call)
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			SpreadsheetId: f.spreadsID,
			Updates:       &sheets.UpdateValuesResponse{UpdatedRows: int64(len(body.Values))},
		})

	default:
		http.Error(w, "unexpected request "+r.Method+" "+path, http.StatusNotFound)
	}
}

func newTestSheetsService(t *testing.T, fake *fakeSheetsAPI) *SheetsService {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	svc, err := NewSheetsServiceWithOptions(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return svc
}

func sampleWriteRequest() *models.SheetWriteRequest {
	return &models.SheetWriteRequest{
		SheetID:   "sheet-123",
		SheetName: "Acme",
		Results: []models.SheetResult{
			{Phone: "+79001234567", Username: "ivan", FirstName: "Ivan", LastName: "Petrov", UserID: "42", CheckedBy: "Anna"},
			{Phone: "+79007654321", Username: models.UsernameNotSpecified, FirstName: "Olga", UserID: "43", CheckedBy: "Anna"},
		},
	}
}

func TestSheetsService_WriteResults_CreatesSheetWithHeader(t *testing.T) {
	fake := &fakeSheetsAPI{spreadsID: "sheet-123", titles: []string{"Sheet1"}}
	svc := newTestSheetsService(t, fake)
	checkedAt := time.Date(2024, 6, 1, 9, 15, 0, 0, time.UTC)

	created, written, err := svc.WriteResults(context.Background(), sampleWriteRequest(), checkedAt)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, written)

	require.Len(t, fake.added, 1)
	assert.Equal(t, "Acme", fake.added[0].Properties.Title)
	assert.Equal(t, int64(1000), fake.added[0].Properties.GridProperties.RowCount)
	assert.Equal(t, int64(7), fake.added[0].Properties.GridProperties.ColumnCount)

	require.Len(t, fake.appends, 2)
	header := fake.appends[0]
	assert.Equal(t, "'Acme'!A1", header.Range)
	assert.Equal(t, "RAW", header.ValueInputOption)
	require.Len(t, header.Values, 1)
	assert.Equal(t, []interface{}{"Номер", "Username", "Имя", "Фамилия", "ID", "Дата проверки", "Проверил"}, header.Values[0])

	rows := fake.appends[1]
	assert.Equal(t, "INSERT_ROWS", rows.InsertDataOption)
	assert.Equal(t, [][]interface{}{
		{"+79001234567", "ivan", "Ivan", "Petrov", "42", "2024-06-01 09:15:00", "Anna"},
		{"+79007654321", "Не указан", "Olga", "", "43", "2024-06-01 09:15:00", "Anna"},
	}, rows.Values)
}

func TestSheetsService_WriteResults_ExistingSheet(t *testing.T) {
	fake := &fakeSheetsAPI{spreadsID: "sheet-123", titles: []string{"Sheet1", "Acme"}}
	svc := newTestSheetsService(t, fake)

	created, written, err := svc.WriteResults(context.Background(), sampleWriteRequest(), time.Now())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 2, written)

	assert.Empty(t, fake.added)
	require.Len(t, fake.appends, 1, "no header for an existing sheet")
	assert.Len(t, fake.appends[0].Values, 2)
}

func TestSheetsService_WriteResults_EmptyBatch(t *testing.T) {
	fake := &fakeSheetsAPI{spreadsID: "sheet-123"}
	svc := newTestSheetsService(t, fake)

	req := sampleWriteRequest()
	req.Results = nil

	created, written, err := svc.WriteResults(context.Background(), req, time.Now())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Zero(t, written)
	require.Len(t, fake.appends, 1, "only the header row")
}

func TestSheetsService_WriteResults_OpenFails(t *testing.T) {
	fake := &fakeSheetsAPI{spreadsID: "sheet-123", failOpen: true}
	svc := newTestSheetsService(t, fake)

	_, _, err := svc.WriteResults(context.Background(), sampleWriteRequest(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open spreadsheet sheet-123")
	assert.Empty(t, fake.appends)
}

func TestA1Range(t *testing.T) {
	assert.Equal(t, "'Acme'!A1", A1Range("Acme"))
	assert.Equal(t, "'O''Brien & Co'!A1", A1Range("O'Brien & Co"))
}

func TestNewSheetsService_RequiresCredentials(t *testing.T) {
	_, err := NewSheetsService(context.Background(), nil)
	assert.EqualError(t, err, "google credentials are not configured")
}
