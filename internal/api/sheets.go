package api

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"

	"telegram-phone-checker/internal/logging"
	"telegram-phone-checker/internal/models"
	"telegram-phone-checker/internal/services"
)

// SheetWriter appends results to a worksheet, creating it if needed
type SheetWriter interface {
	WriteResults(ctx context.Context, req *models.SheetWriteRequest, checkedAt time.Time) (bool, int, error)
}

// ResultArchiver keeps a copy of each submitted batch
type ResultArchiver interface {
	ArchiveResults(ctx context.Context, req *models.SheetWriteRequest, receivedAt time.Time) (*services.S3UploadResult, error)
}

// SheetsHandlerConfig wires the write-sheets handler
type SheetsHandlerConfig struct {
	Writer   SheetWriter
	Archiver ResultArchiver // optional
	Location *time.Location
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

// NewSheetsHandler serves POST /api/write-sheets. Spreadsheet failures are
// reported as {"success": false, "error": ...} with status 200; archive
// failures are only logged.
func NewSheetsHandler(cfg SheetsHandlerConfig) Handler {
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if resp, ok := allowMethod(request, http.MethodPost); !ok {
			return resp, nil
		}
		log := logging.ForRequest(ctx, cfg.Logger, "write-sheets", request)

		var req models.SheetWriteRequest
		if err := decodeBody(request, &req, false); err != nil {
			log.WithError(err).Warn("Rejected write-sheets request")
			return JSONResponse(http.StatusBadRequest, models.SheetWriteResponse{Error: err.Error()}), nil
		}
		if err := req.Validate(); err != nil {
			log.WithError(err).Warn("Rejected write-sheets request")
			return JSONResponse(http.StatusBadRequest, models.SheetWriteResponse{Error: err.Error()}), nil
		}

		log = log.WithFields(logrus.Fields{
			"sheet_id":   req.SheetID,
			"sheet_name": req.SheetName,
			"results":    len(req.Results),
		})

		checkedAt := now().In(location)
		created, written, err := cfg.Writer.WriteResults(ctx, &req, checkedAt)
		if err != nil {
			log.WithError(err).Error("Failed to write results to sheet")
			return JSONResponse(http.StatusOK, models.SheetWriteResponse{
				SheetCreated: created,
				Error:        err.Error(),
			}), nil
		}

		response := models.SheetWriteResponse{
			Success:      true,
			RowsWritten:  written,
			SheetCreated: created,
		}

		if cfg.Archiver != nil {
			upload, err := cfg.Archiver.ArchiveResults(ctx, &req, checkedAt)
			if err != nil {
				log.WithError(err).Warn("Failed to archive results")
			} else {
				response.ArchiveKey = upload.Key
				response.ArchiveURL = upload.URL
			}
		}

		log.WithFields(logrus.Fields{
			"rows_written":  written,
			"sheet_created": created,
		}).Info("Wrote results to sheet")

		return JSONResponse(http.StatusOK, response), nil
	}
}
