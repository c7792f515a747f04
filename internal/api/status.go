package api

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"

	"telegram-phone-checker/internal/logging"
	"telegram-phone-checker/internal/models"
)

// StatusReader reports the lock and today's usage
type StatusReader interface {
	GetStatus(ctx context.Context) (models.SystemStatus, error)
}

// NewStatusHandler serves GET /api/get-status
func NewStatusHandler(reader StatusReader, logger logrus.FieldLogger) Handler {
	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if resp, ok := allowMethod(request, http.MethodGet); !ok {
			return resp, nil
		}
		log := logging.ForRequest(ctx, logger, "get-status", request)

		status, err := reader.GetStatus(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to read system status")
			return ErrorResponse(http.StatusInternalServerError, err.Error()), nil
		}

		log.WithFields(logrus.Fields{
			"locked":     status.Locked,
			"daily_used": status.DailyUsed,
		}).Debug("Read system status")

		return JSONResponse(http.StatusOK, status), nil
	}
}
