package api

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"

	"telegram-phone-checker/internal/logging"
	"telegram-phone-checker/internal/models"
)

// PhoneChecker looks up a single phone number
type PhoneChecker interface {
	CheckPhone(ctx context.Context, req models.PhoneCheckRequest) models.PhoneCheckResult
}

// NewCheckPhoneHandler serves POST /api/check-phone. Lookup failures are
// reported in the result with status 200; only an unreadable body is a 400.
func NewCheckPhoneHandler(checker PhoneChecker, logger logrus.FieldLogger) Handler {
	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if resp, ok := allowMethod(request, http.MethodPost); !ok {
			return resp, nil
		}
		log := logging.ForRequest(ctx, logger, "check-phone", request)

		var req models.PhoneCheckRequest
		if err := decodeBody(request, &req, false); err != nil {
			log.WithError(err).Warn("Rejected check-phone request")
			return ErrorResponse(http.StatusBadRequest, err.Error()), nil
		}

		result := checker.CheckPhone(logging.WithEntry(ctx, log), req)

		log = log.WithFields(logrus.Fields{
			"phone": result.Phone,
			"found": result.Found,
		})
		if result.Error != "" {
			log.WithField("error", result.Error).Warn("Phone check failed")
		} else {
			log.Info("Phone check completed")
		}

		return JSONResponse(http.StatusOK, result), nil
	}
}
