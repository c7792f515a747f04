package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"

	"telegram-phone-checker/internal/logging"
	"telegram-phone-checker/internal/models"
	"telegram-phone-checker/internal/services"
)

// Locker takes and frees the system lock
type Locker interface {
	AcquireLock(ctx context.Context, req models.LockRequest) (models.LockResponse, error)
	ReleaseLock(ctx context.Context, userName string) error
}

// NewLockHandler serves POST /api/lock-system and POST /api/unlock-system
func NewLockHandler(locker Locker, logger logrus.FieldLogger) Handler {
	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if resp, ok := allowMethod(request, http.MethodPost); !ok {
			return resp, nil
		}

		path := strings.TrimSuffix(request.Path, "/")
		switch {
		case strings.HasSuffix(path, "/unlock-system"):
			return handleUnlock(ctx, locker, logging.ForRequest(ctx, logger, "unlock-system", request), request), nil
		case strings.HasSuffix(path, "/lock-system"):
			return handleLock(ctx, locker, logging.ForRequest(ctx, logger, "lock-system", request), request), nil
		default:
			return ErrorResponse(http.StatusNotFound, "endpoint not found"), nil
		}
	}
}

func handleLock(ctx context.Context, locker Locker, log *logrus.Entry, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var req models.LockRequest
	if err := decodeBody(request, &req, false); err != nil {
		log.WithError(err).Warn("Rejected lock request")
		return JSONResponse(http.StatusBadRequest, models.LockResponse{Error: err.Error()})
	}
	if err := req.Validate(); err != nil {
		log.WithError(err).Warn("Rejected lock request")
		return JSONResponse(http.StatusBadRequest, models.LockResponse{Error: err.Error()})
	}

	log = log.WithFields(logrus.Fields{
		"user":  req.UserName,
		"count": req.Count,
	})

	resp, err := locker.AcquireLock(ctx, req)
	if err != nil {
		var held *services.LockHeldError
		var limit *services.DailyLimitError
		switch {
		case errors.As(err, &held):
			log.WithField("holder", held.Holder).Info("System already locked")
			holder := held.Holder
			return JSONResponse(http.StatusConflict, models.LockResponse{
				Locked:   true,
				LockedBy: &holder,
				Error:    services.ErrLockHeld.Error(),
			})
		case errors.As(err, &limit):
			log.WithField("remaining", limit.Remaining).Info("Daily limit would be exceeded")
			remaining := limit.Remaining
			used := limit.Used
			return JSONResponse(http.StatusConflict, models.LockResponse{
				DailyUsed: &used,
				Remaining: &remaining,
				Error:     services.ErrDailyLimitExceeded.Error(),
			})
		default:
			log.WithError(err).Error("Failed to acquire lock")
			return JSONResponse(http.StatusInternalServerError, models.LockResponse{Error: err.Error()})
		}
	}

	log.Info("System locked")
	return JSONResponse(http.StatusOK, resp)
}

func handleUnlock(ctx context.Context, locker Locker, log *logrus.Entry, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var req models.UnlockRequest
	if err := decodeBody(request, &req, true); err != nil {
		log.WithError(err).Warn("Rejected unlock request")
		return JSONResponse(http.StatusBadRequest, models.LockResponse{Error: err.Error()})
	}

	log = log.WithField("user", req.UserName)

	if err := locker.ReleaseLock(ctx, req.UserName); err != nil {
		if errors.Is(err, services.ErrLockNotOwned) {
			log.WithError(err).Info("Refused to release lock held by another user")
			return JSONResponse(http.StatusConflict, models.LockResponse{Locked: true, Error: err.Error()})
		}
		log.WithError(err).Error("Failed to release lock")
		return JSONResponse(http.StatusInternalServerError, models.LockResponse{Error: err.Error()})
	}

	log.Info("System unlocked")
	return JSONResponse(http.StatusOK, models.LockResponse{Success: true, Locked: false})
}
