package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"telegram-phone-checker/internal/api"
	"telegram-phone-checker/internal/app"
	"telegram-phone-checker/internal/logging"
	"telegram-phone-checker/internal/warmup"
)

var (
	handler api.Handler
	warm    *warmup.Handler
)

func init() {
	a, err := app.New(context.Background(), logging.FormatJSON)
	if err != nil {
		log.Fatalf("Failed to initialize system-lock: %v", err)
	}

	handler, err = a.LockHandler()
	if err != nil {
		a.Logger.WithError(err).Fatal("Failed to create system-lock handler")
	}
	warm = a.Warmup()
}

func main() {
	lambda.Start(api.LambdaEntry(warm, handler))
}
