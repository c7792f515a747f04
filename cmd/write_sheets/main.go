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
	ctx := context.Background()

	a, err := app.New(ctx, logging.FormatJSON)
	if err != nil {
		log.Fatalf("Failed to initialize write-sheets: %v", err)
	}

	handler, err = a.SheetsHandler(ctx)
	if err != nil {
		a.Logger.WithError(err).Fatal("Failed to create write-sheets handler")
	}
	warm = a.Warmup()
}

func main() {
	lambda.Start(api.LambdaEntry(warm, handler))
}
