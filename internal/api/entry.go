package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"telegram-phone-checker/internal/warmup"
)

// LambdaEntry returns the function passed to lambda.Start. Warmup events are
// answered by warm; everything else is decoded as an API Gateway proxy request.
func LambdaEntry(warm *warmup.Handler, handler Handler) func(ctx context.Context, event json.RawMessage) (interface{}, error) {
	return func(ctx context.Context, event json.RawMessage) (interface{}, error) {
		if warmupEvent, ok := warmup.Detect(event); ok && warm != nil {
			return warm.Handle(ctx, warmupEvent)
		}

		var request events.APIGatewayProxyRequest
		if err := json.Unmarshal(event, &request); err != nil {
			return nil, fmt.Errorf("failed to decode API Gateway request: %w", err)
		}

		return handler(ctx, request)
	}
}
