// Package warmup answers scheduled warmup events so Lambda instances stay warm.
// A scheduled rule sends {"source": "warmup", "concurrency": n}; the function
// answers it and asynchronously invokes itself n more times.
package warmup

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/sirupsen/logrus"
)

const (
	// Source identifies warmup events
	Source = "warmup"

	// DefaultDelay keeps this instance busy long enough for the self-invocations to land elsewhere
	DefaultDelay = 75 * time.Millisecond

	// MaxConcurrency caps self-invocations per warmup event
	MaxConcurrency = 10
)

// Event is the scheduled warmup payload
type Event struct {
	Source      string `json:"source"`
	Concurrency int    `json:"concurrency"`
}

// Response is the body returned for warmup events
type Response struct {
	Status          string `json:"status"`
	InstancesWarmed int    `json:"instancesWarmed"`
}

// Invoker is the part of the Lambda client used for self-invocation
type Invoker interface {
	Invoke(ctx context.Context, params *lambdasdk.InvokeInput, optFns ...func(*lambdasdk.Options)) (*lambdasdk.InvokeOutput, error)
}

// Detect reports whether event is a warmup event
func Detect(event json.RawMessage) (*Event, bool) {
	var fields map[string]interface{}
	if err := json.Unmarshal(event, &fields); err != nil {
		return nil, false
	}

	source, ok := fields["source"].(string)
	if !ok || source != Source {
		return nil, false
	}

	warmup := &Event{Source: source}
	if concurrency, ok := fields["concurrency"].(float64); ok && concurrency > 0 {
		warmup.Concurrency = int(concurrency)
	}
	if warmup.Concurrency > MaxConcurrency {
		warmup.Concurrency = MaxConcurrency
	}

	return warmup, true
}

// Handler answers warmup events
type Handler struct {
	invoker      Invoker
	functionName string
	delay        time.Duration
	logger       logrus.FieldLogger
}

// NewHandler creates a warmup handler. invoker may be nil, in which case
// concurrency requests are ignored.
func NewHandler(invoker Invoker, functionName string, logger logrus.FieldLogger) *Handler {
	return &Handler{
		invoker:      invoker,
		functionName: functionName,
		delay:        DefaultDelay,
		logger:       logger,
	}
}

// NewFromConfig creates a warmup handler that self-invokes through the Lambda API
func NewFromConfig(cfg aws.Config, functionName string, logger logrus.FieldLogger) *Handler {
	return NewHandler(lambdasdk.NewFromConfig(cfg), functionName, logger)
}

// Handle answers a warmup event, invoking the function event.Concurrency more times
func (h *Handler) Handle(ctx context.Context, event *Event) (map[string]interface{}, error) {
	instancesWarmed := 1

	if event.Concurrency > 0 && h.invoker != nil && h.functionName != "" {
		invoked, err := h.selfInvoke(ctx, event.Concurrency)
		if err != nil {
			h.logger.WithError(err).Warn("Warmup self-invocation failed")
		}
		instancesWarmed += invoked
	}

	time.Sleep(h.delay)

	return map[string]interface{}{
		"statusCode": 200,
		"body": Response{
			Status:          "warm",
			InstancesWarmed: instancesWarmed,
		},
	}, nil
}

// selfInvoke invokes the function count times asynchronously and returns how many were accepted
func (h *Handler) selfInvoke(ctx context.Context, count int) (int, error) {
	// Children get concurrency 0 so they do not fan out again
	payload, err := json.Marshal(Event{Source: Source, Concurrency: 0})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal warmup event: %w", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		invoked   int
		invokeErr error
	)

	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := h.invoker.Invoke(ctx, &lambdasdk.InvokeInput{
				FunctionName:   aws.String(h.functionName),
				InvocationType: types.InvocationTypeEvent,
				Payload:        payload,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if invokeErr == nil {
					invokeErr = fmt.Errorf("failed to invoke %s: %w", h.functionName, err)
				}
				return
			}
			invoked++
		}()
	}

	wg.Wait()
	return invoked, invokeErr
}
