package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Level(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug", FormatJSON).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("loud", FormatJSON).GetLevel())
}

func TestForRequest_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("info", FormatJSON, &buf)

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-1"})
	request := events.APIGatewayProxyRequest{
		HTTPMethod: "POST",
		Path:       "/api/check-phone",
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID: "api-1",
		},
	}

	ForRequest(ctx, logger, "check-phone", request).Info("checking")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "checking", entry["msg"])
	assert.Equal(t, "check-phone", entry["function"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/api/check-phone", entry["path"])
	assert.Equal(t, "req-1", entry["aws_request_id"])
	assert.Equal(t, "api-1", entry["api_request_id"])
}

func TestForRequest_OutsideLambda(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("info", FormatJSON, &buf)

	ForRequest(context.Background(), logger, "get-status", events.APIGatewayProxyRequest{HTTPMethod: "GET"}).Info("ok")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "aws_request_id")
}

func TestTelegramLogger_Nop(t *testing.T) {
	assert.NotNil(t, TelegramLogger(nil))
	assert.NotNil(t, TelegramLogger(&logrus.Entry{}))
}

func TestTelegramLogger_ForwardsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("debug", FormatJSON, &buf)

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-7"})
	entry := ForRequest(ctx, logger, "check-phone", events.APIGatewayProxyRequest{HTTPMethod: "POST"})

	TelegramLogger(entry).Named("conn").With(zap.Int("dc", 2)).Debug("connected", zap.String("addr", "149.154.167.50"))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "connected", line["msg"])
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "check-phone", line["function"])
	assert.Equal(t, "req-7", line["aws_request_id"])
	assert.Equal(t, "conn", line["logger"])
	assert.Equal(t, float64(2), line["dc"])
	assert.Equal(t, "149.154.167.50", line["addr"])
}

func TestTelegramLogger_QuietBelowDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("info", FormatJSON, &buf)
	zl := TelegramLogger(logrus.NewEntry(logger))

	zl.Info("ping")
	assert.Empty(t, buf.String())

	zl.Warn("flood wait")
	assert.Contains(t, buf.String(), "flood wait")
}

func TestEntryFromContext(t *testing.T) {
	logger := New("info", FormatJSON)
	entry := logger.WithField("function", "check-phone")

	assert.Same(t, entry, EntryFromContext(WithEntry(context.Background(), entry), nil))
	assert.Equal(t, logger, EntryFromContext(context.Background(), logger).Logger)
	assert.Nil(t, EntryFromContext(context.Background(), nil))
}
