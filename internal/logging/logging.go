// Package logging configures logrus for the Lambda handlers and the dev server.
package logging

import (
	"context"
	"io"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log output encoding
type Format int

const (
	// FormatJSON is used in Lambda so CloudWatch can index the fields
	FormatJSON Format = iota
	// FormatText is used by the dev server
	FormatText
)

// New creates a logger at the named level. Unknown levels fall back to info.
func New(level string, format Format) *logrus.Logger {
	return NewWithOutput(level, format, os.Stderr)
}

// NewWithOutput is New writing to out
func NewWithOutput(level string, format Format, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	switch format {
	case FormatText:
		logger.SetFormatter(&logrus.TextFormatter{
			DisableLevelTruncation: true,
			FullTimestamp:          true,
		})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}

// ForRequest returns an entry tagged with the function, the HTTP route and,
// inside Lambda, the AWS request ID
func ForRequest(ctx context.Context, logger logrus.FieldLogger, function string, request events.APIGatewayProxyRequest) *logrus.Entry {
	fields := logrus.Fields{
		"function": function,
		"method":   request.HTTPMethod,
		"path":     request.Path,
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		fields["aws_request_id"] = lc.AwsRequestID
	}
	if request.RequestContext.RequestID != "" {
		fields["api_request_id"] = request.RequestContext.RequestID
	}
	return logger.WithFields(fields)
}

type entryKey struct{}

// WithEntry stores a request logger in ctx
func WithEntry(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, entryKey{}, entry)
}

// EntryFromContext returns the request logger stored by WithEntry, or a bare
// entry on fallback. It returns nil when neither is available.
func EntryFromContext(ctx context.Context, fallback *logrus.Logger) *logrus.Entry {
	if entry, ok := ctx.Value(entryKey{}).(*logrus.Entry); ok && entry != nil {
		return entry
	}
	if fallback == nil {
		return nil
	}
	return logrus.NewEntry(fallback)
}

// TelegramLogger returns the zap logger handed to the Telegram client. Its
// records go through entry, so they carry the request fields. The client is
// chatty, so below debug level only warnings and errors are kept.
func TelegramLogger(entry *logrus.Entry) *zap.Logger {
	if entry == nil || entry.Logger == nil {
		return zap.NewNop()
	}

	level := zapcore.WarnLevel
	if entry.Logger.IsLevelEnabled(logrus.DebugLevel) {
		level = zapcore.DebugLevel
	}
	return zap.New(&logrusCore{entry: entry, level: level})
}

// logrusCore is a zapcore.Core writing to a logrus entry
type logrusCore struct {
	entry  *logrus.Entry
	level  zapcore.LevelEnabler
	fields []zapcore.Field
}

func (c *logrusCore) Enabled(level zapcore.Level) bool {
	return c.level.Enabled(level)
}

func (c *logrusCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field{}, c.fields...), fields...)
	return &clone
}

func (c *logrusCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *logrusCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(enc)
	}
	for _, field := range fields {
		field.AddTo(enc)
	}

	entry := c.entry.WithFields(logrus.Fields(enc.Fields))
	if ent.LoggerName != "" {
		entry = entry.WithField("logger", ent.LoggerName)
	}

	// zap handles panic and fatal levels itself after Write returns
	switch ent.Level {
	case zapcore.DebugLevel:
		entry.Debug(ent.Message)
	case zapcore.InfoLevel:
		entry.Info(ent.Message)
	case zapcore.WarnLevel:
		entry.Warn(ent.Message)
	default:
		entry.Error(ent.Message)
	}
	return nil
}

func (c *logrusCore) Sync() error {
	return nil
}
