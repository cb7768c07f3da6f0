// Package logging configures logrus and carries a request-scoped entry
// through context.Context so services log with the caller's correlation id.
package logging

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// Init configures the standard logrus logger.  Unknown levels fall back to
// info; format "text" selects the text formatter, anything else JSON.
func Init(level, format string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	if strings.EqualFold(format, "text") {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})
}

type ctxKey struct{}

// ToContext returns a copy of ctx carrying entry.
func ToContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// FromContext returns the entry stored by ToContext or one backed by the
// standard logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && entry != nil {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// CorrelationID returns the correlation id of the entry in ctx, if any.
func CorrelationID(ctx context.Context) string {
	if v, ok := FromContext(ctx).Data["correlation_id"].(string); ok {
		return v
	}
	return ""
}
