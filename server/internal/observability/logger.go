package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Structured log keys. Input text is never logged; only its length is.
const (
	LogFieldRequestID = "request_id"
	LogFieldKeyID     = "key_id"
	LogFieldEndpoint  = "endpoint"
	LogFieldDuration  = "duration_ms"
	LogFieldInputLen  = "input_length"
	LogFieldErrorCode = "error_code"
	LogFieldBatchSize = "batch_size"
)

// RequestContext follows one API request. Every line it logs carries the
// request id, the endpoint and, once authenticated, the caller's key id.
type RequestContext struct {
	RequestID string
	KeyID     string
	Endpoint  string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewRequestContext starts a request context with a fresh request id.
func NewRequestContext(logger *slog.Logger, endpoint, keyID string) *RequestContext {
	return NewRequestContextWithID(logger, "", endpoint, keyID)
}

// NewRequestContextWithID starts a request context for requestID, usually
// the X-Request-Id the router assigned. An empty id gets a UUID.
func NewRequestContextWithID(logger *slog.Logger, requestID, endpoint, keyID string) *RequestContext {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestContext{
		RequestID: requestID,
		KeyID:     keyID,
		Endpoint:  endpoint,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

func (r *RequestContext) Debug(msg string, attrs ...slog.Attr) {
	r.log(slog.LevelDebug, msg, attrs)
}

func (r *RequestContext) Info(msg string, attrs ...slog.Attr) {
	r.log(slog.LevelInfo, msg, attrs)
}

func (r *RequestContext) Warn(msg string, attrs ...slog.Attr) {
	r.log(slog.LevelWarn, msg, attrs)
}

// Error logs at error level with err attached. Only internal failures
// should reach this; resolution errors are routine.
func (r *RequestContext) Error(msg string, err error, attrs ...slog.Attr) {
	r.log(slog.LevelError, msg, append(attrs, slog.String("error", err.Error())))
}

func (r *RequestContext) log(level slog.Level, msg string, attrs []slog.Attr) {
	all := make([]slog.Attr, 0, len(attrs)+3)
	all = append(all,
		slog.String(LogFieldRequestID, r.RequestID),
		slog.String(LogFieldEndpoint, r.Endpoint),
	)
	if r.KeyID != "" {
		all = append(all, slog.String(LogFieldKeyID, r.KeyID))
	}
	r.Logger.LogAttrs(context.Background(), level, msg, append(all, attrs...)...)
}

// Duration is the time since the request started.
func (r *RequestContext) Duration() time.Duration {
	return time.Since(r.StartTime)
}

func (r *RequestContext) DurationMs() int64 {
	return r.Duration().Milliseconds()
}

type requestContextKey struct{}

// WithRequestContext stores rc in ctx.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// FromContext returns the request context stored by WithRequestContext.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc, ok
}
