package timeref

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/pkg/errors"

	"github.com/Drgblack/timemeaning/plugin/timeref/failure"
	"github.com/Drgblack/timemeaning/plugin/timeref/ghost"
	"github.com/Drgblack/timemeaning/plugin/timeref/parser"
	"github.com/Drgblack/timemeaning/plugin/timeref/resolver"
	"github.com/Drgblack/timemeaning/plugin/timeref/token"
	"github.com/Drgblack/timemeaning/server/timezone"
)

// Reference datetime layouts accepted besides RFC 3339.
const (
	naiveDateTimeLayout = "2006-01-02T15:04:05"
	dateLayout          = "2006-01-02"
)

// Engine implements Service. It is safe for concurrent use: the knowledge
// base, the ghost registry and the tokenizer are read-only after NewEngine.
type Engine struct {
	kb        *timezone.KnowledgeBase
	tokenizer *token.Tokenizer
	resolver  *resolver.Resolver
	now       func() time.Time
	logger    *slog.Logger
	workers   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used when a request has no reference datetime.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithWorkers bounds how many batch items are resolved in parallel.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine creates an engine backed by the embedded abbreviation table and
// ghost rules.
func NewEngine(opts ...Option) (*Engine, error) {
	kb, err := timezone.DefaultKnowledgeBase()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load abbreviation table")
	}
	registry, err := ghost.DefaultRegistry()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load ghost rules")
	}
	return NewEngineWith(kb, registry, opts...), nil
}

// NewEngineWith creates an engine over an explicit table and registry.
func NewEngineWith(kb *timezone.KnowledgeBase, registry *ghost.Registry, opts ...Option) *Engine {
	e := &Engine{
		kb:        kb,
		tokenizer: token.New(kb),
		resolver:  resolver.New(kb, registry),
		now:       time.Now,
		logger:    slog.Default(),
		workers:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// KnowledgeBase returns the abbreviation table in use.
func (e *Engine) KnowledgeBase() *timezone.KnowledgeBase {
	return e.kb
}

// Resolve interprets a single input.
func (e *Engine) Resolve(ctx context.Context, req *Request) (*Response, error) {
	in, err := e.Interpret(ctx, req)
	if err != nil {
		return nil, err
	}
	return NewResponse(in, req.Options), nil
}

// Interpret runs the pipeline and returns the raw interpretation.
func (e *Engine) Interpret(ctx context.Context, req *Request) (in *resolver.Interpretation, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			err = failure.Internal(errors.Errorf("panic: %v", r))
			in = nil
			e.logger.ErrorContext(ctx, "panic while resolving time reference",
				"panic", r, "stack", string(buf))
		}
		e.logOutcome(ctx, req, err, time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return nil, failure.Internal(err)
	}
	if req == nil {
		return nil, failure.InvalidInput("request is empty")
	}

	tokens, err := e.tokenizer.Tokenize(req.Input)
	if err != nil {
		return nil, err
	}
	expr, err := parser.Parse(req.Input, tokens)
	if err != nil {
		return nil, err
	}
	rctx, err := e.context(req.Context)
	if err != nil {
		return nil, err
	}
	return e.resolver.Resolve(expr, rctx, req.Options.resolverOptions())
}

// context turns the transport context into the resolver's.
func (e *Engine) context(rc RequestContext) (resolver.Context, error) {
	out := resolver.Context{Locale: rc.Locale, CulturalTimeSystem: rc.CulturalTimeSystem}

	naiveLoc := time.UTC
	naiveWhere := "UTC"
	if rc.Locale != "" && timezone.IsValidTimezone(rc.Locale) {
		if loc, err := timezone.ParseTimezone(rc.Locale); err == nil {
			naiveLoc = loc
			naiveWhere = rc.Locale
		}
	}

	raw := rc.ReferenceDatetime
	if raw == "" {
		out.Reference = e.now()
		out.ReferenceNote = fmt.Sprintf("No reference datetime was given; the server time %s was used.",
			out.Reference.UTC().Format(time.RFC3339))
		return out, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		out.Reference = t
		return out, nil
	}
	if t, err := time.ParseInLocation(naiveDateTimeLayout, raw, naiveLoc); err == nil {
		out.Reference = t
		out.ReferenceNote = fmt.Sprintf("The reference datetime %q has no offset and was read in %s.", raw, naiveWhere)
		return out, nil
	}
	if t, err := time.ParseInLocation(dateLayout, raw, naiveLoc); err == nil {
		out.Reference = t
		out.ReferenceNote = fmt.Sprintf("The reference %q is a date only and was read as the start of that day in %s.", raw, naiveWhere)
		return out, nil
	}
	return out, failure.InvalidContext(
		fmt.Sprintf("referenceDatetime %q is not RFC 3339, a datetime or a date", raw), nil)
}

// logOutcome records the result. The input text itself is never logged.
func (e *Engine) logOutcome(ctx context.Context, req *Request, err error, elapsed time.Duration) {
	inputLength := 0
	if req != nil {
		inputLength = len(req.Input)
	}
	if err == nil {
		e.logger.DebugContext(ctx, "time reference resolved",
			"input_length", inputLength, "duration_ms", elapsed.Milliseconds())
		return
	}
	code := failure.CodeOf(err)
	if code == failure.CodeInternal {
		e.logger.ErrorContext(ctx, "time reference resolution failed",
			"code", code, "input_length", inputLength, "error", err)
		return
	}
	e.logger.DebugContext(ctx, "time reference not resolved",
		"code", code, "input_length", inputLength, "duration_ms", elapsed.Milliseconds())
}
