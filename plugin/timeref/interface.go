// Package timeref resolves free-text time references into unambiguous
// instants and exposes the result as a stable JSON contract.
//
// The pipeline is tokenizer -> parser -> resolver (abbreviation table and
// ghost-date registry) -> Y2K38 check -> renderer. Every stage is a pure
// function of its inputs; the only clock read happens here, when a request
// omits its reference datetime.
package timeref

import (
	"context"

	"github.com/Drgblack/timemeaning/plugin/timeref/resolver"
)

// Service defines the time-reference resolution interface.
// Consumers: the HTTP API, the share store and the CLI.
type Service interface {
	// Resolve interprets a single input.
	// Returns: the response, or a *failure.Failure describing why not.
	Resolve(ctx context.Context, req *Request) (*Response, error)

	// ResolveBatch interprets up to MaxBatchSize inputs. A failing item does
	// not fail the batch; only an invalid batch request returns an error.
	ResolveBatch(ctx context.Context, req *BatchRequest) (*BatchResponse, error)

	// Interpret returns the raw interpretation, for renderers that need more
	// than the JSON contract (share pages, preview cards).
	Interpret(ctx context.Context, req *Request) (*resolver.Interpretation, error)
}
