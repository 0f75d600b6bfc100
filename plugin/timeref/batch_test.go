package timeref

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Drgblack/timemeaning/plugin/timeref/failure"
)

func TestEngine_ResolveBatch(t *testing.T) {
	e := newTestEngine(t, WithWorkers(4))
	ref := RequestContext{ReferenceDatetime: "2025-03-01T12:00:00Z"}

	resp, err := e.ResolveBatch(context.Background(), &BatchRequest{Items: []Request{
		{Input: "Noon GMT", Context: ref},
		{Input: "nothing to see", Context: ref},
		{Input: "1200Z", Context: ref},
		{Input: "2:30 AM on March 8 2026 America/New_York", Context: ref},
	}})
	require.NoError(t, err)
	require.Len(t, resp.Results, 4)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 2, resp.Failed)

	for i, r := range resp.Results {
		assert.Equal(t, i, r.Index)
		assert.True(t, (r.Response == nil) != (r.Error == nil), "item %d must carry exactly one outcome", i)
	}
	assert.Equal(t, "2025-03-01T12:00:00Z", resp.Results[0].Response.Resolved.ISO8601UTC)
	assert.Equal(t, string(failure.CodeUnparseable), resp.Results[1].Error.Code)
	assert.Equal(t, "2025-03-01T12:00:00Z", resp.Results[2].Response.Resolved.ISO8601UTC)
	assert.Equal(t, string(failure.CodeGhostTime), resp.Results[3].Error.Code)
}

func TestEngine_ResolveBatch_Limits(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ResolveBatch(context.Background(), &BatchRequest{})
	assert.True(t, failure.IsCode(err, failure.CodeInvalidInput))

	items := make([]Request, MaxBatchSize+1)
	for i := range items {
		items[i] = Request{Input: fmt.Sprintf("%d:00 UTC", i%24)}
	}
	_, err = e.ResolveBatch(context.Background(), &BatchRequest{Items: items})
	assert.True(t, failure.IsCode(err, failure.CodeInvalidInput))

	resp, err := e.ResolveBatch(context.Background(), &BatchRequest{Items: items[:MaxBatchSize]})
	require.NoError(t, err)
	assert.Len(t, resp.Results, MaxBatchSize)
	assert.Equal(t, MaxBatchSize, resp.Succeeded)
}
