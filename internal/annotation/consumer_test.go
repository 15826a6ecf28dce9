package annotation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/your-org/ocrflow/pkg/ocr"
)

type sliceSubscription struct {
	values [][]byte
}

func (s *sliceSubscription) Run(ctx context.Context, handle func(ctx context.Context, value []byte)) error {
	for _, v := range s.values {
		handle(ctx, v)
	}
	return nil
}

func TestConsume_HandlesEachEnvelope(t *testing.T) {
	f := newFixture(t, ocr.SourceContent, "fallback")
	f.fetchWrites(8, 8)
	f.engine.On("Annotate", mock.Anything, mock.Anything).Return(json.RawMessage(`{}`), nil)
	f.dst.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.dst.On("Exists", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.expectPublish(nil)

	sub := &sliceSubscription{values: [][]byte{
		[]byte(pushBody(t, encodeEvent(t, exampleEvent()))),
		[]byte("garbage"),
	}}
	require.NoError(t, f.svc.Consume(context.Background(), sub))

	require.Len(t, f.sent, 2)
	assert.Equal(t, "t1", f.sent[0].topic)
	assert.Contains(t, string(f.sent[0].body), `"status":"success"`)
	assert.Equal(t, "fallback", f.sent[1].topic)
	assert.Contains(t, string(f.sent[1].body), `"status":"failure"`)
}
