package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, span := Start(context.Background(), "noop")
	End(span, errors.New("boom"))
}

func TestParseResourceAttributes(t *testing.T) {
	got := ParseResourceAttributes(" service.namespace=ocrflow, broken ,team = ocr,,")
	assert.Equal(t, map[string]string{
		"service.namespace": "ocrflow",
		"team":              "ocr",
	}, got)

	assert.Empty(t, ParseResourceAttributes(""))
}
