package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, FromContext(ctx))

	id := GenerateTraceID()
	assert.Len(t, id, 32)
	assert.Equal(t, id, FromContext(WithContext(ctx, id)))
	assert.NotEqual(t, id, GenerateTraceID())
}
