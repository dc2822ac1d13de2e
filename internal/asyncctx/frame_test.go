package asyncctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithNewFrameStartsEmpty(t *testing.T) {
	ctx := WithNewFrame(context.Background())
	f, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Nil(t, f.Request)
	assert.Nil(t, f.Span)
}

func TestWithRequestThenSpanPreservesBoth(t *testing.T) {
	ctx := WithNewFrame(context.Background())
	ctx = WithRequest(ctx, "req-1")
	ctx = WithSpan(ctx, "span-1")
	f, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", f.Request)
	assert.Equal(t, "span-1", f.Span)
}

func TestWithSpanNilRestoresNoOpenSpan(t *testing.T) {
	ctx := WithNewFrame(context.Background())
	ctx = WithSpan(ctx, "outer")
	ctx = WithSpan(ctx, nil)
	v, ok := Get(ctx, "span")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestBindCapturesFrame(t *testing.T) {
	ctx := WithNewFrame(context.Background())
	ctx = WithRequest(ctx, "req-1")
	restore := Bind(ctx)

	// simulate a suspension: derive further, unrelated context, then
	// invoke the bound continuation and confirm it sees the original.
	other := context.WithValue(context.Background(), frameKey{}, &Frame{Request: "req-unrelated"})
	_ = other
	got := restore()
	f, ok := FromContext(got)
	assert.True(t, ok)
	assert.Equal(t, "req-1", f.Request)
}

func TestFromContextAbsentFrame(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}
