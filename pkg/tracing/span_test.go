package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "run", "run-42")
	_, build := StartChildSpan(ctx, "build")
	build.SetAttr("normalizer", "plain")
	build.End()
	_, eval := StartChildSpan(ctx, "evaluate")
	eval.End()
	root.End()

	children := root.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "run-42", children[0].TraceID)
	assert.Equal(t, "build", children[0].Name)
	assert.Nil(t, SpanFromContext(context.Background()))

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, nil)))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "normalizer=plain")
	assert.Contains(t, lines[1], "depth=1")
}
