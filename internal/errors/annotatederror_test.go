package errors

import (
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnnotatedError(t *testing.T) {
	err := New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	// Assert that wrapping sentinel errors work as expected.
	sentinel := NewSentinel("sentinel")
	require.NotErrorIs(t, err, sentinel)
	wrapped := Wrap(sentinel, "wrapped", slog.String("session_id", "abc"))
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "wrapped: sentinel", wrapped.Error())

	// Ensure log values are coming through.
	var annotated AnnotatedError
	require.True(t, As(err, &annotated))
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	require.NotEqual(t, -1, sourceIdx)
	source := group[sourceIdx]
	require.Contains(t, source.Value.String(), "annotatederror_test.go")
}

func TestWrap_nil(t *testing.T) {
	require.NoError(t, Wrap(nil, "nothing happened"))
}

func TestAnnotatedError_innerAttrs(t *testing.T) {
	inner := New("inner", slog.Int("round_index", 2))
	outer := Wrap(inner, "outer")

	var annotated AnnotatedError
	require.True(t, As(outer, &annotated))
	require.Contains(t, annotated.LogValue().Group(), slog.Int("round_index", 2))
}

func TestSlogError(t *testing.T) {
	attr := SlogError(NewSentinel("plain"))
	require.Equal(t, "error", attr.Key)
	require.Equal(t, "plain", attr.Value.String())

	attr = SlogError(Wrap(NewSentinel("plain"), "annotated"))
	require.Equal(t, slog.KindGroup, attr.Value.Resolve().Kind())
}
