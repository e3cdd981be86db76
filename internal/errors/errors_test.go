package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageFormatting(t *testing.T) {
	plain := NewAuth("invalid response")
	assert.Equal(t, "invalid response", plain.Error())

	underlying := stderrors.New("connection refused")
	wrapped := NewTransport("token endpoint request failed", underlying)
	assert.Equal(t, "token endpoint request failed: connection refused", wrapped.Error())
	assert.Equal(t, underlying, stderrors.Unwrap(wrapped))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindAuth, KindOf(NewAuth("nope")))
	assert.Equal(t, KindConfiguration, KindOf(NewConfiguration("missing endpoint")))
	assert.Equal(t, KindAPI, KindOf(NewAPI(403, "HTTP 403")))
	assert.Equal(t, Kind(""), KindOf(stderrors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))

	// Kind survives fmt.Errorf wrapping.
	wrapped := fmt.Errorf("create order: %w", NewEncoding("bad body", nil))
	assert.Equal(t, KindEncoding, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindEncoding))
	assert.False(t, IsKind(wrapped, KindAuth))
}

func TestNewAPICarriesStatus(t *testing.T) {
	err := NewAPI(500, "HTTP 500")
	require.Equal(t, 500, err.StatusCode)
	require.Equal(t, KindAPI, err.Kind)

	var appErr *Error
	require.True(t, stderrors.As(fmt.Errorf("call failed: %w", err), &appErr))
	assert.Equal(t, 500, appErr.StatusCode)
}

func TestToJSON(t *testing.T) {
	err := NewAPI(403, "HTTP 403: Unauthorized")
	assert.JSONEq(t, `{"kind":"api","status_code":403,"message":"HTTP 403: Unauthorized"}`, string(err.ToJSON()))
}
