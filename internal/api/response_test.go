package api

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_WritesJSONBody(t *testing.T) {
	r := httptest.NewRequest("GET", "/query", nil)
	w := httptest.NewRecorder()

	BadRequest(w, r, "missing field")

	require.Equal(t, 400, w.Code)
	require.Contains(t, w.Body.String(), "missing field")
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestJSON_NilDataWritesNoBody(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, 204, nil)
	require.Equal(t, 204, w.Code)
	require.Empty(t, w.Body.String())
}
