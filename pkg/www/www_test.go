package www

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestRunProtectedErrorBodies(t *testing.T) {
	log := logs.NewTestingLog(t)

	run := func(handle func()) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/test", nil)
		RunProtected(log, w, r, handle)
		return w
	}

	w := run(func() { PanicBadRequestf("Missing form file '%v'", "frame") })
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":"Missing form file 'frame'"}`, w.Body.String())

	w = run(func() { PanicUnauthorized() })
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())

	w = run(func() { PanicTooLargef("Frame exceeds maximum size of %v", "8 MB") })
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = run(func() { Check(errors.New("disk on fire")) })
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"disk on fire"}`, w.Body.String())

	// No panic, no error body
	w = httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)
	RunProtected(log, w, r, func() { SendJSON(w, map[string]int{"x": 1}) })
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"x":1}`, w.Body.String())
}
