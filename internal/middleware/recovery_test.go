package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/gymsession/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPanicRecovery(t *testing.T) {
	testCases := []struct {
		name           string
		panicWith      any
		expectedCode   int
		expectedPanics float64
	}{
		{
			name:         "NoPanic",
			expectedCode: http.StatusOK,
		},
		{
			name:           "StringPanic",
			panicWith:      "controller state corrupted",
			expectedCode:   http.StatusInternalServerError,
			expectedPanics: 1,
		},
		{
			name:           "ErrorPanic",
			panicWith:      errors.New("nil cursor"),
			expectedCode:   http.StatusInternalServerError,
			expectedPanics: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := metrics.NewTestManager()
			called := false
			handler := PanicRecovery(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				if tc.panicWith != nil {
					panic(tc.panicWith)
				}
			}))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest("POST", "/workout/sessions", nil))

			assert.True(t, called)
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.Equal(t, tc.expectedPanics, testutil.ToFloat64(m.CounterHandleRequestPanic))
		})
	}
}

func TestPanicRecovery_AbortHandlerPassesThrough(t *testing.T) {
	m := metrics.NewTestManager()
	handler := PanicRecovery(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	})
	assert.Zero(t, testutil.ToFloat64(m.CounterHandleRequestPanic))
}
