package ipchecker

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New("not-a-cidr")
	assert.Error(t, err)

	checker, err := New("")
	require.NoError(t, err)
	assert.True(t, checker.Check(nil))
}

func TestMiddleware(t *testing.T) {
	checker, err := New("192.168.1.0/24")
	require.NoError(t, err)

	handler := checker.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		wantCode   int
	}{
		{name: "remote addr inside", remoteAddr: "192.168.1.10:5000", wantCode: http.StatusOK},
		{name: "remote addr outside", remoteAddr: "10.0.0.1:5000", wantCode: http.StatusForbidden},
		{
			name:       "x-real-ip wins",
			remoteAddr: "10.0.0.1:5000",
			headers:    map[string]string{"X-Real-IP": "192.168.1.20"},
			wantCode:   http.StatusOK,
		},
		{
			name:       "first forwarded address",
			remoteAddr: "10.0.0.1:5000",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.30, 10.0.0.2"},
			wantCode:   http.StatusOK,
		},
		{name: "unparsable remote addr", remoteAddr: "garbage", wantCode: http.StatusForbidden},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			request.RemoteAddr = test.remoteAddr
			for key, value := range test.headers {
				request.Header.Set(key, value)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, test.wantCode, recorder.Code)
		})
	}
}
