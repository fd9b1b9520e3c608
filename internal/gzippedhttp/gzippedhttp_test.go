package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipString(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestGzipResponse(t *testing.T) {
	tests := []struct {
		name           string
		acceptEncoding string
		status         int
		body           string
		wantGzip       bool
	}{
		{name: "accepted", acceptEncoding: "gzip, deflate", status: http.StatusOK, body: `[{"title":"T"}]`, wantGzip: true},
		{name: "not accepted", status: http.StatusOK, body: `[]`},
		{name: "client error stays plain", acceptEncoding: "gzip", status: http.StatusBadRequest, body: `{"error":"Post not found"}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			}))

			request := httptest.NewRequest(http.MethodGet, "/api/blogs", nil)
			if test.acceptEncoding != "" {
				request.Header.Set("Accept-Encoding", test.acceptEncoding)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, test.status, recorder.Code)
			if !test.wantGzip {
				assert.Empty(t, recorder.Header().Get("Content-Encoding"))
				assert.Equal(t, test.body, recorder.Body.String())
				return
			}

			assert.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))
			zr, err := gzip.NewReader(recorder.Body)
			require.NoError(t, err)
			plain, err := io.ReadAll(zr)
			require.NoError(t, err)
			assert.Equal(t, test.body, string(plain))
		})
	}
}

func TestGzipResponseNoContent(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	request := httptest.NewRequest(http.MethodDelete, "/api/blogs/1", nil)
	request.Header.Set("Accept-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Empty(t, recorder.Header().Get("Content-Encoding"))
	assert.Zero(t, recorder.Body.Len())
}

func TestGzipResponseKeepsHandlerEncoding(t *testing.T) {
	const exposition = "bloglist_http_requests_total 3\n"
	encoded := gzipString(t, exposition)

	handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(encoded)
	}))

	request := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	request.Header.Set("Accept-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"gzip"}, recorder.Header().Values("Content-Encoding"))
	assert.Equal(t, encoded, recorder.Body.Bytes())

	zr, err := gzip.NewReader(recorder.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, exposition, string(plain))
}

func TestUngzipRequest(t *testing.T) {
	var received string
	handler := UngzipRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		received = string(body)
		w.WriteHeader(http.StatusCreated)
	}))

	request := httptest.NewRequest(http.MethodPost, "/api/blogs", bytes.NewReader(gzipString(t, `{"title":"T"}`)))
	request.Header.Set("Content-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, `{"title":"T"}`, received)

	request = httptest.NewRequest(http.MethodPost, "/api/blogs", strings.NewReader("not gzip"))
	request.Header.Set("Content-Encoding", "gzip")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.JSONEq(t, `{"error":"malformed gzip body"}`, recorder.Body.String())
}
