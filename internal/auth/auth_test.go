package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/bloglist/internal/apperrors"
	"github.com/patric-chuzhbe/bloglist/internal/mockstorage"
	"github.com/patric-chuzhbe/bloglist/internal/models"
	"github.com/patric-chuzhbe/bloglist/internal/user"
)

var testSecret = []byte("test-signing-secret")

type tExpectedResponse struct {
	code     int
	errorMsg string
}

func decodeError(t *testing.T, body string) string {
	t.Helper()
	var payload struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	return payload.Error
}

// captureHandler records the context values seen by the wrapped handler.
type captureHandler struct {
	called    bool
	token     string
	principal *user.User
}

func (c *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.called = true
	c.token, _ = TokenFromContext(r.Context())
	c.principal = PrincipalFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func TestExtractToken(t *testing.T) {
	a := New(&mockstorage.StorageMock{}, testSecret, time.Hour)

	tests := []struct {
		name          string
		authorization string
		wantToken     string
		expected      tExpectedResponse
	}{
		{
			name:     "header absent",
			expected: tExpectedResponse{code: http.StatusUnauthorized, errorMsg: "token missing"},
		},
		{
			name:          "wrong scheme",
			authorization: "Basic dXNlcjpwYXNz",
			expected:      tExpectedResponse{code: http.StatusUnauthorized, errorMsg: "token missing"},
		},
		{
			name:          "scheme without separator",
			authorization: "Bearer",
			expected:      tExpectedResponse{code: http.StatusUnauthorized, errorMsg: "token missing"},
		},
		{
			name:          "canonical bearer",
			authorization: "Bearer abc.def.ghi",
			wantToken:     "abc.def.ghi",
			expected:      tExpectedResponse{code: http.StatusOK},
		},
		{
			name:          "lower case bearer",
			authorization: "bearer abc.def.ghi",
			wantToken:     "abc.def.ghi",
			expected:      tExpectedResponse{code: http.StatusOK},
		},
		{
			name:          "mixed case bearer",
			authorization: "BeArEr xyz",
			wantToken:     "xyz",
			expected:      tExpectedResponse{code: http.StatusOK},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			next := &captureHandler{}
			request := httptest.NewRequest(http.MethodPost, "/api/blogs", nil)
			if test.authorization != "" {
				request.Header.Set("Authorization", test.authorization)
			}
			recorder := httptest.NewRecorder()

			a.ExtractToken(next).ServeHTTP(recorder, request)

			assert.Equal(t, test.expected.code, recorder.Code)
			if test.expected.errorMsg != "" {
				assert.False(t, next.called)
				assert.Equal(t, test.expected.errorMsg, decodeError(t, recorder.Body.String()))
				return
			}
			assert.True(t, next.called)
			assert.Equal(t, test.wantToken, next.token)
		})
	}
}

func signClaims(t *testing.T, claims jwt.Claims, secret []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func serveResolve(a *Auth, next http.Handler, token string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodDelete, "/api/blogs/1", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	a.ExtractToken(a.ResolveUser(next)).ServeHTTP(recorder, request)
	return recorder
}

func TestResolveUserWithValidToken(t *testing.T) {
	usr := &user.User{ID: "user-1", Username: "root", Name: "Superuser"}
	db := &mockstorage.StorageMock{}
	db.On("GetUserByID", mock.Anything, "user-1", (*sql.Tx)(nil)).Return(usr, nil).Once()
	a := New(db, testSecret, time.Hour)

	token, err := a.IssueToken(usr)
	require.NoError(t, err)

	next := &captureHandler{}
	recorder := serveResolve(a, next, token)

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.True(t, next.called)
	assert.Equal(t, usr, next.principal)
	db.AssertExpectations(t)
}

func TestResolveUserTamperedToken(t *testing.T) {
	a := New(&mockstorage.StorageMock{}, testSecret, time.Hour)
	token, err := a.IssueToken(&user.User{ID: "user-1", Username: "root"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "altered signature", token: token[:len(token)-2] + "xx"},
		{name: "altered payload", token: strings.Replace(token, ".", ".e", 1)},
		{name: "not a jwt", token: "garbage"},
		{name: "foreign secret", token: signClaims(t, &Claims{UserID: "user-1"}, []byte("other"))},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			next := &captureHandler{}
			recorder := serveResolve(a, next, test.token)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.False(t, next.called)
			assert.NotEmpty(t, decodeError(t, recorder.Body.String()))
		})
	}
}

func TestResolveUserExpiredToken(t *testing.T) {
	a := New(&mockstorage.StorageMock{}, testSecret, time.Hour)
	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := a.IssueToken(&user.User{ID: "user-1", Username: "root"})
	require.NoError(t, err)

	next := &captureHandler{}
	recorder := serveResolve(a, next, token)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, next.called)
	assert.Equal(t, "token expired", decodeError(t, recorder.Body.String()))
}

func TestResolveUserWithoutIdentity(t *testing.T) {
	db := &mockstorage.StorageMock{}
	a := New(db, testSecret, time.Hour)
	token := signClaims(t, &Claims{Username: "anonymous"}, testSecret)

	next := &captureHandler{}
	recorder := serveResolve(a, next, token)

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.True(t, next.called)
	assert.Nil(t, next.principal)
	db.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveUserUnknownUser(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("GetUserByID", mock.Anything, "ghost", (*sql.Tx)(nil)).Return(nil, models.ErrUserNotFound).Once()
	a := New(db, testSecret, time.Hour)
	token := signClaims(t, &Claims{UserID: "ghost"}, testSecret)

	next := &captureHandler{}
	recorder := serveResolve(a, next, token)

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.True(t, next.called)
	assert.Nil(t, next.principal)
}

func TestResolveUserStorageFailure(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("GetUserByID", mock.Anything, "user-1", (*sql.Tx)(nil)).Return(nil, errors.New("connection refused")).Once()
	a := New(db, testSecret, time.Hour)
	token := signClaims(t, &Claims{UserID: "user-1"}, testSecret)

	next := &captureHandler{}
	recorder := serveResolve(a, next, token)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.False(t, next.called)
}

func TestIssueTokenWithoutTTLNeverExpires(t *testing.T) {
	a := New(&mockstorage.StorageMock{}, testSecret, 0)

	token, err := a.IssueToken(&user.User{ID: "user-1", Username: "root"})
	require.NoError(t, err)

	claims, err := a.ParseToken(token)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "root", claims.Username)
}

func TestParseTokenClassification(t *testing.T) {
	a := New(&mockstorage.StorageMock{}, testSecret, time.Hour)

	_, err := a.ParseToken("a.b")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))

	expired := signClaims(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
		UserID:           "user-1",
	}, testSecret)
	_, err = a.ParseToken(expired)
	assert.True(t, errors.Is(err, apperrors.ErrExpiredToken))
}
