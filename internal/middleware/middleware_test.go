package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"

	"github.com/GregMSThompson/crm-dashboard/pkg/logger"
)

type stubVerifier struct {
	uid string
	err error
}

func (s stubVerifier) VerifyIDToken(_ context.Context, _ string) (*auth.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &auth.Token{UID: s.uid}, nil
}

func echoUID(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(UID(r.Context())))
}

func TestFirebaseAuth(t *testing.T) {
	tests := []struct {
		name     string
		mw       *Middleware
		header   string
		wantCode int
		wantBody string
	}{
		{"valid token", NewMiddleware(stubVerifier{uid: "u1"}, false), "Bearer abc", http.StatusOK, "u1"},
		{"missing header", NewMiddleware(stubVerifier{uid: "u1"}, false), "", http.StatusUnauthorized, ""},
		{"wrong scheme", NewMiddleware(stubVerifier{uid: "u1"}, false), "Basic abc", http.StatusUnauthorized, ""},
		{"rejected token", NewMiddleware(stubVerifier{err: errors.New("expired")}, false), "Bearer abc", http.StatusUnauthorized, ""},
		{"disabled", NewMiddleware(nil, true), "", http.StatusOK, LocalUID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			tt.mw.FirebaseAuth(http.HandlerFunc(echoUID)).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestLoggerMiddleware_AttachesLogger(t *testing.T) {
	base := slog.New(logger.NewTestHandler(slog.LevelInfo))
	var got *slog.Logger
	h := NewLoggerMiddleware(base).LoggerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = logger.FromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/schema", nil))

	assert.NotNil(t, got)
	assert.NotSame(t, base, got)
}
