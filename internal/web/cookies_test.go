package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitorMiddleware(t *testing.T) {
	var seen string
	handler := VisitorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = VisitorID(r.Context())
	}))

	tests := []struct {
		name      string
		cookie    string
		wantSet   bool
		wantValue string
	}{
		{name: "new visitor", wantSet: true},
		{name: "returning visitor", cookie: "6f1c9a56-8d0e-4c1f-9d7a-2b3c4d5e6f70", wantValue: "6f1c9a56-8d0e-4c1f-9d7a-2b3c4d5e6f70"},
		{name: "tampered cookie", cookie: "likes:everyone", wantSet: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: visitorCookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			_, err := uuid.Parse(seen)
			require.NoError(t, err)
			if tt.wantValue != "" {
				assert.Equal(t, tt.wantValue, seen)
			}

			cookies := rec.Result().Cookies()
			if tt.wantSet {
				require.Len(t, cookies, 1)
				assert.Equal(t, seen, cookies[0].Value)
			} else {
				assert.Empty(t, cookies)
			}
		})
	}
}

func TestFlashRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	setFlash(rec, "error", "Failed to post message: a|b")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	flash := popFlash(rec, req)
	require.NotNil(t, flash)
	assert.Equal(t, "error", flash.Type)
	assert.Equal(t, "Failed to post message: a|b", flash.Message)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge, "flash is cleared once read")

	assert.Nil(t, popFlash(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)))

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.AddCookie(&http.Cookie{Name: flashCookieName, Value: "%%%"})
	assert.Nil(t, popFlash(httptest.NewRecorder(), bad))
}
