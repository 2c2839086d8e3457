package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jay-neo/cinebase/internal/apperr"
	"github.com/jay-neo/cinebase/internal/auth"
	"github.com/jay-neo/cinebase/internal/auth/token"
	"github.com/jay-neo/cinebase/internal/logger"
	"github.com/jay-neo/cinebase/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
}

func testIdentity() auth.PrivateIdentity {
	return auth.PrivateIdentity{
		ID: "user-1",
		PublicIdentity: auth.PublicIdentity{
			Name:     "Ada",
			Email:    "ada@example.com",
			Username: "ada",
			Role:     "user",
		},
	}
}

func newGate() (*AuthMiddleware, *token.Service) {
	tokens := token.New(token.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
	})
	return NewAuthMiddleware(tokens, session.NewCookieOptions(false, "", time.Hour)), tokens
}

// echo reports the identity the gate attached.
var echo = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "no identity", http.StatusInternalServerError)
		return
	}
	_, _ = io.WriteString(w, id.ID)
})

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestGateAcceptsValidAccessToken(t *testing.T) {
	gate, tokens := newGate()
	access, _ := tokens.IssueAccessToken(testIdentity())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+access)
	rec := httptest.NewRecorder()

	gate.RequireAuth(echo).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "user-1" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}

	renewed, ok := bearerToken(rec.Header().Get("Authorization"))
	if !ok {
		t.Fatal("missing renewed Authorization header")
	}
	if _, err := tokens.VerifyAccessToken(renewed); err != nil {
		t.Errorf("renewed token invalid: %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("access-token path must not touch the refresh cookie")
	}
}

func TestGateRenewsFromRefreshCookie(t *testing.T) {
	gate, tokens := newGate()
	refresh, _ := tokens.IssueRefreshToken(testIdentity())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired.or.bogus")
	req.Header.Set("Cookie", "theme=dark; refreshToken="+refresh+"; other=1")
	rec := httptest.NewRecorder()

	gate.RequireAuth(echo).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "user-1" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}

	access, ok := bearerToken(rec.Header().Get("Authorization"))
	if !ok {
		t.Fatal("missing Authorization header")
	}
	if _, err := tokens.VerifyAccessToken(access); err != nil {
		t.Errorf("new access token invalid: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != session.CookieName {
		t.Fatalf("cookies = %v, want rotated refresh cookie", cookies)
	}
	if cookies[0].Value == refresh {
		t.Error("refresh token was not rotated")
	}
	if _, err := tokens.VerifyRefreshToken(cookies[0].Value); err != nil {
		t.Errorf("rotated refresh token invalid: %v", err)
	}
}

func TestGateWithoutCredentials(t *testing.T) {
	gate, _ := newGate()

	tests := []struct {
		name   string
		header string
		cookie string
	}{
		{"nothing", "", ""},
		{"null bearer", "Bearer null", ""},
		{"cookie without refresh token", "", "theme=dark"},
		{"null refresh cookie", "", "refreshToken=null"},
		{"empty refresh cookie", "", "refreshToken="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.Header.Set("Cookie", tt.cookie)
			}
			rec := httptest.NewRecorder()

			gate.RequireAuth(echo).ServeHTTP(rec, req)

			if rec.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", rec.Code)
			}
			if got := errorBody(t, rec); got != "No user found" {
				t.Errorf("error = %q", got)
			}
		})
	}
}

func TestGateRejectsInvalidRefreshToken(t *testing.T) {
	gate, _ := newGate()

	var forwarded error
	gate.OnError = func(w http.ResponseWriter, _ *http.Request, err error) {
		forwarded = err
		apperr.Write(w, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Cookie", "refreshToken=forged")
	rec := httptest.NewRecorder()

	gate.RequireAuth(echo).ServeHTTP(rec, req)

	if !apperr.Is(forwarded, apperr.KindInvalidToken) {
		t.Errorf("forwarded = %v, want InvalidToken", forwarded)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGateRejectsAccessTokenAsRefreshCookie(t *testing.T) {
	gate, tokens := newGate()
	access, _ := tokens.IssueAccessToken(testIdentity())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Cookie", "refreshToken="+access)
	rec := httptest.NewRecorder()

	gate.RequireAuth(echo).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRefreshTokenFromCookies(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    string
		wantOK  bool
	}{
		{"none", nil, "", false},
		{"single", []string{"refreshToken=abc"}, "abc", true},
		{"spaced", []string{" a=1 ;  refreshToken=abc ; b=2"}, "abc", true},
		{"value with equals", []string{"refreshToken=a=b=c"}, "a=b=c", true},
		{"malformed skipped", []string{"garbage; refreshToken=abc; alsobad"}, "abc", true},
		{"last wins", []string{"refreshToken=first; refreshToken=second"}, "second", true},
		{"last wins across headers", []string{"refreshToken=first", "refreshToken=second"}, "second", true},
		{"null", []string{"refreshToken=null"}, "", false},
		{"prefix name ignored", []string{"xrefreshToken=abc"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RefreshTokenFromCookies(tt.headers)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("got (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"BEARER abc", "abc", true},
		{"Bearer ", "", false},
		{"Bearer null", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("bearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestGinRequireAuthSetsIdentity(t *testing.T) {
	gate, tokens := newGate()
	access, _ := tokens.IssueAccessToken(testIdentity())

	r := gin.New()
	r.GET("/me", GinRequireAuth(gate), func(c *gin.Context) {
		id := c.MustGet(IdentityKey).(auth.PrivateIdentity)
		c.String(http.StatusOK, id.Email)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "ada@example.com" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestGinRequireAuthStopsChain(t *testing.T) {
	gate, _ := newGate()
	called := false

	r := gin.New()
	r.GET("/me", GinRequireAuth(gate), func(c *gin.Context) {
		called = true
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	if called {
		t.Error("handler ran without credentials")
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/bad", func(c *gin.Context) {
		_ = c.Error(apperr.BadRequest("Missing authorization code"))
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("db exploded"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bad", nil))
	if rec.Code != http.StatusBadRequest || errorBody(t, rec) != "Missing authorization code" {
		t.Errorf("bad: got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError || errorBody(t, rec) != "Internal Server Error" {
		t.Errorf("boom: got %d %q", rec.Code, rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
			t.Errorf("Allow-Origin = %q", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Allow-Credentials = %q", got)
		}
		if got := rec.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "Authorization") {
			t.Errorf("Expose-Headers = %q", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/x", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Methods") == "" {
			t.Error("missing Allow-Methods")
		}
	})

	t.Run("denied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("same origin", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestRequestLogSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLog())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want echo of abc-123", got)
	}
}
