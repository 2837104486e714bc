package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"postify/internal/handler"
	"postify/internal/lib/sl"
	"postify/internal/model"
	authmw "postify/internal/transport/http/middleware"
)

// stubBlog answers every username except "ghost".
type stubBlog struct {
	handler.BlogService
	lookups []string
}

func (s *stubBlog) GetProfile(_ context.Context, username string) (*model.PublicProfile, error) {
	s.lookups = append(s.lookups, username)
	if username == "ghost" {
		return nil, model.ErrUserNotFound
	}
	return &model.PublicProfile{Username: username}, nil
}

type rejectAll struct{}

func (rejectAll) ParseAccessToken(string) (int64, error) { return 0, model.ErrInvalidCredentials }

func newTestRouter(blog *stubBlog) http.Handler {
	log := sl.Discard()
	return NewRouter(RouterConfig{
		AuthHandler:    handler.NewAuthHandler(nil, nil, false, log),
		UserHandler:    handler.NewUserHandler(nil, nil, log),
		PostHandler:    handler.NewPostHandler(nil, log),
		BlogHandler:    handler.NewBlogHandler(blog, log),
		UploadHandler:  handler.NewUploadHandler(nil, log),
		BillingHandler: handler.NewBillingHandler(nil, log),
		Tokens:         rejectAll{},
		RateLimiter:    authmw.NewRateLimiter(100, 100, log),
		AllowedOrigins: []string{"http://localhost:3000"},
	})
}

func TestRouter_BareUsernameServesBlog(t *testing.T) {
	blog := &stubBlog{}
	r := newTestRouter(blog)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/Alice", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Alice"}, blog.lookups)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRouter_UnknownBlogIs404(t *testing.T) {
	r := newTestRouter(&stubBlog{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "User not found")
}

func TestRouter_ReservedPathsAreNotBlogs(t *testing.T) {
	blog := &stubBlog{}
	r := newTestRouter(blog)

	for _, path := range []string{"/dashboard", "/pricing", "/favicon.ico", "/logo.png"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	assert.Empty(t, blog.lookups)
}

func TestRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	r := newTestRouter(&stubBlog{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/posts"},
		{http.MethodPost, "/posts"},
		{http.MethodPut, "/posts/1"},
		{http.MethodPost, "/upload"},
		{http.MethodGet, "/user/profile"},
		{http.MethodGet, "/stripe/checkout?plan=basic"},
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
	}
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(&stubBlog{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
