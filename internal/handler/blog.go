package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"postify/internal/httputil"
	"postify/internal/lib/sl"
	"postify/internal/model"
)

// BlogHandler serves public blogs. No authentication.
type BlogHandler struct {
	blogService BlogService
	log         *slog.Logger
}

func NewBlogHandler(blogService BlogService, log *slog.Logger) *BlogHandler {
	return &BlogHandler{
		blogService: blogService,
		log:         log.With(slog.String("component", "blog_handler")),
	}
}

// Profile handles GET /blog/{username}. Bare /{username} requests land
// here through the path rewrite.
func (h *BlogHandler) Profile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "username")

	profile, err := h.blogService.GetProfile(r.Context(), name)
	if err != nil {
		h.writeBlogError(w, name, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.BlogResponse{User: *profile})
}

// Posts handles GET /blog/{username}/posts?limit=&offset=
func (h *BlogHandler) Posts(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "username")
	limit := queryInt(r, "limit")
	offset := queryInt(r, "offset")

	posts, err := h.blogService.ListPosts(r.Context(), name, limit, offset)
	if err != nil {
		h.writeBlogError(w, name, err)
		return
	}
	if posts == nil {
		posts = []model.Post{}
	}

	httputil.WriteJSON(w, http.StatusOK, model.BlogPostsResponse{Posts: posts})
}

// Post handles GET /blog/{username}/posts/{slug}
func (h *BlogHandler) Post(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "username")

	post, err := h.blogService.GetPost(r.Context(), name, chi.URLParam(r, "slug"))
	if err != nil {
		h.writeBlogError(w, name, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.PostResponse{Post: post})
}

func (h *BlogHandler) writeBlogError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		httputil.WriteNotFound(w, "User not found")
	case errors.Is(err, model.ErrPostNotFound):
		httputil.WriteNotFound(w, "Post not found")
	default:
		h.log.Error("blog lookup failed", slog.String("username", name), sl.Err(err))
		httputil.WriteInternalError(w)
	}
}

// queryInt returns 0 for a missing or malformed value; the service clamps it.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
