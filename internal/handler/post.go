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
	"postify/internal/transport/http/middleware"
)

type PostHandler struct {
	postService PostService
	log         *slog.Logger
}

func NewPostHandler(postService PostService, log *slog.Logger) *PostHandler {
	return &PostHandler{
		postService: postService,
		log:         log.With(slog.String("component", "post_handler")),
	}
}

// List handles GET /posts
// Returns the caller's posts, drafts included.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, httputil.MsgUnauthorized)
		return
	}

	posts, err := h.postService.List(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to list posts", slog.Int64("user_id", userID), sl.Err(err))
		httputil.WriteInternalError(w)
		return
	}
	if posts == nil {
		posts = []model.Post{}
	}

	httputil.WriteJSON(w, http.StatusOK, model.PostListResponse{Posts: posts})
}

// Create handles POST /posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, httputil.MsgUnauthorized)
		return
	}

	var req model.CreatePostRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, httputil.MsgInvalidBody)
		return
	}

	post, err := h.postService.Create(r.Context(), userID, req)
	if err != nil {
		h.writePostError(w, "create post", userID, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, model.PostResponse{Post: post})
}

// Get handles GET /posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, httputil.MsgUnauthorized)
		return
	}

	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}

	post, err := h.postService.Get(r.Context(), userID, postID)
	if err != nil {
		h.writePostError(w, "get post", userID, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.PostResponse{Post: post})
}

// Update handles PUT /posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, httputil.MsgUnauthorized)
		return
	}

	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}

	var req model.UpdatePostRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, httputil.MsgInvalidBody)
		return
	}

	post, err := h.postService.Update(r.Context(), userID, postID, req)
	if err != nil {
		h.writePostError(w, "update post", userID, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.PostResponse{Post: post})
}

// Delete handles DELETE /posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, httputil.MsgUnauthorized)
		return
	}

	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}

	if err := h.postService.Delete(r.Context(), userID, postID); err != nil {
		h.writePostError(w, "delete post", userID, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.SuccessResponse{Success: true})
}

func (h *PostHandler) writePostError(w http.ResponseWriter, op string, userID int64, err error) {
	switch {
	case errors.Is(err, model.ErrQuotaExceeded):
		httputil.WriteQuotaExceeded(w)
	case errors.Is(err, model.ErrValidation):
		httputil.WriteValidationError(w, err)
	case errors.Is(err, model.ErrInvalidPostStatus):
		httputil.WriteBadRequest(w, "Status must be draft or published")
	case errors.Is(err, model.ErrCannotUnpublish):
		httputil.WriteBadRequest(w, "Published posts cannot be moved back to draft")
	case errors.Is(err, model.ErrNotPostOwner):
		httputil.WriteForbidden(w, httputil.MsgForbidden)
	case errors.Is(err, model.ErrPostNotFound):
		httputil.WriteNotFound(w, "Post not found")
	case errors.Is(err, model.ErrUserNotFound):
		httputil.WriteNotFound(w, "User not found")
	default:
		h.log.Error("failed to "+op, slog.Int64("user_id", userID), sl.Err(err))
		httputil.WriteInternalError(w)
	}
}

func parsePostID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || postID <= 0 {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return 0, false
	}
	return postID, true
}
