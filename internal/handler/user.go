package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"postify/internal/httputil"
	"postify/internal/lib/sl"
	"postify/internal/model"
	"postify/internal/transport/http/middleware"
)

type UserHandler struct {
	userService  UserService
	mediaService MediaService
	log          *slog.Logger
}

// NewUserHandler wires profile endpoints. mediaService may be nil when
// object storage is not configured; avatar uploads then answer 500.
func NewUserHandler(userService UserService, mediaService MediaService, log *slog.Logger) *UserHandler {
	return &UserHandler{
		userService:  userService,
		mediaService: mediaService,
		log:          log.With(slog.String("component", "user_handler")),
	}
}

type userResponse struct {
	User *model.User `json:"user"`
}

// GetProfile handles GET /user/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, httputil.MsgUnauthorized)
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		h.log.Error("failed to get profile", slog.Int64("user_id", userID), sl.Err(err))
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, userResponse{User: user})
}

// UpdateProfile handles PUT /user/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, httputil.MsgUnauthorized)
		return
	}

	var req model.UpdateProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, httputil.MsgInvalidBody)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrValidation):
			httputil.WriteValidationError(w, err)
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		default:
			h.log.Error("failed to update profile", slog.Int64("user_id", userID), sl.Err(err))
			httputil.WriteInternalError(w)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, userResponse{User: user})
}

// UploadAvatar handles POST /user/avatar (multipart field "avatar").
// The image is resized before it is stored and becomes the profile picture.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, httputil.MsgUnauthorized)
		return
	}
	if h.mediaService == nil {
		h.log.Error("avatar upload without object storage")
		httputil.WriteInternalError(w)
		return
	}

	maxFormSize := int64(model.MaxAvatarSizeBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
		case errors.Is(err, http.ErrNotMultipart):
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
		default:
			httputil.WriteBadRequest(w, "Invalid form data")
		}
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputil.WriteBadRequest(w, "No avatar provided")
		return
	}
	file.Close()

	upload, err := h.mediaService.UploadAvatar(r.Context(), userID, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
		case errors.Is(err, model.ErrInvalidMediaType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidMediaType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		default:
			h.log.Error("avatar upload failed", slog.Int64("user_id", userID), sl.Err(err))
			httputil.WriteInternalError(w)
		}
		return
	}

	user, err := h.userService.SetProfilePicture(r.Context(), userID, upload.URL)
	if err != nil {
		h.log.Error("failed to set profile picture", slog.Int64("user_id", userID), sl.Err(err))
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, userResponse{User: user})
}

// CheckUsername handles GET /check-username?username=
func (h *UserHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	resp, err := h.userService.CheckUsername(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			httputil.WriteValidationError(w, err)
			return
		}
		h.log.Error("failed to check username", sl.Err(err))
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
