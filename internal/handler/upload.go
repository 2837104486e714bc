package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"postify/internal/httputil"
	"postify/internal/lib/sl"
	"postify/internal/model"
	"postify/internal/transport/http/middleware"
)

const (
	// maxUploadBody leaves room for every file at its limit plus form overhead.
	maxUploadBody = model.MaxUploadFiles*model.MaxUploadFileSize + 10*1024*1024

	// uploadMemory is kept in memory while parsing; the rest spills to temp files.
	uploadMemory = 32 << 20
)

type UploadHandler struct {
	mediaService MediaService
	log          *slog.Logger
}

// NewUploadHandler wires POST /upload. mediaService may be nil when object
// storage is not configured.
func NewUploadHandler(mediaService MediaService, log *slog.Logger) *UploadHandler {
	return &UploadHandler{
		mediaService: mediaService,
		log:          log.With(slog.String("component", "upload_handler")),
	}
}

// Upload handles POST /upload (multipart field "files").
// Every file is checked before anything is stored.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, httputil.MsgUnauthorized)
		return
	}
	if h.mediaService == nil {
		h.log.Error("upload without object storage")
		httputil.WriteInternalError(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Upload is too large")
		case errors.Is(err, http.ErrNotMultipart):
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
		default:
			httputil.WriteBadRequest(w, "Invalid form data")
		}
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		httputil.WriteBadRequest(w, "No files provided")
		return
	}

	resp, err := h.mediaService.Upload(r.Context(), userID, files)
	if err != nil {
		var fileErr *model.FileTooLargeError
		switch {
		case errors.As(err, &fileErr):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, fileErr.Error())
		case errors.Is(err, model.ErrNoFiles):
			httputil.WriteBadRequest(w, "No files provided")
		case errors.Is(err, model.ErrTooManyFiles):
			httputil.WriteBadRequest(w, fmt.Sprintf("Too many files. Maximum is %d.", model.MaxUploadFiles))
		case errors.Is(err, model.ErrInvalidMediaType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidMediaType,
				"Unsupported file type. Allowed: jpeg, png, gif, webp, mp4, webm, mov")
		default:
			h.log.Error("upload failed", slog.Int64("user_id", userID), slog.Int("files", len(files)), sl.Err(err))
			httputil.WriteInternalError(w)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
