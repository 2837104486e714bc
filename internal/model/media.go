package model

import (
	"errors"
	"fmt"
)

const (
	MaxUploadFileSize  = 10 * 1024 * 1024 // 10MB per file
	MaxUploadFiles     = 10
	UploadFolder       = "uploads"
	UploadCacheControl = "public, max-age=31536000" // 1 year

	MaxAvatarSizeBytes = 5 * 1024 * 1024
	AvatarWidth        = 400
	AvatarHeight       = 400
	AvatarFolder       = "avatars"
	AvatarExt          = ".jpg"
)

// Supported content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
	ContentTypeMP4  = "video/mp4"
	ContentTypeWebM = "video/webm"
	ContentTypeMOV  = "video/quicktime"
)

var allowedImageTypes = map[string]string{
	ContentTypeJPEG: ".jpg",
	ContentTypePNG:  ".png",
	ContentTypeGIF:  ".gif",
	ContentTypeWebP: ".webp",
}

var allowedVideoTypes = map[string]string{
	ContentTypeMP4:  ".mp4",
	ContentTypeWebM: ".webm",
	ContentTypeMOV:  ".mov",
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidMediaType = "INVALID_MEDIA_TYPE"
)

// Domain errors for media operations
var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidMediaType = errors.New("invalid media type")
	ErrNoFiles          = errors.New("no files provided")
	ErrTooManyFiles     = errors.New("too many files")
	ErrStorageDisabled  = errors.New("object storage not configured")
)

// FileTooLargeError names the offending file. It matches ErrFileTooLarge.
type FileTooLargeError struct {
	Filename string
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("File %s is too large. Maximum size is 10MB.", e.Filename)
}

func (e *FileTooLargeError) Is(target error) bool {
	return target == ErrFileTooLarge
}

// UploadResult is one stored object. Key doubles as the content identifier.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	Message string   `json:"message"`
	URLs    []string `json:"urls"`
	CIDs    []string `json:"cids"`
}

// IsAllowedImageType reports if the provided content type is a supported image
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// ExtensionFor returns the object extension for a supported upload type.
func ExtensionFor(contentType string) (string, bool) {
	if ext, ok := allowedImageTypes[contentType]; ok {
		return ext, true
	}
	ext, ok := allowedVideoTypes[contentType]
	return ext, ok
}
