package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"postify/internal/config"
	"postify/internal/metrics"
	domain "postify/internal/model"
)

// UploadSuccessMessage is returned with every successful /upload.
const UploadSuccessMessage = "Files uploaded successfully"

// ObjectStorage is the subset of the S3 client used for uploads.
type ObjectStorage interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// MediaService stores uploads in Cloudflare R2 through its S3 API.
type MediaService struct {
	store     ObjectStorage
	bucket    string
	publicURL string
	log       *slog.Logger
}

// NewMediaService constructs an S3-compatible client for Cloudflare R2.
func NewMediaService(ctx context.Context, cfg *config.Config, log *slog.Logger) (*MediaService, error) {
	if !cfg.StorageConfigured() {
		return nil, domain.ErrStorageDisabled
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return NewMediaServiceWithStorage(client, cfg.R2BucketName, cfg.R2PublicURL, log), nil
}

// NewMediaServiceWithStorage wires an existing storage client.
func NewMediaServiceWithStorage(store ObjectStorage, bucket, publicURL string, log *slog.Logger) *MediaService {
	return &MediaService{
		store:     store,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		log:       log.With(slog.String("component", "media_service")),
	}
}

type checkedFile struct {
	header      *multipart.FileHeader
	contentType string
	ext         string
}

// Upload stores post media for userID. Every file is checked before the
// first object is written, so one oversized file rejects the whole batch.
func (s *MediaService) Upload(ctx context.Context, userID int64, files []*multipart.FileHeader) (*domain.UploadResponse, error) {
	if len(files) == 0 {
		return nil, domain.ErrNoFiles
	}
	if len(files) > domain.MaxUploadFiles {
		return nil, domain.ErrTooManyFiles
	}

	checked := make([]checkedFile, 0, len(files))
	for _, fh := range files {
		if fh.Size > domain.MaxUploadFileSize {
			return nil, &domain.FileTooLargeError{Filename: fh.Filename}
		}
		contentType, err := detectContentType(fh)
		if err != nil {
			return nil, err
		}
		ext, ok := domain.ExtensionFor(contentType)
		if !ok {
			return nil, domain.ErrInvalidMediaType
		}
		checked = append(checked, checkedFile{header: fh, contentType: contentType, ext: ext})
	}

	resp := &domain.UploadResponse{
		Message: UploadSuccessMessage,
		URLs:    make([]string, 0, len(checked)),
		CIDs:    make([]string, 0, len(checked)),
	}
	for _, cf := range checked {
		data, err := readUpload(cf.header, domain.MaxUploadFileSize)
		if err != nil {
			return nil, err
		}

		key := fmt.Sprintf("%s/%d/%s%s", domain.UploadFolder, userID, uuid.NewString(), cf.ext)
		if err := s.putObject(ctx, key, data, cf.contentType, domain.UploadCacheControl); err != nil {
			return nil, err
		}
		metrics.FilesUploaded.WithLabelValues("media").Inc()

		resp.URLs = append(resp.URLs, s.objectURL(key))
		resp.CIDs = append(resp.CIDs, key)
	}

	s.log.Info("files uploaded", slog.Int64("user_id", userID), slog.Int("count", len(resp.URLs)))
	return resp, nil
}

// UploadAvatar enforces size/type, normalizes to a square JPEG, and uploads to R2.
func (s *MediaService) UploadAvatar(ctx context.Context, userID int64, header *multipart.FileHeader) (*domain.UploadResult, error) {
	if header.Size > domain.MaxAvatarSizeBytes {
		return nil, domain.ErrFileTooLarge
	}
	contentType, err := detectContentType(header)
	if err != nil {
		return nil, err
	}
	if !domain.IsAllowedImageType(contentType) {
		return nil, domain.ErrInvalidMediaType
	}

	data, err := readUpload(header, domain.MaxAvatarSizeBytes)
	if err != nil {
		return nil, err
	}

	jpegBytes, err := resizeToJPEG(data, domain.AvatarWidth, domain.AvatarHeight, 85)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%d/%s%s", domain.AvatarFolder, userID, uuid.NewString(), domain.AvatarExt)
	if err := s.putObject(ctx, key, jpegBytes, domain.ContentTypeJPEG, domain.UploadCacheControl); err != nil {
		return nil, err
	}
	metrics.FilesUploaded.WithLabelValues("avatar").Inc()

	return &domain.UploadResult{URL: s.objectURL(key), Key: key}, nil
}

func (s *MediaService) objectURL(key string) string {
	return fmt.Sprintf("%s/%s", s.publicURL, key)
}

// detectContentType trusts the part header and sniffs the first bytes when it is missing.
func detectContentType(fh *multipart.FileHeader) (string, error) {
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		f, err := fh.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()

		head := make([]byte, 512)
		n, err := io.ReadFull(f, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return "", fmt.Errorf("failed to read upload: %w", err)
		}
		contentType = http.DetectContentType(head[:n])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	return strings.ToLower(contentType), nil
}

// readUpload loads the upload into memory, refusing anything past maxSize.
func readUpload(fh *multipart.FileHeader, maxSize int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, &domain.FileTooLargeError{Filename: fh.Filename}
	}
	return data, nil
}

// resizeToJPEG centers/crops to target size and encodes as JPEG.
func resizeToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, domain.ErrInvalidMediaType
	}

	resized := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// putObject uploads bytes to R2 with metadata.
func (s *MediaService) putObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
	_, err := s.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to r2: %w", err)
	}
	return nil
}
