package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"postify/internal/lib/sl"
	"postify/internal/model"
)

type mockObjectStorage struct {
	err  error
	keys []string
}

func (m *mockObjectStorage) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.keys = append(m.keys, *params.Key)
	return &s3.PutObjectOutput{}, nil
}

type testFile struct {
	name        string
	contentType string
	data        []byte
}

// multipartFiles builds real FileHeaders by parsing a multipart body.
func multipartFiles(t *testing.T, files ...testFile) []*multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse form: %v", err)
	}
	return req.MultipartForm.File["files"]
}

func newTestMediaService(store *mockObjectStorage) *MediaService {
	return NewMediaServiceWithStorage(store, "bucket", "https://cdn.example.com/", sl.Discard())
}

func TestMediaService_Upload_Success(t *testing.T) {
	store := &mockObjectStorage{}
	svc := newTestMediaService(store)
	files := multipartFiles(t,
		testFile{"a.png", "image/png", []byte("png-bytes")},
		testFile{"b.mp4", "video/mp4", []byte("mp4-bytes")},
	)

	resp, err := svc.Upload(context.Background(), 9, files)

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if resp.Message != UploadSuccessMessage {
		t.Errorf("message = %q", resp.Message)
	}
	if len(resp.URLs) != 2 || len(resp.CIDs) != 2 {
		t.Fatalf("urls=%v cids=%v, want 2 each", resp.URLs, resp.CIDs)
	}
	if !strings.HasPrefix(resp.CIDs[0], "uploads/9/") || !strings.HasSuffix(resp.CIDs[0], ".png") {
		t.Errorf("key = %q, want uploads/9/<uuid>.png", resp.CIDs[0])
	}
	if !strings.HasSuffix(resp.CIDs[1], ".mp4") {
		t.Errorf("key = %q, want .mp4 suffix", resp.CIDs[1])
	}
	if resp.URLs[0] != "https://cdn.example.com/"+resp.CIDs[0] {
		t.Errorf("url = %q, want public url of key", resp.URLs[0])
	}
}

func TestMediaService_Upload_SizeBoundary(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"exactly 10MB", model.MaxUploadFileSize, false},
		{"10MB plus one byte", model.MaxUploadFileSize + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockObjectStorage{}
			svc := newTestMediaService(store)
			files := multipartFiles(t, testFile{"big.jpg", "image/jpeg", bytes.Repeat([]byte{'x'}, tt.size)})

			_, err := svc.Upload(context.Background(), 1, files)

			if !tt.wantErr {
				if err != nil {
					t.Fatalf("expected no error, got: %v", err)
				}
				if len(store.keys) != 1 {
					t.Errorf("PutObject calls = %d, want 1", len(store.keys))
				}
				return
			}

			if !errors.Is(err, model.ErrFileTooLarge) {
				t.Fatalf("error = %v, want %v", err, model.ErrFileTooLarge)
			}
			if err.Error() != "File big.jpg is too large. Maximum size is 10MB." {
				t.Errorf("message = %q", err.Error())
			}
			if len(store.keys) != 0 {
				t.Error("oversized upload must be rejected before any storage call")
			}
		})
	}
}

func TestMediaService_Upload_OneOversizedFileRejectsBatch(t *testing.T) {
	store := &mockObjectStorage{}
	svc := newTestMediaService(store)
	files := multipartFiles(t,
		testFile{"small.png", "image/png", []byte("ok")},
		testFile{"huge.png", "image/png", bytes.Repeat([]byte{'x'}, model.MaxUploadFileSize+1)},
	)

	_, err := svc.Upload(context.Background(), 1, files)

	if !errors.Is(err, model.ErrFileTooLarge) {
		t.Fatalf("error = %v, want %v", err, model.ErrFileTooLarge)
	}
	if len(store.keys) != 0 {
		t.Errorf("PutObject calls = %d, want 0", len(store.keys))
	}
}

func TestMediaService_Upload_Rejections(t *testing.T) {
	svc := newTestMediaService(&mockObjectStorage{})

	if _, err := svc.Upload(context.Background(), 1, nil); !errors.Is(err, model.ErrNoFiles) {
		t.Errorf("no files: error = %v, want %v", err, model.ErrNoFiles)
	}

	pdf := multipartFiles(t, testFile{"doc.pdf", "application/pdf", []byte("%PDF-1.4")})
	if _, err := svc.Upload(context.Background(), 1, pdf); !errors.Is(err, model.ErrInvalidMediaType) {
		t.Errorf("pdf: error = %v, want %v", err, model.ErrInvalidMediaType)
	}

	many := make([]testFile, model.MaxUploadFiles+1)
	for i := range many {
		many[i] = testFile{fmt.Sprintf("%d.png", i), "image/png", []byte("x")}
	}
	if _, err := svc.Upload(context.Background(), 1, multipartFiles(t, many...)); !errors.Is(err, model.ErrTooManyFiles) {
		t.Errorf("too many: error = %v, want %v", err, model.ErrTooManyFiles)
	}
}

func TestMediaService_UploadAvatar_ResizesToJPEG(t *testing.T) {
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 800, 600))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	store := &mockObjectStorage{}
	svc := newTestMediaService(store)
	files := multipartFiles(t, testFile{"me.png", "image/png", img.Bytes()})

	result, err := svc.UploadAvatar(context.Background(), 4, files[0])

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.HasPrefix(result.Key, "avatars/4/") || !strings.HasSuffix(result.Key, ".jpg") {
		t.Errorf("key = %q, want avatars/4/<uuid>.jpg", result.Key)
	}
}

func TestMediaService_StorageFailure(t *testing.T) {
	store := &mockObjectStorage{err: errors.New("r2 unavailable")}
	svc := newTestMediaService(store)

	_, err := svc.Upload(context.Background(), 1, multipartFiles(t, testFile{"a.png", "image/png", []byte("x")}))

	if err == nil || errors.Is(err, model.ErrFileTooLarge) {
		t.Errorf("error = %v, want upstream failure", err)
	}
}
