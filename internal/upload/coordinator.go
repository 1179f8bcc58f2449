package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/photoshare/internal/client"
	"github.com/wolfeidau/photoshare/internal/models"
	"github.com/wolfeidau/photoshare/internal/routes"
)

const (
	// MaxFileSize is the largest photo the server accepts.
	MaxFileSize = 10 * 1024 * 1024

	uploadPath = "/api/photos/new"
	formField  = "photo"

	genericFailure = "an error occurred while uploading the photo"
)

var (
	// ErrInvalidFileType is returned for anything other than a JPEG, PNG, GIF or WebP image.
	ErrInvalidFileType = fmt.Errorf("%w: please select a valid image file (JPEG, PNG, GIF, WebP)", client.ErrValidation)

	// ErrFileTooLarge is returned for files over MaxFileSize.
	ErrFileTooLarge = fmt.Errorf("%w: file size must be less than 10MB", client.ErrValidation)

	// ErrNoFile is returned when no file was selected.
	ErrNoFile = fmt.Errorf("%w: please select a photo to upload", client.ErrValidation)
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// File is a photo selected for upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// FileFromPath opens path and detects its content type from the file's
// contents. The caller closes the returned closer.
func FileFromPath(path string) (File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return File{}, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return File{}, nil, fmt.Errorf("failed to detect type of %s: %w", path, err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return File{}, nil, fmt.Errorf("failed to rewind %s: %w", path, err)
	}

	// Strip parameters such as "; charset=utf-8".
	contentType, _, _ := strings.Cut(mtype.String(), ";")

	return File{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Content:     f,
	}, f, nil
}

// Validate checks the file's type and size without any network call.
func Validate(file File) error {
	if file.Content == nil && file.Name == "" {
		return ErrNoFile
	}
	if !allowedTypes[strings.ToLower(strings.TrimSpace(file.ContentType))] {
		return ErrInvalidFileType
	}
	if file.Size > MaxFileSize {
		return ErrFileTooLarge
	}
	return nil
}

// Failure is an upload rejected by the server or lost in transit. Its message
// is the server's own when one was given.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Completion is a successful upload. Next is where the caller should navigate.
type Completion struct {
	Photo *models.Photo
	Next  routes.Route
}

// Requester performs API requests; client.Fetcher satisfies it.
type Requester interface {
	Request(ctx context.Context, path string, opts client.Options, out any) error
}

// Coordinator validates and submits new photos.
type Coordinator struct {
	api Requester
}

func NewCoordinator(api Requester) *Coordinator {
	return &Coordinator{api: api}
}

// Validate checks the file without any network call.
func (c *Coordinator) Validate(file File) error {
	return Validate(file)
}

// Upload sends exactly one file as multipart form data.
func (c *Coordinator) Upload(ctx context.Context, file File, ownerUserID string) (*Completion, error) {
	if err := Validate(file); err != nil {
		return nil, err
	}
	if file.Content == nil {
		return nil, ErrNoFile
	}

	// Cap the read in case Size understated the content.
	body, contentType, err := encode(file, io.LimitReader(file.Content, MaxFileSize+1))
	if err != nil {
		return nil, err
	}

	var photo models.Photo
	err = c.api.Request(ctx, uploadPath, client.Options{
		Method:      http.MethodPost,
		Body:        body,
		ContentType: contentType,
	}, &photo)
	if err != nil {
		log.Warn().Err(err).Str("file", file.Name).Msg("photo upload failed")

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if msg := client.ServerMessage(err); msg != "" {
			return nil, &Failure{Message: msg, Err: err}
		}
		return nil, &Failure{Message: genericFailure, Err: err}
	}

	log.Info().
		Str("file", file.Name).
		Str("photo_id", photo.ID).
		Int64("size", file.Size).
		Msg("photo uploaded")

	return &Completion{Photo: &photo, Next: routes.PhotosOf(ownerUserID)}, nil
}

func encode(file File, content io.Reader) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, formField, file.Name))
	header.Set("Content-Type", file.ContentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}

	n, err := io.Copy(part, content)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", file.Name, err)
	}
	if n > MaxFileSize {
		return nil, "", ErrFileTooLarge
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}

	return body, w.FormDataContentType(), nil
}
