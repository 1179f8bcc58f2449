package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/photoshare/internal/client"
	"github.com/wolfeidau/photoshare/internal/credentials"
	"github.com/wolfeidau/photoshare/internal/routes"
)

const mib = 1024 * 1024

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		file File
		want error
	}{
		{name: "15 MB png", file: File{Name: "big.png", ContentType: "image/png", Size: 15 * mib}, want: ErrFileTooLarge},
		{name: "2 MB text", file: File{Name: "notes.txt", ContentType: "text/plain", Size: 2 * mib}, want: ErrInvalidFileType},
		{name: "2 MB jpeg", file: File{Name: "cat.jpg", ContentType: "image/jpeg", Size: 2 * mib}},
		{name: "legacy jpg type", file: File{Name: "cat.jpg", ContentType: "image/jpg", Size: 1}},
		{name: "gif", file: File{Name: "a.gif", ContentType: "image/gif", Size: 1}},
		{name: "webp", file: File{Name: "a.webp", ContentType: "image/webp", Size: 1}},
		{name: "exactly 10 MiB", file: File{Name: "edge.png", ContentType: "image/png", Size: 10 * mib}},
		{name: "one byte over", file: File{Name: "edge.png", ContentType: "image/png", Size: 10*mib + 1}, want: ErrFileTooLarge},
		{name: "svg", file: File{Name: "a.svg", ContentType: "image/svg+xml", Size: 1}, want: ErrInvalidFileType},
		{name: "no type", file: File{Name: "blob", Size: 1}, want: ErrInvalidFileType},
		{name: "nothing selected", file: File{}, want: ErrNoFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, client.ErrValidation)
		})
	}
}

func TestFileFromPath(t *testing.T) {
	dir := t.TempDir()

	t.Run("sniffs png", func(t *testing.T) {
		path := filepath.Join(dir, "photo.bin")
		require.NoError(t, os.WriteFile(path, pngHeader, 0600))

		file, closer, err := FileFromPath(path)
		require.NoError(t, err)
		defer closer.Close()

		assert.Equal(t, "photo.bin", file.Name)
		assert.Equal(t, "image/png", file.ContentType)
		assert.Equal(t, int64(len(pngHeader)), file.Size)
		require.NoError(t, Validate(file))

		// The reader is rewound after sniffing.
		data, err := io.ReadAll(file.Content)
		require.NoError(t, err)
		assert.Equal(t, pngHeader, data)
	})

	t.Run("text is rejected", func(t *testing.T) {
		path := filepath.Join(dir, "notes.png")
		require.NoError(t, os.WriteFile(path, []byte("just some text"), 0600))

		file, closer, err := FileFromPath(path)
		require.NoError(t, err)
		defer closer.Close()

		assert.Equal(t, "text/plain", file.ContentType)
		require.ErrorIs(t, Validate(file), ErrInvalidFileType)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := FileFromPath(filepath.Join(dir, "nope.png"))
		require.Error(t, err)
	})
}

func newCoordinator(t *testing.T, handler http.Handler) *Coordinator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := credentials.NewStore(credentials.NewMemoryStorage())
	token, err := credentials.SignTokenWithKey([]byte("upload-test"), "u1", "alice", "Alice", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.Save(token))

	fetcher, err := client.NewFetcher(srv.URL, &http.Client{Timeout: 5 * time.Second}, store)
	require.NoError(t, err)
	return NewCoordinator(fetcher)
}

func TestCoordinator_Upload(t *testing.T) {
	t.Run("sends one multipart file and signals completion", func(t *testing.T) {
		coord := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/photos/new", r.URL.Path)
			assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))

			require.NoError(t, r.ParseMultipartForm(mib))
			files := r.MultipartForm.File["photo"]
			require.Len(t, files, 1)
			assert.Equal(t, "cat.png", files[0].Filename)
			assert.Equal(t, "image/png", files[0].Header.Get("Content-Type"))

			f, err := files[0].Open()
			require.NoError(t, err)
			defer f.Close()
			data, err := io.ReadAll(f)
			require.NoError(t, err)
			assert.Equal(t, pngHeader, data)

			_ = json.NewEncoder(w).Encode(map[string]string{"_id": "new-photo", "file_name": "abc.png", "user_id": "u1"})
		}))

		done, err := coord.Upload(context.Background(), File{
			Name:        "cat.png",
			ContentType: "image/png",
			Size:        int64(len(pngHeader)),
			Content:     bytes.NewReader(pngHeader),
		}, "u1")
		require.NoError(t, err)
		assert.Equal(t, "new-photo", done.Photo.ID)
		assert.Equal(t, routes.PhotosOf("u1"), done.Next)
		assert.Equal(t, "/photos/u1", done.Next.Path())
	})

	t.Run("invalid file makes no request", func(t *testing.T) {
		var hits atomic.Int32
		coord := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))

		_, err := coord.Upload(context.Background(), File{Name: "a.txt", ContentType: "text/plain", Size: 2 * mib, Content: bytes.NewReader(nil)}, "u1")
		require.ErrorIs(t, err, ErrInvalidFileType)

		_, err = coord.Upload(context.Background(), File{Name: "a.png", ContentType: "image/png", Size: 15 * mib, Content: bytes.NewReader(nil)}, "u1")
		require.ErrorIs(t, err, ErrFileTooLarge)

		assert.Equal(t, int32(0), hits.Load())
	})

	t.Run("understated size is caught while encoding", func(t *testing.T) {
		var hits atomic.Int32
		coord := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))

		_, err := coord.Upload(context.Background(), File{
			Name:        "liar.png",
			ContentType: "image/png",
			Size:        10,
			Content:     bytes.NewReader(make([]byte, 10*mib+5)),
		}, "u1")
		require.ErrorIs(t, err, ErrFileTooLarge)
		assert.Equal(t, int32(0), hits.Load())
	})

	t.Run("server message surfaced verbatim", func(t *testing.T) {
		coord := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"No file uploaded"}`))
		}))

		_, err := coord.Upload(context.Background(), File{Name: "a.png", ContentType: "image/png", Size: 4, Content: bytes.NewReader(pngHeader[:4])}, "u1")
		require.Error(t, err)
		assert.Equal(t, "No file uploaded", err.Error())
		assert.ErrorIs(t, err, client.ErrRequestFailed)

		var failure *Failure
		require.ErrorAs(t, err, &failure)
	})

	t.Run("generic message when server gives none", func(t *testing.T) {
		coord := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		_, err := coord.Upload(context.Background(), File{Name: "a.png", ContentType: "image/png", Size: 4, Content: bytes.NewReader(pngHeader[:4])}, "u1")
		require.Error(t, err)
		assert.Equal(t, "an error occurred while uploading the photo", err.Error())
	})

	t.Run("unauthorized stays distinguishable", func(t *testing.T) {
		coord := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, err := coord.Upload(context.Background(), File{Name: "a.png", ContentType: "image/png", Size: 4, Content: bytes.NewReader(pngHeader[:4])}, "u1")
		require.ErrorIs(t, err, client.ErrUnauthorized)
	})
}
