package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/photoshare/internal/credentials"
	"github.com/wolfeidau/photoshare/internal/models"
	"gopkg.in/yaml.v3"
)

var (
	alice = models.User{ID: "u1", LoginName: "alice", FirstName: "Alice", LastName: "Smith", Location: "Sydney"}
	bob   = models.User{ID: "u2", LoginName: "bob", FirstName: "Bob", LastName: "Jones"}

	testKey = []byte("commands-test-key")
	pngData = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
)

// photoServer serves just enough of the photo sharing API for the commands.
type photoServer struct {
	t        *testing.T
	mu       sync.Mutex
	tokens   map[string]bool
	comments []string
	uploads  int
	requests atomic.Int32
}

func newPhotoServer(t *testing.T) (*photoServer, *httptest.Server) {
	ps := &photoServer{t: t, tokens: make(map[string]bool)}
	srv := httptest.NewServer(ps.routes())
	t.Cleanup(srv.Close)
	return ps, srv
}

func (ps *photoServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /admin/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			LoginName string `json:"login_name"`
			Password  string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.LoginName != alice.LoginName || req.Password != "secret" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid login name or password"})
			return
		}
		token, err := credentials.SignTokenWithKey(testKey, alice.ID, alice.LoginName, alice.FirstName, time.Now().Add(time.Hour))
		require.NoError(ps.t, err)
		ps.mu.Lock()
		ps.tokens[token] = true
		ps.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": alice})
	})
	mux.HandleFunc("POST /admin/logout", ps.auth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	mux.HandleFunc("POST /api/user", func(w http.ResponseWriter, r *http.Request) {
		var reg map[string]string
		_ = json.NewDecoder(r.Body).Decode(&reg)
		if reg["login_name"] == alice.LoginName {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Login name already exists"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"login_name": reg["login_name"]})
	})
	mux.HandleFunc("GET /api/user/list", ps.auth(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.User{alice, bob})
	}))
	mux.HandleFunc("GET /api/user/{id}", ps.auth(func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case alice.ID:
			writeJSON(w, http.StatusOK, alice)
		case bob.ID:
			writeJSON(w, http.StatusOK, bob)
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "User not found"})
		}
	}))
	mux.HandleFunc("GET /api/photo/photosOfUser/{id}", ps.auth(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != bob.ID {
			writeJSON(w, http.StatusOK, []models.Photo{})
			return
		}
		writeJSON(w, http.StatusOK, []models.Photo{{
			ID:       "p1",
			UserID:   bob.ID,
			FileName: "beach.jpg",
			DateTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		}})
	}))
	mux.HandleFunc("POST /api/comment/commentsOfPhoto/{id}", ps.auth(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Comment string `json:"comment"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		ps.mu.Lock()
		ps.comments = append(ps.comments, req.Comment)
		ps.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"comment": models.Comment{
			ID:       "c1",
			PhotoID:  r.PathValue("id"),
			User:     models.UserSummary{ID: alice.ID, FirstName: alice.FirstName, LastName: alice.LastName},
			DateTime: time.Now().UTC(),
			Comment:  req.Comment,
		}})
	}))
	mux.HandleFunc("POST /api/photos/new", ps.auth(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil || len(r.MultipartForm.File["photo"]) != 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file uploaded"})
			return
		}
		ps.mu.Lock()
		ps.uploads++
		ps.mu.Unlock()
		writeJSON(w, http.StatusOK, models.Photo{ID: "p9", UserID: alice.ID, FileName: "stored.png"})
	}))
	mux.HandleFunc("GET /images/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") == "missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "max-age=3600")
		_, _ = w.Write(pngData)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.requests.Add(1)
		mux.ServeHTTP(w, r)
	})
}

func (ps *photoServer) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		ps.mu.Lock()
		ok := ps.tokens[token]
		ps.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newGlobals(t *testing.T, serverURL string) (*Globals, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	return &Globals{
		Server:         serverURL,
		CredentialsDir: t.TempDir(),
		Timeout:        5 * time.Second,
		Output:         outputTable,
		Stdout:         out,
	}, out
}

func login(t *testing.T, globals *Globals) {
	t.Helper()
	cmd := &LoginCmd{LoginName: "alice", Password: "secret"}
	require.NoError(t, cmd.Run(context.Background(), globals))
}

func TestLoginCmd(t *testing.T) {
	_, srv := newPhotoServer(t)
	globals, out := newGlobals(t, srv.URL)

	login(t, globals)
	assert.Contains(t, out.String(), "Logged in as alice (Alice Smith)")

	store, err := credentials.NewFileStore(globals.CredentialsDir)
	require.NoError(t, err)
	claims, _, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, alice.ID, claims.UserID)
}

func TestLoginCmd_InvalidCredentials(t *testing.T) {
	_, srv := newPhotoServer(t)
	globals, _ := newGlobals(t, srv.URL)

	cmd := &LoginCmd{LoginName: "alice", Password: "wrong"}
	err := cmd.Run(context.Background(), globals)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid login name or password")
}

func TestWhoamiCmd(t *testing.T) {
	_, srv := newPhotoServer(t)
	globals, out := newGlobals(t, srv.URL)

	err := (&WhoamiCmd{}).Run(context.Background(), globals)
	require.ErrorIs(t, err, ErrNotLoggedIn)

	login(t, globals)
	out.Reset()

	globals.Output = outputJSON
	require.NoError(t, (&WhoamiCmd{}).Run(context.Background(), globals))

	var got whoami
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "authenticated", got.Status)
	assert.False(t, got.Partial)
	assert.Equal(t, alice.ID, got.User.ID)
}

func TestLogoutCmd(t *testing.T) {
	_, srv := newPhotoServer(t)
	globals, out := newGlobals(t, srv.URL)
	login(t, globals)

	require.NoError(t, (&LogoutCmd{}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "Logged out")

	err := (&WhoamiCmd{}).Run(context.Background(), globals)
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestPhotosCmd_NotLoggedIn(t *testing.T) {
	ps, srv := newPhotoServer(t)
	globals, _ := newGlobals(t, srv.URL)

	err := (&PhotosCmd{UserID: bob.ID}).Run(context.Background(), globals)
	require.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Equal(t, int32(0), ps.requests.Load())
}

func TestPhotosCmd(t *testing.T) {
	_, srv := newPhotoServer(t)
	globals, out := newGlobals(t, srv.URL)
	login(t, globals)
	out.Reset()

	require.NoError(t, (&PhotosCmd{UserID: bob.ID}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "Photos of Bob Jones")
	assert.Contains(t, out.String(), "beach.jpg")

	out.Reset()
	require.NoError(t, (&PhotosCmd{UserID: alice.ID}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "No photos yet.")
}

func TestCommentCmd(t *testing.T) {
	ps, srv := newPhotoServer(t)
	globals, out := newGlobals(t, srv.URL)
	login(t, globals)
	out.Reset()

	cmd := &CommentCmd{PhotoID: "p1", Text: "  Nice shot  ", Owner: bob.ID}
	require.NoError(t, cmd.Run(context.Background(), globals))
	assert.Contains(t, out.String(), "Comment added to p1")
	assert.Equal(t, []string{"Nice shot"}, ps.comments)

	t.Run("photo of another user", func(t *testing.T) {
		cmd := &CommentCmd{PhotoID: "p1", Text: "hi", Owner: alice.ID}
		err := cmd.Run(context.Background(), globals)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not belong to user u1")
	})

	t.Run("blank comment", func(t *testing.T) {
		cmd := &CommentCmd{PhotoID: "p1", Text: "   ", Owner: bob.ID}
		require.Error(t, cmd.Run(context.Background(), globals))
		assert.Len(t, ps.comments, 1)
	})
}

func TestUploadCmd(t *testing.T) {
	ps, srv := newPhotoServer(t)
	globals, out := newGlobals(t, srv.URL)
	login(t, globals)
	out.Reset()

	dir := t.TempDir()
	photo := filepath.Join(dir, "cat.png")
	require.NoError(t, os.WriteFile(photo, pngData, 0600))

	require.NoError(t, (&UploadCmd{Path: photo}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "Uploaded cat.png")
	assert.Contains(t, out.String(), "/photos/u1")
	assert.Equal(t, 1, ps.uploads)

	t.Run("text file is rejected locally", func(t *testing.T) {
		notes := filepath.Join(dir, "notes.png")
		require.NoError(t, os.WriteFile(notes, []byte("not an image"), 0600))

		before := ps.requests.Load()
		err := (&UploadCmd{Path: notes}).Run(context.Background(), globals)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "valid image file")
		assert.Equal(t, before, ps.requests.Load())
	})
}

func TestUsersCmd(t *testing.T) {
	_, srv := newPhotoServer(t)
	globals, out := newGlobals(t, srv.URL)
	login(t, globals)
	out.Reset()

	globals.Output = outputYAML
	require.NoError(t, (&UsersListCmd{}).Run(context.Background(), globals))

	var list []models.User
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, bob.LoginName, list[1].LoginName)

	out.Reset()
	globals.Output = outputTable
	require.NoError(t, (&UsersShowCmd{UserID: alice.ID}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "Alice Smith")
	assert.Contains(t, out.String(), "Sydney")
}

func TestRegisterCmd(t *testing.T) {
	_, srv := newPhotoServer(t)
	globals, out := newGlobals(t, srv.URL)

	profile := filepath.Join(t.TempDir(), "carol.yaml")
	require.NoError(t, os.WriteFile(profile, []byte(`login_name: carol
password: pw
first_name: Carol
last_name: White
occupation: Surveyor
`), 0600))

	t.Run("profile plus flags", func(t *testing.T) {
		cmd := &RegisterCmd{Profile: profile, ConfirmPassword: "pw"}
		require.NoError(t, cmd.Run(context.Background(), globals))
		assert.Contains(t, out.String(), "Registered carol")
	})

	t.Run("password mismatch", func(t *testing.T) {
		cmd := &RegisterCmd{Profile: profile, ConfirmPassword: "nope"}
		err := cmd.Run(context.Background(), globals)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "passwords do not match")
	})

	t.Run("server rejection", func(t *testing.T) {
		cmd := &RegisterCmd{Profile: profile, LoginName: "alice", ConfirmPassword: "pw"}
		err := cmd.Run(context.Background(), globals)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Login name already exists")
	})

	t.Run("logged in users are redirected", func(t *testing.T) {
		login(t, globals)
		cmd := &RegisterCmd{Profile: profile, ConfirmPassword: "pw"}
		err := cmd.Run(context.Background(), globals)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already logged in as alice")
	})
}

func TestImageCmd(t *testing.T) {
	_, srv := newPhotoServer(t)
	globals, _ := newGlobals(t, srv.URL)
	globals.CacheDir = t.TempDir()

	target := filepath.Join(t.TempDir(), "beach.png")
	require.NoError(t, (&ImageCmd{FileName: "beach.png", File: target}).Run(context.Background(), globals))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, pngData, data)

	err = (&ImageCmd{FileName: "../etc/passwd"}).Run(context.Background(), globals)
	require.Error(t, err)

	t.Run("failed fetch keeps the existing file", func(t *testing.T) {
		dir := t.TempDir()
		existing := filepath.Join(dir, "keep.png")
		require.NoError(t, os.WriteFile(existing, []byte("old"), 0600))

		err := (&ImageCmd{FileName: "missing.png", File: existing}).Run(context.Background(), globals)
		require.Error(t, err)

		data, err := os.ReadFile(existing)
		require.NoError(t, err)
		assert.Equal(t, "old", string(data))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("failed fetch creates no file", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "new.png")

		err := (&ImageCmd{FileName: "missing.png", File: target}).Run(context.Background(), globals)
		require.Error(t, err)
		assert.NoFileExists(t, target)
	})
}

func TestOpenCmd(t *testing.T) {
	_, srv := newPhotoServer(t)
	globals, out := newGlobals(t, srv.URL)
	globals.Output = outputJSON

	open := func(path string) openResult {
		t.Helper()
		out.Reset()
		require.NoError(t, (&OpenCmd{Path: path}).Run(context.Background(), globals))
		var got openResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		return got
	}

	got := open("/photos/u2")
	assert.Equal(t, "login", got.View)
	assert.True(t, got.Substituted)
	assert.Equal(t, "/photos/u2", got.Location)
	assert.Equal(t, "anonymous", got.Session)

	login(t, globals)

	got = open("/photos/u2")
	assert.Equal(t, "user-photos", got.View)
	assert.False(t, got.Redirected)

	got = open("/login-register")
	assert.Equal(t, "user-detail", got.View)
	assert.True(t, got.Redirected)
	assert.Equal(t, "/users/u1", got.Location)
}
