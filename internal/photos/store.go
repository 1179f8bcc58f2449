package photos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/photoshare/internal/client"
	"github.com/wolfeidau/photoshare/internal/models"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyComment is returned when the comment text is blank.
	ErrEmptyComment = fmt.Errorf("%w: comment cannot be empty", client.ErrValidation)

	// ErrCommentInFlight is returned when a comment on the same photo is still being submitted.
	ErrCommentInFlight = errors.New("a comment on this photo is already being submitted")

	// ErrSuperseded is returned by LoadFor when a newer load started before it finished.
	ErrSuperseded = errors.New("load superseded by a newer request")

	// ErrPhotoNotFound is returned when the photo is not in the current collection.
	ErrPhotoNotFound = errors.New("photo not in current collection")
)

// Requester performs API requests; client.Fetcher satisfies it.
type Requester interface {
	Request(ctx context.Context, path string, opts client.Options, out any) error
}

// Collection is one subject user's photos with their comments.
type Collection struct {
	User   *models.User
	Photos []models.Photo
}

// Photo returns the photo with the given id.
func (c *Collection) Photo(id string) (models.Photo, bool) {
	for _, p := range c.Photos {
		if p.ID == id {
			return p, true
		}
	}
	return models.Photo{}, false
}

func (c *Collection) photo(id string) (models.Photo, bool) {
	if c == nil {
		return models.Photo{}, false
	}
	return c.Photo(id)
}

func (c *Collection) clone() *Collection {
	if c == nil {
		return nil
	}
	out := &Collection{Photos: make([]models.Photo, len(c.Photos))}
	if c.User != nil {
		u := *c.User
		out.User = &u
	}
	for i, p := range c.Photos {
		out.Photos[i] = p.Clone()
	}
	return out
}

// Store caches the photos of exactly one subject user at a time.
//
// Each LoadFor is tagged with a generation; a response is applied only when
// its generation is still the latest, so out of order responses from quick
// navigation never overwrite newer state.
type Store struct {
	api Requester

	mu         sync.Mutex
	generation uint64
	subject    string
	current    *Collection
	pending    map[string]bool
	errs       map[string]error
}

// NewStore creates an empty store.
func NewStore(api Requester) *Store {
	return &Store{
		api:     api,
		pending: make(map[string]bool),
		errs:    make(map[string]error),
	}
}

// Subject returns the user id of the most recently requested load.
func (s *Store) Subject() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subject
}

// Snapshot returns a copy of the current collection, or nil before the first load.
func (s *Store) Snapshot() *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

// LoadFor fetches userID's profile and photos and replaces the cached
// collection. If another LoadFor starts before this one finishes, the result
// is discarded and ErrSuperseded is returned.
func (s *Store) LoadFor(ctx context.Context, userID string) (*Collection, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	if s.subject != userID {
		// Switching subject drops the previous user's photos immediately.
		s.current = nil
		s.errs = make(map[string]error)
	}
	s.subject = userID
	s.mu.Unlock()

	var (
		user   models.User
		photos []models.Photo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.api.Request(gctx, client.ResourcePath("/api/user", userID), client.Options{}, &user)
	})
	g.Go(func() error {
		return s.api.Request(gctx, client.ResourcePath("/api/photo/photosOfUser", userID), client.Options{}, &photos)
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		log.Debug().
			Str("user_id", userID).
			Str("current", s.subject).
			Msg("discarding superseded photo load")
		return nil, ErrSuperseded
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load photos of user %s: %w", userID, err)
	}

	if photos == nil {
		photos = []models.Photo{}
	}

	s.current = &Collection{User: &user, Photos: photos}

	log.Debug().
		Str("user_id", userID).
		Int("photos", len(photos)).
		Msg("photo collection loaded")

	return s.current.clone(), nil
}

// Pending reports whether a comment on photoID is being submitted.
func (s *Store) Pending(photoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[photoID]
}

// CommentError returns the last submission failure for photoID.
func (s *Store) CommentError(photoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs[photoID]
}

type commentRequest struct {
	Comment string `json:"comment"`
}

type commentResponse struct {
	Comment *models.Comment `json:"comment"`
}

// SubmitComment posts text on photoID. The comment is appended to the photo
// only once the server has acknowledged it, using the server's id and
// timestamp. Failures are recorded against the photo and returned.
func (s *Store) SubmitComment(ctx context.Context, photoID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	s.mu.Lock()
	if _, ok := s.current.photo(photoID); !ok {
		s.mu.Unlock()
		return nil, ErrPhotoNotFound
	}
	if s.pending[photoID] {
		s.mu.Unlock()
		return nil, ErrCommentInFlight
	}
	s.pending[photoID] = true
	delete(s.errs, photoID)
	s.mu.Unlock()

	var resp commentResponse
	err := s.api.Request(ctx, client.ResourcePath("/api/comment/commentsOfPhoto", photoID), client.Options{
		Method: http.MethodPost,
		JSON:   commentRequest{Comment: text},
	}, &resp)
	if err == nil && resp.Comment == nil {
		err = errors.New("comment response missing comment")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, photoID)

	if err != nil {
		if _, ok := s.current.photo(photoID); ok {
			s.errs[photoID] = err
		}
		return nil, err
	}

	comment := *resp.Comment
	if comment.PhotoID == "" {
		comment.PhotoID = photoID
	}

	if !s.appendComment(photoID, comment) {
		log.Debug().Str("photo_id", photoID).Msg("comment accepted for photo no longer in view")
	}

	return &comment, nil
}

// appendComment adds comment to the photo in the current collection. Other
// photos keep their existing comment slices.
func (s *Store) appendComment(photoID string, comment models.Comment) bool {
	if s.current == nil {
		return false
	}

	for i, p := range s.current.Photos {
		if p.ID != photoID {
			continue
		}
		comments := make([]models.Comment, len(p.Comments), len(p.Comments)+1)
		copy(comments, p.Comments)
		s.current.Photos[i].Comments = append(comments, comment)
		return true
	}

	return false
}
