package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/photoshare/internal/client"
	"github.com/wolfeidau/photoshare/internal/credentials"
	"github.com/wolfeidau/photoshare/internal/models"
)

var (
	// ErrInvalidCredentials is returned when the server rejects a login.
	ErrInvalidCredentials = errors.New("invalid login name or password")

	// ErrMissingCredentials is returned when login name or password is empty.
	ErrMissingCredentials = fmt.Errorf("%w: please enter both login name and password", client.ErrValidation)

	// ErrMalformedLogin is returned when a successful login response lacks a credential or user.
	ErrMalformedLogin = errors.New("login response missing token or user")
)

const (
	loginPath    = "/admin/login"
	logoutPath   = "/admin/logout"
	userListPath = "/api/user/list"
	userPath     = "/api/user"
)

// Fetcher is the subset of client.Fetcher the controller needs.
type Fetcher interface {
	Request(ctx context.Context, path string, opts client.Options, out any) error
	OnUnauthorized(fn func())
}

// Controller owns the client's belief about who is logged in.
//
// Create one per process (or per test) and pass it to consumers; it holds no
// global state.
type Controller struct {
	tokens  *credentials.Store
	fetcher Fetcher

	mu          sync.Mutex
	current     models.Session
	subscribers map[int]func(models.Session)
	nextID      int
}

// NewController creates a controller in the unresolved state. Any 401 seen by
// fetcher afterwards moves an authenticated session to anonymous.
func NewController(tokens *credentials.Store, fetcher Fetcher) *Controller {
	c := &Controller{
		tokens:      tokens,
		fetcher:     fetcher,
		current:     models.Session{Status: models.StatusUnresolved},
		subscribers: make(map[int]func(models.Session)),
	}

	fetcher.OnUnauthorized(c.expire)

	return c
}

// Current returns the present session.
func (c *Controller) Current() models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Subscribe registers fn to be called after every session change.
// The returned function removes the subscription.
func (c *Controller) Subscribe(fn func(models.Session)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subscribers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Bootstrap resolves the session at process start.
//
// Without a valid stored credential it resolves anonymous without touching the
// network. Otherwise the server is probed: a 401 resolves anonymous, while any
// other failure falls back to the identity decoded from the credential so a
// network blip does not look like a logout.
//
// Bootstrap only does work once; later calls return the current session.
func (c *Controller) Bootstrap(ctx context.Context) (models.Session, error) {
	if current := c.Current(); current.Status != models.StatusUnresolved {
		return current, nil
	}

	claims, _, ok := c.tokens.Current()
	if !ok {
		log.Debug().Msg("no valid credential, session is anonymous")
		return c.transition(models.Session{Status: models.StatusAnonymous}), nil
	}

	partial := models.Session{Status: models.StatusAuthenticated, User: claims.User(), Partial: true}

	if err := c.fetcher.Request(ctx, userListPath, client.Options{}, nil); err != nil {
		return c.resolveProbeFailure(ctx, err, partial)
	}

	var user models.User
	if err := c.fetcher.Request(ctx, client.ResourcePath(userPath, claims.UserID), client.Options{}, &user); err != nil {
		return c.resolveProbeFailure(ctx, err, partial)
	}

	log.Debug().Str("user_id", user.ID).Msg("session restored")

	return c.transition(models.Session{Status: models.StatusAuthenticated, User: &user}), nil
}

func (c *Controller) resolveProbeFailure(ctx context.Context, err error, partial models.Session) (models.Session, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return c.Current(), ctxErr
	}

	if client.IsUnauthorized(err) {
		log.Info().Msg("stored credential rejected by server")
		return c.transition(models.Session{Status: models.StatusAnonymous}), nil
	}

	log.Warn().Err(err).Str("user_id", partial.UserID()).Msg("session probe failed, using credential claims")

	return c.transition(partial), nil
}

type loginRequest struct {
	LoginName string `json:"login_name"`
	Password  string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login exchanges a login name and password for a credential, stores it, and
// returns the logged in user.
func (c *Controller) Login(ctx context.Context, loginName, password string) (*models.User, error) {
	loginName = strings.TrimSpace(loginName)
	if loginName == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	var resp loginResponse
	err := c.fetcher.Request(ctx, loginPath, client.Options{
		Method:    http.MethodPost,
		JSON:      loginRequest{LoginName: loginName, Password: password},
		Anonymous: true,
	}, &resp)
	if err != nil {
		var reqErr *client.RequestError
		if errors.As(err, &reqErr) && reqErr.Status >= 400 && reqErr.Status < 500 {
			if reqErr.Message != "" {
				return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, reqErr.Message)
			}
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if resp.Token == "" || resp.User == nil {
		return nil, ErrMalformedLogin
	}

	if err := c.tokens.Save(resp.Token); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", resp.User.ID).Msg("logged in")

	c.transition(models.Session{Status: models.StatusAuthenticated, User: resp.User})

	return resp.User, nil
}

// Logout clears the local credential whatever the server says. The server
// call is best-effort and its failure is only logged.
func (c *Controller) Logout(ctx context.Context) error {
	err := c.fetcher.Request(ctx, logoutPath, client.Options{Method: http.MethodPost}, nil)
	if err != nil && !client.IsUnauthorized(err) {
		log.Warn().Err(err).Msg("server logout failed, clearing local session anyway")
	}

	clearErr := c.tokens.Clear()

	c.transition(models.Session{Status: models.StatusAnonymous})

	if clearErr != nil {
		return clearErr
	}

	log.Info().Msg("logged out")

	return nil
}

// expire runs when the fetcher sees a 401.
func (c *Controller) expire() {
	if c.Current().Status != models.StatusAuthenticated {
		return
	}
	log.Info().Msg("credential rejected, session is now anonymous")
	c.transition(models.Session{Status: models.StatusAnonymous})
}

func (c *Controller) transition(next models.Session) models.Session {
	c.mu.Lock()
	prev := c.current
	c.current = next
	subscribers := make([]func(models.Session), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subscribers = append(subscribers, fn)
	}
	c.mu.Unlock()

	if prev.Status != next.Status {
		log.Debug().
			Str("from", prev.Status.String()).
			Str("to", next.Status.String()).
			Msg("session transition")
	}

	for _, fn := range subscribers {
		fn(next)
	}

	return next
}
