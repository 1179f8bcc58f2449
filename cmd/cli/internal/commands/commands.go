package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wolfeidau/photoshare/internal/client"
	"github.com/wolfeidau/photoshare/internal/credentials"
	"github.com/wolfeidau/photoshare/internal/images"
	"github.com/wolfeidau/photoshare/internal/models"
	"github.com/wolfeidau/photoshare/internal/photos"
	"github.com/wolfeidau/photoshare/internal/routes"
	"github.com/wolfeidau/photoshare/internal/session"
	"github.com/wolfeidau/photoshare/internal/upload"
	"github.com/wolfeidau/photoshare/internal/users"
)

// ErrNotLoggedIn is returned when a command needs a session and there is none.
var ErrNotLoggedIn = errors.New("not logged in, run 'photoshare login <login-name>' first")

type Globals struct {
	Debug          bool
	Version        string
	Server         string
	CredentialsDir string
	CacheDir       string
	Timeout        time.Duration
	Output         string

	// Stdout defaults to os.Stdout.
	Stdout io.Writer
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Globals) clientConfig() client.Config {
	config := client.DefaultConfig()
	if g.Server != "" {
		config.ServerURL = g.Server
	}
	if g.Timeout > 0 {
		config.Timeout = g.Timeout
	}
	config.Debug = g.Debug
	return config
}

// runtime wires the session core for a single command invocation.
type runtime struct {
	config     client.Config
	tokens     *credentials.Store
	fetcher    *client.Fetcher
	controller *session.Controller
	users      *users.Directory
	photos     *photos.Store
	uploads    *upload.Coordinator
}

func newRuntime(globals *Globals) (*runtime, error) {
	config := globals.clientConfig()

	tokens, err := credentials.NewFileStore(globals.CredentialsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	httpClient, err := client.NewHTTPClient(config)
	if err != nil {
		return nil, err
	}

	fetcher, err := client.NewFetcher(config.ServerURL, httpClient, tokens)
	if err != nil {
		return nil, err
	}

	return &runtime{
		config:     config,
		tokens:     tokens,
		fetcher:    fetcher,
		controller: session.NewController(tokens, fetcher),
		users:      users.NewDirectory(fetcher),
		photos:     photos.NewStore(fetcher),
		uploads:    upload.NewCoordinator(fetcher),
	}, nil
}

func (r *runtime) images(cacheDir string) (*images.Client, error) {
	return images.NewClient(r.config.ServerURL, client.NewCachingHTTPClient(cacheDir, r.config.Timeout))
}

// enter bootstraps the session and resolves the requested view. A protected
// view that resolves to the login view is reported as ErrNotLoggedIn.
func (r *runtime) enter(ctx context.Context, requested routes.Route) (models.Session, routes.Decision, error) {
	s, err := r.controller.Bootstrap(ctx)
	if err != nil {
		return s, routes.Decision{}, fmt.Errorf("failed to resolve session: %w", err)
	}

	decision := routes.Resolve(requested, s)
	if decision.Substituted && decision.Route.Kind == routes.KindLogin && requested.Kind.IsProtected() {
		return s, decision, ErrNotLoggedIn
	}

	return s, decision, nil
}

// sessionError turns a 401 surfaced mid-command into the login prompt.
func sessionError(err error) error {
	if client.IsUnauthorized(err) {
		return fmt.Errorf("session expired: %w", ErrNotLoggedIn)
	}
	return err
}
