package users

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/photoshare/internal/client"
	"github.com/wolfeidau/photoshare/internal/models"
)

// ErrInvalidRegistration is returned when a registration fails local validation.
var ErrInvalidRegistration = fmt.Errorf("%w: invalid registration", client.ErrValidation)

// Requester performs API requests; client.Fetcher satisfies it.
type Requester interface {
	Request(ctx context.Context, path string, opts client.Options, out any) error
}

// Directory reads user records and registers new accounts.
type Directory struct {
	api      Requester
	validate *validator.Validate
}

func NewDirectory(api Requester) *Directory {
	return &Directory{
		api:      api,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// List returns every user, for the sidebar.
func (d *Directory) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := d.api.Request(ctx, "/api/user/list", client.Options{}, &users); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Get returns one user's full record.
func (d *Directory) Get(ctx context.Context, id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: user id is required", client.ErrValidation)
	}

	var user models.User
	if err := d.api.Request(ctx, client.ResourcePath("/api/user", id), client.Options{}, &user); err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return &user, nil
}

// Registration is a new account's profile.
type Registration struct {
	LoginName       string `json:"login_name" yaml:"login_name" validate:"required"`
	Password        string `json:"password" yaml:"password" validate:"required"`
	ConfirmPassword string `json:"-" yaml:"confirm_password" validate:"eqfield=Password"`
	FirstName       string `json:"first_name" yaml:"first_name" validate:"required"`
	LastName        string `json:"last_name" yaml:"last_name" validate:"required"`
	Location        string `json:"location" yaml:"location"`
	Description     string `json:"description" yaml:"description"`
	Occupation      string `json:"occupation" yaml:"occupation"`
}

func (r Registration) trimmed() Registration {
	r.LoginName = strings.TrimSpace(r.LoginName)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Location = strings.TrimSpace(r.Location)
	r.Description = strings.TrimSpace(r.Description)
	r.Occupation = strings.TrimSpace(r.Occupation)
	return r
}

var fieldMessages = map[string]string{
	"LoginName":       "login name is required",
	"Password":        "password is required",
	"FirstName":       "first name is required",
	"LastName":        "last name is required",
	"ConfirmPassword": "passwords do not match",
}

// Register creates an account. It does not log the new user in.
func (d *Directory) Register(ctx context.Context, reg Registration) error {
	reg = reg.trimmed()

	if err := d.validate.Struct(reg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			if msg, ok := fieldMessages[verrs[0].Field()]; ok {
				return fmt.Errorf("%w: %s", ErrInvalidRegistration, msg)
			}
		}
		return fmt.Errorf("%w: %v", ErrInvalidRegistration, err)
	}

	err := d.api.Request(ctx, "/api/user", client.Options{
		Method:    http.MethodPost,
		JSON:      reg,
		Anonymous: true,
	}, nil)
	if err != nil {
		if msg := client.ServerMessage(err); msg != "" {
			return fmt.Errorf("registration failed: %s: %w", msg, err)
		}
		return fmt.Errorf("registration failed: %w", err)
	}

	log.Info().Str("login_name", reg.LoginName).Msg("user registered")

	return nil
}
