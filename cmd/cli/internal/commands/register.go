package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/wolfeidau/photoshare/internal/routes"
	"github.com/wolfeidau/photoshare/internal/users"
	"gopkg.in/yaml.v3"
)

type RegisterCmd struct {
	Profile         string `help:"YAML file with the account profile" type:"path"`
	LoginName       string `help:"Login name"`
	Password        string `help:"Password" env:"PHOTOSHARE_PASSWORD"`
	ConfirmPassword string `help:"Repeat the password"`
	FirstName       string `help:"First name"`
	LastName        string `help:"Last name"`
	Location        string `help:"Location"`
	Description     string `help:"Description"`
	Occupation      string `help:"Occupation"`
}

func (r *RegisterCmd) Run(ctx context.Context, globals *Globals) error {
	reg, err := r.registration()
	if err != nil {
		return err
	}

	rt, err := newRuntime(globals)
	if err != nil {
		return err
	}

	s, decision, err := rt.enter(ctx, routes.Parse("/register"))
	if err != nil {
		return err
	}
	if decision.Redirected {
		return fmt.Errorf("already logged in as %s, log out before registering a new account", s.User.LoginName)
	}

	if err := rt.users.Register(ctx, reg); err != nil {
		return err
	}

	fmt.Fprintf(globals.stdout(), "Registered %s\n", reg.LoginName)
	fmt.Fprintf(globals.stdout(), "\nLog in with:\n  photoshare login %s\n", reg.LoginName)
	return nil
}

// registration reads the profile file, if any, then applies flags over it.
func (r *RegisterCmd) registration() (users.Registration, error) {
	var reg users.Registration

	if r.Profile != "" {
		data, err := os.ReadFile(r.Profile)
		if err != nil {
			return reg, fmt.Errorf("failed to read profile: %w", err)
		}
		if err := yaml.Unmarshal(data, &reg); err != nil {
			return reg, fmt.Errorf("failed to parse profile %s: %w", r.Profile, err)
		}
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&reg.LoginName, r.LoginName)
	set(&reg.Password, r.Password)
	set(&reg.ConfirmPassword, r.ConfirmPassword)
	set(&reg.FirstName, r.FirstName)
	set(&reg.LastName, r.LastName)
	set(&reg.Location, r.Location)
	set(&reg.Description, r.Description)
	set(&reg.Occupation, r.Occupation)

	return reg, nil
}
