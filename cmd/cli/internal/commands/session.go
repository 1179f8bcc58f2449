package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/wolfeidau/photoshare/internal/models"
)

type LoginCmd struct {
	LoginName string `arg:"" help:"Login name"`
	Password  string `help:"Password" env:"PHOTOSHARE_PASSWORD"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := newRuntime(globals)
	if err != nil {
		return err
	}

	user, err := rt.controller.Login(ctx, l.LoginName, l.Password)
	if err != nil {
		return err
	}

	fmt.Fprintf(globals.stdout(), "Logged in as %s (%s)\n", user.LoginName, user.FullName())
	return nil
}

type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := newRuntime(globals)
	if err != nil {
		return err
	}

	if err := rt.controller.Logout(ctx); err != nil {
		return err
	}

	fmt.Fprintln(globals.stdout(), "Logged out")
	return nil
}

type WhoamiCmd struct{}

type whoami struct {
	Status  string       `json:"status" yaml:"status"`
	Partial bool         `json:"partial,omitempty" yaml:"partial,omitempty"`
	User    *models.User `json:"user,omitempty" yaml:"user,omitempty"`
}

func (w *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := newRuntime(globals)
	if err != nil {
		return err
	}

	s, err := rt.controller.Bootstrap(ctx)
	if err != nil {
		return err
	}
	if !s.IsAuthenticated() {
		return ErrNotLoggedIn
	}

	out := whoami{Status: s.Status.String(), Partial: s.Partial, User: s.User}
	return render(globals.stdout(), globals.Output, out, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "ID:\t%s\n", s.User.ID)
		fmt.Fprintf(tw, "Login:\t%s\n", s.User.LoginName)
		fmt.Fprintf(tw, "Name:\t%s\n", s.User.FullName())
		if s.Partial {
			fmt.Fprintf(tw, "Note:\t%s\n", "profile restored from token, server unreachable")
		}
	})
}
