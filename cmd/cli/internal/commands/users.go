package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/wolfeidau/photoshare/internal/routes"
)

type UsersCmd struct {
	List UsersListCmd `cmd:"" default:"1" help:"List all users"`
	Show UsersShowCmd `cmd:"" help:"Show a user's profile"`
}

type UsersListCmd struct{}

func (u *UsersListCmd) Run(ctx context.Context, globals *Globals) error {
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

	list, err := rt.users.List(ctx)
	if err != nil {
		return sessionError(err)
	}

	return render(globals.stdout(), globals.Output, list, func(tw *tabwriter.Writer) {
		if len(list) == 0 {
			fmt.Fprintln(tw, "No users found.")
			return
		}
		fmt.Fprintln(tw, "ID\tNAME\tLOGIN")
		for _, user := range list {
			marker := ""
			if user.ID == s.UserID() {
				marker = " *"
			}
			fmt.Fprintf(tw, "%s\t%s%s\t%s\n", user.ID, user.FullName(), marker, user.LoginName)
		}
	})
}

type UsersShowCmd struct {
	UserID string `arg:"" help:"User ID"`
}

func (u *UsersShowCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := newRuntime(globals)
	if err != nil {
		return err
	}

	requested := routes.UserDetail(u.UserID)
	if _, _, err := rt.enter(ctx, requested); err != nil {
		return err
	}

	user, err := rt.users.Get(ctx, u.UserID)
	if err != nil {
		return sessionError(err)
	}

	return render(globals.stdout(), globals.Output, user, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "%s\n\n", routes.Context(requested, user))
		fmt.Fprintf(tw, "ID:\t%s\n", user.ID)
		fmt.Fprintf(tw, "Location:\t%s\n", user.Location)
		fmt.Fprintf(tw, "Occupation:\t%s\n", user.Occupation)
		fmt.Fprintf(tw, "Description:\t%s\n", user.Description)
		fmt.Fprintf(tw, "Photos:\t%s\n", routes.PhotosOf(user.ID).Path())
	})
}
