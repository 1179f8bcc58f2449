package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/wolfeidau/photoshare/internal/routes"
)

// OpenCmd shows which view a location resolves to for the current session.
type OpenCmd struct {
	Path string `arg:"" default:"/" help:"Location, such as /photos/<user-id>"`
}

type openResult struct {
	Requested   string `json:"requested" yaml:"requested"`
	View        string `json:"view" yaml:"view"`
	Location    string `json:"location" yaml:"location"`
	Redirected  bool   `json:"redirected" yaml:"redirected"`
	Substituted bool   `json:"substituted" yaml:"substituted"`
	Session     string `json:"session" yaml:"session"`
}

func (o *OpenCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := newRuntime(globals)
	if err != nil {
		return err
	}

	s, err := rt.controller.Bootstrap(ctx)
	if err != nil {
		return err
	}

	requested := routes.Parse(o.Path)
	decision := routes.Resolve(requested, s)

	location := requested.Path()
	if decision.Redirected {
		location = decision.Route.Path()
	}

	out := openResult{
		Requested:   o.Path,
		View:        decision.Route.Kind.String(),
		Location:    location,
		Redirected:  decision.Redirected,
		Substituted: decision.Substituted,
		Session:     s.Status.String(),
	}

	return render(globals.stdout(), globals.Output, out, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "Session:\t%s\n", out.Session)
		fmt.Fprintf(tw, "View:\t%s\n", out.View)
		fmt.Fprintf(tw, "Location:\t%s\n", out.Location)
		switch {
		case decision.Redirected:
			fmt.Fprintf(tw, "Note:\tredirected from %s\n", o.Path)
		case decision.Substituted:
			fmt.Fprintf(tw, "Note:\tlogin required for %s\n", o.Path)
		}
	})
}
