package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/wolfeidau/photoshare/internal/routes"
	"github.com/wolfeidau/photoshare/internal/upload"
)

type UploadCmd struct {
	Path string `arg:"" help:"Photo to upload" type:"existingfile"`
}

func (u *UploadCmd) Run(ctx context.Context, globals *Globals) error {
	file, closer, err := upload.FileFromPath(u.Path)
	if err != nil {
		return err
	}
	defer closer.Close()

	rt, err := newRuntime(globals)
	if err != nil {
		return err
	}

	// Rejected files never touch the network, not even the session probe.
	if err := rt.uploads.Validate(file); err != nil {
		return err
	}

	s, _, err := rt.enter(ctx, routes.Upload())
	if err != nil {
		return err
	}

	done, err := rt.uploads.Upload(ctx, file, s.UserID())
	if err != nil {
		return sessionError(err)
	}

	return render(globals.stdout(), globals.Output, done.Photo, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "Uploaded %s\n", file.Name)
		fmt.Fprintf(tw, "ID:\t%s\n", done.Photo.ID)
		fmt.Fprintf(tw, "File:\t%s\n", done.Photo.FileName)
		fmt.Fprintf(tw, "View:\t%s\n", done.Next.Path())
	})
}
