package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/wolfeidau/photoshare/internal/photos"
	"github.com/wolfeidau/photoshare/internal/routes"
)

type PhotosCmd struct {
	UserID string `arg:"" help:"User whose photos to show"`
}

func (p *PhotosCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := newRuntime(globals)
	if err != nil {
		return err
	}

	requested := routes.PhotosOf(p.UserID)
	if _, _, err := rt.enter(ctx, requested); err != nil {
		return err
	}

	collection, err := rt.photos.LoadFor(ctx, p.UserID)
	if err != nil {
		return sessionError(err)
	}

	return render(globals.stdout(), globals.Output, collection, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "%s\n\n", routes.Context(requested, collection.User))
		if len(collection.Photos) == 0 {
			fmt.Fprintln(tw, "No photos yet.")
			return
		}
		for _, photo := range collection.Photos {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", photo.ID, photo.FileName, photo.DateTime.Format(time.RFC822))
			for _, c := range photo.Comments {
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.User.FullName(), truncate(c.Comment, 60), c.DateTime.Format(time.RFC822))
			}
		}
	})
}

type CommentCmd struct {
	PhotoID string `arg:"" help:"Photo to comment on"`
	Text    string `arg:"" help:"Comment text"`
	Owner   string `required:"" help:"User ID of the photo's owner"`
}

func (c *CommentCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := newRuntime(globals)
	if err != nil {
		return err
	}

	if _, _, err := rt.enter(ctx, routes.PhotosOf(c.Owner)); err != nil {
		return err
	}

	if _, err := rt.photos.LoadFor(ctx, c.Owner); err != nil {
		return sessionError(err)
	}

	comment, err := rt.photos.SubmitComment(ctx, c.PhotoID, c.Text)
	if err != nil {
		if errors.Is(err, photos.ErrPhotoNotFound) {
			return fmt.Errorf("photo %s does not belong to user %s: %w", c.PhotoID, c.Owner, err)
		}
		return sessionError(err)
	}

	return render(globals.stdout(), globals.Output, comment, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "Comment added to %s\n", c.PhotoID)
		fmt.Fprintf(tw, "ID:\t%s\n", comment.ID)
		fmt.Fprintf(tw, "Posted:\t%s\n", comment.DateTime.Format(time.RFC822))
	})
}
