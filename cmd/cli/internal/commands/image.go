package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

type ImageCmd struct {
	FileName string `arg:"" help:"Image file name, as listed by the photos command"`
	File     string `short:"o" help:"Write to this file instead of stdout"`
}

func (i *ImageCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := newRuntime(globals)
	if err != nil {
		return err
	}

	imgs, err := rt.images(globals.CacheDir)
	if err != nil {
		return err
	}

	fetch := func(w io.Writer) error {
		cached, err := imgs.Fetch(ctx, i.FileName, w)
		if err != nil {
			return err
		}
		log.Debug().Str("file", i.FileName).Bool("cached", cached).Msg("image written")
		return nil
	}

	if i.File == "" {
		return fetch(globals.stdout())
	}

	if err := writeFileAtomic(i.File, fetch); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Saved %s to %s\n", i.FileName, i.File)
	return nil
}

// writeFileAtomic streams into a temp file beside target and renames it into
// place only when write succeeds. target is untouched on failure.
func writeFileAtomic(target string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	tempPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set permissions on %s: %w", target, err)
	}

	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save %s: %w", target, err)
	}

	return nil
}
