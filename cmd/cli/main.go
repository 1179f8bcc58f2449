package main

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/photoshare/cmd/cli/internal/commands"
	"github.com/wolfeidau/photoshare/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Login    commands.LoginCmd    `cmd:"" help:"Log in and store the session token"`
		Logout   commands.LogoutCmd   `cmd:"" help:"Log out and forget the session token"`
		Whoami   commands.WhoamiCmd   `cmd:"" help:"Show the logged in user"`
		Register commands.RegisterCmd `cmd:"" help:"Create an account"`
		Users    commands.UsersCmd    `cmd:"" help:"Browse users"`
		Photos   commands.PhotosCmd   `cmd:"" help:"List a user's photos and comments"`
		Comment  commands.CommentCmd  `cmd:"" help:"Comment on a photo"`
		Upload   commands.UploadCmd   `cmd:"" help:"Upload a photo"`
		Image    commands.ImageCmd    `cmd:"" help:"Download a photo file"`
		Open     commands.OpenCmd     `cmd:"" help:"Show which view a location resolves to"`

		Server         string        `help:"Photo sharing server URL." default:"http://localhost:8081" env:"PHOTOSHARE_SERVER"`
		CredentialsDir string        `help:"Directory holding the session token (default: ~/.photoshare/credentials)." env:"PHOTOSHARE_CREDENTIALS_DIR"`
		CacheDir       string        `help:"Directory for cached images; in-memory when empty." env:"PHOTOSHARE_CACHE_DIR"`
		Timeout        time.Duration `help:"Request timeout." default:"30s" env:"PHOTOSHARE_TIMEOUT"`
		Output         string        `short:"O" help:"Output format." enum:"table,json,yaml" default:"table"`
		Debug          bool          `help:"Enable debug mode."`
		Version        kong.VersionFlag
	}
)

func main() {
	// A missing .env is fine; values may come from the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("photoshare"),
		kong.Description("Photo sharing command line client."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	err := cmd.Run(&commands.Globals{
		Debug:          cli.Debug,
		Version:        version,
		Server:         cli.Server,
		CredentialsDir: cli.CredentialsDir,
		CacheDir:       cli.CacheDir,
		Timeout:        cli.Timeout,
		Output:         cli.Output,
	})
	cmd.FatalIfErrorf(err)
}
