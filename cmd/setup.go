package main

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/toptracks/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the example configuration to the --config path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	return r.writePlain("✓ Wrote %s\n  Set SESSION_SECRET, SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET (or edit the file), then run: toptracks serve\n", configPath)
}

// ConfigShow prints the effective configuration as TOML with secrets masked.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	if err := toml.NewEncoder(r.output).Encode(r.config.Redacted()); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ConfigCheck validates the effective configuration.
func (r *Runner) ConfigCheck(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}
	return r.writePlain("✓ Configuration is complete\n")
}
