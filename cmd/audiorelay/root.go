package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skypro1111/audio-relay/internal/config"
)

const (
	defaultConfigPath = "config.yaml"
	defaultEnvFile    = ".env"
)

// rootOptions holds flags shared by every subcommand
type rootOptions struct {
	configPath string
	envFile    string
	watch      bool
}

// newRootCommand creates the root cobra command
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "audiorelay",
		Short: "Encrypted point-to-point UDP audio relay",
		Long: `audiorelay streams live audio from a capture device on one host to a
playback device on another over UDP. Frames below a volume threshold are not
sent, multichannel input is downmixed to mono, every datagram is encrypted
with a shared 256-bit key and the receiver smooths arrival jitter with a
bounded buffer.`,
		Example: `  # List the available devices
  audiorelay devices

  # Play whatever arrives on 0.0.0.0:9000
  audiorelay server --config config.yaml

  # Send a test tone to the server
  AUDIORELAY_INPUT_DEVICE=tone:440 audiorelay client`,
		Version:       serviceVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath,
		"path to the YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", defaultEnvFile,
		"optional .env file with AUDIORELAY_* overrides")
	cmd.PersistentFlags().BoolVar(&opts.watch, "watch", true,
		"reload db_threshold and logging.level when the configuration file changes")

	cmd.AddCommand(
		newServerCommand(opts),
		newClientCommand(opts),
		newDevicesCommand(),
	)

	return cmd
}

// loadConfig seeds the environment from the .env file and loads the configuration.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	// An explicitly passed --env-file must exist.
	if err := config.LoadEnvFile(o.envFile, cmd.Flags().Changed("env-file")); err != nil {
		return nil, err
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
