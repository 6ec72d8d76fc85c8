package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/example/go-pico-tts/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	activeCfg config.Config
)

// NewRootCmd wires pico-tts's subcommands the way the teacher's
// cmd/pockettts/root.go wires cobra: a PersistentPreRunE loads config
// once (flags over file over defaults) and sets up the process-wide
// slog logger before any subcommand body runs.
func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "pico-tts",
		Short: "Embedded TTS engine command line",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(loaded.LogLevel)

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newSynthCmd())
	cmd.AddCommand(newVoiceCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

func setupLogger(levelStr string) {
	lvl := parseLogLevel(levelStr)
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func parseLogLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}

	return lvl
}

func requireConfig() (config.Config, error) {
	if activeCfg.Paths.VoiceDefsFile == "" {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}

	return activeCfg, nil
}
