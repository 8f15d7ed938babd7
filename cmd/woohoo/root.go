package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/woohoo/internal/config"
)

const defaultConfigPath = "woohoo.yaml"

// globals holds the persistent flags and the state they produce.
type globals struct {
	configPath string
	logLevel   string

	level *slog.LevelVar
	cfg   *config.Config
}

func newRootCmd() *cobra.Command {
	g := &globals{level: new(slog.LevelVar)}

	root := &cobra.Command{
		Use:   "woohoo",
		Short: "Scream as loud as you can for ten seconds and win a pass",
		Long: `woohoo measures how loud you can scream over a ten second window and
maps the peak to a reward tier:

  1 Day Pass  >= 350
  3 Day Pass  >= 600
  5 Day Pass  >= 850
  7 Day Pass  >= 1200

Run "woohoo record" to try it on this machine, or "woohoo serve" to host
the browser edition.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.init(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", defaultConfigPath, "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log_level (debug, info, warn, error)")

	root.AddCommand(
		newRecordCmd(g),
		newServeCmd(g),
		newTierCmd(),
		newDevicesCmd(),
		newVersionCmd(),
	)
	return root
}

// init loads the configuration and installs the default logger.
func (g *globals) init(cmd *cobra.Command) error {
	cfg, err := loadConfig(g.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if g.logLevel != "" {
		lvl := config.LogLevel(strings.ToLower(g.logLevel))
		if !lvl.IsValid() {
			return fmt.Errorf("--log-level %q is invalid; valid values: debug, info, warn, error", g.logLevel)
		}
		cfg.LogLevel = lvl
	}
	g.cfg = cfg

	g.level.Set(slogLevel(cfg.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: g.level})))
	return nil
}

// loadConfig reads path. A missing file at the default location yields the
// built-in defaults; an explicitly named file must exist.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		return config.LoadFromReader(strings.NewReader(""))
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %q not found", path)
	}
	return nil, err
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
