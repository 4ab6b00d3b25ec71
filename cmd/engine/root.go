package main

import (
	"fmt"
	"strings"

	"github.com/jzelinskie/cobrautil/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kubev2v/engine-scheduler/internal/config"
)

const envPrefix = "ENGINE"

func newRootCmd() *cobra.Command {
	cfg, err := config.NewConfigurationWithDefaults()
	if err != nil {
		// defaults come from struct tags; failing here is a programming error
		panic(err)
	}

	var configFile string

	root := &cobra.Command{
		Use:           "engine",
		Short:         "Task scheduling engine",
		Long:          "engine runs a fixed pool of workers draining one FIFO task queue and exposes it over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: cobrautil.CommandStack(
			cobrautil.SyncViperPreRunE(envPrefix),
			func(cmd *cobra.Command, _ []string) error {
				return loadConfigFile(cmd.Flags(), configFile)
			},
			func(_ *cobra.Command, _ []string) error {
				return setupLogger(cfg.LogFormat, cfg.LogLevel)
			},
		),
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML, JSON or TOML file with flag values")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (console, json)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(cfg),
		newVersionCmd(),
	)

	return root
}

// loadConfigFile applies values from the config file to every flag that was
// set neither on the command line nor through the environment.
func loadConfigFile(flags *pflag.FlagSet, path string) error {
	if path == "" {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var setErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if setErr != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := flags.Set(f.Name, v.GetString(f.Name)); err != nil {
			setErr = fmt.Errorf("invalid value for %q in config file: %w", f.Name, err)
		}
	})
	return setErr
}

func setupLogger(format, level string) error {
	var zc zap.Config
	switch strings.ToLower(format) {
	case config.LogFormatJSON:
		zc = zap.NewProductionConfig()
	default:
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return nil
}
