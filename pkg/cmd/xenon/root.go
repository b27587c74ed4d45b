// Package xenon is the command line interface of the Xenon proxy.
package xenon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/proxy"
	"github.com/xenoncommunity/xenon/pkg/version"
	"github.com/xenoncommunity/xenon/pkg/xenon"
)

// Execute runs App with plugins and exits the program on error.
func Execute(plugins ...proxy.Plugin) {
	if err := App(plugins...).Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// App returns a new cli.App for the xenon command.
// The plugins are initialized when the proxy starts.
func App(plugins ...proxy.Plugin) *cli.App {
	app := cli.NewApp()
	app.Name = "xenon"
	app.Usage = "Xenon is a BungeeCord compatible Minecraft proxy."
	app.Description = `A Minecraft proxy connecting players of 1.8 to 1.21 to a network of
backend servers with fallback, reconnect and a bundled set of modules.

Visit the website https://github.com/xenoncommunity/xenon for more information.`
	app.Version = version.String()
	app.HideHelpCommand = true

	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}

	var (
		debug      bool
		configFile string
		verbosity  int
	)
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       `config file (default: ./config.yml)`,
			EnvVars:     []string{"XENON_CONFIG"},
			Destination: &configFile,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Aliases:     []string{"d"},
			Usage:       "Enable debug mode and highest log verbosity",
			Destination: &debug,
			EnvVars:     []string{"XENON_DEBUG"},
		},
		&cli.IntFlag{
			Name:        "verbosity",
			Aliases:     []string{"v"},
			Usage:       "The higher the verbosity the more logs are shown",
			EnvVars:     []string{"XENON_VERBOSITY"},
			Destination: &verbosity,
		},
	}
	app.Commands = []*cli.Command{
		configCommand(),
		checkCommand(),
	}
	app.Action = func(c *cli.Context) error {
		v, err := newViper(configFile)
		if err != nil {
			return err
		}
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		if debug {
			cfg.Debug = true
		}

		log, err := newLogger(cfg.Debug, verbosity)
		if err != nil {
			return fmt.Errorf("error creating zap logger: %w", err)
		}
		ctx := logr.NewContext(c.Context, log)

		if file := v.ConfigFileUsed(); fileExists(file) {
			log.Info("using config file", "config", file)
		} else {
			log.Info("config file not found, using defaults")
		}

		err = xenon.Start(ctx, xenon.Options{
			Config:     cfg,
			ConfigFile: existingFile(v.ConfigFileUsed()),
			Reload:     reloader(v),
			Plugins:    plugins,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("error running Xenon: %w", err)
		}
		return nil
	}
	return app
}

// newViper returns a viper instance reading file and XENON_ environment
// variables. A missing file is only an error if it was set explicitly.
func newViper(file string) (*viper.Viper, error) {
	v := config.NewViper()
	explicit := file != ""
	if !explicit {
		file = "config.yml"
	}
	v.SetConfigFile(file)
	v.SetEnvPrefix("XENON")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file %q: %w", file, err)
		}
	}
	return v, nil
}

// reloader reads the config file of v again.
func reloader(v *viper.Viper) func() (*config.Config, error) {
	var mu sync.Mutex
	return func() (*config.Config, error) {
		mu.Lock()
		defer mu.Unlock()
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		return config.Load(v)
	}
}

func fileExists(name string) bool {
	if name == "" {
		return false
	}
	_, err := os.Stat(name)
	return err == nil
}

func existingFile(name string) string {
	if fileExists(name) {
		return name
	}
	return ""
}

func newLogger(debug bool, verbosity int) (logr.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = !debug

	if debug {
		verbosity = max(verbosity, 2)
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}
