// Command scopebind binds JSON or YAML data to an HTML template. It renders
// the result once or serves it live to browsers.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/scopebind/internal/config"
	"github.com/vango-dev/scopebind/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

// globals holds the persistent flags shared by every command.
type globals struct {
	configPath string
	logLevel   string
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "scopebind",
		Short: "Bind data to HTML templates",
		Long: `scopebind connects plain data records to an HTML document.

Elements declare what they show with data-bind attributes and what they do
with data-action attributes:

  <h1 data-bind="text:title"></h1>
  <ul data-bind="list:items"><li data-bind="text:name"></li></ul>
  <button data-action="inc('count')">+</button>

Render the bound document once, or serve it with live updates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Configuration file (default: scopebind.json or scopebind.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		renderCmd(g),
		serveCmd(g),
		versionCmd(),
	)
	return rootCmd
}

// load reads the configuration and applies the global flag overrides.
func (g *globals) load() (*config.Config, *slog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFile(g.configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	return cfg, cfg.Logger(g.stderr), nil
}
