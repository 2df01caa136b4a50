// Package cli implements the formlayout commands.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formlayout/internal/prompt"
	"github.com/goliatone/go-formlayout/pkg/engine"
)

type globalFlags struct {
	config    string
	layouts   string
	data      string
	texts     string
	language  string
	schema    string
	component string
	logLevel  string
	logFormat string
}

// NewRootCmd creates the root formlayout command with all subcommands
// registered. driver backs the interactive inspect command.
func NewRootCmd(driver prompt.Driver) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "formlayout",
		Short:         "formlayout - resolve, inspect and validate dynamic form layouts",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&g.config, "config", "c", "", "config file (YAML or JSON)")
	flags.StringVar(&g.layouts, "layouts", "", "directory of layout pages")
	flags.StringVar(&g.data, "data", "", "JSON form data")
	flags.StringVar(&g.texts, "texts", "", "directory of text resources")
	flags.StringVar(&g.language, "language", "", "text resource language")
	flags.StringVar(&g.schema, "schema", "", "JSON Schema or OpenAPI document for the data model")
	flags.StringVar(&g.component, "schema-component", "", "schema component to validate against")
	flags.StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.StringVar(&g.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(newTreeCmd(g))
	root.AddCommand(newRowsCmd(g))
	root.AddCommand(newValidateCmd(g))
	root.AddCommand(newInspectCmd(g, driver))
	return root
}

// open builds an engine from the config file, with flags taking precedence.
func (g *globalFlags) open(cmd *cobra.Command) (*engine.Engine, error) {
	var cfg engine.Config
	if g.config != "" {
		loaded, err := engine.LoadConfigFile(g.config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	override := func(name string, target *string, value string, isPath bool) error {
		if !flags.Changed(name) {
			return nil
		}
		if isPath {
			abs, err := filepath.Abs(value)
			if err != nil {
				return fmt.Errorf("resolving --%s: %w", name, err)
			}
			value = abs
		}
		*target = value
		return nil
	}
	for _, o := range []struct {
		name   string
		target *string
		value  string
		isPath bool
	}{
		{"layouts", &cfg.Layouts, g.layouts, true},
		{"data", &cfg.Data, g.data, true},
		{"texts", &cfg.TextResources, g.texts, true},
		{"schema", &cfg.Schema, g.schema, true},
		{"language", &cfg.Language, g.language, false},
		{"schema-component", &cfg.SchemaComponent, g.component, false},
	} {
		if err := override(o.name, o.target, o.value, o.isPath); err != nil {
			return nil, err
		}
	}
	if flags.Changed("log-level") || cfg.Log.Level == "" {
		cfg.Log.Level = g.logLevel
	}
	if flags.Changed("log-format") || cfg.Log.Format == "" {
		cfg.Log.Format = g.logFormat
	}

	logger := engine.NewLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	e, err := engine.Open(cmd.Context(), cfg, engine.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("opening form: %w", err)
	}
	return e, nil
}
