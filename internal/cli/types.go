package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/beentity/internal/entities"
	"github.com/roach88/beentity/internal/fixture"
	"github.com/roach88/beentity/internal/schema"
)

// TypesOptions holds flags for the types command.
type TypesOptions struct {
	*RootOptions
	SchemaDir string
}

// TypeInfo describes one registered entity type.
type TypeInfo struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Fields []string `json:"fields"`
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TypesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List entity types available to scenarios",
		Long: `List the built-in entity types and any declared in a schema directory,
with their stored kind and settable fields.

Examples:
  beentity types
  beentity types --schema ./schema --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTypes(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SchemaDir, "schema", "", "directory of CUE entity declarations (default from config)")

	return cmd
}

func listTypes(opts *TypesOptions, cmd *cobra.Command) error {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("schema") {
		cfg.SchemaDir = opts.SchemaDir
	}

	var defs []schema.EntityDef
	if cfg.SchemaDir != "" {
		loaded, errs := schema.Load(cfg.SchemaDir, schema.LoadModeFailFast)
		if len(errs) > 0 {
			return WrapExitError(ExitCommandError, "failed to load schema", errs[0])
		}
		defs = loaded.Entities
	}

	m := fixture.NewManager(nil, fixture.WithManagerLogger(opts.Logger(cmd.ErrOrStderr(), cfg)))
	if err := entities.Register(m, defs...); err != nil {
		return WrapExitError(ExitCommandError, "failed to register types", err)
	}

	infos, err := describeTypes(cmd.Context(), m)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to describe types", err)
	}

	if opts.Format == "json" {
		return opts.Formatter(cmd).Success(infos)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tKIND\tFIELDS")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Name, info.Kind, strings.Join(info.Fields, ", "))
	}
	return tw.Flush()
}

// describeTypes builds one unsaved entity per type to read its kind.
func describeTypes(ctx context.Context, m *fixture.Manager) ([]TypeInfo, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	names := m.Types()
	infos := make([]TypeInfo, 0, len(names))
	for _, name := range names {
		f, err := m.CreateFactory(name)
		if err != nil {
			return nil, err
		}
		e, err := f.New(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		infos = append(infos, TypeInfo{
			Name:   name,
			Kind:   e.Kind(),
			Fields: f.Fields().Names(),
		})
	}
	return infos, nil
}
