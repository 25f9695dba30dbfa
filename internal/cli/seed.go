package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/calvinalkan/pagelister/internal/app"
	"github.com/calvinalkan/pagelister/internal/config"
	"github.com/calvinalkan/pagelister/internal/store"

	flag "github.com/spf13/pflag"
)

// SeedCmd returns the seed command.
func SeedCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("seed", flag.ContinueOnError),
		Usage: "seed <fixtures.yaml>",
		Short: "Load templates, pages and settings from YAML",
		Long: "Insert the templates, page tree and settings of a YAML fixture file\n" +
			"in one transaction. The database is created when missing.",
		Args: exactArgs(1),
		Exec: func(ctx context.Context, io *IO, args []string) error {
			path := resolvePath(cfg, args[0])

			data, err := os.ReadFile(path) //nolint:gosec // path is the user's fixture argument
			if err != nil {
				return fmt.Errorf("read fixtures: %w", err)
			}

			f, err := store.ParseFixture(data)
			if err != nil {
				return err
			}

			return withApp(ctx, cfg, func(a *app.App) error {
				res, err := a.Store.Seed(ctx, f)
				if err != nil {
					return err
				}

				io.Printf("seeded %d templates, %d pages, %d settings into %s\n",
					res.Templates, res.Pages, res.Settings, a.Store.Path())

				return nil
			})
		},
	}
}
