package cli

import (
	"context"
	"strings"

	"github.com/calvinalkan/pagelister/internal/app"
	"github.com/calvinalkan/pagelister/internal/config"
	"github.com/calvinalkan/pagelister/internal/render"

	flag "github.com/spf13/pflag"
)

// RenderCmd returns the render command.
func RenderCmd(cfg *config.Config) *Command {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	filterFlags(fs)
	fs.StringP("output", "o", "", "Write the markup to `file` instead of stdout")

	return &Command{
		Flags: fs,
		Usage: "render <id> [flags]",
		Short: "Print a container's overview markup",
		Long: "Render the HTML overview that replaces the edit form of container <id>.\n" +
			"The filter flags stand in for the q, by, sort, dir and pg request parameters.",
		Args: exactArgs(1),
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execRender(ctx, io, cfg, fs, args)
		},
	}
}

func execRender(ctx context.Context, io *IO, cfg *config.Config, fs *flag.FlagSet, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	output, _ := fs.GetString("output")
	output = resolvePath(cfg, output)

	return withApp(ctx, cfg, func(a *app.App) error {
		v, err := loadView(ctx, a, id, filterParams(fs))
		if err != nil {
			return err
		}

		markup, err := render.Overview(v)
		if err != nil {
			return err
		}

		if output == "" {
			io.Println(markup)

			return nil
		}

		err = writeFile(output, strings.NewReader(markup))
		if err != nil {
			return err
		}

		io.Println("wrote", output)

		return nil
	})
}

// LsCmd returns the ls command.
func LsCmd(cfg *config.Config) *Command {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	filterFlags(fs)

	return &Command{
		Flags: fs,
		Usage: "ls <id> [flags]",
		Short: "List a container's children as a table",
		Long:  "Show the overview of container <id> as a terminal table.",
		Args:  exactArgs(1),
		Exec: func(ctx context.Context, io *IO, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withApp(ctx, cfg, func(a *app.App) error {
				v, err := loadView(ctx, a, id, filterParams(fs))
				if err != nil {
					return err
				}

				io.Printf("%s", render.Terminal(v))

				return nil
			})
		},
	}
}
