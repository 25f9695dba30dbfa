package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/calvinalkan/pagelister/internal/admin"
	"github.com/calvinalkan/pagelister/internal/app"
	"github.com/calvinalkan/pagelister/internal/config"
	"github.com/calvinalkan/pagelister/internal/content"
	"github.com/calvinalkan/pagelister/internal/render"

	flag "github.com/spf13/pflag"
)

// TreeCmd returns the tree command.
func TreeCmd(cfg *config.Config) *Command {
	fs := flag.NewFlagSet("tree", flag.ContinueOnError)
	fs.StringP("search", "s", "", "List pages whose title contains `text` instead")

	return &Command{
		Flags: fs,
		Usage: "tree [<id>] [flags]",
		Short: "List a page's children as the navigation tree shows them",
		Long: "List the children of <id> (the roots when omitted) as the admin tree\n" +
			"shows them: container children hidden, container edit actions relabelled.\n" +
			"With --search, list matching pages as a search listing instead.",
		Args: maxArgs(1),
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execTree(ctx, io, cfg, fs, args)
		},
	}
}

func execTree(ctx context.Context, io *IO, cfg *config.Config, fs *flag.FlagSet, args []string) error {
	var id int64

	if len(args) == 1 {
		var err error

		id, err = parseID(args[0])
		if err != nil {
			return err
		}
	}

	search, _ := fs.GetString("search")

	return withApp(ctx, cfg, func(a *app.App) error {
		var (
			nodes []admin.Node
			err   error
		)

		if fs.Changed("search") {
			nodes, err = a.Host.Search(ctx, search)
		} else {
			nodes, err = a.Host.TreeChildren(ctx, id)
		}

		if err != nil {
			return err
		}

		if len(nodes) == 0 {
			io.Println("(no pages)")

			return nil
		}

		for _, n := range nodes {
			io.Println(formatNode(n))
		}

		return nil
	})
}

// formatNode prints one listing line: id, title, template, status and the
// action labels.
func formatNode(n admin.Node) string {
	labels := make([]string, 0, len(n.Actions))
	for _, act := range n.Actions {
		labels = append(labels, act.Label)
	}

	status := ""
	if n.Status != "" && n.Status != content.StatusPublished {
		status = " (" + n.Status + ")"
	}

	return runewidth.FillRight(strconv.FormatInt(n.ID, 10), 5) +
		runewidth.FillRight(render.CellWidth(n.Title, 28), 30) +
		runewidth.FillRight(n.Template, 16) +
		"[" + strings.Join(labels, " ") + "]" + status
}
