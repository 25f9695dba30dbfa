package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/pagelister/internal/app"
	"github.com/calvinalkan/pagelister/internal/config"
	"github.com/calvinalkan/pagelister/internal/filter"
	"github.com/calvinalkan/pagelister/internal/render"

	flag "github.com/spf13/pflag"
)

const browsePrompt = "dpl> "

var browseCommands = []string{"search", "by", "sort", "asc", "desc", "next", "prev", "page", "open", "reset", "help", "quit"}

const browseHelp = `Commands:
  search <text>        Search the current field (empty clears)
  by <field>           Choose the search field
  sort <field>         Sort by field
  asc | desc           Sort direction
  next | prev          Move one page
  page <n>             Jump to page n
  open <id>            Browse another container
  reset                Clear search, sort and page
  help                 Show this help
  quit                 Leave`

// BrowseCmd returns the browse command.
func BrowseCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("browse", flag.ContinueOnError),
		Usage: "browse <id>",
		Short: "Page through a container interactively",
		Long: "Open an interactive prompt over the overview of container <id>.\n" +
			"Each command changes the filter state and redraws the table.",
		Args: exactArgs(1),
		Exec: func(ctx context.Context, o *IO, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withApp(ctx, cfg, func(a *app.App) error {
				b := &browser{app: a, out: o, id: id, params: url.Values{}}

				return b.run(ctx, newPrompter(o.Stdin()))
			})
		},
	}
}

// prompter reads one command line. *liner.State implements it.
type prompter interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// newPrompter uses liner on the process's stdin and a plain line reader
// otherwise.
func newPrompter(in io.Reader) prompter {
	if f, ok := in.(*os.File); ok && f == os.Stdin {
		l := liner.NewLiner()
		l.SetCtrlCAborts(true)
		l.SetCompleter(func(line string) []string {
			var out []string

			for _, c := range browseCommands {
				if strings.HasPrefix(c, strings.ToLower(line)) {
					out = append(out, c)
				}
			}

			return out
		})

		return &linerPrompter{State: l}
	}

	return &linePrompter{scanner: bufio.NewScanner(in)}
}

type linerPrompter struct {
	*liner.State
}

func (p *linerPrompter) Prompt(prompt string) (string, error) {
	line, err := p.State.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}

	if err == nil && strings.TrimSpace(line) != "" {
		p.AppendHistory(line)
	}

	return line, err
}

type linePrompter struct {
	scanner *bufio.Scanner
}

func (p *linePrompter) Prompt(string) (string, error) {
	if !p.scanner.Scan() {
		err := p.scanner.Err()
		if err == nil {
			err = io.EOF
		}

		return "", err
	}

	return p.scanner.Text(), nil
}

func (p *linePrompter) Close() error {
	return nil
}

type browser struct {
	app    *app.App
	out    *IO
	id     int64
	params url.Values
	pages  int
}

var errQuit = errors.New("quit")

func (b *browser) run(ctx context.Context, p prompter) error {
	defer func() { _ = p.Close() }()

	err := b.draw(ctx)
	if err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := p.Prompt(browsePrompt)
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		err = b.exec(ctx, line)
		if errors.Is(err, errQuit) {
			return nil
		}

		if err != nil {
			b.out.Println("error:", err)
		}
	}
}

// exec applies one command line and redraws.
func (b *browser) exec(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		b.out.Println(browseHelp)

		return nil
	case "search", "s":
		b.set(filter.ParamSearch, arg)
		b.params.Del(filter.ParamPage)
	case "by":
		b.set(filter.ParamBy, arg)
		b.params.Del(filter.ParamPage)
	case "sort":
		b.set(filter.ParamSort, arg)
	case "asc":
		b.params.Del(filter.ParamDir)
	case "desc":
		b.params.Set(filter.ParamDir, filter.DirDesc)
	case "next", "n":
		if b.page() >= b.pages {
			return errors.New("already on the last page")
		}

		b.params.Set(filter.ParamPage, strconv.Itoa(b.page()+1))
	case "prev", "p":
		if b.page() <= 1 {
			return errors.New("already on the first page")
		}

		b.params.Set(filter.ParamPage, strconv.Itoa(b.page()-1))
	case "page", "pg":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid page: %q", arg)
		}

		b.params.Set(filter.ParamPage, strconv.Itoa(n))
	case "open":
		id, err := parseID(arg)
		if err != nil {
			return err
		}

		prev := b.id
		b.id, b.params = id, url.Values{}

		err = b.draw(ctx)
		if err != nil {
			b.id = prev
		}

		return err
	case "reset":
		b.params = url.Values{}
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}

	return b.draw(ctx)
}

func (b *browser) set(key, value string) {
	if value == "" {
		b.params.Del(key)

		return
	}

	b.params.Set(key, value)
}

func (b *browser) page() int {
	n, err := strconv.Atoi(b.params.Get(filter.ParamPage))
	if err != nil || n < 1 {
		return 1
	}

	return n
}

func (b *browser) draw(ctx context.Context) error {
	v, err := loadView(ctx, b.app, b.id, b.params)
	if err != nil {
		return err
	}

	b.pages = render.PageCount(v.Total, v.PageSize)

	b.out.Printf("%s", render.Terminal(v))

	return nil
}
