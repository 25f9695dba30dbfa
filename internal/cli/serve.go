package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/calvinalkan/pagelister/internal/app"
	"github.com/calvinalkan/pagelister/internal/config"
	"github.com/calvinalkan/pagelister/internal/server"

	flag "github.com/spf13/pflag"
)

// Log formats.
const (
	logConsole = "console"
	logJSON    = "json"
)

// ServeCmd returns the serve command.
func ServeCmd(cfg *config.Config) *Command {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.String("listen", "", "Listen `address` (default from config)")
	fs.String("log-format", logConsole, "Log format (console|json)")
	fs.Bool("debug", false, "Log at debug level")

	return &Command{
		Flags: fs,
		Usage: "serve [flags]",
		Short: "Serve the admin over HTTP",
		Long: "Serve the edit form, tree listing and search listing of the admin\n" +
			"with the lister installed. Stops on interrupt.",
		Args: exactArgs(0),
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			return execServe(ctx, io, cfg, fs)
		},
	}
}

func execServe(ctx context.Context, io *IO, cfg *config.Config, fs *flag.FlagSet) error {
	listen, _ := fs.GetString("listen")
	if listen == "" {
		listen = cfg.Listen
	}

	format, _ := fs.GetString("log-format")
	debug, _ := fs.GetBool("debug")

	log, err := newLogger(io, format, debug)
	if err != nil {
		return err
	}

	return withApp(ctx, cfg, func(a *app.App) error {
		srv := server.New(a.Host, log, cfg.AdminURL)

		return srv.ListenAndServe(ctx, listen, func(addr string) {
			io.Println("listening on http://" + addr)
		})
	})
}

func newLogger(io *IO, format string, debug bool) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	switch format {
	case logConsole:
		w := zerolog.ConsoleWriter{Out: io.Stderr(), NoColor: true, TimeFormat: time.RFC3339}

		return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
	case logJSON:
		return zerolog.New(io.Stderr()).Level(level).With().Timestamp().Logger(), nil
	default:
		return zerolog.Nop(), fmt.Errorf("invalid --log-format: %s", format)
	}
}
