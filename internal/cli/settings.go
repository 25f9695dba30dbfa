package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/pagelister/internal/app"
	"github.com/calvinalkan/pagelister/internal/config"
	"github.com/calvinalkan/pagelister/internal/settings"

	flag "github.com/spf13/pflag"
)

const settingsUsage = "settings [show|set|container|export|import] [args] [flags]"

var (
	errUnknownSubcommand = errors.New("unknown settings subcommand")
	errInvalidPair       = errors.New("expected key=value")
	errNoSuchContainer   = errors.New("no container configured for template")
)

// SettingsCmd returns the settings command.
func SettingsCmd(cfg *config.Config) *Command {
	fs := flag.NewFlagSet("settings", flag.ContinueOnError)
	fs.String("mode", "", "container: selection mode (auto|manual)")
	fs.Int("num-fields", 0, "container: number of columns in auto mode")
	fs.String("strategy", "", "container: auto strategy (firstN|common)")
	fs.String("fields", "", "container: comma-separated columns for manual mode")
	fs.Bool("remove", false, "container: remove the container instead")
	fs.StringP("output", "o", "", "export: write to `file` instead of stdout")

	return &Command{
		Flags: fs,
		Usage: settingsUsage,
		Short: "Show or change the lister settings",
		Long: `Show or change the lister settings stored in the database.

  settings [show]                    Print the effective settings as key=value
  settings set <key=value>...        Store raw settings keys
  settings container <template>      Add, change or (--remove) a container
  settings export [-o file]          Print the stored settings as JSON
  settings import <file>             Replace the stored settings from JSON(C)

Malformed stored values are reported as warnings and fall back to defaults.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			sub := "show"
			if len(args) > 0 {
				sub, args = args[0], args[1:]
			}

			return withApp(ctx, cfg, func(a *app.App) error {
				switch sub {
				case "show":
					return execSettingsShow(ctx, io, a)
				case "set":
					return execSettingsSet(ctx, io, a, args)
				case "container":
					return execSettingsContainer(ctx, io, a, fs, args)
				case "export":
					output, _ := fs.GetString("output")

					return execSettingsExport(ctx, io, a, resolvePath(cfg, output))
				case "import":
					if len(args) != 1 {
						return usageError("settings import <file>")
					}

					return execSettingsImport(ctx, io, a, resolvePath(cfg, args[0]))
				default:
					return fmt.Errorf("%w: %s", errUnknownSubcommand, sub)
				}
			})
		},
	}
}

func execSettingsShow(ctx context.Context, io *IO, a *app.App) error {
	s, warnings, err := a.Store.Settings(ctx)
	if err != nil {
		return err
	}

	warn(io, warnings)

	flat := s.Encode()

	for _, key := range sortedKeys(flat) {
		io.Println(key + "=" + flat[key])
	}

	return nil
}

func execSettingsSet(ctx context.Context, io *IO, a *app.App, args []string) error {
	if len(args) == 0 {
		return usageError("settings set <key=value>...")
	}

	values := make(map[string]string, len(args))

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("%w: %s", errInvalidPair, arg)
		}

		err := settings.ValidateKey(key)
		if err != nil {
			return err
		}

		values[key] = value
	}

	err := a.Store.SaveSettings(ctx, values)
	if err != nil {
		return err
	}

	_, warnings, err := a.Store.Settings(ctx)
	if err != nil {
		return err
	}

	warn(io, warnings)

	for _, key := range sortedKeys(values) {
		io.Println("set " + key + "=" + values[key])
	}

	return nil
}

func execSettingsContainer(ctx context.Context, io *IO, a *app.App, fs *flag.FlagSet, args []string) error {
	if len(args) != 1 {
		return usageError("settings container <template> [flags]")
	}

	template := args[0]

	s, _, err := a.Store.Settings(ctx)
	if err != nil {
		return err
	}

	if remove, _ := fs.GetBool("remove"); remove {
		if !s.Remove(template) {
			return fmt.Errorf("%w: %s", errNoSuchContainer, template)
		}

		err = a.Store.ReplaceSettings(ctx, s.Encode())
		if err != nil {
			return err
		}

		io.Println("removed container " + template)

		return nil
	}

	c, ok := s.Container(template)
	if !ok {
		c = settings.Container{
			Template:  template,
			Mode:      settings.ModeAuto,
			NumFields: settings.DefaultNumFields,
			Strategy:  settings.StrategyFirstN,
		}
	}

	if fs.Changed("mode") {
		c.Mode, _ = fs.GetString("mode")
	}

	if fs.Changed("num-fields") {
		c.NumFields, _ = fs.GetInt("num-fields")
	}

	if fs.Changed("strategy") {
		c.Strategy, _ = fs.GetString("strategy")
	}

	if fs.Changed("fields") {
		raw, _ := fs.GetString("fields")
		c.Fields = settings.SplitFields(raw)
	}

	_, err = a.Store.Template(ctx, template)
	if err != nil {
		io.Warn("template "+template+" does not exist", "the container applies once the template is created")
	}

	err = s.Upsert(c)
	if err != nil {
		return err
	}

	err = a.Store.ReplaceSettings(ctx, s.Encode())
	if err != nil {
		return err
	}

	io.Printf("container %s: mode=%s numFields=%d strategy=%s fields=%s\n",
		c.Template, c.Mode, c.NumFields, c.Strategy, strings.Join(c.Fields, ","))

	return nil
}

func execSettingsExport(ctx context.Context, io *IO, a *app.App, output string) error {
	raw, err := a.Store.LoadSettings(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	data = append(data, '\n')

	if output == "" {
		io.Printf("%s", data)

		return nil
	}

	err = writeFile(output, bytes.NewReader(data))
	if err != nil {
		return err
	}

	io.Println("wrote", output)

	return nil
}

func execSettingsImport(ctx context.Context, io *IO, a *app.App, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is the user's import argument
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("parse settings %s: %w", path, err)
	}

	var raw map[string]string

	err = json.Unmarshal(std, &raw)
	if err != nil {
		return fmt.Errorf("parse settings %s: %w", path, err)
	}

	for _, key := range sortedKeys(raw) {
		err = settings.ValidateKey(key)
		if err != nil {
			return err
		}
	}

	err = a.Store.ReplaceSettings(ctx, raw)
	if err != nil {
		return err
	}

	_, warnings, err := a.Store.Settings(ctx)
	if err != nil {
		return err
	}

	warn(io, warnings)
	io.Printf("imported %d settings\n", len(raw))

	return nil
}

func warn(io *IO, warnings []string) {
	for _, w := range warnings {
		io.Warn(w, "fix with dpl settings set")
	}
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
