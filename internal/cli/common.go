package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/natefinch/atomic"

	"github.com/calvinalkan/pagelister/internal/app"
	"github.com/calvinalkan/pagelister/internal/config"
	"github.com/calvinalkan/pagelister/internal/filter"
	"github.com/calvinalkan/pagelister/internal/lister"
	"github.com/calvinalkan/pagelister/internal/render"

	flag "github.com/spf13/pflag"
)

var (
	errInvalidID    = errors.New("invalid page id")
	errNotContainer = errors.New("page is not a configured container")
)

// withApp opens the configured database, runs fn and closes it again.
func withApp(ctx context.Context, cfg *config.Config, fn func(a *app.App) error) error {
	a, err := app.Open(ctx, *cfg)
	if err != nil {
		return err
	}

	defer func() { _ = a.Close() }()

	return fn(a)
}

// resolvePath resolves a relative path against the effective working directory.
func resolvePath(cfg *config.Config, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(cfg.EffectiveCwd, path)
}

// writeFile atomically replaces path with r, creating parent directories.
func writeFile(path string, r io.Reader) error {
	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	err = atomic.WriteFile(path, r)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, raw)
	}

	return id, nil
}

// filterFlags adds the overview filter flags to fs.
func filterFlags(fs *flag.FlagSet) {
	fs.StringP("search", "q", "", "Search `text`")
	fs.String("by", "", "Field to search in (default title)")
	fs.String("sort", "", "Field to sort by (default title)")
	fs.Bool("desc", false, "Sort descending")
	fs.Int("page", 1, "Page `number`")
}

// filterParams encodes the filter flags as the request parameters the
// overview reads.
func filterParams(fs *flag.FlagSet) url.Values {
	v := url.Values{}

	search, _ := fs.GetString("search")
	if search != "" {
		v.Set(filter.ParamSearch, search)
	}

	by, _ := fs.GetString("by")
	if by != "" {
		v.Set(filter.ParamBy, by)
	}

	sort, _ := fs.GetString("sort")
	if sort != "" {
		v.Set(filter.ParamSort, sort)
	}

	if desc, _ := fs.GetBool("desc"); desc {
		v.Set(filter.ParamDir, filter.DirDesc)
	}

	if page, _ := fs.GetInt("page"); page > 1 {
		v.Set(filter.ParamPage, strconv.Itoa(page))
	}

	return v
}

// loadView builds the overview of the container with the given id.
func loadView(ctx context.Context, a *app.App, id int64, params url.Values) (render.View, error) {
	rec, err := a.Store.Record(ctx, id)
	if err != nil {
		return render.View{}, fmt.Errorf("page %d: %w", id, err)
	}

	v, err := a.Lister.View(ctx, rec, params)
	if errors.Is(err, lister.ErrNoOverview) {
		return render.View{}, fmt.Errorf("%w: %d (%s)", errNotContainer, id, rec.Template)
	}

	if err != nil {
		return render.View{}, err
	}

	return v, nil
}
