package runlog

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/simreview/sim-review/internal/pkg/errors"
	"github.com/simreview/sim-review/internal/pkg/logger"
)

// LoaderOptions configures directory loading.
type LoaderOptions struct {
	// Pattern is the glob matched against file names (default "*.json").
	Pattern string

	// Workers bounds concurrent file parsing (default 4).
	Workers int

	// Logger receives per-run load events. Nil disables logging.
	Logger *logger.Logger
}

// LoadDir parses every run log in dir into a Collection keyed by file
// stem. Files are parsed concurrently; the first failure aborts the
// load and closes any runs already parsed.
func LoadDir(ctx context.Context, dir string, opts LoaderOptions) (*Collection, error) {
	if opts.Pattern == "" {
		opts.Pattern = "*.json"
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.CodeParse, "reading log directory", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := filepath.Match(opts.Pattern, e.Name())
		if err != nil {
			return nil, errors.ValidationError("bad file pattern " + opts.Pattern)
		}
		if ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}

	coll := NewCollection()
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			l, err := Open(path)
			if err != nil {
				return err
			}
			if opts.Logger != nil {
				opts.Logger.WithRun(l.Key()).Debug("run log loaded",
					"queries", l.NQueries())
			}
			mu.Lock()
			defer mu.Unlock()
			return coll.Add(l)
		})
	}

	if err := g.Wait(); err != nil {
		_ = coll.Close()
		return nil, err
	}
	return coll, nil
}
