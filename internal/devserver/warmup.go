package devserver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/almostnode/core/internal/router"
)

// Warmup pre-transforms the entry pages (root page + layout chain) so
// the first real request doesn't pay the esbuild cold-start cost,
// running each independent transform concurrently (spec.md §5 "esbuild
// initialization deduplicates concurrent init attempts").
func (s *Server) Warmup(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)

	candidates := s.warmupCandidates()
	for _, path := range candidates {
		path := path
		g.Go(func() error {
			_, err := s.transformer.Transform(path)
			return err
		})
	}

	return g.Wait()
}

func (s *Server) warmupCandidates() []string {
	var paths []string

	if s.usesAppRouter() {
		if route := router.ResolveAppRoute(s.vfs, s.opts.AppDir, "/"); route != nil {
			if route.Page != "" {
				paths = append(paths, route.Page)
			}
			paths = append(paths, route.Layouts...)
		}
	} else if match := router.ResolvePageFile(s.vfs, s.opts.PagesDir, "/"); match != nil {
		paths = append(paths, match.File)
	}

	return paths
}
