// Command droughtmap renders U.S. Drought Monitor maps.
//
// Usage:
//
//	droughtmap latest -o drought.png
//	droughtmap render --date 2014-06-24 -o drought.png
//	droughtmap serve --addr :8080
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/drought-map/internal/adapter/diskcache"
	"github.com/couchcryptid/drought-map/internal/adapter/geo"
	"github.com/couchcryptid/drought-map/internal/adapter/httpserver"
	"github.com/couchcryptid/drought-map/internal/adapter/render"
	"github.com/couchcryptid/drought-map/internal/adapter/usdm"
	"github.com/couchcryptid/drought-map/internal/config"
	"github.com/couchcryptid/drought-map/internal/domain"
	"github.com/couchcryptid/drought-map/internal/mapper"
	"github.com/couchcryptid/drought-map/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// renderFlags are the output options shared by the map-producing commands.
type renderFlags struct {
	output      string
	stylePath   string
	ignoreCache bool
	width       int
	height      int
	title       string
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "drought.png", "output image path")
	cmd.Flags().StringVar(&f.stylePath, "style", "", "YAML stylesheet overlaid onto the default palette")
	cmd.Flags().BoolVar(&f.ignoreCache, "ignore-cache", false, "re-download and re-project even when cached")
	cmd.Flags().IntVar(&f.width, "width", 0, "output width in pixels (default 1024)")
	cmd.Flags().IntVar(&f.height, "height", 0, "output height in pixels (default: geographic aspect ratio)")
	cmd.Flags().StringVar(&f.title, "title", "", "title drawn onto the map")
}

func (f *renderFlags) options() domain.RenderOptions {
	return domain.RenderOptions{Width: f.width, Height: f.height, Title: f.title}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "droughtmap",
		Short:         "Render U.S. Drought Monitor maps",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newLatestCmd(), newRenderCmd(), newServeCmd())
	return root
}

func newLatestCmd() *cobra.Command {
	flags := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Render the most recently published week",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(flags.stylePath)
			if err != nil {
				return err
			}
			return app.mapper.Render(cmd.Context(), domain.RenderRequest{
				Outfile:     flags.output,
				IgnoreCache: flags.ignoreCache,
				Options:     flags.options(),
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newRenderCmd() *cobra.Command {
	flags := &renderFlags{}
	var dateArg string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a specific week",
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := domain.ParseDatasetDate(dateArg)
			if err != nil {
				return err
			}
			app, err := newApp(flags.stylePath)
			if err != nil {
				return err
			}
			return app.mapper.Render(cmd.Context(), domain.RenderRequest{
				Date:        &date,
				Outfile:     flags.output,
				IgnoreCache: flags.ignoreCache,
				Options:     flags.options(),
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&dateArg, "date", "", "dataset date, YYYYMMDD or YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered maps over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp("")
			if err != nil {
				return err
			}
			return app.serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from HTTP_ADDR)")
	return cmd
}

// app wires configuration, observability, and the adapter stack into a Mapper.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	mapper  *mapper.Mapper
	metrics *observability.Metrics
}

func newApp(styleOverride string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	stylePath := cfg.StylePath
	if styleOverride != "" {
		stylePath = styleOverride
	}
	style := domain.DefaultStyle()
	if stylePath != "" {
		style, err = domain.LoadStyle(stylePath)
		if err != nil {
			return nil, err
		}
	}

	portal := usdm.NewClient(cfg, logger, metrics)
	cache := diskcache.New(cfg.CacheDir, logger)
	projector := geo.NewShapefileProjector(filepath.Join(cfg.CacheDir, "shp"), cfg.SourceCRS, logger, metrics)
	renderer := render.NewMapRenderer(logger, metrics)

	m := mapper.New(portal, cache, projector, renderer, style, cfg.TargetCRS, logger, metrics)

	return &app{cfg: cfg, logger: logger, mapper: m, metrics: metrics}, nil
}

func (a *app) serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.cfg.HTTPAddr
	}
	mapsDir := filepath.Join(a.cfg.CacheDir, "maps")
	srv := httpserver.NewServer(addr, a.mapper, a.mapper, mapsDir, a.logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
		return err
	}

	a.logger.Info("shutdown complete")
	return nil
}
