// Package mapper orchestrates one drought map render: resolve the dataset
// date, fetch or reuse cached archives, reproject, and compose the image.
// It is a straight-line sequence; the only branching is cache-hit versus
// cache-miss and date resolution.
package mapper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/drought-map/internal/domain"
	"github.com/couchcryptid/drought-map/internal/observability"
)

// DataPortal fetches metadata and archives from the remote portal.
type DataPortal interface {
	LatestDate(ctx context.Context) (domain.DatasetDate, error)
	DroughtArchive(ctx context.Context, date domain.DatasetDate) (io.ReadCloser, error)
	BoundaryArchive(ctx context.Context) (io.ReadCloser, error)
	BoundaryName() string
}

// ArchiveCache stores downloaded archives keyed by filename.
type ArchiveCache interface {
	ArchivePath(name string) string
	Exists(name string) bool
	Store(name string, r io.Reader) (string, error)
}

// Projector converts a bundle's geometry into a target CRS.
type Projector interface {
	Transform(ctx context.Context, in domain.ShapefileBundle, targetCRS int, refresh bool) (domain.ShapefileBundle, error)
}

// Renderer composites styled layers into an image file.
type Renderer interface {
	Compose(ctx context.Context, layers []domain.Layer, style domain.Style, opts domain.RenderOptions, outfile string) error
}

// Mapper sequences the fetch-cache-project-compose pipeline.
type Mapper struct {
	portal    DataPortal
	cache     ArchiveCache
	projector Projector
	renderer  Renderer
	style     domain.Style
	targetCRS int
	logger    *slog.Logger
	metrics   *observability.Metrics

	// renderMu serializes render runs: the disk cache assumes a single
	// writer, and serve mode shares one Mapper across requests.
	renderMu sync.Mutex

	// latest memoizes the resolved dataset date for the process lifetime.
	latestMu sync.Mutex
	latest   *domain.DatasetDate
}

// New creates a Mapper from its collaborators.
func New(portal DataPortal, cache ArchiveCache, projector Projector, renderer Renderer, style domain.Style, targetCRS int, logger *slog.Logger, metrics *observability.Metrics) *Mapper {
	return &Mapper{
		portal:    portal,
		cache:     cache,
		projector: projector,
		renderer:  renderer,
		style:     style,
		targetCRS: targetCRS,
		logger:    logger,
		metrics:   metrics,
	}
}

// LatestDate resolves the most recently published dataset date. The result
// is memoized; ignoreCache forces a re-fetch.
func (m *Mapper) LatestDate(ctx context.Context, ignoreCache bool) (domain.DatasetDate, error) {
	m.latestMu.Lock()
	defer m.latestMu.Unlock()

	if m.latest != nil && !ignoreCache {
		return *m.latest, nil
	}

	date, err := m.portal.LatestDate(ctx)
	if err != nil {
		return domain.DatasetDate{}, err
	}

	m.latest = &date
	m.metrics.LatestDatasetTimestamp.Set(float64(date.Time().Unix()))
	m.logger.Info("latest dataset resolved", "date", date.String())
	return date, nil
}

// Shapefile returns the local path of the weekly drought archive for a
// date, downloading it on a cache miss. A cache hit performs no network
// call and no content validation.
func (m *Mapper) Shapefile(ctx context.Context, date domain.DatasetDate, ignoreCache bool) (string, error) {
	return m.fetchArchive(ctx, "drought", date.ArchiveName(), ignoreCache, func(ctx context.Context) (io.ReadCloser, error) {
		return m.portal.DroughtArchive(ctx, date)
	})
}

// ReferenceBoundaries returns the local path of the national boundary
// archive used as the render backdrop, with the same cache contract as
// Shapefile.
func (m *Mapper) ReferenceBoundaries(ctx context.Context, ignoreCache bool) (string, error) {
	return m.fetchArchive(ctx, "boundary", m.portal.BoundaryName(), ignoreCache, m.portal.BoundaryArchive)
}

func (m *Mapper) fetchArchive(ctx context.Context, kind, name string, ignoreCache bool, fetch func(context.Context) (io.ReadCloser, error)) (string, error) {
	if !ignoreCache && m.cache.Exists(name) {
		m.metrics.CacheLookups.WithLabelValues(kind, "hit").Inc()
		return m.cache.ArchivePath(name), nil
	}
	m.metrics.CacheLookups.WithLabelValues(kind, "miss").Inc()

	body, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	defer body.Close()

	path, err := m.cache.Store(name, body)
	if err != nil {
		return "", err
	}

	m.logger.Info("archive fetched", "kind", kind, "path", path)
	return path, nil
}

// Raster projects the drought archive and the boundary backdrop into the
// target CRS and composes them into outfile.
func (m *Mapper) Raster(ctx context.Context, archivePath, outfile string, ignoreCache bool, opts domain.RenderOptions) error {
	boundaryPath, err := m.ReferenceBoundaries(ctx, ignoreCache)
	if err != nil {
		return err
	}

	boundary, err := m.projector.Transform(ctx, domain.ArchiveBundle(boundaryPath), m.targetCRS, ignoreCache)
	if err != nil {
		return err
	}

	drought, err := m.projector.Transform(ctx, domain.ArchiveBundle(archivePath), m.targetCRS, ignoreCache)
	if err != nil {
		return err
	}

	layers := []domain.Layer{
		{Role: domain.RoleBoundary, Bundle: boundary},
		{Role: domain.RoleDrought, Bundle: drought},
	}
	return m.renderer.Compose(ctx, layers, m.style, opts, outfile)
}

// Render is the sole external entrypoint: it resolves the date if absent,
// fetches the archive, and rasters the image. Either a complete image is
// written or the error propagates unchanged.
func (m *Mapper) Render(ctx context.Context, req domain.RenderRequest) error {
	m.renderMu.Lock()
	defer m.renderMu.Unlock()

	start := time.Now()

	date := domain.DatasetDate{}
	if req.Date != nil {
		date = *req.Date
	} else {
		var err error
		date, err = m.LatestDate(ctx, req.IgnoreCache)
		if err != nil {
			return err
		}
	}

	archivePath, err := m.Shapefile(ctx, date, req.IgnoreCache)
	if err != nil {
		return err
	}

	if err := m.Raster(ctx, archivePath, req.Outfile, req.IgnoreCache, req.Options); err != nil {
		return err
	}

	m.logger.Info("render complete",
		"date", date.String(),
		"outfile", req.Outfile,
		"rendered_at", domain.Now().UTC().Format(time.RFC3339),
		"duration", time.Since(start),
	)
	return nil
}

// CheckReadiness reports whether the service can produce maps: ready once a
// dataset date has been resolved, otherwise it attempts one resolution.
func (m *Mapper) CheckReadiness(ctx context.Context) error {
	m.latestMu.Lock()
	memoized := m.latest != nil
	m.latestMu.Unlock()
	if memoized {
		return nil
	}

	if _, err := m.LatestDate(ctx, false); err != nil {
		return errors.New("latest dataset not resolvable: " + err.Error())
	}
	return nil
}
