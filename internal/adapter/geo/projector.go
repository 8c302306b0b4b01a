// Package geo binds shapefile reprojection to the wgs84 transform library.
// All projection mathematics live in that library; this package only moves
// points through it and keeps the attribute table intact.
package geo

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	shp "github.com/jonas-p/go-shp"
	"github.com/wroge/wgs84"

	"github.com/couchcryptid/drought-map/internal/domain"
	"github.com/couchcryptid/drought-map/internal/observability"
)

// ShapefileProjector implements mapper.Projector. It unpacks zipped bundles
// into a working directory under the cache root and writes reprojected
// copies alongside them, reusing previous output unless asked to refresh.
type ShapefileProjector struct {
	workDir   string
	sourceCRS int // EPSG code of the portal's archives
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewShapefileProjector creates a projector working under workDir.
func NewShapefileProjector(workDir string, sourceCRS int, logger *slog.Logger, metrics *observability.Metrics) *ShapefileProjector {
	return &ShapefileProjector{
		workDir:   workDir,
		sourceCRS: sourceCRS,
		logger:    logger,
		metrics:   metrics,
	}
}

// Transform converts a bundle's geometry into the target CRS and returns the
// unpacked result. When source and target CRS match, the unpacked source is
// returned as-is. Cached output is reused unless refresh is set.
func (p *ShapefileProjector) Transform(ctx context.Context, in domain.ShapefileBundle, targetCRS int, refresh bool) (domain.ShapefileBundle, error) {
	if err := ctx.Err(); err != nil {
		return domain.ShapefileBundle{}, err
	}

	src := in
	if !in.Unpacked() {
		var err error
		src, err = p.unpack(in.Archive, refresh)
		if err != nil {
			return domain.ShapefileBundle{}, err
		}
	}

	if p.sourceCRS == targetCRS {
		return src, nil
	}

	outDir := filepath.Join(p.workDir, fmt.Sprintf("%s_epsg%d", filepath.Base(src.Dir), targetCRS))
	out := domain.UnpackedBundle(outDir, src.Layer)
	if !refresh {
		if _, err := os.Stat(out.ShapePath()); err == nil {
			return out, nil
		}
	}

	start := time.Now()
	if err := p.reproject(src, out, targetCRS); err != nil {
		return domain.ShapefileBundle{}, err
	}
	p.metrics.ReprojectDuration.Observe(time.Since(start).Seconds())

	p.logger.Debug("reprojected layer",
		"layer", src.Layer,
		"from", p.sourceCRS,
		"to", targetCRS,
		"duration", time.Since(start),
	)
	return out, nil
}

// unpack extracts a zipped bundle into <workDir>/<archive base>/ and locates
// its layer. An existing extraction is reused unless refresh is set.
func (p *ShapefileProjector) unpack(archive string, refresh bool) (domain.ShapefileBundle, error) {
	dir := filepath.Join(p.workDir, strings.TrimSuffix(filepath.Base(archive), ".zip"))

	if refresh {
		if err := os.RemoveAll(dir); err != nil {
			return domain.ShapefileBundle{}, &domain.StorageError{Op: "remove", Path: dir, Err: err}
		}
	}

	if layer, err := findLayer(dir); err == nil {
		return domain.UnpackedBundle(dir, layer), nil
	}

	zr, err := zip.OpenReader(archive)
	if err != nil {
		return domain.ShapefileBundle{}, &domain.RenderError{Stage: "reproject", Err: fmt.Errorf("open archive %s: %w", archive, err)}
	}
	defer zr.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.ShapefileBundle{}, &domain.StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := extractFile(f, dir); err != nil {
			return domain.ShapefileBundle{}, err
		}
	}

	layer, err := findLayer(dir)
	if err != nil {
		return domain.ShapefileBundle{}, &domain.RenderError{Stage: "reproject", Err: err}
	}
	return domain.UnpackedBundle(dir, layer), nil
}

func extractFile(f *zip.File, dir string) error {
	dest := filepath.Join(dir, f.Name)
	// Reject entries that escape the extraction directory (zip slip).
	if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) {
		return &domain.RenderError{Stage: "reproject", Err: fmt.Errorf("archive entry %q escapes extraction directory", f.Name)}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &domain.StorageError{Op: "mkdir", Path: filepath.Dir(dest), Err: err}
	}

	rc, err := f.Open()
	if err != nil {
		return &domain.RenderError{Stage: "reproject", Err: fmt.Errorf("open archive entry %q: %w", f.Name, err)}
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return &domain.StorageError{Op: "create", Path: dest, Err: err}
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return &domain.StorageError{Op: "write", Path: dest, Err: err}
	}
	if err := out.Close(); err != nil {
		return &domain.StorageError{Op: "close", Path: dest, Err: err}
	}
	return nil
}

// findLayer returns the base name of the single .shp file in dir.
func findLayer(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if name := e.Name(); strings.EqualFold(filepath.Ext(name), ".shp") {
			return strings.TrimSuffix(name, filepath.Ext(name)), nil
		}
	}
	return "", fmt.Errorf("no .shp file in %s", dir)
}

// reproject streams every polygon through the EPSG transform, carrying the
// DBF attribute table through unchanged.
func (p *ShapefileProjector) reproject(src, out domain.ShapefileBundle, targetCRS int) error {
	epsg := wgs84.EPSG()
	from := epsg.Code(p.sourceCRS)
	to := epsg.Code(targetCRS)
	if from == nil {
		return &domain.RenderError{Stage: "reproject", Err: fmt.Errorf("unsupported source EPSG code %d", p.sourceCRS)}
	}
	if to == nil {
		return &domain.RenderError{Stage: "reproject", Err: fmt.Errorf("unsupported target EPSG code %d", targetCRS)}
	}
	transform := wgs84.Transform(from, to)

	reader, err := shp.Open(src.ShapePath())
	if err != nil {
		return &domain.RenderError{Stage: "reproject", Err: fmt.Errorf("open %s: %w", src.ShapePath(), err)}
	}
	defer reader.Close()

	if err := os.MkdirAll(out.Dir, 0o755); err != nil {
		return &domain.StorageError{Op: "mkdir", Path: out.Dir, Err: err}
	}

	writer, err := shp.Create(out.ShapePath(), shp.POLYGON)
	if err != nil {
		return &domain.RenderError{Stage: "reproject", Err: fmt.Errorf("create %s: %w", out.ShapePath(), err)}
	}
	defer writer.Close()

	fields := reader.Fields()
	writer.SetFields(fields)

	row := 0
	for reader.Next() {
		n, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			return &domain.RenderError{Stage: "reproject", Err: fmt.Errorf("shape %d is %T, want polygon", n, shape)}
		}

		points := make([]shp.Point, len(poly.Points))
		for i, pt := range poly.Points {
			x, y, _ := transform(pt.X, pt.Y, 0)
			points[i] = shp.Point{X: x, Y: y}
		}

		writer.Write(&shp.Polygon{
			Box:       boxOf(points),
			NumParts:  poly.NumParts,
			NumPoints: poly.NumPoints,
			Parts:     poly.Parts,
			Points:    points,
		})

		for fi := range fields {
			if err := writer.WriteAttribute(row, fi, reader.ReadAttribute(n, fi)); err != nil {
				return &domain.RenderError{Stage: "reproject", Err: fmt.Errorf("write attribute row %d: %w", row, err)}
			}
		}
		row++
	}
	if err := reader.Err(); err != nil {
		return &domain.RenderError{Stage: "reproject", Err: fmt.Errorf("read %s: %w", src.ShapePath(), err)}
	}

	return nil
}

func boxOf(points []shp.Point) shp.Box {
	if len(points) == 0 {
		return shp.Box{}
	}
	box := shp.Box{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, pt := range points[1:] {
		if pt.X < box.MinX {
			box.MinX = pt.X
		}
		if pt.Y < box.MinY {
			box.MinY = pt.Y
		}
		if pt.X > box.MaxX {
			box.MaxX = pt.X
		}
		if pt.Y > box.MaxY {
			box.MaxY = pt.Y
		}
	}
	return box
}
