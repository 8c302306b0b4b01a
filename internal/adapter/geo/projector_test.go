package geo_test

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/drought-map/internal/adapter/geo"
	"github.com/couchcryptid/drought-map/internal/domain"
	"github.com/couchcryptid/drought-map/internal/observability"
)

// Web Mercator coordinates of lon/lat (10, 10).
const (
	mercX = 1113194.9079327357
	mercY = 1118889.9748579583
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newProjector(t *testing.T, sourceCRS int) (*geo.ShapefileProjector, string) {
	t.Helper()
	workDir := t.TempDir()
	return geo.NewShapefileProjector(workDir, sourceCRS, testLogger(), observability.NewMetricsForTesting()), workDir
}

// writeArchive builds a zipped single-polygon shapefile with a DM attribute.
func writeArchive(t *testing.T, dir, name string, ring []shp.Point, dm string) string {
	t.Helper()
	staging := t.TempDir()
	layer := name[:len(name)-len(".zip")]

	writer, err := shp.Create(filepath.Join(staging, layer+".shp"), shp.POLYGON)
	require.NoError(t, err)
	writer.SetFields([]shp.Field{shp.StringField("DM", 2)})
	writer.Write((*shp.Polygon)(shp.NewPolyLine([][]shp.Point{ring})))
	require.NoError(t, writer.WriteAttribute(0, 0, dm))
	writer.Close()

	archive := filepath.Join(dir, name)
	zipFiles(t, archive, staging)
	return archive
}

func zipFiles(t *testing.T, archive, dir string) {
	t.Helper()
	f, err := os.Create(archive)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		src, err := os.Open(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		dst, err := zw.Create(e.Name())
		require.NoError(t, err)
		_, err = io.Copy(dst, src)
		require.NoError(t, err)
		src.Close()
	}
	require.NoError(t, zw.Close())
}

func squareRing(cx, cy, half float64) []shp.Point {
	return []shp.Point{
		{X: cx - half, Y: cy - half},
		{X: cx + half, Y: cy - half},
		{X: cx + half, Y: cy + half},
		{X: cx - half, Y: cy + half},
		{X: cx - half, Y: cy - half},
	}
}

func TestTransform_IdentityShortCircuits(t *testing.T) {
	p, workDir := newProjector(t, 4326)
	archive := writeArchive(t, t.TempDir(), "USDM_20140624_M.zip", squareRing(-98, 39, 5), "2")

	out, err := p.Transform(context.Background(), domain.ArchiveBundle(archive), 4326, false)
	require.NoError(t, err)

	assert.True(t, out.Unpacked())
	assert.Equal(t, filepath.Join(workDir, "USDM_20140624_M"), out.Dir)
	assert.FileExists(t, out.ShapePath())

	reader, err := shp.Open(out.ShapePath())
	require.NoError(t, err)
	defer reader.Close()

	require.True(t, reader.Next())
	n, shape := reader.Shape()
	poly, ok := shape.(*shp.Polygon)
	require.True(t, ok)
	assert.InDelta(t, -103.0, poly.Points[0].X, 1e-9, "identity keeps coordinates untouched")
	assert.Equal(t, "2", reader.ReadAttribute(n, 0))
}

func TestTransform_WebMercatorToLonLat(t *testing.T) {
	p, _ := newProjector(t, 3857)
	ring := []shp.Point{
		{X: mercX, Y: mercY},
		{X: mercX + 10000, Y: mercY},
		{X: mercX + 10000, Y: mercY + 10000},
		{X: mercX, Y: mercY + 10000},
		{X: mercX, Y: mercY},
	}
	archive := writeArchive(t, t.TempDir(), "USDM_20140624_M.zip", ring, "3")

	out, err := p.Transform(context.Background(), domain.ArchiveBundle(archive), 4326, false)
	require.NoError(t, err)
	assert.Contains(t, out.Dir, "epsg4326")

	reader, err := shp.Open(out.ShapePath())
	require.NoError(t, err)
	defer reader.Close()

	require.True(t, reader.Next())
	n, shape := reader.Shape()
	poly, ok := shape.(*shp.Polygon)
	require.True(t, ok)

	assert.InDelta(t, 10.0, poly.Points[0].X, 1e-6)
	assert.InDelta(t, 10.0, poly.Points[0].Y, 1e-6)
	assert.Equal(t, "3", reader.ReadAttribute(n, 0), "attributes carried through reprojection")
}

func TestTransform_ReusesCachedOutput(t *testing.T) {
	p, _ := newProjector(t, 4326)
	archive := writeArchive(t, t.TempDir(), "USDM_20140624_M.zip", squareRing(-98, 39, 5), "1")

	first, err := p.Transform(context.Background(), domain.ArchiveBundle(archive), 4326, false)
	require.NoError(t, err)

	// The archive is no longer needed once unpacked.
	require.NoError(t, os.Remove(archive))

	second, err := p.Transform(context.Background(), domain.ArchiveBundle(archive), 4326, false)
	require.NoError(t, err)
	assert.Equal(t, first.Dir, second.Dir)
}

func TestTransform_RefreshReextracts(t *testing.T) {
	p, _ := newProjector(t, 4326)
	archive := writeArchive(t, t.TempDir(), "USDM_20140624_M.zip", squareRing(-98, 39, 5), "1")

	_, err := p.Transform(context.Background(), domain.ArchiveBundle(archive), 4326, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(archive))

	_, err = p.Transform(context.Background(), domain.ArchiveBundle(archive), 4326, true)
	require.Error(t, err, "refresh must go back to the archive")
}

func TestTransform_RejectsZipSlip(t *testing.T) {
	p, _ := newProjector(t, 4326)

	archive := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	dst, err := zw.Create("../escape.shp")
	require.NoError(t, err)
	_, _ = dst.Write([]byte("nope"))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = p.Transform(context.Background(), domain.ArchiveBundle(archive), 4326, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
}

func TestTransform_UnsupportedCRS(t *testing.T) {
	p, _ := newProjector(t, 3857)
	archive := writeArchive(t, t.TempDir(), "USDM_20140624_M.zip", squareRing(0, 0, 1), "0")

	_, err := p.Transform(context.Background(), domain.ArchiveBundle(archive), 999999, false)

	var renderErr *domain.RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "reproject", renderErr.Stage)
}

func TestTransform_MissingArchive(t *testing.T) {
	p, _ := newProjector(t, 4326)

	_, err := p.Transform(context.Background(), domain.ArchiveBundle(filepath.Join(t.TempDir(), "gone.zip")), 4326, false)

	var renderErr *domain.RenderError
	require.True(t, errors.As(err, &renderErr))
}

func TestTransform_CancelledContext(t *testing.T) {
	p, _ := newProjector(t, 4326)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Transform(ctx, domain.ArchiveBundle("whatever.zip"), 4326, false)
	require.ErrorIs(t, err, context.Canceled)
}
