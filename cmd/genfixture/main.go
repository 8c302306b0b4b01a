// Command genfixture writes a synthetic USDM dataset for offline development
// and demos: a weekly drought archive with nested severity rings, a boundary
// archive, and the matching metadata document. Point USDM_BASE_URL at a
// local file server over the output directory to run without the portal.
//
// Usage:
//
//	go run ./cmd/genfixture -out fixtures -date 20140624
package main

import (
	"archive/zip"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	shp "github.com/jonas-p/go-shp"

	"github.com/couchcryptid/drought-map/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "fixtures", "output directory")
	dateArg := flag.String("date", "20140624", "dataset date, YYYYMMDD")
	flag.Parse()

	date, err := domain.ParseDatasetDate(*dateArg)
	if err != nil {
		return err
	}

	archiveDir := filepath.Join(*out, "data", "shapefiles_m")
	tabularDir := filepath.Join(*out, "tabular")
	for _, dir := range []string{archiveDir, tabularDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	droughtZip := filepath.Join(archiveDir, date.ArchiveName())
	if err := writeArchive(droughtZip, "USDM_"+date.Compact(), writeDroughtLayer); err != nil {
		return fmt.Errorf("drought archive: %w", err)
	}
	log.Printf("wrote %s", droughtZip)

	boundaryZip := filepath.Join(archiveDir, "us_boundaries.zip")
	if err := writeArchive(boundaryZip, "us_boundaries", writeBoundaryLayer); err != nil {
		return fmt.Errorf("boundary archive: %w", err)
	}
	log.Printf("wrote %s", boundaryZip)

	metadata := filepath.Join(tabularDir, "total.xml")
	doc := fmt.Sprintf("<total>\n  <week date=%q/>\n</total>\n", date.Compact())
	if err := os.WriteFile(metadata, []byte(doc), 0o644); err != nil {
		return err
	}
	log.Printf("wrote %s", metadata)

	return nil
}

// writeArchive builds a shapefile in a staging directory and zips its
// sidecar files under the given layer name.
func writeArchive(zipPath, layer string, build func(dir, layer string) error) error {
	staging, err := os.MkdirTemp("", "genfixture")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	if err := build(staging, layer); err != nil {
		return err
	}
	return zipDir(zipPath, staging)
}

// writeDroughtLayer writes five nested squares, D0 outermost through D4
// innermost, mirroring how USDM severity zones nest in real archives.
func writeDroughtLayer(dir, layer string) error {
	writer, err := shp.Create(filepath.Join(dir, layer+".shp"), shp.POLYGON)
	if err != nil {
		return err
	}
	defer writer.Close()

	writer.SetFields([]shp.Field{shp.StringField("DM", 2)})

	// Roughly the continental US in lon/lat.
	const cx, cy = -98.0, 39.0
	for i, half := range []float64{20, 16, 12, 8, 4} {
		ring := squareRing(cx, cy, half)
		writer.Write((*shp.Polygon)(shp.NewPolyLine([][]shp.Point{ring})))
		if err := writer.WriteAttribute(i, 0, fmt.Sprintf("%d", i)); err != nil {
			return err
		}
	}
	return nil
}

func writeBoundaryLayer(dir, layer string) error {
	writer, err := shp.Create(filepath.Join(dir, layer+".shp"), shp.POLYGON)
	if err != nil {
		return err
	}
	defer writer.Close()

	writer.SetFields([]shp.Field{shp.StringField("NAME", 32)})

	ring := squareRing(-98.0, 39.0, 26)
	writer.Write((*shp.Polygon)(shp.NewPolyLine([][]shp.Point{ring})))
	return writer.WriteAttribute(0, 0, "Synthetic US")
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

func zipDir(zipPath, dir string) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := addToZip(zw, filepath.Join(dir, e.Name()), e.Name()); err != nil {
			return err
		}
	}
	return nil
}

func addToZip(zw *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
