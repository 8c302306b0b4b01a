package domain

import "path/filepath"

// ShapefileBundle points at vector data on disk: either a zipped archive as
// downloaded from the portal, or an unpacked directory holding one named
// layer. The orchestration layer never opens a bundle; only the geospatial
// adapters do.
type ShapefileBundle struct {
	Archive string // path to a zipped bundle; empty once unpacked
	Dir     string // unpacked directory
	Layer   string // base name of the layer inside Dir, without extension
}

// ArchiveBundle wraps a downloaded zip archive.
func ArchiveBundle(path string) ShapefileBundle {
	return ShapefileBundle{Archive: path}
}

// UnpackedBundle wraps an unpacked shapefile directory and its layer name.
func UnpackedBundle(dir, layer string) ShapefileBundle {
	return ShapefileBundle{Dir: dir, Layer: layer}
}

// ShapePath returns the path of the .shp file for an unpacked bundle.
func (b ShapefileBundle) ShapePath() string {
	return filepath.Join(b.Dir, b.Layer+".shp")
}

// Unpacked reports whether the bundle has been extracted to a directory.
func (b ShapefileBundle) Unpacked() bool {
	return b.Dir != ""
}

// LayerRole distinguishes the map layers passed to the renderer.
type LayerRole string

const (
	// RoleBoundary is the national land and state boundary backdrop.
	RoleBoundary LayerRole = "boundary"
	// RoleDrought is the drought severity polygon layer.
	RoleDrought LayerRole = "drought"
)

// Layer pairs a bundle with its role. Layers are composited in slice order,
// first at the bottom.
type Layer struct {
	Role   LayerRole
	Bundle ShapefileBundle
}

// RenderOptions are the caller-tunable output parameters. Zero values mean
// "use the default": 1024 pixels wide, height derived from the geographic
// aspect ratio, no title.
type RenderOptions struct {
	Width  int
	Height int
	Title  string
}

// RenderRequest describes one render run. A nil Date means "latest
// published week". IgnoreCache forces a re-download and re-projection even
// when cached artifacts exist.
type RenderRequest struct {
	Date        *DatasetDate
	Outfile     string
	IgnoreCache bool
	Options     RenderOptions
}
