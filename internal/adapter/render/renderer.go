// Package render binds map composition to the gg 2D drawing library. It
// fits reprojected layers into an equirectangular viewport and paints
// drought polygons by severity over a boundary backdrop.
package render

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fogleman/gg"
	shp "github.com/jonas-p/go-shp"

	"github.com/couchcryptid/drought-map/internal/domain"
	"github.com/couchcryptid/drought-map/internal/observability"
)

const (
	defaultWidth = 1024
	// Fraction of the viewport left blank around the drought layer.
	marginFrac = 0.025
)

// MapRenderer implements mapper.Renderer.
type MapRenderer struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewMapRenderer creates a renderer.
func NewMapRenderer(logger *slog.Logger, metrics *observability.Metrics) *MapRenderer {
	return &MapRenderer{logger: logger, metrics: metrics}
}

// feature is one polygon read from a layer: its rings plus the DM attribute
// (empty for boundary layers).
type feature struct {
	rings [][]shp.Point
	dm    string
}

// Compose draws the given layers in order into outfile. The viewport is
// fitted to the drought layer's bounding box; the output format follows the
// outfile extension (.png by default, .jpg/.jpeg supported).
func (r *MapRenderer) Compose(ctx context.Context, layers []domain.Layer, style domain.Style, opts domain.RenderOptions, outfile string) error {
	start := time.Now()
	err := r.compose(ctx, layers, style, opts, outfile)
	r.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.Renders.WithLabelValues("error").Inc()
		return err
	}
	r.metrics.Renders.WithLabelValues("success").Inc()
	r.logger.Info("composed map", "outfile", outfile, "layers", len(layers), "duration", time.Since(start))
	return nil
}

func (r *MapRenderer) compose(ctx context.Context, layers []domain.Layer, style domain.Style, opts domain.RenderOptions, outfile string) error {
	features := make(map[domain.LayerRole][]feature, len(layers))
	var focus shp.Box
	focusSet := false

	for _, layer := range layers {
		if err := ctx.Err(); err != nil {
			return err
		}
		fs, box, err := readLayer(layer)
		if err != nil {
			return err
		}
		features[layer.Role] = append(features[layer.Role], fs...)
		if layer.Role == domain.RoleDrought || !focusSet {
			focus = box
			focusSet = layer.Role == domain.RoleDrought
		}
	}
	if !focusSet && len(features) == 0 {
		return &domain.RenderError{Stage: "compose", Err: fmt.Errorf("no layers to compose")}
	}

	vp, err := newViewport(focus, opts)
	if err != nil {
		return err
	}

	dc := gg.NewContext(vp.width, vp.height)
	dc.SetFillRule(gg.FillRuleEvenOdd)
	dc.SetHexColor(style.Background)
	dc.Clear()

	// Paint order: land fill, drought severity, boundary outlines, title.
	// Outlines go over the drought layer so state lines stay visible.
	for _, f := range features[domain.RoleBoundary] {
		tracePolygon(dc, vp, f)
		dc.SetHexColor(style.LandFill)
		dc.Fill()
	}

	for _, f := range features[domain.RoleDrought] {
		category, err := domain.CategoryFromAttribute(f.dm)
		if err != nil {
			return &domain.RenderError{Stage: "compose", Err: err}
		}
		color, err := style.CategoryColor(category)
		if err != nil {
			return &domain.RenderError{Stage: "compose", Err: err}
		}
		tracePolygon(dc, vp, f)
		dc.SetHexColor(color)
		dc.Fill()
	}

	for _, f := range features[domain.RoleBoundary] {
		tracePolygon(dc, vp, f)
		dc.SetHexColor(style.BoundaryLine)
		dc.SetLineWidth(style.LineWidth)
		dc.Stroke()
	}

	if opts.Title != "" {
		dc.SetHexColor(style.TitleColor)
		dc.DrawString(opts.Title, 12, 24)
	}

	return encode(dc, outfile)
}

// readLayer loads every polygon of a layer, splitting multi-part shapes
// into rings and capturing the DM attribute where the table has one.
func readLayer(layer domain.Layer) ([]feature, shp.Box, error) {
	reader, err := shp.Open(layer.Bundle.ShapePath())
	if err != nil {
		return nil, shp.Box{}, &domain.RenderError{Stage: "compose", Err: fmt.Errorf("open %s layer: %w", layer.Role, err)}
	}
	defer reader.Close()

	dmField := -1
	for i, field := range reader.Fields() {
		if strings.EqualFold(field.String(), "DM") {
			dmField = i
		}
	}

	var features []feature
	for reader.Next() {
		n, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			return nil, shp.Box{}, &domain.RenderError{Stage: "compose", Err: fmt.Errorf("%s shape %d is %T, want polygon", layer.Role, n, shape)}
		}

		f := feature{rings: splitParts(poly)}
		if dmField >= 0 {
			f.dm = reader.ReadAttribute(n, dmField)
		}
		features = append(features, f)
	}
	if err := reader.Err(); err != nil {
		return nil, shp.Box{}, &domain.RenderError{Stage: "compose", Err: fmt.Errorf("read %s layer: %w", layer.Role, err)}
	}

	return features, reader.BBox(), nil
}

func splitParts(poly *shp.Polygon) [][]shp.Point {
	if len(poly.Parts) == 0 {
		return [][]shp.Point{poly.Points}
	}
	rings := make([][]shp.Point, 0, len(poly.Parts))
	for i, start := range poly.Parts {
		end := len(poly.Points)
		if i+1 < len(poly.Parts) {
			end = int(poly.Parts[i+1])
		}
		rings = append(rings, poly.Points[int(start):end])
	}
	return rings
}

// viewport maps geographic coordinates onto the pixel grid using a plain
// equirectangular fit around a bounding box.
type viewport struct {
	width, height  int
	minX, maxY     float64
	scaleX, scaleY float64
	margin         float64
}

func newViewport(box shp.Box, opts domain.RenderOptions) (*viewport, error) {
	dx := box.MaxX - box.MinX
	dy := box.MaxY - box.MinY
	if dx <= 0 || dy <= 0 {
		return nil, &domain.RenderError{Stage: "compose", Err: fmt.Errorf("degenerate bounding box %+v", box)}
	}

	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	height := opts.Height
	if height <= 0 {
		height = int(float64(width) * dy / dx)
	}

	margin := float64(width) * marginFrac
	return &viewport{
		width:  width,
		height: height,
		minX:   box.MinX,
		maxY:   box.MaxY,
		scaleX: (float64(width) - 2*margin) / dx,
		scaleY: (float64(height) - 2*margin) / dy,
		margin: margin,
	}, nil
}

func (v *viewport) pixel(pt shp.Point) (float64, float64) {
	return v.margin + (pt.X-v.minX)*v.scaleX, v.margin + (v.maxY-pt.Y)*v.scaleY
}

// tracePolygon adds every ring of a feature to the current path. With the
// even-odd fill rule, inner rings become holes.
func tracePolygon(dc *gg.Context, vp *viewport, f feature) {
	for _, ring := range f.rings {
		for i, pt := range ring {
			x, y := vp.pixel(pt)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
	}
}

func encode(dc *gg.Context, outfile string) error {
	ext := strings.ToLower(filepath.Ext(outfile))
	switch ext {
	case ".png", "", ".jpg", ".jpeg":
	default:
		return &domain.RenderError{Stage: "compose", Err: fmt.Errorf("unsupported output extension %q", filepath.Ext(outfile))}
	}

	f, err := os.Create(outfile)
	if err != nil {
		return &domain.StorageError{Op: "create", Path: outfile, Err: err}
	}

	var encErr error
	switch ext {
	case ".jpg", ".jpeg":
		encErr = jpeg.Encode(f, dc.Image(), &jpeg.Options{Quality: 90})
	default:
		encErr = png.Encode(f, dc.Image())
	}
	if encErr != nil {
		f.Close()
		return &domain.RenderError{Stage: "compose", Err: fmt.Errorf("encode %s: %w", outfile, encErr)}
	}
	if err := f.Close(); err != nil {
		return &domain.StorageError{Op: "close", Path: outfile, Err: err}
	}
	return nil
}
