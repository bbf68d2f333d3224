package mesh

import (
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// nrgbaToRGBA converts color.NRGBA to color.RGBA by premultiplying alpha.
// canvas expects premultiplied colors.
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

// VectorRenderer draws a unified result as vector graphics. Canvas units are
// beacon units; +Y points up.
type VectorRenderer struct {
	Result      *Result
	Colors      map[int]ScannerColor
	PointRadius float64
	Padding     float64
	Resolution  canvas.Resolution // for PNG output
	GridSpacing float64           // 0 disables the grid
}

// NewVectorRenderer creates a vector renderer using the given render and scanner settings
func NewVectorRenderer(result *Result, cfg RenderConfig, scanners []ScannerConfig) *VectorRenderer {
	defaults := DefaultRenderConfig()
	if cfg.PointRadius <= 0 {
		cfg.PointRadius = defaults.PointRadius
	}
	if cfg.Resolution <= 0 {
		cfg.Resolution = defaults.Resolution
	}

	return &VectorRenderer{
		Result: result,
		Colors: AssignColors(result, scanners),
		// Beacon units are large; scale marker sizes so they stay visible.
		PointRadius: cfg.PointRadius * 5,
		Padding:     cfg.Padding,
		Resolution:  canvas.DPI(cfg.Resolution),
		GridSpacing: 500,
	}
}

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

func (r *VectorRenderer) size() (minX, minY, width, height float64) {
	minX, minY, maxX, maxY := resultBounds(r.Result)
	width = (maxX - minX) + 2*r.Padding
	height = (maxY - minY) + 2*r.Padding
	return minX, minY, math.Max(width, 1), math.Max(height, 1)
}

// RenderToSVG writes the map as an SVG to w
func (r *VectorRenderer) RenderToSVG(w io.Writer) error {
	minX, minY, width, height := r.size()

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, minX, minY, width, height)

	return svgRenderer.Close()
}

// RenderToPNG rasterizes the map and writes it as a PNG to w. The image is at
// most maxRasterSize pixels on its longer side.
func (r *VectorRenderer) RenderToPNG(w io.Writer) error {
	minX, minY, width, height := r.size()

	// One canvas unit is one beacon unit, so cap the pixel size
	res := r.Resolution
	if limit := float64(maxRasterSize) / math.Max(width, height); res.DPMM() > limit {
		res = canvas.DPMM(limit)
	}

	rast := rasterizer.New(width, height, res, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, minX, minY, width, height)

	return png.Encode(w, rast)
}

func (r *VectorRenderer) renderToCanvas(renderer canvasRenderer, minX, minY, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	toCanvas := func(v Vector3) (float64, float64) {
		return float64(v.X) - minX + r.Padding, float64(v.Y) - minY + r.Padding
	}

	if r.GridSpacing > 0 {
		gridStyle := canvas.DefaultStyle
		gridStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		gridStyle.Stroke = canvas.Paint{Color: color.RGBA{211, 211, 211, 255}}
		gridStyle.StrokeWidth = 2.0
		gridStyle.Dashes = []float64{10.0, 10.0}

		// Lines fall on multiples of GridSpacing in beacon coordinates
		originX := minX - r.Padding
		originY := minY - r.Padding
		for x := math.Ceil(originX/r.GridSpacing) * r.GridSpacing; x <= originX+width; x += r.GridSpacing {
			p := &canvas.Path{}
			p.MoveTo(x-originX, 0)
			p.LineTo(x-originX, height)
			renderer.RenderPath(p, gridStyle, canvas.Identity)
		}
		for y := math.Ceil(originY/r.GridSpacing) * r.GridSpacing; y <= originY+height; y += r.GridSpacing {
			p := &canvas.Path{}
			p.MoveTo(0, y-originY)
			p.LineTo(width, y-originY)
			renderer.RenderPath(p, gridStyle, canvas.Identity)
		}
	}

	if r.Result == nil {
		return
	}

	// Registration links, from each scanner to the scanner it was linked through
	linkStyle := canvas.DefaultStyle
	linkStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	linkStyle.Stroke = canvas.Paint{Color: color.RGBA{120, 120, 120, 255}}
	linkStyle.StrokeWidth = 4.0
	for _, s := range r.Result.Scanners {
		parent, ok := s.Chain.Parent()
		if !ok {
			continue
		}
		x1, y1 := toCanvas(s.Position)
		x2, y2 := toCanvas(parent.Apply(Origin()))
		p := &canvas.Path{}
		p.MoveTo(x1, y1)
		p.LineTo(x2, y2)
		renderer.RenderPath(p, linkStyle, canvas.Identity)
	}

	for _, b := range r.Result.Beacons {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: nrgbaToRGBA(r.Colors[b.Scanner].Beacon)}
		style.Stroke = canvas.Paint{Color: canvas.Transparent}

		cx, cy := toCanvas(b.Position)
		renderer.RenderPath(canvas.Circle(r.PointRadius).Translate(cx, cy), style, canvas.Identity)
	}

	for _, s := range r.Result.Scanners {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: nrgbaToRGBA(r.Colors[s.ID].Scanner)}
		style.Stroke = canvas.Paint{Color: canvas.Black}
		style.StrokeWidth = 3.0

		size := r.PointRadius * 4
		if s.ID == r.Result.Reference {
			size *= 1.5
		}
		cx, cy := toCanvas(s.Position)
		marker := canvas.Rectangle(size, size).Translate(cx-size/2, cy-size/2)
		renderer.RenderPath(marker, style, canvas.Identity)
	}
}
