package mesh

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const maxRasterSize = 4000

// ScannerColor defines the colors used for one scanner's map elements
type ScannerColor struct {
	Beacon  color.NRGBA
	Scanner color.NRGBA
}

// DefaultColors returns distinct colors; the first is reserved for the reference scanner
func DefaultColors() []ScannerColor {
	return []ScannerColor{
		{ // Reference - Blue
			Beacon:  color.NRGBA{100, 149, 237, 200}, // Cornflower blue
			Scanner: color.NRGBA{0, 0, 139, 255},     // Dark blue
		},
		{ // Red
			Beacon:  color.NRGBA{255, 99, 71, 180},
			Scanner: color.NRGBA{139, 0, 0, 255},
		},
		{ // Green
			Beacon:  color.NRGBA{60, 179, 113, 180},
			Scanner: color.NRGBA{0, 100, 0, 255},
		},
		{ // Gold
			Beacon:  color.NRGBA{218, 165, 32, 180},
			Scanner: color.NRGBA{184, 134, 11, 255},
		},
		{ // Purple
			Beacon:  color.NRGBA{186, 85, 211, 180},
			Scanner: color.NRGBA{75, 0, 130, 255},
		},
	}
}

// AssignColors picks a color per scanner. The reference gets the first palette
// entry, the rest cycle through the remainder in ID order. Configured colors win.
func AssignColors(result *Result, scanners []ScannerConfig) map[int]ScannerColor {
	palette := DefaultColors()
	colors := make(map[int]ScannerColor)
	if result == nil {
		return colors
	}

	i := 0
	for _, s := range result.Scanners {
		if s.ID == result.Reference {
			colors[s.ID] = palette[0]
			continue
		}
		colors[s.ID] = palette[(i%(len(palette)-1))+1]
		i++
	}

	for _, sc := range scanners {
		c, ok := parseHexColor(sc.Color)
		if !ok {
			continue
		}
		colors[sc.ID] = ScannerColor{
			Beacon:  color.NRGBA{c.R, c.G, c.B, 180},
			Scanner: color.NRGBA{c.R, c.G, c.B, 255},
		}
	}
	return colors
}

// scannerLabels maps scanner IDs to configured labels, falling back to "scanner N"
func scannerLabels(result *Result, scanners []ScannerConfig) map[int]string {
	labels := make(map[int]string)
	if result == nil {
		return labels
	}
	for _, s := range result.Scanners {
		labels[s.ID] = fmt.Sprintf("scanner %d", s.ID)
	}
	for _, sc := range scanners {
		if sc.Label != "" {
			labels[sc.ID] = sc.Label
		}
	}
	return labels
}

// resultBounds returns the XY extent of all beacons and scanner origins
func resultBounds(result *Result) (minX, minY, maxX, maxY float64) {
	minX, minY = math.MaxFloat64, math.MaxFloat64
	maxX, maxY = -math.MaxFloat64, -math.MaxFloat64

	grow := func(v Vector3) {
		x, y := float64(v.X), float64(v.Y)
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}

	if result != nil {
		for _, b := range result.Beacons {
			grow(b.Position)
		}
		for _, s := range result.Scanners {
			grow(s.Position)
		}
	}

	if minX > maxX {
		return 0, 0, 0, 0
	}
	return minX, minY, maxX, maxY
}

// RasterRenderer draws a top-down XY projection of a unified result
type RasterRenderer struct {
	Result      *Result
	Colors      map[int]ScannerColor
	Labels      map[int]string
	Scale       float64 // pixels per beacon unit
	PointRadius int
	Padding     float64 // in beacon units
}

// NewRasterRenderer creates a renderer using the given render and scanner settings
func NewRasterRenderer(result *Result, cfg RenderConfig, scanners []ScannerConfig) *RasterRenderer {
	defaults := DefaultRenderConfig()
	if cfg.Scale <= 0 {
		cfg.Scale = defaults.Scale
	}
	if cfg.PointRadius <= 0 {
		cfg.PointRadius = defaults.PointRadius
	}

	return &RasterRenderer{
		Result:      result,
		Colors:      AssignColors(result, scanners),
		Labels:      scannerLabels(result, scanners),
		Scale:       cfg.Scale,
		PointRadius: int(math.Ceil(cfg.PointRadius)),
		Padding:     cfg.Padding,
	}
}

// Render creates the map image. +Y points up.
func (r *RasterRenderer) Render() *image.RGBA {
	minX, minY, maxX, maxY := resultBounds(r.Result)
	minX -= r.Padding
	minY -= r.Padding
	maxX += r.Padding
	maxY += r.Padding

	scale := r.Scale
	width := int((maxX-minX)*scale) + 1
	height := int((maxY-minY)*scale) + 1

	if width > maxRasterSize || height > maxRasterSize {
		scale *= float64(maxRasterSize) / float64(max(width, height))
		width = int((maxX-minX)*scale) + 1
		height = int((maxY-minY)*scale) + 1
	}
	width = max(width, 1)
	height = max(height, 1)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{240, 240, 240, 255})
		}
	}

	if r.Result == nil {
		return img
	}

	toImage := func(v Vector3) (int, int) {
		x := int((float64(v.X) - minX) * scale)
		y := int((maxY - float64(v.Y)) * scale)
		return x, y
	}

	// Beacons, alpha blended so overlapping markers stay visible
	for _, b := range r.Result.Beacons {
		c := r.Colors[b.Scanner].Beacon
		ix, iy := toImage(b.Position)
		rad := r.PointRadius
		for dy := -rad; dy <= rad; dy++ {
			for dx := -rad; dx <= rad; dx++ {
				px, py := ix+dx, iy+dy
				if dx*dx+dy*dy > rad*rad || px < 0 || px >= width || py < 0 || py >= height {
					continue
				}
				img.Set(px, py, blendColors(img.RGBAAt(px, py), c))
			}
		}
	}

	// Scanner origins; the reference is drawn as a triangle
	for _, s := range r.Result.Scanners {
		vc := r.Colors[s.ID].Scanner
		c := color.RGBA{vc.R, vc.G, vc.B, vc.A}
		ix, iy := toImage(s.Position)
		if s.ID == r.Result.Reference {
			drawTriangle(img, ix, iy, 14, c)
		} else {
			drawSquare(img, ix, iy, 10, c)
		}
	}

	r.drawLegend(img)

	return img
}

// WritePNG encodes the rendered image to w
func (r *RasterRenderer) WritePNG(w io.Writer) error {
	return png.Encode(w, r.Render())
}

// SavePNG saves the rendered image to a file
func (r *RasterRenderer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return r.WritePNG(f)
}

// blendColors performs alpha blending of two colors
func blendColors(bg color.RGBA, fg color.NRGBA) color.NRGBA {
	// RGBA is premultiplied, so un-premultiply the background first
	var bgNRGBA color.NRGBA
	switch bg.A {
	case 0:
		bgNRGBA = color.NRGBA{0, 0, 0, 0}
	case 255:
		bgNRGBA = color.NRGBA{bg.R, bg.G, bg.B, 255}
	default:
		alpha32 := uint32(bg.A)
		bgNRGBA = color.NRGBA{
			R: uint8((uint32(bg.R) * 255) / alpha32),
			G: uint8((uint32(bg.G) * 255) / alpha32),
			B: uint8((uint32(bg.B) * 255) / alpha32),
			A: bg.A,
		}
	}

	alpha := float64(fg.A) / 255.0
	invAlpha := 1.0 - alpha

	return color.NRGBA{
		R: uint8(float64(fg.R)*alpha + float64(bgNRGBA.R)*invAlpha),
		G: uint8(float64(fg.G)*alpha + float64(bgNRGBA.G)*invAlpha),
		B: uint8(float64(fg.B)*alpha + float64(bgNRGBA.B)*invAlpha),
		A: 255,
	}
}

// drawSquare draws a filled square
func drawSquare(img *image.RGBA, cx, cy, size int, c color.RGBA) {
	half := size / 2
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			x, y := cx+dx, cy+dy
			if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
				img.Set(x, y, c)
			}
		}
	}
}

// drawTriangle draws a filled triangle pointing up
func drawTriangle(img *image.RGBA, cx, cy, size int, c color.RGBA) {
	half := size / 2
	for dy := -half; dy <= half; dy++ {
		progress := float64(dy+half) / float64(size)
		width := int(progress * float64(half))
		for dx := -width; dx <= width; dx++ {
			x, y := cx+dx, cy+dy
			if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
				img.Set(x, y, c)
			}
		}
	}
}

// drawLegend lists scanners with their color swatch in the top-left corner
func (r *RasterRenderer) drawLegend(img *image.RGBA) {
	ids := make([]int, 0, len(r.Colors))
	for id := range r.Colors {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	y := 15
	for _, id := range ids {
		vc := r.Colors[id].Scanner
		for dy := 0; dy < 12; dy++ {
			for dx := 0; dx < 12; dx++ {
				img.Set(10+dx, y+dy-10, vc)
			}
		}

		drawText(img, 28, y, r.Labels[id], color.RGBA{0, 0, 0, 255})
		y += 18
	}

	if r.Result != nil {
		summary := fmt.Sprintf("%d beacons, max distance %d", r.Result.UniqueBeacons, r.Result.MaxScannerDistance)
		drawText(img, 10, y+4, summary, color.RGBA{64, 64, 64, 255})
	}
}

// drawText renders text onto an image at the specified position
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// parseHexColor parses a hex color string like "#FF6B6B"
func parseHexColor(hex string) (color.RGBA, bool) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return color.RGBA{}, false
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{r, g, b, 255}, true
}
