package mesh

import (
	"bytes"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/tdewolff/canvas"
)

func TestVectorRenderer_RenderToSVG(t *testing.T) {
	r := NewVectorRenderer(solvedFixture(t), DefaultRenderConfig(), nil)

	var buf bytes.Buffer
	if err := r.RenderToSVG(&buf); err != nil {
		t.Fatalf("Failed to render to SVG: %v", err)
	}

	svg := buf.String()
	if !strings.Contains(svg, "<svg") {
		t.Fatal("Output does not contain <svg tag")
	}
	if !strings.Contains(svg, "path") {
		t.Error("Output does not contain path elements")
	}
	if !strings.Contains(svg, "</svg>") {
		t.Error("SVG is not closed")
	}
}

func TestVectorRenderer_GridSpacing(t *testing.T) {
	result := solvedFixture(t)

	render := func(spacing float64) int {
		r := NewVectorRenderer(result, DefaultRenderConfig(), nil)
		r.GridSpacing = spacing
		var buf bytes.Buffer
		if err := r.RenderToSVG(&buf); err != nil {
			t.Fatalf("RenderToSVG: %v", err)
		}
		return buf.Len()
	}

	none, coarse, fine := render(0), render(1000), render(100)
	if !(none < coarse && coarse < fine) {
		t.Errorf("grid output sizes not increasing: none=%d coarse=%d fine=%d", none, coarse, fine)
	}
}

func TestVectorRenderer_RenderToPNG(t *testing.T) {
	r := NewVectorRenderer(solvedFixture(t), DefaultRenderConfig(), nil)

	var buf bytes.Buffer
	if err := r.RenderToPNG(&buf); err != nil {
		t.Fatalf("Failed to render to PNG: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		t.Fatal("PNG is empty")
	}
	if b.Dx() > maxRasterSize+1 || b.Dy() > maxRasterSize+1 {
		t.Errorf("PNG %dx%d exceeds cap", b.Dx(), b.Dy())
	}
}

func TestVectorRenderer_LowResolution(t *testing.T) {
	cfg := DefaultRenderConfig()
	cfg.Resolution = 2.54 // one pixel per 10 beacon units
	r := NewVectorRenderer(solvedFixture(t), cfg, nil)
	if r.Resolution != canvas.DPI(2.54) {
		t.Fatalf("Resolution = %v", r.Resolution)
	}

	var buf bytes.Buffer
	if err := r.RenderToPNG(&buf); err != nil {
		t.Fatalf("RenderToPNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() > 1000 {
		t.Errorf("low resolution PNG unexpectedly wide: %d", img.Bounds().Dx())
	}
}

func TestVectorRenderer_NilResult(t *testing.T) {
	r := NewVectorRenderer(nil, RenderConfig{}, nil)
	var buf bytes.Buffer
	if err := r.RenderToSVG(&buf); err != nil {
		t.Fatalf("RenderToSVG: %v", err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Error("empty result should still produce an SVG document")
	}
}

func TestNRGBAToRGBA(t *testing.T) {
	tests := []struct {
		in   color.NRGBA
		want color.RGBA
	}{
		{color.NRGBA{10, 20, 30, 255}, color.RGBA{10, 20, 30, 255}},
		{color.NRGBA{10, 20, 30, 0}, color.RGBA{}},
		{color.NRGBA{255, 0, 100, 51}, color.RGBA{51, 0, 20, 51}},
	}
	for _, tt := range tests {
		if got := nrgbaToRGBA(tt.in); got != tt.want {
			t.Errorf("nrgbaToRGBA(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
