package imaging

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/scanerr"
)

var identity = geometry.Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}

func quad(tl, tr, br, bl geometry.Point) geometry.Quad {
	return geometry.Quad{TopLeft: tl, TopRight: tr, BottomRight: br, BottomLeft: bl}
}

func TestRectify_Rectangle(t *testing.T) {
	img := createPatternImage(150, 250)
	q := quad(geometry.Pt(10, 10), geometry.Pt(110, 10), geometry.Pt(110, 210), geometry.Pt(10, 210))

	out, err := Rectify(img, q, RectifyOptions{})
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}

	b := out.Bounds()
	if b.Dx() != 100 || b.Dy() != 200 {
		t.Errorf("size: got %dx%d, want 100x200", b.Dx(), b.Dy())
	}
	if b.Min != (image.Point{}) {
		t.Errorf("origin: got %v, want (0,0)", b.Min)
	}
	if _, ok := out.(*image.NRGBA); !ok {
		t.Errorf("got %T, want *image.NRGBA", out)
	}
}

func TestRectify_UniformStaysUniform(t *testing.T) {
	fill := color.RGBA{200, 120, 40, 255}
	img := createInMemoryImage(120, 120, fill)

	tests := []struct {
		name string
		q    geometry.Quad
	}{
		{"rectangle", quad(geometry.Pt(5, 5), geometry.Pt(100, 5), geometry.Pt(100, 90), geometry.Pt(5, 90))},
		{"diamond", quad(geometry.Pt(50, 10), geometry.Pt(110, 60), geometry.Pt(60, 110), geometry.Pt(10, 60))},
		{"perspective", quad(geometry.Pt(20, 15), geometry.Pt(105, 30), geometry.Pt(95, 112), geometry.Pt(8, 100))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Rectify(img, tt.q, RectifyOptions{})
			if err != nil {
				t.Fatalf("Rectify failed: %v", err)
			}
			n := out.(*image.NRGBA)
			want := color.NRGBA{200, 120, 40, 255}
			for y := 0; y < n.Bounds().Dy(); y++ {
				for x := 0; x < n.Bounds().Dx(); x++ {
					if got := n.NRGBAAt(x, y); got != want {
						t.Fatalf("pixel (%d,%d): got %v, want %v", x, y, got, want)
					}
				}
			}
		})
	}
}

func TestRectify_Diamond(t *testing.T) {
	img := createPatternImage(120, 120)
	q, err := geometry.Order([]geometry.Point{
		geometry.Pt(50, 10), geometry.Pt(10, 60), geometry.Pt(60, 110), geometry.Pt(110, 60),
	})
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}

	out, err := Rectify(img, q, RectifyOptions{})
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 78 || b.Dy() != 70 {
		t.Errorf("size: got %dx%d, want 78x70", b.Dx(), b.Dy())
	}
}

func TestRectify_RoundTrip(t *testing.T) {
	// Linear gradient: bilinear sampling reproduces it up to rounding.
	const w, h = 41, 41
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(3*x + 2*y)})
		}
	}

	q := quad(geometry.Pt(0, 0), geometry.Pt(w-1, 0), geometry.Pt(w-1, h-1), geometry.Pt(0, h-1))
	out, err := Rectify(img, q, RectifyOptions{})
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}

	g, ok := out.(*image.Gray)
	if !ok {
		t.Fatalf("got %T, want *image.Gray", out)
	}
	ow, oh := g.Bounds().Dx(), g.Bounds().Dy()
	if ow != w-1 || oh != h-1 {
		t.Fatalf("size: got %dx%d, want %dx%d", ow, oh, w-1, h-1)
	}

	sx := float64(w-1) / float64(ow-1)
	sy := float64(h-1) / float64(oh-1)
	for y := 0; y < oh; y++ {
		for x := 0; x < ow; x++ {
			want := 3*float64(x)*sx + 2*float64(y)*sy
			if got := float64(g.GrayAt(x, y).Y); math.Abs(got-want) > 1 {
				t.Fatalf("pixel (%d,%d): got %v, want %.2f", x, y, got, want)
			}
		}
	}

	// Corners are exact.
	if g.GrayAt(0, 0).Y != img.GrayAt(0, 0).Y || g.GrayAt(ow-1, oh-1).Y != img.GrayAt(w-1, h-1).Y {
		t.Error("corner pixels differ from the source")
	}
}

func TestRectify_OutputSizeRule(t *testing.T) {
	img := createInMemoryImage(400, 400, color.White)
	tests := []struct {
		q geometry.Quad
	}{
		{quad(geometry.Pt(12.5, 20.2), geometry.Pt(300.7, 40.1), geometry.Pt(320.3, 350.9), geometry.Pt(5.4, 330.6))},
		{quad(geometry.Pt(100, 50), geometry.Pt(250, 60), geometry.Pt(260, 200), geometry.Pt(90, 210))},
	}

	for _, tt := range tests {
		out, err := Rectify(img, tt.q, RectifyOptions{})
		if err != nil {
			t.Fatalf("Rectify failed: %v", err)
		}
		wantW, wantH, err := geometry.OutputSize(tt.q)
		if err != nil {
			t.Fatalf("OutputSize failed: %v", err)
		}
		if b := out.Bounds(); b.Dx() != wantW || b.Dy() != wantH {
			t.Errorf("size: got %dx%d, want %dx%d", b.Dx(), b.Dy(), wantW, wantH)
		}
	}
}

func TestRectify_Fill(t *testing.T) {
	img := createInMemoryImage(20, 20, color.White)
	q := quad(geometry.Pt(-10, -10), geometry.Pt(29, -10), geometry.Pt(29, 29), geometry.Pt(-10, 29))

	red := color.NRGBA{255, 0, 0, 255}
	out, err := Rectify(img, q, RectifyOptions{Fill: red})
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}
	n := out.(*image.NRGBA)
	if got := n.NRGBAAt(0, 0); got != red {
		t.Errorf("outside pixel: got %v, want fill %v", got, red)
	}
	if got := n.NRGBAAt(19, 19); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("inside pixel: got %v, want white", got)
	}

	// Default fill is opaque black.
	out, err = Rectify(img, q, RectifyOptions{})
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}
	if got := out.(*image.NRGBA).NRGBAAt(0, 0); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("default fill: got %v, want opaque black", got)
	}
}

func TestRectify_SubImageCoordinates(t *testing.T) {
	base := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if x >= 50 {
				base.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	sub := base.SubImage(image.Rect(40, 40, 100, 100))

	// The quad covers only the white half, in absolute coordinates.
	q := quad(geometry.Pt(60, 50), geometry.Pt(90, 50), geometry.Pt(90, 90), geometry.Pt(60, 90))
	out, err := Rectify(sub, q, RectifyOptions{})
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}
	g := out.(*image.Gray)
	for _, v := range g.Pix {
		if v != 255 {
			t.Fatalf("expected all white, found %d", v)
		}
	}
}

func TestRectify_Degenerate(t *testing.T) {
	img := createInMemoryImage(50, 50, color.White)
	tests := []struct {
		name string
		q    geometry.Quad
	}{
		{"collinear", quad(geometry.Pt(0, 0), geometry.Pt(20, 0), geometry.Pt(40, 0), geometry.Pt(0, 40))},
		{"coincident", quad(geometry.Pt(10, 10), geometry.Pt(10, 10), geometry.Pt(40, 40), geometry.Pt(10, 40))},
		{"collapsed", quad(geometry.Pt(10, 10), geometry.Pt(10, 10), geometry.Pt(10, 10), geometry.Pt(10, 10))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Rectify(img, tt.q, RectifyOptions{})
			if !errors.Is(err, scanerr.ErrDegenerateGeometry) {
				t.Errorf("got %v, want ErrDegenerateGeometry", err)
			}
			if out != nil {
				t.Error("expected no image on failure")
			}
		})
	}
}

func TestRectify_InvalidInput(t *testing.T) {
	q := quad(geometry.Pt(0, 0), geometry.Pt(10, 0), geometry.Pt(10, 10), geometry.Pt(0, 10))

	if _, err := Rectify(nil, q, RectifyOptions{}); !errors.Is(err, scanerr.ErrInvalidInput) {
		t.Errorf("nil image: got %v, want ErrInvalidInput", err)
	}

	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := Rectify(empty, q, RectifyOptions{}); !errors.Is(err, scanerr.ErrInvalidInput) {
		t.Errorf("empty image: got %v, want ErrInvalidInput", err)
	}

	nan := quad(geometry.Pt(math.NaN(), 0), geometry.Pt(10, 0), geometry.Pt(10, 10), geometry.Pt(0, 10))
	if _, err := Rectify(createInMemoryImage(5, 5, color.White), nan, RectifyOptions{}); !errors.Is(err, scanerr.ErrInvalidInput) {
		t.Errorf("NaN corner: got %v, want ErrInvalidInput", err)
	}
}

func TestWarp_Identity(t *testing.T) {
	img := createPatternImage(16, 16)
	out, err := Warp(img, identity, 16, 16, RectifyOptions{})
	if err != nil {
		t.Fatalf("Warp failed: %v", err)
	}
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			r1, g1, b1, a1 := img.At(x, y).RGBA()
			r2, g2, b2, a2 := out.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				t.Fatalf("pixel (%d,%d) changed under identity", x, y)
			}
		}
	}
}

func TestWarp_EmptySize(t *testing.T) {
	img := createInMemoryImage(5, 5, color.White)
	if _, err := Warp(img, identity, 0, 5, RectifyOptions{}); !errors.Is(err, scanerr.ErrDegenerateGeometry) {
		t.Errorf("got %v, want ErrDegenerateGeometry", err)
	}
}

func TestRectify_OutputTooLarge(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	huge := quad(geometry.Pt(0, 0), geometry.Pt(1e5, 0), geometry.Pt(1e5, 1e5), geometry.Pt(0, 1e5))

	if _, err := Rectify(img, huge, RectifyOptions{}); !errors.Is(err, scanerr.ErrInvalidInput) {
		t.Errorf("1e5 square: got %v, want ErrInvalidInput", err)
	}

	far := quad(geometry.Pt(0, 0), geometry.Pt(1e18, 0), geometry.Pt(1e18, 1e18), geometry.Pt(0, 1e18))
	if _, err := Rectify(img, far, RectifyOptions{}); !errors.Is(err, scanerr.ErrInvalidInput) {
		t.Errorf("1e18 square: got %v, want ErrInvalidInput", err)
	}

	q := quad(geometry.Pt(0, 0), geometry.Pt(100, 0), geometry.Pt(100, 100), geometry.Pt(0, 100))
	if _, err := Rectify(img, q, RectifyOptions{MaxPixels: 5000}); !errors.Is(err, scanerr.ErrInvalidInput) {
		t.Errorf("100x100 over a 5000 pixel limit: got %v, want ErrInvalidInput", err)
	}
	out, err := Rectify(img, q, RectifyOptions{MaxPixels: 10000})
	if err != nil {
		t.Fatalf("100x100 at the limit: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 100, 100) {
		t.Errorf("bounds: got %v", out.Bounds())
	}
}

func TestWarp_OutputTooLarge(t *testing.T) {
	img := createInMemoryImage(5, 5, color.White)
	if _, err := Warp(img, identity, math.MaxInt32, math.MaxInt32, RectifyOptions{}); !errors.Is(err, scanerr.ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
}

func TestSnap(t *testing.T) {
	if got := snap(3 + 1e-12); got != 3 {
		t.Errorf("snap(3+1e-12) = %v, want 3", got)
	}
	if got := snap(2.5); got != 2.5 {
		t.Errorf("snap(2.5) = %v, want 2.5", got)
	}
}
