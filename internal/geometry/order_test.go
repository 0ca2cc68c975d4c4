package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/ironsheep/docscan/internal/scanerr"
)

func TestOrder_Rectangle(t *testing.T) {
	points := []Point{{110, 210}, {10, 10}, {10, 210}, {110, 10}}

	q, err := Order(points)
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}

	want := Quad{
		TopLeft:     Pt(10, 10),
		TopRight:    Pt(110, 10),
		BottomRight: Pt(110, 210),
		BottomLeft:  Pt(10, 210),
	}
	if q != want {
		t.Errorf("Order: got %+v, want %+v", q, want)
	}
}

func TestOrder_Diamond(t *testing.T) {
	// sums: 60, 70, 170, 170; diffs (y-x): -40, 50, 50, -50.
	// Bottom-right and bottom-left ties go to the first occurrence.
	points := []Point{{50, 10}, {10, 60}, {60, 110}, {110, 60}}

	q, err := Order(points)
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}

	want := Quad{
		TopLeft:     Pt(50, 10),
		TopRight:    Pt(110, 60),
		BottomRight: Pt(60, 110),
		BottomLeft:  Pt(10, 60),
	}
	if q != want {
		t.Errorf("Order: got %+v, want %+v", q, want)
	}
}

func TestOrder_Idempotent(t *testing.T) {
	quads := [][]Point{
		{{10, 10}, {110, 10}, {110, 210}, {10, 210}},
		{{12, 8}, {205, 20}, {190, 300}, {5, 280}},
		{{0, 0}, {640, 3}, {630, 480}, {4, 470}},
	}

	for _, pts := range quads {
		first, err := Order(pts)
		if err != nil {
			t.Fatalf("Order(%v) failed: %v", pts, err)
		}
		c := first.Corners()
		second, err := Order(c[:])
		if err != nil {
			t.Fatalf("re-Order failed: %v", err)
		}
		if first != second {
			t.Errorf("Order not idempotent: %+v then %+v", first, second)
		}
	}
}

func TestOrder_InputPermutations(t *testing.T) {
	base := []Point{{12, 8}, {205, 20}, {190, 300}, {5, 280}}
	want, err := Order(base)
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}

	for _, perm := range permutations(4) {
		pts := make([]Point, 4)
		for i, j := range perm {
			pts[i] = base[j]
		}
		got, err := Order(pts)
		if err != nil {
			t.Fatalf("Order(%v) failed: %v", pts, err)
		}
		if got != want {
			t.Errorf("Order(%v): got %+v, want %+v", pts, got, want)
		}
	}
}

func TestOrder_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
	}{
		{"none", nil},
		{"three", []Point{{0, 0}, {1, 0}, {1, 1}}},
		{"five", []Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {2, 2}}},
		{"nan", []Point{{0, 0}, {1, 0}, {math.NaN(), 1}, {0, 1}}},
		{"inf", []Point{{0, 0}, {math.Inf(1), 0}, {1, 1}, {0, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Order(tt.points)
			if !errors.Is(err, scanerr.ErrInvalidInput) {
				t.Errorf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestOutputSize(t *testing.T) {
	tests := []struct {
		name          string
		quad          Quad
		width, height int
	}{
		{
			"rectangle",
			Quad{Pt(10, 10), Pt(110, 10), Pt(110, 210), Pt(10, 210)},
			100, 200,
		},
		{
			"diamond truncates",
			// top 78.10, bottom 70.71, left 64.03, right 70.71
			Quad{Pt(50, 10), Pt(110, 60), Pt(60, 110), Pt(10, 60)},
			78, 70,
		},
		{
			"trapezoid uses longer edges",
			Quad{Pt(20, 0), Pt(80, 0), Pt(100, 50), Pt(0, 50)},
			100, 53,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := OutputSize(tt.quad)
			if err != nil {
				t.Fatalf("OutputSize failed: %v", err)
			}
			if w != tt.width || h != tt.height {
				t.Errorf("got %dx%d, want %dx%d", w, h, tt.width, tt.height)
			}
		})
	}
}

func TestOutputSize_Scaling(t *testing.T) {
	q := Quad{Pt(12, 8), Pt(205, 20), Pt(190, 300), Pt(5, 280)}
	w1, h1, err := OutputSize(q)
	if err != nil {
		t.Fatalf("OutputSize failed: %v", err)
	}

	for _, k := range []float64{0.5, 2, 3.7} {
		wk, hk, err := OutputSize(q.Scale(k))
		if err != nil {
			t.Fatalf("OutputSize(k=%g) failed: %v", k, err)
		}
		// Truncation can cost at most k+1 pixels against k*floor(d).
		if math.Abs(float64(wk)-k*float64(w1)) > k+1 {
			t.Errorf("k=%g: width %d not ~ %g", k, wk, k*float64(w1))
		}
		if math.Abs(float64(hk)-k*float64(h1)) > k+1 {
			t.Errorf("k=%g: height %d not ~ %g", k, hk, k*float64(h1))
		}
	}
}

func TestOutputSize_Empty(t *testing.T) {
	q := Quad{Pt(5, 5), Pt(5.5, 5), Pt(5.5, 5.5), Pt(5, 5.5)}
	if _, _, err := OutputSize(q); !errors.Is(err, scanerr.ErrDegenerateGeometry) {
		t.Errorf("got %v, want ErrDegenerateGeometry", err)
	}
}

func TestOutputSize_TooLarge(t *testing.T) {
	q := Quad{Pt(0, 0), Pt(1e18, 0), Pt(1e18, 1e18), Pt(0, 1e18)}
	if _, _, err := OutputSize(q); !errors.Is(err, scanerr.ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
	if _, _, _, err := RectifyTransform(q); !errors.Is(err, scanerr.ErrInvalidInput) {
		t.Errorf("RectifyTransform: got %v, want ErrInvalidInput", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		quad    Quad
		wantErr error
	}{
		{"rectangle", Quad{Pt(0, 0), Pt(10, 0), Pt(10, 10), Pt(0, 10)}, nil},
		{"three collinear", Quad{Pt(0, 0), Pt(5, 0), Pt(10, 0), Pt(0, 10)}, scanerr.ErrDegenerateGeometry},
		{"coincident", Quad{Pt(0, 0), Pt(0, 0), Pt(10, 10), Pt(0, 10)}, scanerr.ErrDegenerateGeometry},
		{"all on a line", Quad{Pt(0, 0), Pt(1, 1), Pt(2, 2), Pt(3, 3)}, scanerr.ErrDegenerateGeometry},
		{"nan", Quad{Pt(0, 0), Pt(10, 0), Pt(10, math.NaN()), Pt(0, 10)}, scanerr.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.quad.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPolygonMeasures(t *testing.T) {
	square := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

	if got := PolygonArea(square); got != 100 {
		t.Errorf("PolygonArea: got %g, want 100", got)
	}
	if got := ArcLength(square, true); got != 40 {
		t.Errorf("ArcLength closed: got %g, want 40", got)
	}
	if got := ArcLength(square, false); got != 30 {
		t.Errorf("ArcLength open: got %g, want 30", got)
	}
	if got := PolygonArea(square[:2]); got != 0 {
		t.Errorf("PolygonArea of a segment: got %g, want 0", got)
	}
}

// permutations returns every ordering of 0..n-1.
func permutations(n int) [][]int {
	if n == 1 {
		return [][]int{{0}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for i := 0; i <= len(p); i++ {
			q := make([]int, 0, n)
			q = append(q, p[:i]...)
			q = append(q, n-1)
			q = append(q, p[i:]...)
			out = append(out, q)
		}
	}
	return out
}
