package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/docscan/internal/geometry"
)

// minContourPixels drops edge fragments too small to outline a document.
const minContourPixels = 10

// edgeMask thresholds an edge map into a boolean grid indexed [y][x] relative
// to the image origin, growing every edge pixel into its 3x3 neighbourhood
// when dilate is set. Dilation closes the one-pixel gaps Canny leaves at
// corners.
func edgeMask(edges *image.Gray, dilate bool) ([][]bool, int, int) {
	b := edges.Bounds()
	width, height := b.Dx(), b.Dy()

	mask := make([][]bool, height)
	for y := 0; y < height; y++ {
		mask[y] = make([]bool, width)
	}
	for y := 0; y < height; y++ {
		row := edges.Pix[edges.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < width; x++ {
			if row[x] == 0 {
				continue
			}
			if !dilate {
				mask[y][x] = true
				continue
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx >= 0 && nx < width && ny >= 0 && ny < height {
						mask[ny][nx] = true
					}
				}
			}
		}
	}
	return mask, width, height
}

// findContours finds connected components (contours) in a binary edge image.
//
// Uses flood-fill to group connected edge pixels into contours.
// Connectivity is 8-connected (includes diagonals).
//
// Contours smaller than minContourPixels are discarded as noise.
func findContours(edges [][]bool, width, height int) [][]image.Point {
	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	contours := make([][]image.Point, 0)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges[y][x] && !visited[y][x] {
				contour := make([]image.Point, 0)
				floodFill(edges, visited, x, y, width, height, &contour)
				if len(contour) >= minContourPixels {
					contours = append(contours, contour)
				}
			}
		}
	}

	return contours
}

// floodFill performs iterative flood-fill from a starting point.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large contours. Marks visited pixels and appends them to the contour.
func floodFill(edges, visited [][]bool, startX, startY, width, height int, contour *[]image.Point) {
	stack := []image.Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !edges[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		*contour = append(*contour, p)

		// 8-connected neighbors
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}

// convexHull returns the hull of pts by Andrew's monotone chain, without
// collinear vertices. The first vertex is the leftmost (then topmost) point.
func convexHull(pts []geometry.Point) []geometry.Point {
	if len(pts) < 3 {
		return append([]geometry.Point(nil), pts...)
	}
	sorted := append([]geometry.Point(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	hull := make([]geometry.Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && geometry.Cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && geometry.Cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// The last point repeats the first.
	return hull[:len(hull)-1]
}

// approxClosed simplifies a closed polygon with Ramer-Douglas-Peucker so no
// input vertex lies farther than eps from the result.
//
// The polygon is split at the vertex farthest from poly[0] and each half is
// simplified as an open chain. poly[0] itself is then dropped if it sits
// within eps of the chord joining its neighbours.
func approxClosed(poly []geometry.Point, eps float64) []geometry.Point {
	n := len(poly)
	if n <= 3 {
		return append([]geometry.Point(nil), poly...)
	}

	k, best := 0, -1.0
	for i := 1; i < n; i++ {
		if d := geometry.Distance(poly[0], poly[i]); d > best {
			k, best = i, d
		}
	}
	if best == 0 {
		return []geometry.Point{poly[0]}
	}

	first := rdp(poly[:k+1], eps)
	tail := make([]geometry.Point, 0, n-k+1)
	tail = append(tail, poly[k:]...)
	tail = append(tail, poly[0])
	second := rdp(tail, eps)

	out := make([]geometry.Point, 0, len(first)+len(second))
	out = append(out, first[:len(first)-1]...)
	out = append(out, second[:len(second)-1]...)

	if len(out) > 3 && segmentDistance(out[0], out[len(out)-1], out[1]) <= eps {
		out = out[1:]
	}
	return out
}

// rdp simplifies an open chain, always keeping both endpoints.
func rdp(pts []geometry.Point, eps float64) []geometry.Point {
	if len(pts) <= 2 {
		return append([]geometry.Point(nil), pts...)
	}
	last := len(pts) - 1
	idx, maxDist := 0, -1.0
	for i := 1; i < last; i++ {
		if d := segmentDistance(pts[i], pts[0], pts[last]); d > maxDist {
			idx, maxDist = i, d
		}
	}
	if maxDist <= eps {
		return []geometry.Point{pts[0], pts[last]}
	}
	left := rdp(pts[:idx+1], eps)
	right := rdp(pts[idx:], eps)
	return append(left[:len(left)-1], right...)
}

// segmentDistance returns the distance from p to the segment a-b.
func segmentDistance(p, a, b geometry.Point) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return geometry.Distance(p, a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return geometry.Distance(p, a.Add(ab.Mul(t)))
}
