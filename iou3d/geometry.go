package iou3d

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Intersections smaller than this are treated as touching, not overlapping.
const areaEps = 1e-8

// unionEps keeps IoU finite for degenerate boxes.
const unionEps = 1e-8

// footprint returns the rectangle corners counter-clockwise, relative
// to origin.
func footprint(b Box3D, origin r2.Vec) []r2.Vec {
	c := r2.Sub(r2.Vec{X: float64(b.X), Y: float64(b.Y)}, origin)
	hx, hy := float64(b.DX)/2, float64(b.DY)/2
	local := [4]r2.Vec{{X: -hx, Y: -hy}, {X: hx, Y: -hy}, {X: hx, Y: hy}, {X: -hx, Y: hy}}
	pts := make([]r2.Vec, 4)
	for i, p := range local {
		pts[i] = r2.Add(c, r2.Rotate(p, float64(b.Heading), r2.Vec{}))
	}
	return pts
}

// clipEdge keeps the part of poly on the left of the directed edge a->b.
func clipEdge(poly []r2.Vec, a, b r2.Vec) []r2.Vec {
	if len(poly) == 0 {
		return poly
	}
	edge := r2.Sub(b, a)
	side := func(p r2.Vec) float64 { return r2.Cross(edge, r2.Sub(p, a)) }

	out := make([]r2.Vec, 0, len(poly)+2)
	prev := poly[len(poly)-1]
	sp := side(prev)
	for _, cur := range poly {
		sc := side(cur)
		switch {
		case sc >= 0:
			if sp < 0 {
				out = append(out, lerp(prev, cur, sp/(sp-sc)))
			}
			out = append(out, cur)
		case sp >= 0:
			out = append(out, lerp(prev, cur, sp/(sp-sc)))
		}
		prev, sp = cur, sc
	}
	return out
}

func lerp(p, q r2.Vec, t float64) r2.Vec {
	return r2.Add(p, r2.Scale(t, r2.Sub(q, p)))
}

// polygonArea is the shoelace area of a simple polygon.
func polygonArea(poly []r2.Vec) float64 {
	if len(poly) < 3 {
		return 0
	}
	var s float64
	for i, p := range poly {
		s += r2.Cross(p, poly[(i+1)%len(poly)])
	}
	return math.Abs(s) / 2
}

// boxLess orders boxes so that pairwise results do not depend on argument order.
func boxLess(a, b Box3D) bool {
	ka := [5]float32{a.X, a.Y, a.DX, a.DY, a.Heading}
	kb := [5]float32{b.X, b.Y, b.DX, b.DY, b.Heading}
	for i := range ka {
		if ka[i] != kb[i] {
			return ka[i] < kb[i]
		}
	}
	return false
}

func overlapBEV64(a, b Box3D) float64 {
	if a.DX <= 0 || a.DY <= 0 || b.DX <= 0 || b.DY <= 0 {
		return 0
	}
	if boxLess(b, a) {
		a, b = b, a
	}
	// Clip around a's center so the shoelace sum stays small far from
	// the origin.
	origin := r2.Vec{X: float64(a.X), Y: float64(a.Y)}
	poly := footprint(a, origin)
	clip := footprint(b, origin)
	for i := range clip {
		poly = clipEdge(poly, clip[i], clip[(i+1)%len(clip)])
		if len(poly) == 0 {
			return 0
		}
	}
	area := polygonArea(poly)
	if area < areaEps {
		return 0
	}
	return area
}

// OverlapBEV returns the intersection area of the rotated footprints.
func OverlapBEV(a, b Box3D) float32 {
	return float32(overlapBEV64(a, b))
}

// IoUBEV returns intersection over union of the rotated footprints.
func IoUBEV(a, b Box3D) float32 {
	inter := overlapBEV64(a, b)
	if inter == 0 {
		return 0
	}
	union := float64(a.DX)*float64(a.DY) + float64(b.DX)*float64(b.DY) - inter
	return float32(inter / math.Max(union, unionEps))
}

func overlapNormal64(a, b Box3D) float64 {
	left := math.Max(float64(a.X)-float64(a.DX)/2, float64(b.X)-float64(b.DX)/2)
	right := math.Min(float64(a.X)+float64(a.DX)/2, float64(b.X)+float64(b.DX)/2)
	bottom := math.Max(float64(a.Y)-float64(a.DY)/2, float64(b.Y)-float64(b.DY)/2)
	top := math.Min(float64(a.Y)+float64(a.DY)/2, float64(b.Y)+float64(b.DY)/2)
	w, h := right-left, top-bottom
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// OverlapNormal returns the intersection area of the axis-aligned
// footprints; heading is ignored.
func OverlapNormal(a, b Box3D) float32 {
	return float32(overlapNormal64(a, b))
}

// IoUNormal returns the axis-aligned IoU; heading is ignored.
func IoUNormal(a, b Box3D) float32 {
	inter := overlapNormal64(a, b)
	if inter == 0 {
		return 0
	}
	union := float64(a.DX)*float64(a.DY) + float64(b.DX)*float64(b.DY) - inter
	return float32(inter / math.Max(union, unionEps))
}
