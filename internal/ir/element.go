package ir

import (
	"fmt"
	"strings"
)

// ElementKind selects how an element descriptor is resolved on screen.
type ElementKind string

const (
	ElementText     ElementKind = "text"
	ElementImage    ElementKind = "image"
	ElementPosition ElementKind = "position" // fixed coordinates, always resolvable
)

// ValidElementKinds defines the allowed element kinds.
var ValidElementKinds = map[ElementKind]bool{
	ElementText:     true,
	ElementImage:    true,
	ElementPosition: true,
}

// DefaultThreshold is the image/text match threshold used when a config omits one.
const DefaultThreshold = 0.5

// Element describes something the Locator capability can look for.
type Element struct {
	Kind      ElementKind
	Target    Target
	Crop      Crop
	Threshold float64
	// Include selects match polarity for text lookups (substring vs exact).
	Include bool
	Extract *Extract
	Offset  Offset
}

// Key returns a stable identity for the element, e.g. "text:Start|Begin" or
// "position:100,200". Scripted capabilities and traces key on it.
func (e Element) Key() string {
	return string(e.Kind) + ":" + e.Target.String()
}

// Target is what an element lookup searches for. Exactly one form is set:
// one or more alternative names (OR-ed by the locator) or a coordinate pair.
type Target struct {
	Alternatives []string
	Point        *Point
}

// TextTarget returns a target with the given alternatives.
func TextTarget(alts ...string) Target {
	return Target{Alternatives: alts}
}

// PointTarget returns a coordinate target.
func PointTarget(x, y int) Target {
	return Target{Point: &Point{X: x, Y: y}}
}

// IsPoint reports whether the target is a coordinate pair.
func (t Target) IsPoint() bool {
	return t.Point != nil
}

func (t Target) String() string {
	if t.Point != nil {
		return fmt.Sprintf("%d,%d", t.Point.X, t.Point.Y)
	}
	return strings.Join(t.Alternatives, "|")
}

// Point is a screen coordinate in pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Crop is a normalized rectangle; every bound lies in [0,1].
type Crop struct {
	X1, Y1, X2, Y2 float64
}

// FullFrame is the crop applied when a config omits one.
func FullFrame() Crop {
	return Crop{X1: 0, Y1: 0, X2: 1, Y2: 1}
}

// Valid reports whether all bounds are normalized and the rectangle is non-empty.
func (c Crop) Valid() bool {
	for _, v := range []float64{c.X1, c.Y1, c.X2, c.Y2} {
		if v < 0 || v > 1 {
			return false
		}
	}
	return c.X1 < c.X2 && c.Y1 < c.Y2
}

func (c Crop) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", c.X1, c.Y1, c.X2, c.Y2)
}

// Extract isolates text of a given color before recognition.
type Extract struct {
	Color     [3]int // RGB
	Threshold int    // luminance distance, 0-255
}

// Offset shifts a resolved location before clicking.
type Offset struct {
	DX, DY float64
}
