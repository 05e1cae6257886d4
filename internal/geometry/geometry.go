package geometry

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeometry is returned when a content size cannot be derived
	// from an outer size (the result would be non-positive).
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrInsetComputation is returned when chrome insets cannot be measured
	// from an outer/content size pair.
	ErrInsetComputation = errors.New("inset computation failed")
)

// Bounds is a window size in pixels, either outer (including chrome) or
// content-area, depending on context.
type Bounds struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (b Bounds) Valid() bool {
	return b.Width > 0 && b.Height > 0
}

func (b Bounds) String() string {
	return fmt.Sprintf("%dx%d", b.Width, b.Height)
}

// Insets is the fixed difference between a window's outer size and its
// content size.
type Insets struct {
	Width  int `json:"extra_width"`
	Height int `json:"extra_height"`
}

// Ratio is a width:height aspect ratio kept as integers so that every
// computation on it is exact.
type Ratio struct {
	Num int
	Den int
}

// TargetRatio is the content aspect ratio enforced on the viewer window.
var TargetRatio = Ratio{Num: 16, Den: 9}

// Valid reports whether both terms are positive.
func (r Ratio) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Float returns the ratio as width/height.
func (r Ratio) Float() float64 {
	return float64(r.Num) / float64(r.Den)
}

func (r Ratio) String() string {
	return fmt.Sprintf("%d:%d", r.Num, r.Den)
}

// Pivot selects the dimension of a resize request that is preserved while the
// other one is derived from the ratio.
type Pivot int

const (
	PivotWidth Pivot = iota
	PivotHeight
)

func (p Pivot) String() string {
	switch p {
	case PivotWidth:
		return "width"
	case PivotHeight:
		return "height"
	default:
		return fmt.Sprintf("pivot(%d)", int(p))
	}
}

// ContentToOuter adds the chrome insets to a content size.
func ContentToOuter(content Bounds, in Insets) Bounds {
	return Bounds{
		Width:  content.Width + in.Width,
		Height: content.Height + in.Height,
	}
}

// OuterToContent subtracts the chrome insets from an outer size.
func OuterToContent(outer Bounds, in Insets) (Bounds, error) {
	content := Bounds{
		Width:  outer.Width - in.Width,
		Height: outer.Height - in.Height,
	}
	if !content.Valid() {
		return Bounds{}, fmt.Errorf("%w: outer %s minus insets %dx%d", ErrInvalidGeometry, outer, in.Width, in.Height)
	}
	return content, nil
}

// InsetsBetween measures the chrome insets from an outer size and the
// matching content size.
func InsetsBetween(outer, content Bounds) (Insets, error) {
	if !outer.Valid() || !content.Valid() {
		return Insets{}, fmt.Errorf("%w: outer %s, content %s", ErrInsetComputation, outer, content)
	}
	in := Insets{
		Width:  outer.Width - content.Width,
		Height: outer.Height - content.Height,
	}
	if in.Width < 0 || in.Height < 0 {
		return Insets{}, fmt.Errorf("%w: content %s larger than outer %s", ErrInsetComputation, content, outer)
	}
	return in, nil
}

// ConstrainToRatio corrects a requested outer size so that its content area
// has ratio r. The pivot dimension of the request is kept as is and the other
// dimension is derived from it, rounding half away from zero.
//
// The result is a fixed point: constraining it again with the same insets,
// ratio and pivot returns it unchanged.
func ConstrainToRatio(requested Bounds, in Insets, r Ratio, p Pivot) (Bounds, error) {
	if !r.Valid() {
		return Bounds{}, fmt.Errorf("%w: ratio %s", ErrInvalidGeometry, r)
	}

	switch p {
	case PivotHeight:
		contentH := requested.Height - in.Height
		if contentH <= 0 {
			return Bounds{}, fmt.Errorf("%w: height %d with inset %d", ErrInvalidGeometry, requested.Height, in.Height)
		}
		contentW := roundDiv(contentH*r.Num, r.Den)
		if contentW <= 0 {
			return Bounds{}, fmt.Errorf("%w: derived width %d", ErrInvalidGeometry, contentW)
		}
		return Bounds{Width: contentW + in.Width, Height: requested.Height}, nil
	default:
		contentW := requested.Width - in.Width
		if contentW <= 0 {
			return Bounds{}, fmt.Errorf("%w: width %d with inset %d", ErrInvalidGeometry, requested.Width, in.Width)
		}
		contentH := roundDiv(contentW*r.Den, r.Num)
		if contentH <= 0 {
			return Bounds{}, fmt.Errorf("%w: derived height %d", ErrInvalidGeometry, contentH)
		}
		return Bounds{Width: requested.Width, Height: contentH + in.Height}, nil
	}
}

// DetectPivot picks the dimension the user is dragging: height when only the
// height changed since the previous bounds, width otherwise.
func DetectPivot(previous, requested Bounds) Pivot {
	if previous.Width == requested.Width && previous.Height != requested.Height {
		return PivotHeight
	}
	return PivotWidth
}

// roundDiv returns a/b rounded half away from zero. b must be positive.
func roundDiv(a, b int) int {
	if a < 0 {
		return -((-2*a + b) / (2 * b))
	}
	return (2*a + b) / (2 * b)
}
