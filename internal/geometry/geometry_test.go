package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstrainToRatio_WindowsChromeExample(t *testing.T) {
	in := Insets{Width: 16, Height: 39}

	got, err := ConstrainToRatio(Bounds{Width: 1296, Height: 800}, in, TargetRatio, PivotWidth)
	require.NoError(t, err)
	assert.Equal(t, Bounds{Width: 1296, Height: 759}, got)

	content, err := OuterToContent(got, in)
	require.NoError(t, err)
	assert.Equal(t, Bounds{Width: 1280, Height: 720}, content)
}

func TestConstrainToRatio_NearExactInputUnchanged(t *testing.T) {
	req := Bounds{Width: 1936, Height: 1089}

	got, err := ConstrainToRatio(req, Insets{}, TargetRatio, PivotWidth)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestConstrainToRatio_RoundsHalfAwayFromZero(t *testing.T) {
	// 8 * 9 / 16 = 4.5 -> 5
	got, err := ConstrainToRatio(Bounds{Width: 8, Height: 1}, Insets{}, TargetRatio, PivotWidth)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Height)

	// 1281 * 9 / 16 = 720.5625 -> 721
	got, err = ConstrainToRatio(Bounds{Width: 1281, Height: 100}, Insets{}, TargetRatio, PivotWidth)
	require.NoError(t, err)
	assert.Equal(t, 721, got.Height)
}

func TestConstrainToRatio_PropertiesPivotWidth(t *testing.T) {
	insetsCases := []Insets{{}, {Width: 16, Height: 39}, {Width: 2, Height: 31}, {Width: 0, Height: 28}}

	for _, in := range insetsCases {
		for w := in.Width + 1; w < in.Width+2200; w += 7 {
			for _, h := range []int{1, 240, 719, 720, 1089, 4000} {
				req := Bounds{Width: w, Height: h}

				once, err := ConstrainToRatio(req, in, TargetRatio, PivotWidth)
				require.NoError(t, err, "request %s insets %+v", req, in)

				// Width preservation.
				require.Equal(t, req.Width, once.Width)

				// Fixed point.
				twice, err := ConstrainToRatio(once, in, TargetRatio, PivotWidth)
				require.NoError(t, err)
				require.Equal(t, once, twice, "request %s insets %+v", req, in)

				// Ratio invariant.
				content, err := OuterToContent(once, in)
				require.NoError(t, err)
				diff := math.Abs(float64(content.Width)/float64(content.Height) - TargetRatio.Float())
				require.Less(t, diff, 1/float64(content.Height), "content %s", content)
			}
		}
	}
}

func TestConstrainToRatio_PivotHeightIsStableUnderBothPivots(t *testing.T) {
	in := Insets{Width: 16, Height: 39}

	for h := in.Height + 1; h < in.Height+1500; h += 3 {
		req := Bounds{Width: 500, Height: h}

		once, err := ConstrainToRatio(req, in, TargetRatio, PivotHeight)
		require.NoError(t, err)
		require.Equal(t, req.Height, once.Height)

		again, err := ConstrainToRatio(once, in, TargetRatio, PivotHeight)
		require.NoError(t, err)
		require.Equal(t, once, again)

		// A height-pivoted result must not be disturbed by a later
		// width-pivoted pass over the same bounds.
		cross, err := ConstrainToRatio(once, in, TargetRatio, PivotWidth)
		require.NoError(t, err)
		require.Equal(t, once, cross, "height %d", h)
	}
}

func TestConstrainToRatio_InvalidGeometry(t *testing.T) {
	in := Insets{Width: 16, Height: 39}

	_, err := ConstrainToRatio(Bounds{Width: 16, Height: 500}, in, TargetRatio, PivotWidth)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = ConstrainToRatio(Bounds{Width: 500, Height: 39}, in, TargetRatio, PivotHeight)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = ConstrainToRatio(Bounds{Width: 500, Height: 500}, in, Ratio{}, PivotWidth)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestOuterContentConversions(t *testing.T) {
	in := Insets{Width: 16, Height: 39}
	content := Bounds{Width: 1280, Height: 720}

	outer := ContentToOuter(content, in)
	assert.Equal(t, Bounds{Width: 1296, Height: 759}, outer)

	back, err := OuterToContent(outer, in)
	require.NoError(t, err)
	assert.Equal(t, content, back)

	_, err = OuterToContent(Bounds{Width: 10, Height: 10}, in)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestInsetsBetween(t *testing.T) {
	in, err := InsetsBetween(Bounds{Width: 1296, Height: 759}, Bounds{Width: 1280, Height: 720})
	require.NoError(t, err)
	assert.Equal(t, Insets{Width: 16, Height: 39}, in)

	_, err = InsetsBetween(Bounds{Width: 100, Height: 100}, Bounds{Width: 120, Height: 90})
	assert.ErrorIs(t, err, ErrInsetComputation)

	_, err = InsetsBetween(Bounds{}, Bounds{Width: 1, Height: 1})
	assert.ErrorIs(t, err, ErrInsetComputation)
}

func TestDetectPivot(t *testing.T) {
	prev := Bounds{Width: 1296, Height: 759}

	tests := []struct {
		name      string
		requested Bounds
		want      Pivot
	}{
		{"width only", Bounds{Width: 1400, Height: 759}, PivotWidth},
		{"height only", Bounds{Width: 1296, Height: 900}, PivotHeight},
		{"both", Bounds{Width: 1400, Height: 900}, PivotWidth},
		{"unchanged", prev, PivotWidth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPivot(prev, tt.requested))
		})
	}
}
