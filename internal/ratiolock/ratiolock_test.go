package ratiolock

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jumpres/viewer/internal/geometry"
	"github.com/jumpres/viewer/internal/platform/platformtest"
)

var windowsChrome = geometry.Insets{Width: 16, Height: 39}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSelect(t *testing.T) {
	assert.Equal(t, Policy{Kind: KindNative, Ratio: geometry.TargetRatio}, Select(true, geometry.TargetRatio))
	assert.Equal(t, Policy{Kind: KindIntercepted, Ratio: geometry.TargetRatio}, Select(false, geometry.TargetRatio))
}

func TestNativeInstall(t *testing.T) {
	win := platformtest.NewWindow(geometry.Bounds{Width: 1280, Height: 720}, geometry.Insets{})

	lock, err := Select(true, geometry.TargetRatio).Install(win, geometry.Insets{}, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, KindNative, lock.Kind())
	assert.True(t, lock.Installed())
	require.NotNil(t, win.Aspect())
	assert.Equal(t, geometry.TargetRatio, *win.Aspect())
	assert.False(t, win.HasResizeHandler())
	assert.Empty(t, win.BoundsCalls())
}

func TestNativeInstallFailure(t *testing.T) {
	win := platformtest.NewWindow(geometry.Bounds{Width: 1280, Height: 720}, geometry.Insets{})
	win.AspectErr = errors.New("no hints")

	lock, err := Select(true, geometry.TargetRatio).Install(win, geometry.Insets{}, quietLogger())
	require.Error(t, err)
	assert.Nil(t, lock)
	assert.False(t, lock.Installed())
}

func TestInterceptedCorrectsInitialSize(t *testing.T) {
	win := platformtest.NewWindow(geometry.Bounds{Width: 1296, Height: 800}, windowsChrome)

	lock, err := Select(false, geometry.TargetRatio).Install(win, windowsChrome, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, KindIntercepted, lock.Kind())
	assert.Equal(t, []geometry.Bounds{{Width: 1296, Height: 759}}, win.BoundsCalls())
	assert.Equal(t, geometry.Bounds{Width: 1296, Height: 759}, lock.Applied())
	assert.True(t, win.HasResizeHandler())
	assert.Nil(t, win.Aspect())
}

func TestInterceptedSkipsInitialWhenAlreadyExact(t *testing.T) {
	win := platformtest.NewWindow(geometry.Bounds{Width: 1296, Height: 759}, windowsChrome)

	_, err := Select(false, geometry.TargetRatio).Install(win, windowsChrome, quietLogger())
	require.NoError(t, err)
	assert.Empty(t, win.BoundsCalls())
}

func TestInterceptedWidthDrag(t *testing.T) {
	win := platformtest.NewWindow(geometry.Bounds{Width: 1296, Height: 759}, windowsChrome)
	_, err := Select(false, geometry.TargetRatio).Install(win, windowsChrome, quietLogger())
	require.NoError(t, err)

	prevented := win.UserResize(geometry.Bounds{Width: 1616, Height: 800})
	assert.True(t, prevented)
	// 1600 * 9 / 16 = 900 content rows.
	assert.Equal(t, geometry.Bounds{Width: 1616, Height: 939}, win.Outer())
}

func TestInterceptedHeightDrag(t *testing.T) {
	win := platformtest.NewWindow(geometry.Bounds{Width: 1616, Height: 939}, windowsChrome)
	_, err := Select(false, geometry.TargetRatio).Install(win, windowsChrome, quietLogger())
	require.NoError(t, err)

	prevented := win.UserResize(geometry.Bounds{Width: 1616, Height: 1000})
	assert.True(t, prevented)
	// Height is kept: 961 content rows * 16 / 9 = 1708.4 -> 1708 columns.
	assert.Equal(t, geometry.Bounds{Width: 1724, Height: 1000}, win.Outer())
}

func TestInterceptedAcceptsConformingRequest(t *testing.T) {
	win := platformtest.NewWindow(geometry.Bounds{Width: 1296, Height: 759}, windowsChrome)
	_, err := Select(false, geometry.TargetRatio).Install(win, windowsChrome, quietLogger())
	require.NoError(t, err)

	prevented := win.UserResize(geometry.Bounds{Width: 1616, Height: 939})
	assert.False(t, prevented)
	assert.Empty(t, win.BoundsCalls())
	assert.Equal(t, geometry.Bounds{Width: 1616, Height: 939}, win.Outer())
}

func TestInterceptedEchoTerminates(t *testing.T) {
	win := platformtest.NewWindow(geometry.Bounds{Width: 1296, Height: 759}, windowsChrome)
	win.Echo = true
	lock, err := Select(false, geometry.TargetRatio).Install(win, windowsChrome, quietLogger())
	require.NoError(t, err)

	for _, req := range []geometry.Bounds{
		{Width: 1400, Height: 700},
		{Width: 1400, Height: 1000},
		{Width: 1281, Height: 1000},
		{Width: 1281, Height: 760},
		{Width: 900, Height: 900},
	} {
		win.UserResize(req)

		outer := win.Outer()
		content, err := geometry.OuterToContent(outer, windowsChrome)
		require.NoError(t, err)
		again, err := geometry.ConstrainToRatio(outer, windowsChrome, geometry.TargetRatio, geometry.PivotWidth)
		require.NoError(t, err)
		assert.Equal(t, outer, again, "request %s settled on %s (content %s)", req, outer, content)
		assert.Equal(t, outer, lock.Applied())
	}
	assert.False(t, win.EchoOverflow())
}

func TestInterceptedInvalidRequestLeftUnconstrained(t *testing.T) {
	win := platformtest.NewWindow(geometry.Bounds{Width: 1296, Height: 759}, windowsChrome)
	_, err := Select(false, geometry.TargetRatio).Install(win, windowsChrome, quietLogger())
	require.NoError(t, err)

	prevented := win.UserResize(geometry.Bounds{Width: 10, Height: 10})
	assert.False(t, prevented)
	assert.Equal(t, geometry.Bounds{Width: 10, Height: 10}, win.Outer())
}

func TestInterceptedInstallFailsOnUnreadableSize(t *testing.T) {
	win := platformtest.NewWindow(geometry.Bounds{}, windowsChrome)
	win.OuterErr = errors.New("gone")

	_, err := Select(false, geometry.TargetRatio).Install(win, windowsChrome, quietLogger())
	require.Error(t, err)
	assert.False(t, win.HasResizeHandler())
}

func TestUninstall(t *testing.T) {
	win := platformtest.NewWindow(geometry.Bounds{Width: 1296, Height: 759}, windowsChrome)
	lock, err := Select(false, geometry.TargetRatio).Install(win, windowsChrome, quietLogger())
	require.NoError(t, err)

	lock.Uninstall()
	assert.False(t, lock.Installed())
	assert.False(t, win.HasResizeHandler())

	// Idempotent, and safe on a nil lock.
	lock.Uninstall()
	var none *Lock
	none.Uninstall()
}

func TestInstallRejectsInvalidRatio(t *testing.T) {
	win := platformtest.NewWindow(geometry.Bounds{Width: 1296, Height: 759}, windowsChrome)
	_, err := Policy{Kind: KindIntercepted}.Install(win, windowsChrome, nil)
	assert.ErrorIs(t, err, geometry.ErrInvalidGeometry)
}
