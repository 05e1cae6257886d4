//go:build linux

package platform

import (
	"testing"
	"time"

	"github.com/jumpres/viewer/internal/geometry"
	"github.com/jumpres/viewer/internal/x11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameConversion(t *testing.T) {
	ext := x11.FrameExtents{Left: 2, Right: 2, Top: 30, Bottom: 2}

	outer := outerFromClient(1280, 720, ext)
	assert.Equal(t, geometry.Bounds{Width: 1284, Height: 752}, outer)

	w, h, err := clientFromOuter(outer, ext)
	require.NoError(t, err)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)

	_, _, err = clientFromOuter(geometry.Bounds{Width: 4, Height: 20}, ext)
	assert.ErrorIs(t, err, geometry.ErrInvalidGeometry)
}

func TestFrameConversionUndecorated(t *testing.T) {
	outer := outerFromClient(800, 450, x11.FrameExtents{})
	assert.Equal(t, geometry.Bounds{Width: 800, Height: 450}, outer)
}

func TestIsTitleProperty(t *testing.T) {
	assert.True(t, isTitleProperty("_NET_WM_NAME"))
	assert.True(t, isTitleProperty("WM_NAME"))
	assert.False(t, isTitleProperty("_NET_WM_ICON_NAME"))
	assert.False(t, isTitleProperty("WM_CLASS"))
}

func TestResizeFromConfigure(t *testing.T) {
	ext := x11.FrameExtents{Left: 2, Right: 2, Top: 30, Bottom: 2}
	framed := geometry.Bounds{Width: 1284, Height: 752}

	tests := []struct {
		name    string
		ext     x11.FrameExtents
		last    geometry.Bounds
		wmOwned bool
		want    geometry.Bounds
		event   bool
	}{
		{name: "new size", ext: ext, last: geometry.Bounds{Width: 800, Height: 450}, want: framed, event: true},
		{name: "first configure", ext: ext, want: framed, event: true},
		{name: "unchanged size", ext: ext, last: framed, want: framed},
		{name: "fullscreen or maximized", ext: ext, last: geometry.Bounds{Width: 800, Height: 450}, wmOwned: true, want: framed},
		{name: "undecorated", last: framed, want: geometry.Bounds{Width: 1280, Height: 720}, event: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outer, ev := resizeFromConfigure(1280, 720, tt.ext, tt.last, tt.wmOwned)
			assert.Equal(t, tt.want, outer)
			if !tt.event {
				assert.Nil(t, ev)
				return
			}
			require.NotNil(t, ev)
			assert.Equal(t, tt.want, ev.Requested)
			assert.False(t, ev.Prevented())
		})
	}
}

func TestOnReadyAfterLoadRunsAsynchronously(t *testing.T) {
	w := &x11Window{ready: true}

	called := make(chan struct{})
	w.OnReady(func() { close(called) })

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("ready callback did not run")
	}
}

func TestMarkReadyFiresOnce(t *testing.T) {
	w := &x11Window{}
	count := 0
	w.OnReady(func() { count++ })
	assert.Equal(t, 0, count)

	assert.True(t, w.markReady())
	assert.False(t, w.markReady())
	assert.Equal(t, 1, count)
}

func TestMarkReadyIgnoredAfterClose(t *testing.T) {
	w := &x11Window{closed: true}
	w.OnReady(func() { t.Error("ready callback ran for a closed window") })
	assert.False(t, w.markReady())
}
