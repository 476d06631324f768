package svg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roboworks/maptransformer"
)

func TestRenderDrawsCrossesAndTriangles(t *testing.T) {
	doc := string(Render(Overlay{
		Width:  100,
		Height: 80,
		Points: []maptransformer.Point{
			{X: 10, Y: 10}, {X: 90, Y: 10}, {X: 50, Y: 70},
		},
		Triangles:       []maptransformer.Triangle{{0, 1, 2}},
		DrawPoints:      true,
		DrawTriangles:   true,
		NumberTriangles: true,
	}))

	require.Contains(t, doc, `viewBox="0 0 100 80"`)
	require.Contains(t, doc, `<polygon points="10,10 90,10 50,70"`)
	// Each point becomes two 10px cross strokes.
	require.Contains(t, doc, `<line x1="5" y1="10" x2="15" y2="10"`)
	require.Contains(t, doc, `<line x1="10" y1="5" x2="10" y2="15"`)
	// Triangle label at the centroid.
	require.Contains(t, doc, `>0</text>`)
}

func TestRenderBackgroundImage(t *testing.T) {
	doc := string(Render(Overlay{
		Width:     40,
		Height:    40,
		ImageFile: "/maps/ref.png",
	}))
	require.Contains(t, doc, `<image href="ref.png"`)
}

func TestWriteMapOverlays(t *testing.T) {
	tr := maptransformer.New()
	require.NoError(t, tr.Load([]byte(overlayDoc)))

	dir := filepath.Join(t.TempDir(), "overlays")
	paths, err := WriteMapOverlays(tr, dir, true, true, false)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		require.Contains(t, string(data), "<svg")
	}
}

func TestWriteMapOverlaysRequiresLoadedTransformer(t *testing.T) {
	tr := maptransformer.New()
	_, err := WriteMapOverlays(tr, t.TempDir(), true, true, false)
	require.ErrorIs(t, err, maptransformer.ErrEmpty)
}

const overlayDoc = `
ref_map:
  name: ref
  size: [100, 100]
  correspondence_points:
    - [10, 10]
    - [90, 10]
    - [50, 90]
robot_map:
  name: robot
  size: [100, 100]
  correspondence_points:
    - [10, 10]
    - [90, 10]
    - [50, 90]
`
