// Package svg renders map overlays: correspondence points drawn as crosses
// and the triangulation drawn as outlined triangles, over an optional
// background image.
package svg

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/roboworks/maptransformer"
)

const (
	crossColour    = "#0000ff"
	triangleColour = "#00c800"
	labelColour    = "#008000"
	crossArm       = 5
)

// Overlay describes one map image and the markers drawn on top of it.
type Overlay struct {
	Width           float64
	Height          float64
	ImageFile       string // background raster, referenced rather than embedded
	Points          []maptransformer.Point
	Triangles       []maptransformer.Triangle
	DrawPoints      bool
	DrawTriangles   bool
	NumberTriangles bool
}

// Render produces an SVG document for the overlay.
func Render(o Overlay) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g">`+"\n",
		o.Width, o.Height, o.Width, o.Height)

	if o.ImageFile != "" {
		fmt.Fprintf(&buf, `  <image href=%q width="%g" height="%g"/>`+"\n",
			filepath.Base(o.ImageFile), o.Width, o.Height)
	}

	if o.DrawTriangles {
		for i, tri := range o.Triangles {
			p1 := o.Points[tri[0]]
			p2 := o.Points[tri[1]]
			p3 := o.Points[tri[2]]
			fmt.Fprintf(&buf,
				`  <polygon points="%g,%g %g,%g %g,%g" fill="none" stroke="%s" stroke-width="1"/>`+"\n",
				p1.X, p1.Y, p2.X, p2.Y, p3.X, p3.Y, triangleColour)

			if o.NumberTriangles {
				cx := (p1.X + p2.X + p3.X) / 3
				cy := (p1.Y + p2.Y + p3.Y) / 3
				fmt.Fprintf(&buf,
					`  <text x="%g" y="%g" font-size="8" fill="%s">%d</text>`+"\n",
					cx, cy, labelColour, i)
			}
		}
	}

	if o.DrawPoints {
		for _, p := range o.Points {
			writeCross(&buf, p)
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func writeCross(buf *bytes.Buffer, p maptransformer.Point) {
	fmt.Fprintf(buf,
		`  <line x1="%g" y1="%g" x2="%g" y2="%g" stroke="%s" stroke-width="2"/>`+"\n",
		p.X-crossArm, p.Y, p.X+crossArm, p.Y, crossColour)
	fmt.Fprintf(buf,
		`  <line x1="%g" y1="%g" x2="%g" y2="%g" stroke="%s" stroke-width="2"/>`+"\n",
		p.X, p.Y-crossArm, p.X, p.Y+crossArm, crossColour)
}

// WriteMapOverlays renders one SVG per map into dir (ref.svg and robot.svg)
// and returns the written paths.
func WriteMapOverlays(t *maptransformer.Transformer, dir string, drawPoints, drawTriangles, numberTriangles bool) ([]string, error) {
	if t.Empty() {
		return nil, maptransformer.ErrEmpty
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create overlay directory: %w", err)
	}

	maps := []struct {
		name   string
		info   maptransformer.MapInfo
		points []maptransformer.Point
	}{
		{"ref.svg", t.RefMap(), t.RefCorrespondencePoints()},
		{"robot.svg", t.RobotMap(), t.RobotCorrespondencePoints()},
	}

	paths := make([]string, 0, len(maps))
	for _, m := range maps {
		doc := Render(Overlay{
			Width:           m.info.Size.X,
			Height:          m.info.Size.Y,
			ImageFile:       m.info.ImageFile,
			Points:          m.points,
			Triangles:       t.Triangles(),
			DrawPoints:      drawPoints,
			DrawTriangles:   drawTriangles,
			NumberTriangles: numberTriangles,
		})
		path := filepath.Join(dir, m.name)
		if err := atomic.WriteFile(path, bytes.NewReader(doc)); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
