package maptransformer

import (
	"fmt"
	"image"
	"os"

	// Registered for image dimension validation of map image files.
	_ "image/jpeg"
	_ "image/png"

	"gopkg.in/yaml.v3"
)

// mapDoc mirrors the map-pair YAML document format.
//
//	ref_map:
//	  name: reference
//	  image_file: ref.png        # optional
//	  size: [694, 386]
//	  correspondence_points:
//	    - [0, 138]
//	    - ...
//	robot_map:
//	  name: robot
//	  size: [694, 386]
//	  transform:                 # optional
//	    scale: [1, 1]
//	    rotation: 0
//	    translation: [0, 0]
//	  correspondence_points:
//	    - ...
type mapDoc struct {
	RefMap   mapNode `yaml:"ref_map"`
	RobotMap mapNode `yaml:"robot_map"`
}

type mapNode struct {
	Name                 string        `yaml:"name"`
	ImageFile            string        `yaml:"image_file"`
	Size                 []float64     `yaml:"size"`
	Transform            *transformDoc `yaml:"transform"`
	CorrespondencePoints [][]float64   `yaml:"correspondence_points"`
}

type transformDoc struct {
	Scale       []float64 `yaml:"scale"`
	Rotation    float64   `yaml:"rotation"`
	Translation []float64 `yaml:"translation"`
}

// Load parses map information from the provided YAML document and returns a
// ready-to-use transformer.
func Load(doc []byte) (*Transformer, error) {
	t := New()
	if err := t.Load(doc); err != nil {
		return nil, err
	}
	return t, nil
}

// Load parses map information from the provided YAML document.
//
// The transformer must be empty; call Reset to clear a transformer before
// loading new map information.
func (t *Transformer) Load(doc []byte) error {
	if !t.Empty() {
		return ErrNotEmpty
	}

	var parsed mapDoc
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		return fmt.Errorf("parse map document: %w", err)
	}

	loaded := New()
	var err error
	if loaded.refMap, loaded.refPoints, err = convertMapNode(parsed.RefMap, "ref_map"); err != nil {
		return err
	}
	if loaded.robotMap, loaded.robotPoints, err = convertMapNode(parsed.RobotMap, "robot_map"); err != nil {
		return err
	}
	if tr := parsed.RobotMap.Transform; tr != nil {
		if loaded.transform.Scale, err = pointFromPair(tr.Scale, "robot_map transform scale"); err != nil {
			return err
		}
		if loaded.transform.Translation, err = pointFromPair(tr.Translation, "robot_map transform translation"); err != nil {
			return err
		}
		loaded.transform.Rotation = tr.Rotation
	}

	if err := loaded.validate(); err != nil {
		return err
	}
	if err := loaded.precalculate(); err != nil {
		return err
	}
	// All checked out, so claim the data.
	*t = *loaded
	return nil
}

func convertMapNode(node mapNode, which string) (MapInfo, []Point, error) {
	info := MapInfo{Name: node.Name, ImageFile: node.ImageFile}

	size, err := pointFromPair(node.Size, which+" size")
	if err != nil {
		return MapInfo{}, nil, err
	}
	info.Size = size

	points := make([]Point, 0, len(node.CorrespondencePoints))
	for i, pair := range node.CorrespondencePoints {
		p, err := pointFromPair(pair, fmt.Sprintf("%s correspondence point %d", which, i))
		if err != nil {
			return MapInfo{}, nil, err
		}
		points = append(points, p)
	}
	return info, points, nil
}

func pointFromPair(pair []float64, what string) (Point, error) {
	if len(pair) != 2 {
		return Point{}, fmt.Errorf("%s: expected two values, got %d", what, len(pair))
	}
	return Point{X: pair[0], Y: pair[1]}, nil
}

func (t *Transformer) validate() error {
	if len(t.refPoints) == 0 {
		return fmt.Errorf("no reference map correspondence points provided")
	}
	if len(t.robotPoints) == 0 {
		return fmt.Errorf("no robot map correspondence points provided")
	}
	if len(t.refPoints) != len(t.robotPoints) {
		return fmt.Errorf("number of reference correspondence points (%d) and number of robot correspondence points (%d) do not match",
			len(t.refPoints), len(t.robotPoints))
	}

	// The robot map must at least partly overlap the reference map.
	if t.transform.Translation.X > t.refMap.Size.X ||
		t.transform.Translation.Y > t.refMap.Size.Y ||
		t.transform.Translation.X+t.robotMap.Size.X < 0 ||
		t.transform.Translation.Y+t.robotMap.Size.Y < 0 {
		return fmt.Errorf("reference map and robot map do not overlap")
	}

	if t.transform.Scale.X == 0 || t.transform.Scale.Y == 0 {
		return fmt.Errorf("invalid scale value: 0")
	}

	if err := validateMapImage(t.refMap, "reference"); err != nil {
		return err
	}
	return validateMapImage(t.robotMap, "robot")
}

// validateMapImage checks that a named map image exists and that its pixel
// dimensions match the declared map size.
func validateMapImage(info MapInfo, which string) error {
	if info.ImageFile == "" {
		return nil
	}

	f, err := os.Open(info.ImageFile)
	if err != nil {
		return fmt.Errorf("%s map image file does not exist or is not accessible: %w", which, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("decode %s map image file: %w", which, err)
	}
	if float64(cfg.Width) != info.Size.X || float64(cfg.Height) != info.Size.Y {
		return fmt.Errorf("%s map image file dimensions (%dx%d) do not match map dimensions (%gx%g)",
			which, cfg.Width, cfg.Height, info.Size.X, info.Size.Y)
	}
	return nil
}
