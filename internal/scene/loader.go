package scene

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/battlemap/internal/battlemap/fog"
	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
	"github.com/cory-johannsen/battlemap/internal/battlemap/layer"
)

// Door states accepted by the door field of a segment.
const (
	doorClosed = "closed"
	doorOpen   = "open"
)

// yamlSceneFile is the top-level YAML structure for scene files.
type yamlSceneFile struct {
	Scene yamlScene `yaml:"scene"`
}

// yamlScene is the YAML representation of a scene.
type yamlScene struct {
	ID         string        `yaml:"id"`
	Name       string        `yaml:"name,omitempty"`
	Width      float64       `yaml:"width"`
	Height     float64       `yaml:"height"`
	Grid       yamlGrid      `yaml:"grid"`
	FogOpacity *float64      `yaml:"fog_opacity,omitempty"`
	Layers     []layer.Layer `yaml:"layers,omitempty"`
	Walls      []yamlWall    `yaml:"walls"`
	Fog        []fog.Shape   `yaml:"fog,omitempty"`
	Rooms      []fog.Room    `yaml:"rooms,omitempty"`
}

type yamlGrid struct {
	Enabled       bool `yaml:"enabled"`
	geom.GridSpec `yaml:",inline"`
}

// yamlWall is either a polyline given by points or an explicit segment list.
type yamlWall struct {
	ID       string        `yaml:"id,omitempty"`
	Layer    string        `yaml:"layer"`
	Points   [][]float64   `yaml:"points,omitempty"`
	Closed   bool          `yaml:"closed,omitempty"`
	Segments []yamlSegment `yaml:"segments,omitempty"`
}

type yamlSegment struct {
	ID   string    `yaml:"id,omitempty"`
	From []float64 `yaml:"from,flow"`
	To   []float64 `yaml:"to,flow"`
	CP1  []float64 `yaml:"cp1,omitempty,flow"`
	CP2  []float64 `yaml:"cp2,omitempty,flow"`
	// Door is empty for a wall, or "closed" / "open".
	Door string `yaml:"door,omitempty"`
}

// LoadSceneFromFile reads and validates a scene YAML file.
//
// Precondition: path must point to a valid YAML scene file.
// Postcondition: Returns a validated Scene or a non-nil error.
func LoadSceneFromFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene file %s: %w", path, err)
	}
	return LoadSceneFromBytes(data)
}

// LoadSceneFromBytes parses and validates a scene from YAML bytes. Missing
// wall, segment and fog shape IDs are minted.
//
// Postcondition: Returns a validated Scene or a non-nil error.
func LoadSceneFromBytes(data []byte) (*Scene, error) {
	var file yamlSceneFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing scene YAML: %w", err)
	}
	s, err := convertYAMLScene(file.Scene)
	if err != nil {
		return nil, fmt.Errorf("converting scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validating scene: %w", err)
	}
	return s, nil
}

// Marshal renders s as scene YAML. Walls are written as explicit segment
// lists so IDs and door states survive a reload.
func Marshal(s *Scene) ([]byte, error) {
	ys := yamlScene{
		ID:     s.ID,
		Name:   s.Name,
		Width:  s.Width,
		Height: s.Height,
		Grid:   yamlGrid{Enabled: s.GridEnabled, GridSpec: s.Grid},
		Layers: s.Layers,
		Fog:    s.Fog,
		Rooms:  s.Rooms,
	}
	opacity := s.FogOpacity
	ys.FogOpacity = &opacity
	for _, w := range s.Walls {
		yw := yamlWall{ID: w.ID, Layer: w.Layer}
		for _, seg := range w.Segments {
			yw.Segments = append(yw.Segments, segmentToYAML(seg))
		}
		ys.Walls = append(ys.Walls, yw)
	}
	out, err := yaml.Marshal(yamlSceneFile{Scene: ys})
	if err != nil {
		return nil, fmt.Errorf("encoding scene %s: %w", s.ID, err)
	}
	return out, nil
}

// convertYAMLScene converts the parsed YAML structures into domain types.
func convertYAMLScene(ys yamlScene) (*Scene, error) {
	s := &Scene{
		ID:          ys.ID,
		Name:        ys.Name,
		Width:       ys.Width,
		Height:      ys.Height,
		Grid:        ys.Grid.GridSpec,
		GridEnabled: ys.Grid.Enabled,
		FogOpacity:  1,
		Layers:      ys.Layers,
		Rooms:       ys.Rooms,
	}
	if ys.FogOpacity != nil {
		s.FogOpacity = *ys.FogOpacity
	}
	for i, yw := range ys.Walls {
		w, err := convertYAMLWall(yw)
		if err != nil {
			return nil, fmt.Errorf("wall %d: %w", i, err)
		}
		s.Walls = append(s.Walls, w)
	}
	for _, sh := range ys.Fog {
		if sh.ID == "" {
			sh.ID = geom.NewID()
		}
		s.Fog = append(s.Fog, sh)
	}
	return s, nil
}

func convertYAMLWall(yw yamlWall) (geom.Wall, error) {
	w := geom.Wall{ID: yw.ID, Layer: yw.Layer}
	if w.ID == "" {
		w.ID = geom.NewID()
	}
	if len(yw.Points) > 0 && len(yw.Segments) > 0 {
		return geom.Wall{}, fmt.Errorf("points and segments are mutually exclusive")
	}
	if len(yw.Points) > 0 {
		pts := make([]geom.Point, len(yw.Points))
		for i, p := range yw.Points {
			q, err := point(p)
			if err != nil {
				return geom.Wall{}, fmt.Errorf("point %d: %w", i, err)
			}
			pts[i] = q
		}
		if len(pts) < 2 {
			return geom.Wall{}, fmt.Errorf("a polyline needs at least two points")
		}
		if yw.Closed {
			pts = append(pts, pts[0])
		}
		for i := 1; i < len(pts); i++ {
			w.Segments = append(w.Segments, geom.NewLine(pts[i-1], pts[i]))
		}
		return w, nil
	}
	for i, ys := range yw.Segments {
		seg, err := segmentFromYAML(ys)
		if err != nil {
			return geom.Wall{}, fmt.Errorf("segment %d: %w", i, err)
		}
		w.Segments = append(w.Segments, seg)
	}
	return w, nil
}

func segmentFromYAML(ys yamlSegment) (geom.WallSegment, error) {
	a, err := point(ys.From)
	if err != nil {
		return geom.WallSegment{}, fmt.Errorf("from: %w", err)
	}
	b, err := point(ys.To)
	if err != nil {
		return geom.WallSegment{}, fmt.Errorf("to: %w", err)
	}
	seg := geom.NewLine(a, b)
	if ys.ID != "" {
		seg.ID = ys.ID
	}
	if ys.CP1 != nil {
		c1, err := point(ys.CP1)
		if err != nil {
			return geom.WallSegment{}, fmt.Errorf("cp1: %w", err)
		}
		seg.CurveType, seg.CP1 = geom.Quadratic, &c1
	}
	if ys.CP2 != nil {
		c2, err := point(ys.CP2)
		if err != nil {
			return geom.WallSegment{}, fmt.Errorf("cp2: %w", err)
		}
		seg.CurveType, seg.CP2 = geom.Cubic, &c2
	}
	switch ys.Door {
	case "":
	case doorClosed:
		seg = seg.AsDoor()
	case doorOpen:
		seg = seg.AsDoor().WithDoorOpen(true)
	default:
		return geom.WallSegment{}, fmt.Errorf("door must be %q or %q, got %q", doorClosed, doorOpen, ys.Door)
	}
	return seg.Normalized(), nil
}

func segmentToYAML(seg geom.WallSegment) yamlSegment {
	ys := yamlSegment{
		ID:   seg.ID,
		From: []float64{seg.X1, seg.Y1},
		To:   []float64{seg.X2, seg.Y2},
	}
	switch seg.Kind() {
	case geom.Cubic:
		c1, c2 := seg.Controls()
		ys.CP1, ys.CP2 = []float64{c1.X, c1.Y}, []float64{c2.X, c2.Y}
	case geom.Quadratic:
		c1, _ := seg.Controls()
		ys.CP1 = []float64{c1.X, c1.Y}
	}
	if seg.IsDoor {
		ys.Door = doorClosed
		if seg.DoorOpen() {
			ys.Door = doorOpen
		}
	}
	return ys
}

func point(v []float64) (geom.Point, error) {
	if len(v) != 2 {
		return geom.Point{}, fmt.Errorf("expected [x, y], got %d values", len(v))
	}
	return geom.Pt(v[0], v[1]), nil
}
