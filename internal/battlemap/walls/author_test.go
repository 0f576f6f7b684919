package walls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
	"github.com/cory-johannsen/battlemap/internal/battlemap/layer"
	"github.com/cory-johannsen/battlemap/internal/battlemap/mapdoc"
	"github.com/cory-johannsen/battlemap/internal/replica"
)

var none geom.Modifiers

func newAuthor(t *testing.T, layers layer.Registry) (*Author, *mapdoc.Map) {
	t.Helper()
	m := mapdoc.New(replica.NewDoc("doc", "c"), "f", zaptest.NewLogger(t))
	return NewAuthor(m, layers, DefaultOptions(), mapdoc.Settings{ActiveLayer: "walls"}, zaptest.NewLogger(t)), m
}

func click(a *Author, x, y float64) {
	a.PolygonDown(geom.Pt(x, y), none)
	a.PolygonUp(geom.Pt(x, y), none)
}

func TestPolygon_EnterCommitsLinearSegments(t *testing.T) {
	a, m := newAuthor(t, nil)
	click(a, 0, 0)
	click(a, 200, 0)
	click(a, 200, 200)
	assert.Equal(t, DrawingPolygon, a.Session.Kind)

	w, ok := a.Key("Enter")
	require.True(t, ok)
	assert.False(t, a.Session.Active())
	require.Len(t, w.Segments, 2)
	assert.Equal(t, "walls", w.Layer)
	for _, s := range w.Segments {
		assert.Equal(t, geom.Linear, s.Kind())
		assert.False(t, s.IsDoor)
		assert.False(t, s.AllowsMovement)
	}
	assert.Len(t, m.Walls(), 1)
}

func TestPolygon_DragSetsMirroredHandles(t *testing.T) {
	a, _ := newAuthor(t, nil)
	click(a, 0, 0)
	a.PolygonDown(geom.Pt(200, 0), none)
	a.PolygonMove(geom.Pt(200, 2), none)
	assert.Nil(t, a.Session.Nodes[1].Out, "movement under the drag threshold sets no handles")
	a.PolygonMove(geom.Pt(230, 40), none)
	a.PolygonUp(geom.Pt(230, 40), none)

	n := a.Session.Nodes[1]
	require.NotNil(t, n.Out)
	require.NotNil(t, n.In)
	assert.Equal(t, geom.Pt(230, 40), *n.Out)
	assert.Equal(t, geom.Pt(170, -40), *n.In)

	w, ok := a.Key("Escape")
	require.True(t, ok)
	require.Len(t, w.Segments, 1)
	s := w.Segments[0]
	assert.Equal(t, geom.Cubic, s.Kind())
	require.NotNil(t, s.CP2)
	assert.Equal(t, geom.Pt(170, -40), *s.CP2)
	assert.Equal(t, geom.Pt(0, 0), *s.CP1)
}

func TestPolygon_DoubleClickTrimsDuplicateNode(t *testing.T) {
	a, _ := newAuthor(t, nil)
	click(a, 0, 0)
	click(a, 200, 200)
	click(a, 200, 201)
	w, ok := a.PolygonDoubleClick()
	require.True(t, ok)
	assert.Len(t, w.Segments, 1)
}

func TestPolygon_SingleNodeDiscarded(t *testing.T) {
	a, m := newAuthor(t, nil)
	click(a, 10, 10)
	_, ok := a.Key("Enter")
	assert.False(t, ok)
	assert.Empty(t, m.Walls())
	assert.False(t, a.Session.Active())
}

func TestShapes_RectEllipseAndMinimumSize(t *testing.T) {
	a, m := newAuthor(t, nil)

	a.ShapeDown(DrawingRect, geom.Pt(0, 0), none)
	_, ok := a.ShapeUp(geom.Pt(100, 4), none)
	assert.False(t, ok)

	a.ShapeDown(DrawingRect, geom.Pt(100, 100), none)
	a.ShapeMove(geom.Pt(50, 60), none)
	assert.Len(t, a.Session.PreviewSegments(16), 4)
	w, ok := a.ShapeUp(geom.Pt(0, 0), none)
	require.True(t, ok)
	require.Len(t, w.Segments, 4)
	assert.Equal(t, geom.Pt(0, 0), w.Segments[0].Start())

	a.ShapeDown(DrawingEllipse, geom.Pt(200, 200), none)
	w, ok = a.ShapeUp(geom.Pt(300, 260), none)
	require.True(t, ok)
	assert.Len(t, w.Segments, geom.DefaultEllipseSegments)
	assert.Len(t, m.Walls(), 2)
}

func addLine(t *testing.T, m *mapdoc.Map, a, b geom.Point) geom.Wall {
	t.Helper()
	w, ok := m.AddWall(geom.Wall{Layer: "walls", Segments: []geom.WallSegment{geom.NewLine(a, b)}})
	require.True(t, ok)
	return w
}

func TestDoorClick_SplitsLongSegment(t *testing.T) {
	a, m := newAuthor(t, nil)
	w := addLine(t, m, geom.Pt(0, 0), geom.Pt(200, 0))

	require.True(t, a.DoorClick(geom.Pt(100, 5)))
	got, ok := m.Wall(w.ID)
	require.True(t, ok)
	require.Len(t, got.Segments, 3)

	var total float64
	for _, s := range got.Segments {
		total += geom.Length(s)
		assert.InDelta(t, 0, s.Y1, 1e-9)
		assert.InDelta(t, 0, s.Y2, 1e-9)
	}
	assert.InDelta(t, 200, total, 1e-6)
	assert.InDelta(t, 50, geom.Length(got.Segments[1]), 1e-6)
	assert.True(t, got.Segments[1].IsDoor)
	assert.True(t, got.Segments[1].AllowsMovement)
	assert.False(t, got.Segments[1].DoorOpen())
	assert.False(t, got.Segments[0].IsDoor)
	assert.False(t, got.Segments[2].IsDoor)
	assert.InDelta(t, 75, got.Segments[1].X1, 1e-6)
	assert.InDelta(t, 125, got.Segments[1].X2, 1e-6)
}

func TestDoorClick_RejectsNearEnd(t *testing.T) {
	a, m := newAuthor(t, nil)
	w := addLine(t, m, geom.Pt(0, 0), geom.Pt(200, 0))
	assert.False(t, a.DoorClick(geom.Pt(20, 0)))
	assert.False(t, a.DoorClick(geom.Pt(190, 0)))
	got, _ := m.Wall(w.ID)
	assert.Len(t, got.Segments, 1)
	assert.False(t, got.Segments[0].IsDoor)
}

func TestDoorClick_TogglesShortSegmentInPlace(t *testing.T) {
	a, m := newAuthor(t, nil)
	w := addLine(t, m, geom.Pt(0, 0), geom.Pt(60, 0))
	require.True(t, a.DoorClick(geom.Pt(30, 0)))
	got, _ := m.Wall(w.ID)
	require.Len(t, got.Segments, 1)
	assert.Equal(t, w.Segments[0].ID, got.Segments[0].ID)
	assert.True(t, got.Segments[0].IsDoor)

	require.True(t, a.SetDoorOpen(got.Segments[0].ID, true))
	got, _ = m.Wall(w.ID)
	assert.True(t, got.Segments[0].DoorOpen())

	require.True(t, a.DoorClick(geom.Pt(30, 0)))
	got, _ = m.Wall(w.ID)
	assert.False(t, got.Segments[0].IsDoor)
	assert.False(t, got.Segments[0].AllowsVision)
	assert.False(t, a.SetDoorOpen(got.Segments[0].ID, true))
}

func TestDoorClick_MissesReturnFalse(t *testing.T) {
	a, m := newAuthor(t, nil)
	addLine(t, m, geom.Pt(0, 0), geom.Pt(200, 0))
	assert.False(t, a.DoorClick(geom.Pt(100, 50)))
}

func TestAutocompleteDoor_OnExistingSegment(t *testing.T) {
	a, m := newAuthor(t, nil)
	w := addLine(t, m, geom.Pt(0, 0), geom.Pt(300, 0))

	click(a, 100, 1)
	a.PolygonDown(geom.Pt(160, 0), none)
	require.True(t, a.PolygonUp(geom.Pt(160, 0), none))
	assert.False(t, a.Session.Active())

	walls := m.Walls()
	require.Len(t, walls, 1, "no overlapping wall is created")
	got := walls[0]
	assert.Equal(t, w.ID, got.ID)
	require.Len(t, got.Segments, 3)
	assert.True(t, got.Segments[1].IsDoor)
	assert.InDelta(t, 100, got.Segments[1].X1, 1e-6)
	assert.InDelta(t, 160, got.Segments[1].X2, 1e-6)
}

func TestAutocompleteDoor_IgnoresLongOrOffsetStrokes(t *testing.T) {
	a, m := newAuthor(t, nil)
	addLine(t, m, geom.Pt(0, 0), geom.Pt(300, 0))

	click(a, 50, 0)
	a.PolygonDown(geom.Pt(250, 0), none)
	assert.False(t, a.PolygonUp(geom.Pt(250, 0), none))
	a.Cancel()

	click(a, 100, 30)
	a.PolygonDown(geom.Pt(160, 30), none)
	assert.False(t, a.PolygonUp(geom.Pt(160, 30), none))
	assert.True(t, a.Session.Active())
}

func TestLockedLayerRefusesEdits(t *testing.T) {
	reg := layer.NewStatic(layer.Layer{ID: "walls", Locked: true, Visible: true})
	a, m := newAuthor(t, reg)
	a.ShapeDown(DrawingRect, geom.Pt(0, 0), none)
	_, ok := a.ShapeUp(geom.Pt(100, 100), none)
	assert.False(t, ok)
	assert.Empty(t, m.Walls())

	addLine(t, m, geom.Pt(0, 0), geom.Pt(200, 0))
	assert.False(t, a.DoorClick(geom.Pt(100, 0)))
}

func TestDoorClick_LockedWallDoesNotShadowEditableWall(t *testing.T) {
	reg := layer.NewStatic(
		layer.Layer{ID: "walls", Visible: true},
		layer.Layer{ID: "gm", Visible: true, Locked: true},
	)
	a, m := newAuthor(t, reg)
	editable := addLine(t, m, geom.Pt(0, 0), geom.Pt(200, 0))
	locked, ok := m.AddWall(geom.Wall{Layer: "gm", Segments: []geom.WallSegment{geom.NewLine(geom.Pt(0, 8), geom.Pt(200, 8))}})
	require.True(t, ok)

	require.True(t, a.DoorClick(geom.Pt(100, 6)))
	got, _ := m.Wall(editable.ID)
	require.Len(t, got.Segments, 3)
	assert.True(t, got.Segments[1].IsDoor)
	untouched, _ := m.Wall(locked.ID)
	assert.Equal(t, locked.Segments, untouched.Segments)
}

func TestSnap_EndpointBeforeGrid(t *testing.T) {
	a, m := newAuthor(t, nil)
	addLine(t, m, geom.Pt(0, 0), geom.Pt(103, 0))
	require.True(t, m.SetGrid(geom.GridSpec{Type: geom.GridSquare, CellSize: 50}, true))

	assert.Equal(t, geom.Pt(103, 0), a.Snap(geom.Pt(110, 4), none))
	assert.Equal(t, geom.Pt(150, 50), a.Snap(geom.Pt(140, 60), none))
	assert.Equal(t, geom.Pt(140, 60), a.Snap(geom.Pt(140, 60), geom.Modifiers{InvertGrid: true}))
	assert.Equal(t, geom.Pt(110, 4), a.Snap(geom.Pt(110, 4), geom.Modifiers{NoSnap: true}))
}

func TestPropertySplitForDoorPreservesLength(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		l := rapid.Float64Range(80, 1000).Draw(rt, "len")
		width := rapid.Float64Range(10, 60).Draw(rt, "width")
		seg := geom.NewLine(geom.Pt(0, 0), geom.Pt(l, 0))
		tt := rapid.Float64Range(0, 1).Draw(rt, "t")

		pieces, ok := SplitForDoor(seg, tt, width)
		at := tt * l
		if at < width/2 || at > l-width/2 {
			assert.False(rt, ok)
			return
		}
		require.True(rt, ok)
		var total float64
		doors := 0
		for i, p := range pieces {
			total += geom.Length(p)
			if p.IsDoor {
				doors++
				assert.InDelta(rt, width, geom.Length(p), 1e-6)
			}
			if i > 0 {
				assert.True(rt, pieces[i-1].End().Near(p.Start(), 1e-6))
			}
		}
		assert.Equal(rt, 1, doors)
		assert.InDelta(rt, l, total, 1e-6)
	})
}
