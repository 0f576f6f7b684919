package selection

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

var none Modifiers

func newEngine(t *testing.T, layers layer.Registry) (*Engine, *mapdoc.Map) {
	t.Helper()
	m := mapdoc.New(replica.NewDoc("doc", "c"), "f", zaptest.NewLogger(t))
	return New(m, layers, nil, DefaultOptions(), zaptest.NewLogger(t)), m
}

func addWall(t *testing.T, m *mapdoc.Map, layerID string, segs ...geom.WallSegment) geom.Wall {
	t.Helper()
	w, ok := m.AddWall(geom.Wall{Layer: layerID, Segments: segs})
	require.True(t, ok)
	return w
}

func line(x1, y1, x2, y2 float64) geom.WallSegment {
	return geom.NewLine(geom.Pt(x1, y1), geom.Pt(x2, y2))
}

func TestClickSelectsAndShiftAdds(t *testing.T) {
	e, m := newEngine(t, nil)
	w := addWall(t, m, "", line(0, 0, 100, 0), line(100, 0, 100, 100))

	e.PointerDown(geom.Pt(50, 5), none)
	e.PointerUp(geom.Pt(50, 5), none)
	assert.Equal(t, []string{w.Segments[0].ID}, e.Selected())

	e.PointerDown(geom.Pt(105, 50), Modifiers{Additive: true})
	e.PointerUp(geom.Pt(105, 50), none)
	assert.Len(t, e.Selected(), 2)

	e.PointerDown(geom.Pt(500, 500), none)
	e.PointerUp(geom.Pt(500, 500), none)
	assert.Empty(t, e.Selected())
}

func TestGroupMove_UsesSnapshotAndCommitsOnce(t *testing.T) {
	e, m := newEngine(t, nil)
	a := addWall(t, m, "", line(0, 0, 100, 0))
	b := addWall(t, m, "", line(0, 50, 100, 50))
	e.Select(a.Segments[0].ID, b.Segments[0].ID)

	writes := 0
	m.OnWallsChanged(func() { writes++ })

	e.PointerDown(geom.Pt(50, 0), none)
	for i := 1; i <= 10; i++ {
		e.PointerMove(geom.Pt(50+float64(i), float64(i)), none)
	}
	assert.Equal(t, 0, writes, "drags are not written until release")
	assert.Equal(t, 2, e.PointerUp(geom.Pt(60, 10), none))
	assert.Equal(t, 1, writes)

	got, _ := m.Wall(a.ID)
	assert.Equal(t, geom.Pt(10, 10), got.Segments[0].Start())
	got, _ = m.Wall(b.ID)
	assert.Equal(t, geom.Pt(110, 60), got.Segments[0].End())
}

func TestHandleDrag_RewritesOneField(t *testing.T) {
	e, m := newEngine(t, nil)
	w := addWall(t, m, "", geom.NewCubic(geom.Pt(0, 0), geom.Pt(30, 40), geom.Pt(70, 40), geom.Pt(100, 0)))
	e.Select(w.Segments[0].ID)
	require.Len(t, e.Handles(), 4)

	e.PointerDown(geom.Pt(31, 41), none)
	e.PointerMove(geom.Pt(30, 80), none)
	require.Equal(t, 1, e.PointerUp(geom.Pt(30, 80), none))

	got, _ := m.Wall(w.ID)
	s := got.Segments[0]
	assert.Equal(t, geom.Pt(30, 80), *s.CP1)
	assert.Equal(t, geom.Pt(70, 40), *s.CP2)
	assert.Equal(t, geom.Pt(0, 0), s.Start())
	assert.Equal(t, geom.Pt(100, 0), s.End())
}

func TestHandles_ScaleWithZoom(t *testing.T) {
	e, m := newEngine(t, nil)
	w := addWall(t, m, "", line(0, 0, 100, 0))
	e.Select(w.Segments[0].ID)
	_, ok := e.HandleAt(geom.Pt(8, 0))
	assert.True(t, ok)
	e.Zoom = 2
	_, ok = e.HandleAt(geom.Pt(8, 0))
	assert.False(t, ok)

	e.Select(w.Segments[0].ID, "other")
	assert.Nil(t, e.Handles())
}

func TestBoxSelect_IncludesControlPoints(t *testing.T) {
	e, m := newEngine(t, nil)
	curve := geom.NewCubic(geom.Pt(0, 0), geom.Pt(0, 200), geom.Pt(100, 200), geom.Pt(100, 0))
	w := addWall(t, m, "", curve, line(300, 300, 400, 300))

	e.PointerDown(geom.Pt(40, 190), none)
	e.PointerMove(geom.Pt(60, 250), none)
	r, ok := e.Marquee()
	require.True(t, ok)
	assert.Equal(t, 20.0, r.Width())
	assert.Equal(t, 1, e.PointerUp(geom.Pt(60, 250), none))
	assert.Equal(t, []string{w.Segments[0].ID}, e.Selected())

	e.PointerDown(geom.Pt(250, 250), none)
	e.PointerUp(geom.Pt(410, 310), Modifiers{Additive: true})
	assert.Equal(t, []string{w.Segments[1].ID}, e.Selected(), "additive is taken from the press")
}

func TestMerge_AdjacentCoincidentSegments(t *testing.T) {
	e, m := newEngine(t, nil)
	first := line(0, 0, 50, 0).AsDoor()
	w := addWall(t, m, "", first, line(50.05, 0, 100, 0), line(100, 0, 100, 100))

	e.Select(w.Segments[0].ID, w.Segments[2].ID)
	assert.False(t, e.Merge(), "non-adjacent")

	e.Select(w.Segments[1].ID, w.Segments[0].ID)
	require.True(t, e.Merge())
	got, _ := m.Wall(w.ID)
	require.Len(t, got.Segments, 2)
	assert.Equal(t, geom.Pt(0, 0), got.Segments[0].Start())
	assert.Equal(t, geom.Pt(100, 0), got.Segments[0].End())
	assert.True(t, got.Segments[0].IsDoor, "flags come from the first segment")
	assert.Equal(t, []string{got.Segments[0].ID}, e.Selected())
}

func TestMerge_RejectsGap(t *testing.T) {
	e, m := newEngine(t, nil)
	w := addWall(t, m, "", line(0, 0, 50, 0), line(51, 0, 100, 0))
	e.Select(w.Segments[0].ID, w.Segments[1].ID)
	assert.False(t, e.Merge())
}

func TestPropertySplitThenMergeRestoresEndpoints(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		x1 := rapid.Float64Range(-500, 500).Draw(rt, "x1")
		y1 := rapid.Float64Range(-500, 500).Draw(rt, "y1")
		x2 := rapid.Float64Range(-500, 500).Draw(rt, "x2")
		y2 := rapid.Float64Range(-500, 500).Draw(rt, "y2")
		tt := rapid.Float64Range(0.01, 0.99).Draw(rt, "t")
		s := line(x1, y1, x2, y2)
		a, b := geom.SplitSegment(s, tt)

		m := mapdoc.New(replica.NewDoc("doc", "c"), "f", nil)
		e := New(m, nil, nil, DefaultOptions(), nil)
		w, ok := m.AddWall(geom.Wall{Segments: []geom.WallSegment{a, b}})
		require.True(rt, ok)
		e.Select(a.ID, b.ID)
		require.True(rt, e.Merge())

		got, _ := m.Wall(w.ID)
		require.Len(rt, got.Segments, 1)
		assert.True(rt, got.Segments[0].Start().Near(s.Start(), 1e-9))
		assert.True(rt, got.Segments[0].End().Near(s.End(), 1e-9))
	})
}

func TestDelete_RemovesEmptyWall(t *testing.T) {
	e, m := newEngine(t, nil)
	w := addWall(t, m, "", line(0, 0, 50, 0), line(50, 0, 100, 0))
	e.Select(w.Segments[0].ID)
	assert.Equal(t, 1, e.Delete())
	assert.Empty(t, e.Selected())
	got, _ := m.Wall(w.ID)
	require.Len(t, got.Segments, 1)

	e.Select(got.Segments[0].ID)
	assert.Equal(t, 1, e.Delete())
	assert.Empty(t, m.Walls())
}

func TestCurveConversion(t *testing.T) {
	e, m := newEngine(t, nil)
	w := addWall(t, m, "", line(0, 0, 90, 0))
	e.Select(w.Segments[0].ID)
	require.Equal(t, 1, e.ToCubic())
	got, _ := m.Wall(w.ID)
	s := got.Segments[0]
	assert.Equal(t, geom.Cubic, s.Kind())
	assert.InDelta(t, 30, s.CP1.X, 1e-9)
	assert.InDelta(t, 60, s.CP2.X, 1e-9)
	assert.Equal(t, 0, e.ToCubic())

	require.Equal(t, 1, e.ToLinear())
	got, _ = m.Wall(w.ID)
	assert.Equal(t, geom.Linear, got.Segments[0].Kind())
	assert.Nil(t, got.Segments[0].CP1)
}

func TestSelectWallAndToggleDoor(t *testing.T) {
	e, m := newEngine(t, nil)
	w := addWall(t, m, "", geom.GenerateRectSegments(0, 0, 100, 100)...)
	require.True(t, e.SelectWall(geom.Pt(50, 2), none))
	assert.Len(t, e.Selected(), 4)

	assert.Equal(t, 4, e.ToggleDoor())
	assert.Equal(t, 4, e.SetDoorOpen(true))
	assert.Equal(t, 0, e.SetDoorOpen(true))
	got, _ := m.Wall(w.ID)
	for _, s := range got.Segments {
		assert.True(t, s.DoorOpen())
	}
}

func TestLockedLayersAreNotSelectable(t *testing.T) {
	reg := layer.NewStatic(layer.Layer{ID: "locked", Locked: true, Visible: true})
	e, m := newEngine(t, reg)
	addWall(t, m, "locked", line(0, 0, 100, 0))
	_, ok := e.HitTest(geom.Pt(50, 0))
	assert.False(t, ok)
	assert.Equal(t, 0, e.BoxSelect(geom.RectFromPoints(geom.Pt(-10, -10), geom.Pt(200, 10)), false))
}

func TestPrune_DropsRemotelyDeletedIDs(t *testing.T) {
	e, m := newEngine(t, nil)
	w := addWall(t, m, "", line(0, 0, 100, 0))
	e.Select(w.Segments[0].ID)
	require.True(t, m.DeleteWall(w.ID))
	e.Prune()
	assert.Empty(t, e.Selected())
}
