package editor

import (
	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
	"github.com/cory-johannsen/battlemap/internal/battlemap/selection"
	"github.com/cory-johannsen/battlemap/internal/battlemap/walls"
)

type selectTool struct{ e *Editor }

func selectionMods(ev Event) selection.Modifiers {
	return selection.Modifiers{Modifiers: ev.Mods, Additive: ev.Additive}
}

func (t *selectTool) down(ev Event) { t.e.Selection.PointerDown(ev.P, selectionMods(ev)) }
func (t *selectTool) move(ev Event) { t.e.Selection.PointerMove(ev.P, selectionMods(ev)) }
func (t *selectTool) up(ev Event) { t.e.Selection.PointerUp(ev.P, selectionMods(ev)) }
func (t *selectTool) doubleClick(ev Event) { t.e.Selection.SelectWall(ev.P, selectionMods(ev)) }
func (t *selectTool) cancel() { t.e.Selection.CancelDrag() }

func (t *selectTool) key(k string) {
	switch k {
	case "Delete", "Backspace":
		t.e.Selection.Delete()
	case "Escape":
		t.e.Selection.CancelDrag()
		t.e.Selection.Clear()
	}
}

type polygonTool struct{ e *Editor }

func (t *polygonTool) down(ev Event) { t.e.Walls.PolygonDown(ev.P, ev.Mods) }
func (t *polygonTool) move(ev Event) { t.e.Walls.PolygonMove(ev.P, ev.Mods) }
func (t *polygonTool) up(ev Event) { t.e.Walls.PolygonUp(ev.P, ev.Mods) }
func (t *polygonTool) doubleClick(Event) { t.e.Walls.PolygonDoubleClick() }
func (t *polygonTool) key(k string) { t.e.Walls.Key(k) }
func (t *polygonTool) cancel() { t.e.Walls.Cancel() }

type shapeTool struct {
	e    *Editor
	kind walls.SessionKind
}

func (t *shapeTool) down(ev Event) { t.e.Walls.ShapeDown(t.kind, ev.P, ev.Mods) }
func (t *shapeTool) move(ev Event) { t.e.Walls.ShapeMove(ev.P, ev.Mods) }
func (t *shapeTool) up(ev Event) { t.e.Walls.ShapeUp(ev.P, ev.Mods) }
func (t *shapeTool) doubleClick(Event) {}
func (t *shapeTool) key(k string) { t.e.Walls.Key(k) }
func (t *shapeTool) cancel() { t.e.Walls.Cancel() }

type doorTool struct{ e *Editor }

func (t *doorTool) down(Event) {}
func (t *doorTool) move(Event) {}
func (t *doorTool) up(ev Event) { t.e.Walls.DoorClick(ev.P) }
func (t *doorTool) doubleClick(Event) {}
func (t *doorTool) key(string) {}
func (t *doorTool) cancel() {}

// fogBrushTool collects a stroke while the button is held.
type fogBrushTool struct {
	e      *Editor
	points []geom.Point
	active bool
}

func (t *fogBrushTool) down(ev Event) {
	t.points, t.active = []geom.Point{ev.P}, true
}

func (t *fogBrushTool) move(ev Event) {
	if t.active {
		t.points = append(t.points, ev.P)
	}
}

func (t *fogBrushTool) up(ev Event) {
	if !t.active {
		return
	}
	pts := append(t.points, ev.P)
	t.cancel()
	if t.e.fogEditable() {
		t.e.Fog.AddBrush(pts, 0, t.e.fogOp)
	}
}

func (t *fogBrushTool) doubleClick(Event) {}
func (t *fogBrushTool) key(string) {}
func (t *fogBrushTool) cancel() { t.points, t.active = nil, false }

// fogBoxTool drags out a rect or ellipse.
type fogBoxTool struct {
	e       *Editor
	ellipse bool
	anchor  *geom.Point
}

func (t *fogBoxTool) down(ev Event) {
	p := ev.P
	t.anchor = &p
}

func (t *fogBoxTool) move(Event) {}

func (t *fogBoxTool) up(ev Event) {
	if t.anchor == nil {
		return
	}
	r := geom.RectFromPoints(*t.anchor, ev.P)
	t.anchor = nil
	if !t.e.fogEditable() {
		return
	}
	if t.ellipse {
		t.e.Fog.AddEllipse(r, t.e.fogOp)
		return
	}
	t.e.Fog.AddRect(r, t.e.fogOp)
}

func (t *fogBoxTool) doubleClick(Event) {}
func (t *fogBoxTool) key(string) {}
func (t *fogBoxTool) cancel() { t.anchor = nil }

// fogPolyTool collects clicked vertices until Enter or a double click.
type fogPolyTool struct {
	e      *Editor
	points []geom.Point
}

func (t *fogPolyTool) down(ev Event) { t.points = append(t.points, ev.P) }
func (t *fogPolyTool) move(Event) {}
func (t *fogPolyTool) up(Event) {}

func (t *fogPolyTool) doubleClick(Event) {
	// The second press of the double click added a duplicate vertex.
	if n := len(t.points); n >= 2 && t.points[n-1].Near(t.points[n-2], 2) {
		t.points = t.points[:n-1]
	}
	t.commit()
}

func (t *fogPolyTool) key(k string) {
	switch k {
	case "Enter":
		t.commit()
	case "Escape":
		t.cancel()
	}
}

func (t *fogPolyTool) commit() {
	pts := t.points
	t.cancel()
	if len(pts) >= 3 && t.e.fogEditable() {
		t.e.Fog.AddPoly(pts, t.e.fogOp)
	}
}

func (t *fogPolyTool) cancel() { t.points = nil }

type fogFillTool struct{ e *Editor }

func (t *fogFillTool) down(Event) {}
func (t *fogFillTool) move(Event) {}

func (t *fogFillTool) up(ev Event) {
	if t.e.fogEditable() {
		t.e.Fog.RevealRoom(ev.P, t.e.Map.Walls())
	}
}

func (t *fogFillTool) doubleClick(Event) {}

func (t *fogFillTool) key(k string) {
	if k == "Escape" {
		t.e.Fog.EndRoom()
	}
}

func (t *fogFillTool) cancel() { t.e.Fog.EndRoom() }
