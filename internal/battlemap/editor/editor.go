package editor

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/battlemap/internal/battlemap/fog"
	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
	"github.com/cory-johannsen/battlemap/internal/battlemap/layer"
	"github.com/cory-johannsen/battlemap/internal/battlemap/mapdoc"
	"github.com/cory-johannsen/battlemap/internal/battlemap/selection"
	"github.com/cory-johannsen/battlemap/internal/battlemap/walls"
)

// Event is a pointer event in map coordinates.
type Event struct {
	P    geom.Point
	Mods geom.Modifiers
	// Additive is the extend-selection modifier, usually Shift. Only the
	// select tool reads it.
	Additive bool
}

// handler is implemented once per tool mode.
type handler interface {
	down(Event)
	move(Event)
	up(Event)
	doubleClick(Event)
	key(string)
	cancel()
}

// Options configures every tool.
type Options struct {
	Walls     walls.Options
	Selection selection.Options
	Fog       fog.Options
	Defaults  mapdoc.Settings
}

// Editor owns the tools for one open map and dispatches events to the one
// selected. It is driven from a single goroutine.
type Editor struct {
	Map       *mapdoc.Map
	Walls     *walls.Author
	Selection *selection.Engine
	Fog       *fog.Engine

	layers   layer.Registry
	defaults mapdoc.Settings
	logger   *zap.Logger
	mode     ToolMode
	fogOp    fog.Operation
	handlers map[ToolMode]handler
}

// New wires the tools for m.
//
// Precondition: m must be non-nil; layers may be nil.
// Postcondition: the editor is in Select mode and fog tools reveal.
func New(m *mapdoc.Map, layers layer.Registry, opts Options, logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	author := walls.NewAuthor(m, layers, opts.Walls, opts.Defaults, logger.Named("walls"))
	e := &Editor{
		Map:       m,
		Walls:     author,
		Selection: selection.New(m, layers, author.Snap, opts.Selection, logger.Named("selection")),
		Fog:       fog.NewEngine(m, opts.Fog, logger.Named("fog")),
		layers:    layers,
		defaults:  opts.Defaults,
		logger:    logger,
		mode:      Select,
		fogOp:     fog.Subtract,
	}
	e.handlers = map[ToolMode]handler{
		Select:     &selectTool{e},
		Polygon:    &polygonTool{e},
		Rect:       &shapeTool{e, walls.DrawingRect},
		Ellipse:    &shapeTool{e, walls.DrawingEllipse},
		Door:       &doorTool{e},
		FogBrush:   &fogBrushTool{e: e},
		FogRect:    &fogBoxTool{e: e},
		FogEllipse: &fogBoxTool{e: e, ellipse: true},
		FogPoly:    &fogPolyTool{e: e},
		FogFill:    &fogFillTool{e},
	}
	return e
}

// Mode returns the active tool.
func (e *Editor) Mode() ToolMode { return e.mode }

// SetMode switches tools, abandoning any gesture in progress.
func (e *Editor) SetMode(m ToolMode) {
	if m == e.mode {
		return
	}
	e.handlers[e.mode].cancel()
	e.logger.Debug("tool changed", zap.Stringer("from", e.mode), zap.Stringer("to", m))
	e.mode = m
}

// FogOperation returns the operation fog tools commit.
func (e *Editor) FogOperation() fog.Operation { return e.fogOp }

// SetFogOperation chooses whether fog tools hide (Add) or reveal (Subtract).
func (e *Editor) SetFogOperation(op fog.Operation) { e.fogOp = op }

// PointerDown dispatches a press.
func (e *Editor) PointerDown(ev Event) { e.handlers[e.mode].down(ev) }

// PointerMove dispatches a move.
func (e *Editor) PointerMove(ev Event) { e.handlers[e.mode].move(ev) }

// PointerUp dispatches a release.
func (e *Editor) PointerUp(ev Event) { e.handlers[e.mode].up(ev) }

// DoubleClick dispatches a double click.
func (e *Editor) DoubleClick(ev Event) { e.handlers[e.mode].doubleClick(ev) }

// Key dispatches a key press by name, e.g. "Enter", "Escape", "Delete".
func (e *Editor) Key(k string) { e.handlers[e.mode].key(k) }

// Mask replays the fog log.
func (e *Editor) Mask() *fog.Mask { return e.Fog.Mask() }

// fogEditable reports whether the active layer accepts fog edits.
func (e *Editor) fogEditable() bool {
	id := e.Map.Settings(e.defaults).ActiveLayer
	if err := layer.CanEdit(e.layers, id); err != nil {
		e.logger.Debug("fog edit refused", zap.String("layer", id), zap.Error(err))
		return false
	}
	return true
}
