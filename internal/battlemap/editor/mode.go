// Package editor routes pointer and keyboard events to the tool selected on
// a battlemap: wall drawing, door placement, selection and fog authoring.
package editor

import (
	"fmt"
	"strings"
)

// ToolMode is the active tool.
type ToolMode int

// Tool modes.
const (
	Select ToolMode = iota
	Polygon
	Rect
	Ellipse
	Door
	FogBrush
	FogRect
	FogEllipse
	FogPoly
	FogFill
)

var modeNames = []string{
	Select:     "select",
	Polygon:    "polygon",
	Rect:       "rect",
	Ellipse:    "ellipse",
	Door:       "door",
	FogBrush:   "fog-brush",
	FogRect:    "fog-rect",
	FogEllipse: "fog-ellipse",
	FogPoly:    "fog-poly",
	FogFill:    "fog-fill",
}

// String returns the mode's name.
func (m ToolMode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("ToolMode(%d)", int(m))
	}
	return modeNames[m]
}

// IsFog reports whether the mode edits the fog log.
func (m ToolMode) IsFog() bool { return m >= FogBrush && m <= FogFill }

// ParseToolMode parses a mode name as returned by String.
func ParseToolMode(s string) (ToolMode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(n, s) {
			return ToolMode(i), nil
		}
	}
	return Select, fmt.Errorf("unknown tool mode %q", s)
}
