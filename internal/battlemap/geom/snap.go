package geom

// Modifiers carries the keyboard modifier state relevant to snapping.
type Modifiers struct {
	// InvertGrid flips whether grid snapping applies for this event.
	InvertGrid bool
	// NoSnap disables endpoint and grid snapping entirely.
	NoSnap bool
}

// Snapper resolves pointer positions against existing endpoints and the grid.
type Snapper struct {
	// EndpointThreshold is the magnetic radius for endpoint snapping.
	EndpointThreshold float64
	// Grid is the map grid.
	Grid GridSpec
	// GridEnabled turns grid snapping on by default.
	GridEnabled bool
}

// Snap applies endpoint snapping first and grid snapping second.
//
// Postcondition: returns p unchanged when mods.NoSnap is set.
func (s Snapper) Snap(p Point, walls []Wall, mods Modifiers) Point {
	if mods.NoSnap {
		return p
	}
	if s.EndpointThreshold > 0 {
		if q, ok := FindNearbyEndpoint(p, walls, s.EndpointThreshold); ok {
			return q
		}
	}
	if s.GridEnabled != mods.InvertGrid {
		return GridSnap(p, s.Grid)
	}
	return p
}
