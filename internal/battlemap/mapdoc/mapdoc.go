// Package mapdoc is the read/write discipline for one battlemap file stored in
// a replicated document. Every structural change resolves its target record by
// ID and replaces the whole record at the same index inside one transaction;
// records are never mutated in place.
package mapdoc

import (
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/battlemap/internal/battlemap/fog"
	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
	"github.com/cory-johannsen/battlemap/internal/replica"
)

// ErrRecordNotFound is returned when a write targets an ID that no longer
// exists.
var ErrRecordNotFound = errors.New("record not found")

// Settings keys.
const (
	keyOpacity     = "fogOpacity"
	keyGrid        = "grid"
	keyGridEnabled = "gridEnabled"
	keyActiveLayer = "activeLayer"
)

// Containers names the per-file containers of a map.
type Containers struct {
	Walls    string
	Fog      string
	Rooms    string
	Settings string
}

// ContainersFor returns the container names for fileID.
func ContainersFor(fileID string) Containers {
	return Containers{
		Walls:    "walls:" + fileID,
		Fog:      "fog:" + fileID,
		Rooms:    "fogrooms:" + fileID,
		Settings: "settings:" + fileID,
	}
}

// Map is a view over one file's walls, fog log, rooms and settings.
type Map struct {
	doc      *replica.Doc
	fileID   string
	logger   *zap.Logger
	walls    *replica.Sequence[geom.Wall]
	shapes   *replica.Sequence[fog.Shape]
	rooms    *replica.Sequence[fog.Room]
	settings *replica.Map
}

// New returns the Map for fileID within doc.
//
// Precondition: doc must be non-nil and fileID non-empty.
func New(doc *replica.Doc, fileID string, logger *zap.Logger) *Map {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := ContainersFor(fileID)
	return &Map{
		doc:      doc,
		fileID:   fileID,
		logger:   logger.With(zap.String("file", fileID)),
		walls:    replica.NewSequence[geom.Wall](doc, c.Walls),
		shapes:   replica.NewSequence[fog.Shape](doc, c.Fog),
		rooms:    replica.NewSequence[fog.Room](doc, c.Rooms),
		settings: replica.NewMap(doc, c.Settings),
	}
}

// FileID returns the file the map addresses.
func (m *Map) FileID() string { return m.fileID }

// Doc returns the underlying document.
func (m *Map) Doc() *replica.Doc { return m.doc }

// OnWallsChanged registers fn for any change to the wall sequence.
func (m *Map) OnWallsChanged(fn func()) (cancel func()) { return m.walls.Observe(fn) }

// OnFogChanged registers fn for any change to the fog log or rooms.
func (m *Map) OnFogChanged(fn func()) (cancel func()) {
	a := m.shapes.Observe(fn)
	b := m.rooms.Observe(fn)
	return func() { a(); b() }
}

// OnSettingsChanged registers fn for any change to the settings map.
func (m *Map) OnSettingsChanged(fn func()) (cancel func()) { return m.settings.Observe(fn) }

// transact runs fn in a document transaction and reports whether fn
// succeeded. A failing fn leaves no trace: the ops it recorded are rolled
// back and nothing is replicated.
func (m *Map) transact(op string, fn func(tx *replica.Txn) error) bool {
	if _, err := m.doc.TryTransact(fn); err != nil {
		m.logger.Debug("write not applied", zap.String("op", op), zap.Error(err))
		return false
	}
	return true
}
