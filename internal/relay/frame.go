package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/battlemap/internal/replica"
)

// FrameType tags a relay frame.
type FrameType string

// Frame types. A connection opens with join; afterwards both directions
// carry update frames, and the relay may answer with error frames.
const (
	FrameJoin   FrameType = "join"
	FrameUpdate FrameType = "update"
	FrameError  FrameType = "error"
)

var errBadFrame = errors.New("bad frame")

// Frame is the message exchanged on both the gRPC stream and the WebSocket
// gateway.
type Frame struct {
	Type    FrameType       `json:"type"`
	Doc     string          `json:"doc,omitempty"`
	Since   uint64          `json:"since,omitempty"`
	Update  *replica.Update `json:"update,omitempty"`
	Message string          `json:"message,omitempty"`
}

func updateFrame(u replica.Update) Frame { return Frame{Type: FrameUpdate, Update: &u} }

func errorFrame(err error) Frame { return Frame{Type: FrameError, Message: err.Error()} }

// toStruct encodes f as a protobuf Struct. Numbers travel as doubles, so
// sequence numbers and clocks are exact below 2^53.
func toStruct(f Frame) (*structpb.Struct, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encoding %s frame: %w", f.Type, err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encoding %s frame: %w", f.Type, err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s frame: %w", f.Type, err)
	}
	return s, nil
}

func fromStruct(s *structpb.Struct) (Frame, error) {
	raw, err := s.MarshalJSON()
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", errBadFrame, err)
	}
	return decodeFrame(raw)
}

// decodeFrame parses a JSON frame. Malformed frames wrap errBadFrame.
func decodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", errBadFrame, err)
	}
	switch f.Type {
	case FrameJoin, FrameError:
	case FrameUpdate:
		if f.Update == nil {
			return Frame{}, fmt.Errorf("%w: update frame without update", errBadFrame)
		}
	default:
		return Frame{}, fmt.Errorf("%w: unknown type %q", errBadFrame, f.Type)
	}
	return f, nil
}
