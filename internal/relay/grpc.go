package relay

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName = "battlemap.relay.v1.Relay"
	syncMethod  = "/" + serviceName + "/Sync"
)

// SyncServer is the server API of the Relay gRPC service.
type SyncServer interface {
	Sync(grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SyncServer)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    "Sync",
		Handler:       syncHandler,
		ServerStreams: true,
		ClientStreams: true,
	}},
	Metadata: "battlemap/relay/v1/relay.proto",
}

func syncHandler(srv any, stream grpc.ServerStream) error {
	return srv.(SyncServer).Sync(stream)
}

// RegisterGRPC exposes s on g as battlemap.relay.v1.Relay.
func RegisterGRPC(g *grpc.Server, s *Server) {
	g.RegisterService(&serviceDesc, &grpcService{s: s})
}

type grpcService struct{ s *Server }

// Sync implements SyncServer.
func (g *grpcService) Sync(stream grpc.ServerStream) error {
	first := new(structpb.Struct)
	if err := stream.RecvMsg(first); err != nil {
		return err
	}
	join, err := fromStruct(first)
	if err != nil || join.Type != FrameJoin {
		return status.Error(codes.InvalidArgument, "first frame must be join")
	}
	return g.s.serve(stream.Context(), join, &grpcConn{stream: stream})
}

type grpcConn struct{ stream grpc.ServerStream }

func (c *grpcConn) send(f Frame) error {
	s, err := toStruct(f)
	if err != nil {
		return err
	}
	return c.stream.SendMsg(s)
}

func (c *grpcConn) recv() (Frame, error) {
	s := new(structpb.Struct)
	if err := c.stream.RecvMsg(s); err != nil {
		return Frame{}, err
	}
	return fromStruct(s)
}

// conn is one joined client, independent of transport. send is only called
// from the serving goroutine; recv only from the reader goroutine.
type conn interface {
	send(Frame) error
	recv() (Frame, error)
}

// serve replays the backlog of join.Doc to c and then relays in both
// directions until the client disconnects, ctx ends or the subscription is
// dropped.
func (s *Server) serve(ctx context.Context, join Frame, c conn) error {
	logger := s.logger.With(zap.String("doc", join.Doc))
	backlog, sub, err := s.Join(ctx, join.Doc, join.Since)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	defer sub.Cancel()
	for _, u := range backlog {
		if err := c.send(updateFrame(u)); err != nil {
			return err
		}
	}

	recvErr := make(chan error, 1)
	rejects := make(chan error, s.buffer)
	go func() {
		for {
			f, err := c.recv()
			if err != nil && !errors.Is(err, errBadFrame) {
				recvErr <- err
				return
			}
			if err == nil {
				err = s.accept(ctx, join.Doc, f)
			}
			if err != nil {
				logger.Debug("frame rejected", zap.Error(err))
				select {
				case rejects <- err:
				default:
				}
			}
		}
	}()

	for {
		select {
		case u, ok := <-sub.C:
			if !ok {
				if err := sub.Err(); err != nil {
					return status.Error(codes.ResourceExhausted, err.Error())
				}
				return nil
			}
			if err := c.send(updateFrame(u)); err != nil {
				return err
			}
		case err := <-rejects:
			if err := c.send(errorFrame(err)); err != nil {
				return err
			}
		case err := <-recvErr:
			if errors.Is(err, io.EOF) {
				logger.Debug("client closed stream")
				return nil
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// accept publishes an update frame received on a connection joined to docID.
func (s *Server) accept(ctx context.Context, docID string, f Frame) error {
	if f.Type != FrameUpdate {
		return fmt.Errorf("unexpected %s frame", f.Type)
	}
	u := *f.Update
	if u.DocID != docID {
		return fmt.Errorf("update for %q on a connection joined to %q", u.DocID, docID)
	}
	u.Seq = 0
	_, err := s.Publish(ctx, u)
	return err
}
