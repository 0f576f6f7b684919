package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/battlemap/internal/replica"
)

// Client is a replica's connection to a relay for one document.
type Client struct {
	docID    string
	conn     *grpc.ClientConn
	stream   grpc.ClientStream
	cancel   context.CancelFunc
	logger   *zap.Logger
	sendMu   sync.Mutex
	incoming chan replica.Update
	rejected chan error

	mu  sync.Mutex
	err error
}

// Dial connects to the relay at target and joins docID, asking for every
// update after since. Without dial options the connection is insecure.
//
// Postcondition: on success the caller must Close the client.
func Dial(ctx context.Context, target, docID string, since uint64, logger *zap.Logger, opts ...grpc.DialOption) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to relay %s: %w", target, err)
	}
	sctx, cancel := context.WithCancel(ctx)
	stream, err := conn.NewStream(sctx, &serviceDesc.Streams[0], syncMethod)
	if err != nil {
		cancel()
		conn.Close()
		return nil, fmt.Errorf("opening sync stream: %w", err)
	}
	c := &Client{
		docID:    docID,
		conn:     conn,
		stream:   stream,
		cancel:   cancel,
		logger:   logger.With(zap.String("doc", docID)),
		incoming: make(chan replica.Update, 256),
		rejected: make(chan error, 16),
	}
	if err := c.sendFrame(Frame{Type: FrameJoin, Doc: docID, Since: since}); err != nil {
		c.Close()
		return nil, fmt.Errorf("joining %s: %w", docID, err)
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) sendFrame(f Frame) error {
	s, err := toStruct(f)
	if err != nil {
		return err
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.stream.SendMsg(s)
}

func (c *Client) readLoop() {
	defer close(c.incoming)
	for {
		s := new(structpb.Struct)
		if err := c.stream.RecvMsg(s); err != nil {
			if !errors.Is(err, io.EOF) {
				c.setErr(err)
			}
			return
		}
		f, err := fromStruct(s)
		if err != nil {
			c.logger.Warn("ignoring frame", zap.Error(err))
			continue
		}
		switch f.Type {
		case FrameUpdate:
			c.incoming <- *f.Update
		case FrameError:
			c.logger.Warn("relay rejected update", zap.String("reason", f.Message))
			select {
			case c.rejected <- errors.New(f.Message):
			default:
			}
		}
	}
}

func (c *Client) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// Send publishes u. It is safe to call from any goroutine.
func (c *Client) Send(u replica.Update) error {
	if err := c.sendFrame(updateFrame(u)); err != nil {
		return fmt.Errorf("sending update %d: %w", u.Clock, err)
	}
	return nil
}

// Incoming delivers sequenced updates, own echoes included. It is closed
// when the stream ends; Err then reports why.
func (c *Client) Incoming() <-chan replica.Update { return c.incoming }

// Rejected delivers the relay's reasons for refusing updates.
func (c *Client) Rejected() <-chan error { return c.rejected }

// Err returns the error that ended the stream, or nil.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Attach routes doc's committed local transactions to the relay.
//
// Precondition: doc.ID() must equal the joined document.
func (c *Client) Attach(doc *replica.Doc) {
	doc.Attach(func(u replica.Update) {
		if err := c.Send(u); err != nil {
			c.logger.Warn("send failed", zap.Uint64("clock", u.Clock), zap.Error(err))
		}
	})
}

// Drain applies every update already received to doc without blocking and
// returns how many were applied. It must be called from doc's owning
// goroutine.
func (c *Client) Drain(doc *replica.Doc) int {
	n := 0
	for {
		select {
		case u, ok := <-c.incoming:
			if !ok {
				return n
			}
			if err := doc.ApplyRemote(u); err != nil {
				c.logger.Warn("apply failed", zap.Uint64("seq", u.Seq), zap.Error(err))
				continue
			}
			n++
		default:
			return n
		}
	}
}

// Close ends the stream and the connection.
func (c *Client) Close() error {
	c.sendMu.Lock()
	_ = c.stream.CloseSend()
	c.sendMu.Unlock()
	c.cancel()
	return c.conn.Close()
}
