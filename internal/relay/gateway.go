package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewGateway returns the HTTP handler for browser replicas:
//
//	GET /ws/docs/{doc}?since=N   WebSocket carrying JSON frames
//	GET /healthz                 liveness
//
// The socket skips the join frame; the document and since come from the URL.
func NewGateway(s *Server, health func(context.Context) error) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws/docs/{doc}", s.handleSocket).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if health != nil {
			if err := health(req.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["doc"]
	var since uint64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "since must be a sequence number", http.StatusBadRequest)
			return
		}
		since = n
	}
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer ws.CloseNow()

	ctx := r.Context()
	err = s.serve(ctx, Frame{Type: FrameJoin, Doc: docID, Since: since}, &wsConn{ctx: ctx, ws: ws})
	if err != nil {
		s.logger.Debug("websocket closed", zap.String("doc", docID), zap.Error(err))
		_ = ws.Close(websocket.StatusInternalError, "relay error")
		return
	}
	_ = ws.Close(websocket.StatusNormalClosure, "")
}

type wsConn struct {
	ctx context.Context
	ws  *websocket.Conn
}

func (c *wsConn) send(f Frame) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return c.ws.Write(c.ctx, websocket.MessageText, raw)
}

func (c *wsConn) recv() (Frame, error) {
	_, raw, err := c.ws.Read(c.ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return Frame{}, io.EOF
		}
		return Frame{}, err
	}
	return decodeFrame(raw)
}
