package wsstore

import (
	"context"
	"net/http"
	"sync"

	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ki1r0y/nouns/pkg/codec"
	"github.com/ki1r0y/nouns/pkg/store"
)

var upgrader = gorilla.Upgrader{
	EnableCompression: true,
	CheckOrigin:       func(*http.Request) bool { return true },
}

type handler struct {
	backend store.Backend
	logger  zerolog.Logger
}

// NewHandler serves backend to websocket clients. Each request frame is answered
// on its own goroutine; responses may arrive out of order.
func NewHandler(backend store.Backend, logger zerolog.Logger) http.Handler {
	return &handler{backend: backend, logger: logger}
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	log := h.logger.With().Str("remote", r.RemoteAddr).Logger()
	log.Debug().Msg("websocket session started")

	// Requests outlive neither the session nor the server.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s := &session{conn: conn, backend: h.backend, logger: log}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway) {
				log.Warn().Err(err).Msg("websocket session ended")
			} else {
				log.Debug().Msg("websocket session closed")
			}
			break
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(ctx, data)
		}()
	}
	cancel()
	s.wg.Wait()
}

type session struct {
	conn    *gorilla.Conn
	backend store.Backend
	logger  zerolog.Logger
	codec   codec.JSON

	writeLock sync.Mutex
	wg        sync.WaitGroup
}

func (s *session) serve(ctx context.Context, data []byte) {
	var req RPCRequest
	if err := s.codec.Unmarshal(data, &req); err != nil {
		s.reply(&RPCResponse{Error: &RPCError{Code: CodeInvalidRequest, Message: err.Error()}})
		return
	}

	res := &RPCResponse{ID: req.ID}
	p := req.Params
	var err error
	switch req.Method {
	case MethodSave:
		res.Result, err = s.backend.Save(ctx, p.Collection, p.ID, p.Content).Await(ctx)
	case MethodRetrieve:
		res.Result, err = s.backend.Retrieve(ctx, p.Collection, p.ID).Await(ctx)
	default:
		res.Error = &RPCError{Code: CodeMethodNotFound, Message: req.Method}
	}
	if err != nil {
		res.Result = nil
		res.Error = &RPCError{Code: errorCode(err), Message: err.Error()}
	}

	s.logger.Debug().
		Str("id", req.ID).
		Str("method", req.Method).
		Str("collection", p.Collection).
		Bool("ok", res.Error == nil).
		Msg("rpc")
	s.reply(res)
}

func (s *session) reply(res *RPCResponse) {
	data, err := s.codec.Marshal(res)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
		return
	}
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	if err := s.conn.WriteMessage(gorilla.TextMessage, data); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write response")
	}
}
