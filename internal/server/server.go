// Package server exposes a noun registry over HTTP and serves its backend to
// websocket clients.
//
//	GET  /api/health          registry and backend status
//	POST /api/nouns?kind=K    construct a noun from a JSON property bag
//	GET  /api/nouns/{idtag}   rehydrate a stored noun
//	GET  /rpc                 wsstore endpoint for the registry's backend
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/ki1r0y/nouns"
	"github.com/ki1r0y/nouns/pkg/codec"
	"github.com/ki1r0y/nouns/pkg/constants"
	"github.com/ki1r0y/nouns/pkg/store/wsstore"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type Server struct {
	reg    *nouns.Registry
	logger zerolog.Logger
	router *mux.Router
	json   codec.JSON
}

func New(reg *nouns.Registry, logger zerolog.Logger) *Server {
	s := &Server{reg: reg, logger: logger}

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/nouns", s.handleCreateNoun).Methods(http.MethodPost)
	api.HandleFunc("/nouns/{idtag}", s.handleGetNoun).Methods(http.MethodGet)
	router.Handle("/rpc", wsstore.NewHandler(reg.Backend(), logger.With().Str("component", "rpc").Logger()))
	s.router = router

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down within shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	s.logger.Info().Str("addr", addr).Msg("listening")

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// nounView is the JSON form of a noun returned by the API.
type nounView struct {
	Idtag string      `json:"idtag"`
	Type  string      `json:"type"`
	Spec  *nouns.Spec `json:"identityspec"`
}

func (s *Server) view(ctx context.Context, n *nouns.Noun) (*nounView, error) {
	id, err := n.Idtag(ctx)
	if err != nil {
		return nil, err
	}
	spec, err := n.IdentitySpec(ctx)
	if err != nil {
		return nil, err
	}
	return &nounView{Idtag: id, Type: n.Kind().Name, Spec: spec}, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"codec":  s.reg.Codec().Name(),
		"kinds":  s.reg.Kinds(),
	})
}

func (s *Server) handleCreateNoun(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = nouns.KindNoun
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.respondError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	var bag map[string]any
	if err := s.json.Unmarshal(body, &bag); err != nil {
		s.respondError(w, fmt.Errorf("%w: invalid JSON: %w", errBadRequest, err))
		return
	}

	ctx := r.Context()
	n, err := s.build(ctx, kind, bag)
	if err != nil {
		s.respondError(w, err)
		return
	}
	v, err := s.view(ctx, n)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.logger.Debug().Str("type", v.Type).Str("idtag", v.Idtag).Msg("noun created")
	s.respondJSON(w, http.StatusCreated, v)
}

// build constructs kind from bag. Bags under "children" are built first, each as
// a Noun unless it names its own type or idtag.
func (s *Server) build(ctx context.Context, kind string, bag map[string]any) (*nouns.Noun, error) {
	props := make(nouns.Props, len(bag))
	for k, v := range bag {
		props[k] = v
	}

	if raw, ok := bag["children"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: children must be a list, not %T", errBadRequest, raw)
		}
		children := make([]*nouns.Noun, 0, len(list))
		for i, c := range list {
			childBag, ok := c.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: child %d must be an object, not %T", errBadRequest, i, c)
			}
			child, err := s.build(ctx, nouns.KindNoun, childBag)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		props["children"] = children
	}

	return s.reg.Build(ctx, kind, props)
}

func (s *Server) handleGetNoun(w http.ResponseWriter, r *http.Request) {
	idtag := mux.Vars(r)["idtag"]
	ctx := r.Context()

	n, err := s.reg.Retrieve(ctx, idtag).Await(ctx)
	if err != nil {
		s.respondError(w, err)
		return
	}
	v, err := s.view(ctx, n)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, constants.ErrUnknownType), errors.Is(err, constants.ErrInvalidIdtag):
		return http.StatusBadRequest
	case errors.Is(err, constants.ErrNoCollection), errors.Is(err, constants.ErrNoIdentifier):
		return http.StatusNotFound
	case errors.Is(err, constants.ErrBackend):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("request failed")
	}
	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	data, err := s.json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
