package nouns

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/ki1r0y/nouns/pkg/codec"
	"github.com/ki1r0y/nouns/pkg/constants"
	"github.com/ki1r0y/nouns/pkg/store"
)

// Registry owns the kinds nouns are built from and the collaborators every noun
// uses: the backend, the codec for identity specs and the token generator.
type Registry struct {
	backend  store.Backend
	codec    codec.Codec
	newToken func() string
	logger   zerolog.Logger

	mu    sync.RWMutex
	kinds map[string]*Kind
}

type Option func(r *Registry)

func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithCodec sets the serialization of identity specs. Nouns saved with one codec
// rehydrate only through a registry using the same codec.
func WithCodec(c codec.Codec) Option {
	return func(r *Registry) {
		r.codec = c
	}
}

// WithTokenGenerator replaces the source of random guid tokens.
func WithTokenGenerator(fn func() string) Option {
	return func(r *Registry) {
		r.newToken = fn
	}
}

// NewRegistry returns a registry holding the built-in kinds.
func NewRegistry(backend store.Backend, opts ...Option) (*Registry, error) {
	if backend == nil {
		return nil, constants.ErrNoBackend
	}
	r := &Registry{
		backend:  backend,
		codec:    codec.JSON{},
		newToken: NewGUID,
		logger:   zerolog.Nop(),
		kinds:    make(map[string]*Kind),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.codec == nil {
		return nil, constants.ErrNoCodec
	}
	if err := r.Register(BuiltinKinds()...); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds kinds in order, so a kind may name a parent declared earlier in
// the same call. Every failing declaration is reported.
func (r *Registry) Register(kinds ...Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result *multierror.Error
	for _, decl := range kinds {
		if err := r.register(decl); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (r *Registry) register(decl Kind) error {
	if _, ok := r.kinds[decl.Name]; ok {
		return fmt.Errorf("%w: %s already registered", constants.ErrInvalidKind, decl.Name)
	}
	var parent *Kind
	if decl.Parent != "" {
		p, ok := r.kinds[decl.Parent]
		if !ok {
			return fmt.Errorf("%w: %s: parent %s not registered", constants.ErrInvalidKind, decl.Name, decl.Parent)
		}
		parent = p
	}
	k, err := resolve(decl, parent)
	if err != nil {
		return err
	}
	r.kinds[k.Name] = k
	r.logger.Debug().
		Str("kind", k.Name).
		Str("collection", k.collection).
		Strs("identity", k.identity).
		Msg("kind registered")
	return nil
}

// Kind looks up a registered kind by name.
func (r *Registry) Kind(name string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Backend() store.Backend {
	return r.backend
}

func (r *Registry) Codec() codec.Codec {
	return r.codec
}

// NewGUID returns a time-based UUID string, 36 characters long.
func NewGUID() string {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
