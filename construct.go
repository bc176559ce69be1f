package nouns

import (
	"context"
	"fmt"

	"github.com/ki1r0y/nouns/pkg/constants"
	"github.com/ki1r0y/nouns/pkg/future"
)

// New constructs a noun of the named kind from props. Exactly one path applies:
//
//  1. props carries a "type" different from kind: construction moves to that kind.
//  2. props carries an "idtag": the noun is rehydrated from the backend.
//  3. otherwise props become the noun's assigned properties.
//
// The result is always a future. Only rehydration leaves it pending; the other
// paths return it already settled. Unknown kinds fail with constants.ErrUnknownType
// and an idtag that is not a string with constants.ErrInvalidIdtag.
func (r *Registry) New(ctx context.Context, kind string, props Props) *future.Future[*Noun] {
	k, ok := r.Kind(kind)
	if !ok {
		return future.Failed[*Noun](unknownType(kind))
	}

	if raw, ok := props[propType]; ok && !IsMissingData(raw) {
		tag, isString := raw.(string)
		if !isString {
			return future.Failed[*Noun](fmt.Errorf("%w: type tag %v is %T", constants.ErrUnknownType, raw, raw))
		}
		if tag != k.Name {
			r.logger.Debug().Str("from", k.Name).Str("to", tag).Msg("redispatch")
			return r.New(ctx, tag, props)
		}
	}

	if raw, ok := props[propIdtag]; ok && !IsMissingData(raw) {
		idtag, isString := raw.(string)
		if !isString {
			return future.Failed[*Noun](fmt.Errorf("%w: %v is %T", constants.ErrInvalidIdtag, raw, raw))
		}
		return r.rehydrate(ctx, k, idtag, props)
	}

	return future.Resolved(newNoun(r, k, props))
}

// Build is New followed by waiting for the result.
func (r *Registry) Build(ctx context.Context, kind string, props Props) (*Noun, error) {
	return r.New(ctx, kind, props).Await(ctx)
}

// Retrieve rehydrates whatever noun is stored under idtag.
func (r *Registry) Retrieve(ctx context.Context, idtag string) *future.Future[*Noun] {
	return r.New(ctx, KindNoun, Props{propIdtag: idtag})
}

func unknownType(name string) error {
	return fmt.Errorf("%w: %q", constants.ErrUnknownType, name)
}
