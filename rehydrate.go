package nouns

import (
	"context"
	"fmt"

	"github.com/ki1r0y/nouns/pkg/constants"
	"github.com/ki1r0y/nouns/pkg/future"
)

// CollectionForID names the collection an identifier belongs to, judged by its
// length alone: a SHA-224 hex digest is a thing, a bare UUID a place, anything
// else an owner.
//
// Length is all there is to go on. A token that happens to share a length with
// another scheme is filed in the wrong collection, and nouns of kinds without a
// collection of their own (Noun, Item) cannot be found again by id.
func CollectionForID(id string) string {
	switch len(id) {
	case constants.ContentIDLength:
		return constants.CollectionThing
	case constants.GUIDLength:
		return constants.CollectionPlace
	default:
		return constants.CollectionOwner
	}
}

// rehydrate fetches the spec stored under idtag, lays the caller's other props
// over it and constructs kind from the result. The stored type tag redirects
// construction to the stored kind. idtag itself is left out so the rebuilt noun
// computes its own.
func (r *Registry) rehydrate(ctx context.Context, k *Kind, idtag string, props Props) *future.Future[*Noun] {
	collection := CollectionForID(idtag)
	log := r.logger.With().Str("idtag", idtag).Str("collection", collection).Logger()
	log.Debug().Str("kind", k.Name).Msg("rehydrating")

	retrieved := r.backend.Retrieve(ctx, collection, idtag)
	return future.Then(retrieved, func(data []byte) *future.Future[*Noun] {
		var persisted map[string]any
		if err := r.codec.Unmarshal(data, &persisted); err != nil {
			log.Warn().Err(err).Msg("stored spec does not decode")
			return future.Failed[*Noun](fmt.Errorf("decoding %s in %s: %w", idtag, collection, err))
		}

		merged := make(Props, len(persisted)+len(props))
		for key, v := range persisted {
			merged[key] = v
		}
		for key, v := range props {
			merged[key] = v
		}
		delete(merged, propIdtag)

		return r.New(ctx, k.Name, merged)
	})
}
