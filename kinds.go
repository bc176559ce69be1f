package nouns

import (
	"context"

	"github.com/ki1r0y/nouns/pkg/constants"
	"github.com/ki1r0y/nouns/pkg/future"
)

// Built-in kind names.
const (
	KindNoun  = "Noun"
	KindOwner = "Owner"
	KindUser  = "User"
	KindTeam  = "Team"
	KindItem  = "Item"
	KindPlace = "Place"
	KindThing = "Thing"
)

// Property names with built-in rules.
const (
	propTitle              = "title"
	propDescription        = "description"
	propKeytag             = "keytag"
	propAdditionalNametags = "additionalNametags"
	propType               = "type"
	propGUID               = "guid"
	propChildren           = "children"
	propChildspecs         = "childspecs"
	propIdentityspec       = "identityspec"
	propIdtag              = "idtag"
	propChildspec          = "childspec"
	propOwnertag           = "ownertag"
)

// BuiltinKinds returns the declarations NewRegistry registers, parents first.
//
//	Noun
//	├── Owner (guid in identity, "U" + uuid)
//	│   ├── User
//	│   └── Team
//	└── Item (ownertag in identity)
//	    ├── Place (guid in identity)
//	    └── Thing (no guid: identity is content only)
func BuiltinKinds() []Kind {
	return []Kind{
		{
			Name:       KindNoun,
			Collection: constants.CollectionUnspecified,
			IdentityAdditions: []string{
				propChildspecs, propDescription, propKeytag,
				propAdditionalNametags, propTitle, propType,
			},
			InstanceAdditions: []string{propIdtag},
			Rules: map[string]Rule{
				propTitle:              Const(""),
				propDescription:        Const(""),
				propKeytag:             Const(""),
				propAdditionalNametags: Const([]string{}),
				propType:               Value(func(n *Noun) any { return n.kind.Name }),
				propGUID:               tokenRule(""),
				propChildren:           Const([]*Noun{}),
				propChildspecs:         childspecsRule,
				propIdentityspec:       identityspecRule,
				propIdtag:              idtagRule,
				propChildspec:          childspecRule,
			},
		},
		{
			Name:              KindOwner,
			Parent:            KindNoun,
			Collection:        constants.CollectionOwner,
			IdentityAdditions: []string{propGUID},
			Rules: map[string]Rule{
				propGUID: tokenRule(constants.OwnerGUIDPrefix),
			},
		},
		{Name: KindUser, Parent: KindOwner},
		{Name: KindTeam, Parent: KindOwner},
		{
			Name:              KindItem,
			Parent:            KindNoun,
			IdentityAdditions: []string{propOwnertag},
			Rules: map[string]Rule{
				propOwnertag: Const(""),
			},
		},
		{
			Name:              KindPlace,
			Parent:            KindItem,
			Collection:        constants.CollectionPlace,
			IdentityAdditions: []string{propGUID},
		},
		{
			Name:       KindThing,
			Parent:     KindItem,
			Collection: constants.CollectionThing,
			Rules: map[string]Rule{
				// Empty: the backend derives the id from content.
				propGUID: Const(""),
			},
		},
	}
}

// tokenRule yields a fresh random token with prefix, once per noun.
func tokenRule(prefix string) Rule {
	return Value(func(n *Noun) any {
		return prefix + n.reg.newToken()
	})
}

func childspecsRule(ctx context.Context, n *Noun) *future.Future[any] {
	children := n.Children()
	specs := make([]*future.Future[any], len(children))
	for i, child := range children {
		specs[i] = child.Property(ctx, propChildspec)
	}
	return future.Map(future.All(ctx, specs), func(v []any) (any, error) {
		return v, nil
	})
}

func identityspecRule(ctx context.Context, n *Noun) *future.Future[any] {
	return future.Map(Gather(ctx, n, n.kind.identity), func(s *Spec) (any, error) {
		return s, nil
	})
}

func childspecRule(ctx context.Context, n *Noun) *future.Future[any] {
	return future.Map(Gather(ctx, n, n.kind.instance), func(s *Spec) (any, error) {
		return s, nil
	})
}

// idtagRule saves the serialized identity spec under the kind's collection. A
// non-empty guid is the requested id; an empty one lets the backend hash content.
func idtagRule(ctx context.Context, n *Noun) *future.Future[any] {
	return future.Then(n.Property(ctx, propIdentityspec), func(spec any) *future.Future[any] {
		data, err := n.reg.codec.Marshal(spec)
		if err != nil {
			return future.Failed[any](err)
		}
		collection := n.kind.collection
		guid := n.GUID()
		saved := n.reg.backend.Save(ctx, collection, guid, data)
		return future.Map(saved, func(id string) (any, error) {
			n.reg.logger.Debug().
				Str("type", n.kind.Name).
				Str("collection", collection).
				Str("idtag", id).
				Bool("content_addressed", guid == "").
				Msg("idtag resolved")
			return id, nil
		})
	})
}
