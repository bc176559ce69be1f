package nouns

import (
	"context"
	"fmt"
	"sort"

	"github.com/ki1r0y/nouns/pkg/constants"
	"github.com/ki1r0y/nouns/pkg/future"
)

// Rule computes one property of a noun. Rules run at most once per noun; ctx is
// detached from the cancellation of whoever asked first.
type Rule func(ctx context.Context, n *Noun) *future.Future[any]

// Value turns a synchronous computation into a Rule.
func Value(fn func(n *Noun) any) Rule {
	return func(_ context.Context, n *Noun) *future.Future[any] {
		return future.Resolved(fn(n))
	}
}

// Const is a Rule yielding v.
func Const(v any) Rule {
	return Value(func(*Noun) any { return v })
}

// Kind declares a noun variant. A declaration lists only what it adds to its
// parent; Register resolves the effective lists and rules once.
type Kind struct {
	Name   string
	Parent string
	// Collection names where nouns of this kind are stored. Empty inherits.
	Collection string
	// IdentityAdditions extends the parent's identity properties.
	IdentityAdditions []string
	// InstanceAdditions extends the parent's instance properties.
	InstanceAdditions []string
	// Rules adds or overrides property rules.
	Rules map[string]Rule

	parent     *Kind
	collection string
	identity   []string
	instance   []string
	rules      map[string]Rule
}

func (k *Kind) ParentKind() *Kind {
	return k.parent
}

func (k *Kind) CollectionName() string {
	return k.collection
}

// IdentityProperties is the sorted list of properties that determine the idtag.
func (k *Kind) IdentityProperties() []string {
	return append([]string(nil), k.identity...)
}

// InstanceProperties is the sorted list of properties gathered when a noun of
// this kind is referenced as a child.
func (k *Kind) InstanceProperties() []string {
	return append([]string(nil), k.instance...)
}

// IsA reports whether k is name or descends from it.
func (k *Kind) IsA(name string) bool {
	for c := k; c != nil; c = c.parent {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (k *Kind) rule(name string) (Rule, bool) {
	r, ok := k.rules[name]
	return r, ok
}

func (k *Kind) String() string {
	return k.Name
}

// resolve builds the registered form of decl on top of parent, which is nil for
// a root kind.
func resolve(decl Kind, parent *Kind) (*Kind, error) {
	if decl.Name == "" {
		return nil, fmt.Errorf("%w: empty name", constants.ErrInvalidKind)
	}

	k := &Kind{
		Name:              decl.Name,
		Parent:            decl.Parent,
		Collection:        decl.Collection,
		IdentityAdditions: append([]string(nil), decl.IdentityAdditions...),
		InstanceAdditions: append([]string(nil), decl.InstanceAdditions...),
		Rules:             decl.Rules,
		parent:            parent,
		rules:             make(map[string]Rule),
	}

	var identity, instance []string
	if parent != nil {
		identity = parent.identity
		instance = parent.instance
		k.collection = parent.collection
		for name, r := range parent.rules {
			k.rules[name] = r
		}
	}
	if decl.Collection != "" {
		k.collection = decl.Collection
	}
	if k.collection == "" {
		k.collection = constants.CollectionUnspecified
	}
	for name, r := range decl.Rules {
		if r == nil {
			return nil, fmt.Errorf("%w: %s: nil rule for %q", constants.ErrInvalidKind, decl.Name, name)
		}
		k.rules[name] = r
	}

	k.identity = mergeSorted(identity, decl.IdentityAdditions)
	k.instance = mergeSorted(instance, decl.InstanceAdditions)

	for _, p := range k.identity {
		if p == propIdtag || p == propIdentityspec {
			return nil, fmt.Errorf("%w: %s lists %q", constants.ErrSelfReference, decl.Name, p)
		}
	}
	return k, nil
}

func mergeSorted(base, additions []string) []string {
	seen := make(map[string]bool, len(base)+len(additions))
	out := make([]string, 0, len(base)+len(additions))
	for _, list := range [][]string{base, additions} {
		for _, p := range list {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}
