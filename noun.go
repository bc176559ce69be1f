package nouns

import (
	"context"
	"fmt"
	"sort"

	"github.com/ki1r0y/nouns/internal/lazy"
	"github.com/ki1r0y/nouns/pkg/future"
)

// Props is a property bag, as given to Registry.New or read back from storage.
type Props map[string]any

func (p Props) clone() Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Noun is a live entity. Properties assigned at construction are fixed; every
// other property comes from the kind's rules and is computed lazily, once.
type Noun struct {
	kind  *Kind
	reg   *Registry
	props Props
	memo  *lazy.Memo[any]
}

func newNoun(reg *Registry, kind *Kind, props Props) *Noun {
	return &Noun{
		kind:  kind,
		reg:   reg,
		props: props.clone(),
		memo:  lazy.NewMemo[any](),
	}
}

func (n *Noun) Kind() *Kind {
	return n.kind
}

// Props returns a copy of the properties assigned at construction.
func (n *Noun) Props() Props {
	return n.props.clone()
}

// Property yields the named property: the assigned value if there is one,
// otherwise the memoized result of the kind's rule, otherwise nil.
func (n *Noun) Property(ctx context.Context, name string) *future.Future[any] {
	if v, ok := n.props[name]; ok {
		return future.Resolved(v)
	}
	rule, ok := n.kind.rule(name)
	if !ok {
		return future.Resolved[any](nil)
	}
	return n.memo.Get(name, func() *future.Future[any] {
		return rule(context.WithoutCancel(ctx), n)
	})
}

// Get waits for the named property and returns it, or nil if computing it failed.
// Use it for properties with synchronous rules; Property gives control over
// waiting and errors.
func (n *Noun) Get(name string) any {
	v, err := n.Property(context.Background(), name).Await(context.Background())
	if err != nil {
		return nil
	}
	return v
}

func (n *Noun) str(name string) string {
	s, _ := n.Get(name).(string)
	return s
}

func (n *Noun) Type() string        { return n.str(propType) }
func (n *Noun) Title() string       { return n.str(propTitle) }
func (n *Noun) Description() string { return n.str(propDescription) }
func (n *Noun) Keytag() string      { return n.str(propKeytag) }
func (n *Noun) Ownertag() string    { return n.str(propOwnertag) }

// GUID is the random component of the identity, or "" for content-only kinds.
func (n *Noun) GUID() string { return n.str(propGUID) }

func (n *Noun) AdditionalNametags() []string {
	return toStrings(n.Get(propAdditionalNametags))
}

func (n *Noun) Children() []*Noun {
	switch v := n.Get(propChildren).(type) {
	case []*Noun:
		return v
	case []any:
		out := make([]*Noun, 0, len(v))
		for _, c := range v {
			if child, ok := c.(*Noun); ok {
				out = append(out, child)
			}
		}
		return out
	}
	return nil
}

// Idtag waits for the persistent identifier.
func (n *Noun) Idtag(ctx context.Context) (string, error) {
	v, err := n.Property(ctx, propIdtag).Await(ctx)
	if err != nil {
		return "", err
	}
	id, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("idtag of %s is %T, not a string", n.kind.Name, v)
	}
	return id, nil
}

// IdentitySpec waits for the gathered identity properties.
func (n *Noun) IdentitySpec(ctx context.Context) (*Spec, error) {
	return n.spec(ctx, propIdentityspec)
}

// ChildSpec waits for the gathered instance properties.
func (n *Noun) ChildSpec(ctx context.Context) (*Spec, error) {
	return n.spec(ctx, propChildspec)
}

func (n *Noun) spec(ctx context.Context, name string) (*Spec, error) {
	v, err := n.Property(ctx, name).Await(ctx)
	if err != nil {
		return nil, err
	}
	switch s := v.(type) {
	case *Spec:
		return s, nil
	case map[string]any:
		out := NewSpec()
		for _, k := range sortedKeys(s) {
			out.Set(k, s[k])
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s of %s is %T, not a spec", name, n.kind.Name, v)
}

func (n *Noun) String() string {
	if t := n.Title(); t != "" {
		return fmt.Sprintf("%s{%s}", n.kind.Name, t)
	}
	return n.kind.Name + "{}"
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
