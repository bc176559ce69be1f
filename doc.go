// The [nouns] package gives entities a persistent identifier derived from their
// own properties.
//
// # Identity
//
// Every [Noun] belongs to a [Kind]. The kind lists the properties that make up
// its identity; gathering them (leaving out empty values) gives the identity
// spec, and saving that spec through a [store.Backend] gives the idtag.
//
// Kinds differ only in the guid they contribute. A [KindThing] has none, so the
// backend derives the idtag from the content: structurally identical things share
// one idtag. Owners ([KindUser], [KindTeam]) and places carry a fresh random guid
// in their identity, so two of them never collapse even when everything else
// matches.
//
//	Noun
//	├── Owner ── User, Team       collection "owner"
//	└── Item
//	    ├── Place                 collection "place"
//	    └── Thing                 collection "thing"
//
// # Construction
//
// [Registry.New] is the single entry point. A "type" tag in the property bag
// redirects construction to that kind; an "idtag" rehydrates the stored noun,
// with the other properties in the bag taking precedence over stored ones.
// Construction always returns a [future.Future]; it is pending only while
// rehydration waits for the backend.
//
// # Lazy properties
//
// Properties that are not assigned come from the kind's rules. Each is computed
// at most once per noun, on first use, and concurrent readers share the pending
// result. The idtag is one of them: reading it is what saves the noun.
//
// # Backends
//
// Backends live under [github.com/ki1r0y/nouns/pkg/store]. The in-memory
// [github.com/ki1r0y/nouns/pkg/store/memstore] suits tests and single processes;
// sqlstore keeps records in PostgreSQL, surrealstore in SurrealDB, and wsstore
// reaches a backend served by another process over a websocket.
package nouns
