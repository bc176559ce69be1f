package constants

import (
	"errors"
	"time"
)

// Errors
var (
	// ErrUnknownType is returned when a type tag names no registered kind.
	ErrUnknownType = errors.New("unknown noun type")
	// ErrNoCollection is returned when a backend has no collection of the given name.
	ErrNoCollection = errors.New("no such collection")
	// ErrNoIdentifier is returned when a collection exists but holds no such id.
	ErrNoIdentifier = errors.New("no such identifier")
	// ErrBackend wraps storage faults raised below the core.
	ErrBackend = errors.New("backend failure")
	// ErrInvalidIdtag is returned when an idtag property is present but not a string.
	ErrInvalidIdtag = errors.New("invalid idtag")

	ErrInvalidKind   = errors.New("invalid kind")
	ErrSelfReference = errors.New("identity properties must not refer to the identifier")
	ErrNoBackend     = errors.New("no backend configured")
	ErrNoCodec       = errors.New("no codec configured")
	ErrNotConnected  = errors.New("not connected")
	ErrIDInUse       = errors.New("request id already in use")
)

// Collection names.
const (
	CollectionUnspecified = "unspecified"
	CollectionOwner       = "owner"
	CollectionPlace       = "place"
	CollectionThing       = "thing"
)

// Identifier lengths used to tell collections apart.
const (
	// ContentIDLength is the length of a hex encoded SHA-224 digest.
	ContentIDLength = 56
	// GUIDLength is the length of a canonical UUID string.
	GUIDLength = 36
	// OwnerGUIDPrefix makes owner tokens one character longer than a GUID.
	OwnerGUIDPrefix = "U"
)

const (
	// RequestIDLength is the size of the id sent with each websocket request.
	RequestIDLength = 16
	// CloseMessageCode is the websocket close code sent on a clean shutdown.
	CloseMessageCode = 1000
	// DefaultWSTimeout bounds the wait for a websocket response.
	DefaultWSTimeout = 30 * time.Second

	DefaultAddr = ":8080"
)
