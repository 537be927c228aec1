package id

import (
	"crypto/rand"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/oklog/ulid/v2"
)

// ExternalIDLength is the size of identifiers shared with the identity provider.
const ExternalIDLength = 6

// New generates a new ULID string. ULIDs are lexicographically sortable
// by creation time, which keeps registration attempt ids ordered in logs.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// NewExternal returns a short URL-safe random identifier. The space is small;
// callers must check for collisions.
func NewExternal() (string, error) {
	return gonanoid.New(ExternalIDLength)
}
