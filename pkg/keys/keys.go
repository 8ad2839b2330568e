// Package keys is the heart of the engine: issuing scoped bearer tokens,
// validating presented tokens against their stored records, and deciding
// allow/deny for REST, GraphQL, and Kafka scopes.
package keys

import (
	"errors"

	"github.com/keygate/keygate/pkg/storage/database/models"
)

// Typed outcomes of validate/authorize calls. Store and transport
// failures are not part of this taxonomy; they are logged and surfaced
// generically.
var (
	ErrMalformed        = errors.New("malformed token")
	ErrNotFound         = errors.New("key not found")
	ErrHashMismatch     = errors.New("token hash mismatch")
	ErrDisabled         = errors.New("key disabled")
	ErrExpired          = errors.New("key expired")
	ErrForbidden        = errors.New("scope forbidden")
	ErrTenantUnresolved = errors.New("tenant unresolved")
)

// TokenPayload is what a bearer token encrypts: the record identifier and
// the kind discriminator. Nothing else ever rides in the token.
type TokenPayload struct {
	ID   string         `json:"id"`
	Kind models.KeyKind `json:"kind"`
}

// Scope is the kind-specific permission payload supplied at issuance.
// Exactly one member is meaningful for a given kind.
type Scope struct {
	ThemeIDs           []uint
	GraphQLPermissions []models.GraphQLPermission
	Topics             []string
}
