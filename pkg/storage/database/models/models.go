package models

import (
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrRecordNotFound is returned by lookups with no matching row,
// regardless of backend.
var ErrRecordNotFound = errors.New("record not found")

// KeyKind discriminates the scope payload carried by an APIKey. Every
// consumption site switches exhaustively over these values.
type KeyKind string

const (
	RestKey    KeyKind = "rest"
	GraphQLKey KeyKind = "graphql"
	KafkaKey   KeyKind = "kafka"
)

type User struct {
	gorm.Model

	Email string `gorm:"index:idx_user_email,unique"`

	// TenantName binds the user to one isolated tenant store. Written at
	// provisioning, read on every routing decision.
	TenantName string
}

// Endpoint is one (path, method) pair of a Theme's allowlist. Matching is
// exact equality, no wildcards or prefixes.
type Endpoint struct {
	gorm.Model
	ThemeID uint   `gorm:"index"`
	Path    string
	Method  string
}

// Theme is a named, user-owned bundle of REST endpoints, shared across
// any number of rest keys. Theme edits retroactively change what linked
// keys may reach.
type Theme struct {
	gorm.Model
	UserID    uint `gorm:"index"`
	User      User
	Name      string
	Endpoints []Endpoint `gorm:"constraint:OnDelete:CASCADE"`

	Keys []*APIKey `gorm:"many2many:api_key_themes;"`
}

// GraphQLPermission allows a set of fields on one named operation.
type GraphQLPermission struct {
	Operation     string   `json:"operation"`
	AllowedFields []string `json:"allowed_fields"`
}

// APIKey is the persisted record behind an issued bearer token. The token
// itself is never stored; HashedToken is the only trace enabling later
// validation, and deleting the record makes the token permanently
// unvalidatable.
type APIKey struct {
	gorm.Model

	UUID   string `gorm:"index:idx_api_key_uuid,unique"`
	Name   string
	Kind   KeyKind `gorm:"index"`
	UserID uint    `gorm:"index"`
	User   User

	// ExpiryDays derives the expiry window from CreatedAt. Expiry is
	// computed at validation time, never stored as a flag.
	ExpiryDays int
	Enabled    bool

	HashedToken string `gorm:"index:idx_api_key_hash,unique"`

	// Kind-specific scope payloads. Exactly one is meaningful per Kind.
	Themes             []*Theme `gorm:"many2many:api_key_themes;"`
	GraphQLPermissions datatypes.JSONType[[]GraphQLPermission]
	Topics             datatypes.JSONType[[]string]
}
