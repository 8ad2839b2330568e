package keys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"github.com/keygate/keygate/pkg/crypto"
	"github.com/keygate/keygate/pkg/storage/database"
	"github.com/keygate/keygate/pkg/storage/database/models"
	"github.com/keygate/keygate/pkg/storage/queue"
	queue_models "github.com/keygate/keygate/pkg/storage/queue/models"
)

// Issuer creates keys and owns their lifecycle mutations. The bearer
// token is computable exactly once, at issuance; only its hash survives.
type Issuer struct {
	codec      *crypto.Codec
	db         database.Database
	queue      queue.Queue
	expiryDays int
	snow       *snowflake.Node
}

func NewIssuer(codec *crypto.Codec, db database.Database, q queue.Queue, expiryDays int) (*Issuer, error) {
	snow, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	if expiryDays <= 0 {
		expiryDays = 365
	}

	return &Issuer{
		codec:      codec,
		db:         db,
		queue:      q,
		expiryDays: expiryDays,
		snow:       snow,
	}, nil
}

// Issue builds the (id, kind) payload, seals it into a bearer token,
// and persists the record with the token's hash. The store write is
// durable before the token is returned, so a token can never be
// presented ahead of its record.
func (i *Issuer) Issue(ctx context.Context, userID uint, kind models.KeyKind, name string, scope Scope) (string, error) {
	if _, err := i.db.GetUser(ctx, userID); err != nil {
		return "", fmt.Errorf("issue: %w", err)
	}

	id := uuid.New().String()
	payload, err := json.Marshal(TokenPayload{ID: id, Kind: kind})
	if err != nil {
		return "", fmt.Errorf("issue: %w", err)
	}

	token, err := i.codec.Encode(payload)
	if err != nil {
		return "", fmt.Errorf("issue: %w", err)
	}

	record := &models.APIKey{
		UUID:        id,
		Name:        name,
		Kind:        kind,
		UserID:      userID,
		ExpiryDays:  i.expiryDays,
		Enabled:     true,
		HashedToken: i.db.Hash(token),
	}

	var themeIDs []uint
	switch kind {
	case models.RestKey:
		themeIDs = scope.ThemeIDs
	case models.GraphQLKey:
		record.GraphQLPermissions = datatypes.NewJSONType(scope.GraphQLPermissions)
	case models.KafkaKey:
		record.Topics = datatypes.NewJSONType(scope.Topics)
	default:
		return "", fmt.Errorf("issue: unknown key kind %q", kind)
	}

	if err := i.db.CreateAPIKey(ctx, record, themeIDs); err != nil {
		return "", fmt.Errorf("issue: %w", err)
	}

	i.notify(queue_models.KeyIssued, userID, id)
	return token, nil
}

// SetEnabled flips the only mutable flag a record carries.
func (i *Issuer) SetEnabled(ctx context.Context, keyUUID string, enabled bool) error {
	record, err := i.db.GetAPIKeyByUUID(ctx, keyUUID)
	if err != nil {
		return mapStoreErr(err)
	}

	if err := i.db.SetAPIKeyEnabled(ctx, keyUUID, enabled); err != nil {
		return mapStoreErr(err)
	}

	i.notify(queue_models.KeyToggled, record.UserID, keyUUID)
	return nil
}

// Delete removes the record and its hash permanently; the previously
// issued token can never again be validated.
func (i *Issuer) Delete(ctx context.Context, keyUUID string) error {
	record, err := i.db.GetAPIKeyByUUID(ctx, keyUUID)
	if err != nil {
		return mapStoreErr(err)
	}

	if err := i.db.DeleteAPIKey(ctx, keyUUID); err != nil {
		return mapStoreErr(err)
	}

	i.notify(queue_models.KeyDeleted, record.UserID, keyUUID)
	return nil
}

// NotifyUserBound announces a user/tenant binding so consumers can drop
// any routing state cached for that user.
func (i *Issuer) NotifyUserBound(userID uint) {
	i.notify(queue_models.UserBound, userID, "")
}

// notify publishes fire-and-forget; a dead bus never fails the caller.
func (i *Issuer) notify(event queue_models.EventType, userID uint, keyUUID string) {
	msg, err := json.Marshal(queue_models.KeyEvent{
		EventID: i.snow.Generate().Int64(),
		Event:   event,
		UserID:  userID,
		KeyUUID: keyUUID,
	})
	if err != nil {
		log.Error().Err(err).Msg("Unable to marshal key event")
		return
	}

	if err := i.queue.Enqueue(msg); err != nil {
		log.Error().Err(err).Str("event", string(event)).Msg("Unable to publish key event")
	}
}

func mapStoreErr(err error) error {
	if errors.Is(err, models.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
