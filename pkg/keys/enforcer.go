package keys

import (
	"strings"

	"github.com/keygate/keygate/pkg/queryparse"
	"github.com/keygate/keygate/pkg/storage/database/models"
)

// AuthorizeRest allows a (path, method) pair iff the union of endpoints
// across every Theme linked to the rest key contains an exact match. The
// union is computed at evaluation time, so Theme edits apply immediately.
func AuthorizeRest(record models.APIKey, path string, method string) error {
	if record.Kind != models.RestKey {
		return ErrForbidden
	}

	for _, theme := range record.Themes {
		for _, endpoint := range theme.Endpoints {
			if endpoint.Path == path && endpoint.Method == method {
				return nil
			}
		}
	}
	return ErrForbidden
}

// AuthorizeGraphQL allows raw query text iff every operation it requests
// has a stored permission entry and every requested field is in that
// entry's allowlist. A request touching multiple operations is authorized
// only if all are; there is no partial success. The __typename meta field
// never counts as a violation.
func AuthorizeGraphQL(record models.APIKey, queryText string) error {
	if record.Kind != models.GraphQLKey {
		return ErrForbidden
	}

	requested := queryparse.Parse(queryText)
	if len(requested) == 0 {
		return ErrForbidden
	}

	stored := record.GraphQLPermissions.Data()

	for operation, fields := range requested {
		entry, ok := findPermission(stored, operation)
		if !ok {
			return ErrNotFound
		}

		allowed := map[string]bool{}
		for _, f := range entry.AllowedFields {
			allowed[f] = true
		}

		for _, field := range fields {
			if strings.EqualFold(field, "__typename") {
				continue
			}
			if !allowed[field] {
				return ErrForbidden
			}
		}
	}

	return nil
}

// AuthorizeTopic allows a Kafka topic iff it is in the key's stored
// topic list.
func AuthorizeTopic(record models.APIKey, topic string) error {
	if record.Kind != models.KafkaKey {
		return ErrForbidden
	}

	for _, t := range record.Topics.Data() {
		if t == topic {
			return nil
		}
	}
	return ErrForbidden
}

func findPermission(entries []models.GraphQLPermission, operation string) (models.GraphQLPermission, bool) {
	for _, entry := range entries {
		if entry.Operation == operation {
			return entry, true
		}
	}
	return models.GraphQLPermission{}, false
}
