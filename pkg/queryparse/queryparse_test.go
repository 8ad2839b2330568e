package queryparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAnonymous(t *testing.T) {
	t.Run("typename excluded order preserved", func(t *testing.T) {
		ops := Parse("{ getSpecies { id name __typename } }")
		assert.Equal(t, map[string][]string{"getSpecies": {"id", "name"}}, ops)
	})

	t.Run("multiple operations", func(t *testing.T) {
		ops := Parse(`{
			getSpecies(id: 3) { id name }
			getSensors { id location __typename }
		}`)
		assert.Equal(t, map[string][]string{
			"getSpecies": {"id", "name"},
			"getSensors": {"id", "location"},
		}, ops)
	})

	t.Run("repeated operation grouped", func(t *testing.T) {
		ops := Parse(`{ getSpecies { id } getSpecies { name id } }`)
		assert.Equal(t, map[string][]string{"getSpecies": {"id", "name"}}, ops)
	})

	t.Run("nested words collected single level", func(t *testing.T) {
		ops := Parse(`{ getSpecies { id habitat { region } } }`)
		assert.Equal(t, map[string][]string{"getSpecies": {"id", "habitat", "region"}}, ops)
	})

	t.Run("scalar field does not stop the scan", func(t *testing.T) {
		ops := Parse(`{ totalCount getSpecies { id name } }`)
		assert.Equal(t, map[string][]string{"getSpecies": {"id", "name"}}, ops)
	})

	t.Run("scalar fields between operations", func(t *testing.T) {
		ops := Parse(`{ getSpecies { id } totalCount version getSensors { location } }`)
		assert.Equal(t, map[string][]string{
			"getSpecies": {"id"},
			"getSensors": {"location"},
		}, ops)
	})

	t.Run("typename case insensitive", func(t *testing.T) {
		ops := Parse("{ getSpecies { id __TypeName } }")
		assert.Equal(t, map[string][]string{"getSpecies": {"id"}}, ops)
	})
}

func TestParseNamed(t *testing.T) {
	t.Run("wrapped query", func(t *testing.T) {
		ops := Parse(`query fetchSpecies($id: ID!) {
			getSpecies(id: $id) { id name __typename }
		}`)
		assert.Equal(t, map[string][]string{"getSpecies": {"id", "name"}}, ops)
	})

	t.Run("mutation without label", func(t *testing.T) {
		ops := Parse(`mutation { addSpecies(name: "newt") { id } }`)
		assert.Equal(t, map[string][]string{"addSpecies": {"id"}}, ops)
	})
}

func TestParseCombined(t *testing.T) {
	t.Run("only encryptedKey fields taken", func(t *testing.T) {
		ops := Parse(`query CombinedQuery {
			getSpecies(encryptedKey: "abc123") { id name }
			getSensors(encryptedKey: "def456") { id location }
			unkeyed { secret }
		}`)
		assert.Equal(t, map[string][]string{
			"getSpecies": {"id", "name"},
			"getSensors": {"id", "location"},
		}, ops)
	})

	t.Run("quoted parens in key do not break scan", func(t *testing.T) {
		ops := Parse(`query CombinedQuery { getSpecies(encryptedKey: "a(b)c") { id } }`)
		assert.Equal(t, map[string][]string{"getSpecies": {"id"}}, ops)
	})

	t.Run("scalar field does not stop the scan", func(t *testing.T) {
		ops := Parse(`query CombinedQuery {
			schemaVersion
			getSpecies(encryptedKey: "abc123") { id }
		}`)
		assert.Equal(t, map[string][]string{"getSpecies": {"id"}}, ops)
	})

	t.Run("marker must be a whole word", func(t *testing.T) {
		ops := Parse(`query CombinedQueryLegacy { getSpecies(id: 3) { id name } }`)
		assert.Equal(t, map[string][]string{"getSpecies": {"id", "name"}}, ops)
	})
}

func TestParseUnrecognized(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("not a query at all"))
	assert.Empty(t, Parse("{ unbalanced"))
}
