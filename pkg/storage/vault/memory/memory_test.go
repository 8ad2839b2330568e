package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/pkg/config"
)

func TestMemoryVault(t *testing.T) {
	v, err := NewMemoryVault([]config.Tenant{
		{Name: "acme", Type: "memory"},
	})
	require.NoError(t, err)

	t.Run("seeded credential", func(t *testing.T) {
		tenant, err := v.GetCredential("acme")
		require.NoError(t, err)
		assert.Equal(t, "memory", tenant.Type)
	})

	t.Run("unknown credential", func(t *testing.T) {
		_, err := v.GetCredential("ghost")
		assert.ErrorIs(t, err, ErrCredentialNotFound)
	})

	t.Run("set overwrites", func(t *testing.T) {
		err := v.SetCredential("acme", config.Tenant{Name: "acme", Type: "duckdb"})
		require.NoError(t, err)

		tenant, err := v.GetCredential("acme")
		require.NoError(t, err)
		assert.Equal(t, "duckdb", tenant.Type)
	})
}
