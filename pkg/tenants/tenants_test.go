package tenants

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/keys"
	cache_memory "github.com/keygate/keygate/pkg/storage/cache/memory"
	db_memory "github.com/keygate/keygate/pkg/storage/database/memory"
	"github.com/keygate/keygate/pkg/storage/database/models"
	vault_memory "github.com/keygate/keygate/pkg/storage/vault/memory"
)

func newManager(t *testing.T) (*Manager, *db_memory.MemoryDatabase, *cache_memory.Cache) {
	t.Helper()

	db := db_memory.NewMemoryDatabase(nil)
	c, err := cache_memory.NewCache(nil)
	require.NoError(t, err)

	v, err := vault_memory.NewMemoryVault([]config.Tenant{
		{Name: "tenant-a", Type: "memory"},
		{Name: "tenant-b", Type: "memory"},
	})
	require.NoError(t, err)

	return NewManager(v, db, c), db, c
}

func TestResolveUser(t *testing.T) {
	m, db, _ := newManager(t)
	ctx := context.Background()

	user, err := db.CreateUser(ctx, "a@example.com", "tenant-a")
	require.NoError(t, err)

	store, err := m.ResolveUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Run("pool returns the same handle", func(t *testing.T) {
		again, err := m.ResolveUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Same(t, store, again)
	})

	t.Run("store is usable", func(t *testing.T) {
		data := strings.NewReader(`{"id": 1, "name": "newt"}` + "\n")
		require.NoError(t, store.InsertBatchFromNDJson("species", data))

		var out strings.Builder
		require.NoError(t, store.QueryJSON("select * from species", &out))
		assert.Contains(t, out.String(), "newt")
	})
}

func TestResolveKeyUsesOwnerBinding(t *testing.T) {
	m, db, _ := newManager(t)
	ctx := context.Background()

	userA, err := db.CreateUser(ctx, "a@example.com", "tenant-a")
	require.NoError(t, err)
	userB, err := db.CreateUser(ctx, "b@example.com", "tenant-b")
	require.NoError(t, err)

	storeA, err := m.ResolveKey(ctx, models.APIKey{UserID: userA.ID})
	require.NoError(t, err)
	storeB, err := m.ResolveKey(ctx, models.APIKey{UserID: userB.ID})
	require.NoError(t, err)

	assert.NotSame(t, storeA, storeB)
}

func TestResolveUnresolved(t *testing.T) {
	m, db, _ := newManager(t)
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		_, err := m.ResolveUser(ctx, 42)
		assert.ErrorIs(t, err, keys.ErrTenantUnresolved)
	})

	t.Run("empty binding", func(t *testing.T) {
		user, err := db.CreateUser(ctx, "unbound@example.com", "")
		require.NoError(t, err)

		_, err = m.ResolveUser(ctx, user.ID)
		assert.ErrorIs(t, err, keys.ErrTenantUnresolved)
	})

	t.Run("binding names unconfigured tenant", func(t *testing.T) {
		user, err := db.CreateUser(ctx, "ghost@example.com", "tenant-z")
		require.NoError(t, err)

		_, err = m.ResolveUser(ctx, user.ID)
		assert.ErrorIs(t, err, keys.ErrTenantUnresolved)
	})
}

func TestBindingCache(t *testing.T) {
	m, db, c := newManager(t)
	ctx := context.Background()

	user, err := db.CreateUser(ctx, "a@example.com", "tenant-a")
	require.NoError(t, err)

	_, err = m.ResolveUser(ctx, user.ID)
	require.NoError(t, err)

	cached, ok := c.Get(BindingCacheKey(user.ID))
	require.True(t, ok)
	assert.Equal(t, "tenant-a", string(cached))
}
