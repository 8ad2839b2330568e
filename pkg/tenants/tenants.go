// Package tenants maps principals to the isolated tenant store they are
// bound to and keeps one open handle per tenant.
package tenants

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/EagleChen/mapmutex"
	"github.com/rs/zerolog/log"

	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/keys"
	"github.com/keygate/keygate/pkg/storage/cache"
	"github.com/keygate/keygate/pkg/storage/database"
	"github.com/keygate/keygate/pkg/storage/database/models"
	"github.com/keygate/keygate/pkg/storage/vault"
	"github.com/keygate/keygate/pkg/tenants/clickhouse"
	"github.com/keygate/keygate/pkg/tenants/duckdb"
	"github.com/keygate/keygate/pkg/tenants/memory"
	"github.com/keygate/keygate/pkg/tenants/postgres"
)

// Store is the opaque handle callers receive from a routing decision.
// The router performs no data access itself.
type Store interface {
	QueryJSON(query string, writer io.Writer) error
	QueryNDJson(query string, writer io.Writer) error
	InsertBatchFromNDJson(table string, input io.ReadSeeker) error
	Close() error
}

func NewStore(conf config.Tenant) (Store, error) {
	switch conf.Type {
	case "memory":
		return memory.NewMemoryStore(conf.Settings)
	case "duckdb":
		return duckdb.NewDuckDBStore(conf.Settings)
	case "postgres":
		return postgres.NewPostgresStore(conf.Settings)
	case "clickhouse":
		return clickhouse.NewClickhouseStore(conf.Settings)
	}

	return nil, fmt.Errorf("unknown tenant store type: %s", conf.Type)
}

const bindingCachePrefix = "tenant_binding:"

// BindingCacheKey names the cached tenant binding for a user. The
// notification consumer deletes this entry when a binding may have
// changed.
func BindingCacheKey(userID uint) string {
	return fmt.Sprintf("%s%d", bindingCachePrefix, userID)
}

// Manager resolves principals to tenant stores, opening each configured
// store lazily and at most once.
type Manager struct {
	db    database.Database
	cache cache.Cache
	vault vault.Vault

	poolMu sync.RWMutex
	pool   map[string]Store
	openMu *mapmutex.Mutex
}

func NewManager(v vault.Vault, db database.Database, c cache.Cache) *Manager {
	return &Manager{
		db:     db,
		cache:  c,
		vault:  v,
		pool:   map[string]Store{},
		openMu: mapmutex.NewMapMutex(),
	}
}

// ResolveUser returns the tenant store the user is bound to.
func (m *Manager) ResolveUser(ctx context.Context, userID uint) (Store, error) {
	name, err := m.tenantName(ctx, userID)
	if err != nil {
		return nil, err
	}
	return m.store(name)
}

// ResolveKey routes a validated key through its owning user's binding.
func (m *Manager) ResolveKey(ctx context.Context, record models.APIKey) (Store, error) {
	return m.ResolveUser(ctx, record.UserID)
}

func (m *Manager) tenantName(ctx context.Context, userID uint) (string, error) {
	cacheKey := BindingCacheKey(userID)
	if cached, ok := m.cache.Get(cacheKey); ok {
		return string(cached), nil
	}

	name, err := m.db.GetTenantName(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return "", keys.ErrTenantUnresolved
		}
		return "", err
	}
	if name == "" {
		return "", keys.ErrTenantUnresolved
	}

	ttl := 5 * time.Minute
	if err := m.cache.Set(cacheKey, []byte(name), &ttl); err != nil {
		log.Error().Err(err).Uint("user_id", userID).Msg("Unable to cache tenant binding")
	}

	return name, nil
}

func (m *Manager) store(name string) (Store, error) {
	m.poolMu.RLock()
	store, ok := m.pool[name]
	m.poolMu.RUnlock()
	if ok {
		return store, nil
	}

	conf, err := m.vault.GetCredential(name)
	if err != nil {
		return nil, keys.ErrTenantUnresolved
	}

	if !m.openMu.TryLock(name) {
		return nil, fmt.Errorf("unable to acquire open lock for tenant %s", name)
	}
	defer m.openMu.Unlock(name)

	// Another goroutine may have opened the store while we waited.
	m.poolMu.RLock()
	store, ok = m.pool[name]
	m.poolMu.RUnlock()
	if ok {
		return store, nil
	}

	store, err = NewStore(conf)
	if err != nil {
		return nil, err
	}

	m.poolMu.Lock()
	m.pool[name] = store
	m.poolMu.Unlock()

	log.Debug().Str("tenant", name).Str("type", conf.Type).Msg("Opened tenant store")
	return store, nil
}

// Close closes every opened tenant store.
func (m *Manager) Close() {
	m.poolMu.Lock()
	defer m.poolMu.Unlock()

	for name, store := range m.pool {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Str("tenant", name).Msg("Unable to close tenant store")
		}
		delete(m.pool, name)
	}
}
