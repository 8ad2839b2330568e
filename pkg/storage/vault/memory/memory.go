package memory

import (
	"errors"
	"sync"

	"github.com/keygate/keygate/pkg/config"
)

var ErrCredentialNotFound = errors.New("credential not found")

type MemoryVault struct {
	mu      sync.RWMutex
	tenants map[string]config.Tenant
}

func NewMemoryVault(tenants []config.Tenant) (*MemoryVault, error) {
	vault := &MemoryVault{
		tenants: make(map[string]config.Tenant),
	}
	for _, t := range tenants {
		vault.tenants[t.Name] = t
	}
	return vault, nil
}

func (mv *MemoryVault) GetCredential(name string) (config.Tenant, error) {
	mv.mu.RLock()
	defer mv.mu.RUnlock()

	tenant, ok := mv.tenants[name]
	if !ok {
		return config.Tenant{}, ErrCredentialNotFound
	}
	return tenant, nil
}

func (mv *MemoryVault) SetCredential(name string, value config.Tenant) error {
	mv.mu.Lock()
	defer mv.mu.Unlock()

	mv.tenants[name] = value
	return nil
}
