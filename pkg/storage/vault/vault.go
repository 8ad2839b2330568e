// Package vault hides where tenant store credentials live. The memory
// vault serves them straight from config; the aws vault reads them from
// Secrets Manager so connection settings never touch the config file.
package vault

import (
	"errors"

	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/storage/vault/aws"
	"github.com/keygate/keygate/pkg/storage/vault/memory"
)

// Vault resolves a tenant name to its full store configuration.
type Vault interface {
	GetCredential(name string) (config.Tenant, error)
	SetCredential(name string, value config.Tenant) error
}

func NewVault(conf config.Vault, tenants []config.Tenant) (Vault, error) {
	switch conf.Type {
	case "", "memory":
		return memory.NewMemoryVault(tenants)
	case "aws":
		return aws.NewAWSVault(conf.Settings)
	}

	return nil, errors.New("unknown vault type")
}
