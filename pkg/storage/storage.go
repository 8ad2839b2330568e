package storage

import (
	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/storage/cache"
	"github.com/keygate/keygate/pkg/storage/database"
	"github.com/keygate/keygate/pkg/storage/queue"
	"github.com/keygate/keygate/pkg/storage/vault"
)

type Services struct {
	Database database.Database
	Cache    cache.Cache
	Queue    queue.Queue
	Vault    vault.Vault
}

func New(c config.KeyGateConfig) (*Services, error) {
	rc := &Services{}

	var err error
	if rc.Queue, err = queue.NewQueue(c.Queue); err != nil {
		return nil, err
	}

	if rc.Cache, err = cache.NewCache(c.Cache); err != nil {
		return nil, err
	}

	if rc.Database, err = database.NewConnection(c.Database, c.AdminAPIKeys); err != nil {
		return nil, err
	}

	if rc.Vault, err = vault.NewVault(c.Vault, c.Tenants); err != nil {
		return nil, err
	}

	return rc, nil
}
