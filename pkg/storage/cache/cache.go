package cache

import (
	"errors"
	"time"

	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/storage/cache/memory"
)

// Cache holds small derived lookups (tenant bindings). Entries are
// invalidated by the notification consumer; validation never reads it.
type Cache interface {
	Get(key string) (value []byte, ok bool)
	Set(key string, value []byte, expires *time.Duration) error
	Delete(key string)
}

func NewCache(conf config.Cache) (Cache, error) {
	switch conf.Type {
	case "memory":
		return memory.NewCache(conf.Settings)
	}

	return nil, errors.New("unknown cache type")
}
