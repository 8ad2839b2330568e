package memory

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/keygate/keygate/pkg/util"
)

type Cache struct {
	DefaultTTLSeconds int `mapstructure:"default_ttl_seconds"`

	store *gocache.Cache
}

func NewCache(settings map[string]any) (*Cache, error) {
	rc := util.ConfigToStruct[Cache](settings)
	if rc.DefaultTTLSeconds <= 0 {
		rc.DefaultTTLSeconds = 300
	}

	ttl := time.Duration(rc.DefaultTTLSeconds) * time.Second
	rc.store = gocache.New(ttl, 2*ttl)
	return rc, nil
}

func (c *Cache) Get(key string) ([]byte, bool) {
	value, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	return value.([]byte), true
}

func (c *Cache) Set(key string, value []byte, expires *time.Duration) error {
	ttl := gocache.DefaultExpiration
	if expires != nil {
		ttl = *expires
	}
	c.store.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}
