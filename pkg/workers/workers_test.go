package workers

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/storage"
	queue_models "github.com/keygate/keygate/pkg/storage/queue/models"
	"github.com/keygate/keygate/pkg/tenants"
)

func TestConsumeInvalidatesBinding(t *testing.T) {
	services, err := storage.New(config.KeyGateConfig{
		Database: config.Database{Type: "memory"},
		Queue:    config.Queue{Type: "memory"},
		Cache:    config.Cache{Type: "memory"},
	})
	require.NoError(t, err)

	cacheKey := tenants.BindingCacheKey(7)
	ttl := time.Minute
	require.NoError(t, services.Cache.Set(cacheKey, []byte("acme"), &ttl))

	event, err := json.Marshal(queue_models.KeyEvent{
		EventID: 1,
		Event:   queue_models.KeyToggled,
		UserID:  7,
		KeyUUID: "some-uuid",
	})
	require.NoError(t, err)

	worker := &KeyGateWorker{StorageServices: services}

	ch := make(chan []byte, 2)
	ch <- []byte("not json")
	ch <- event
	close(ch)

	var wg sync.WaitGroup
	wg.Add(1)
	go worker.Consume(ch, 0, &wg)
	wg.Wait()

	_, ok := services.Cache.Get(cacheKey)
	assert.False(t, ok, "binding should be dropped after the event")
}
