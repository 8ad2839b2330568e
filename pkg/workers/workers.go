// Package workers consumes key lifecycle events and keeps derived state,
// currently the tenant binding cache, consistent with the key store.
package workers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/storage"
	queue_models "github.com/keygate/keygate/pkg/storage/queue/models"
	"github.com/keygate/keygate/pkg/tenants"
)

var eventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "key_events_processed_total",
	Help: "Key lifecycle events consumed from the queue",
}, []string{"event"})

type KeyGateWorker struct {
	Config          config.Workers
	StorageServices *storage.Services
}

func (w *KeyGateWorker) Produce(ctx context.Context, ch chan<- []byte, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			item, ok := w.StorageServices.Queue.Dequeue()
			if ok {
				ch <- item
			} else {
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (w *KeyGateWorker) Consume(ch <-chan []byte, threadId int, wg *sync.WaitGroup) {
	log.Debug().Int("thread", threadId).Msg("Starting worker")
	defer wg.Done()

	for item := range ch {
		event := queue_models.KeyEvent{}
		if err := json.Unmarshal(item, &event); err != nil {
			log.Error().Err(err).Int("thread", threadId).Str("message", string(item)).Msg("Unable to decode event")
			continue
		}

		eventsProcessed.WithLabelValues(string(event.Event)).Inc()

		// Every lifecycle event names the owning user. Whatever routing
		// state we cached for that user may be stale now, so drop it
		// and let the next request repopulate from the key store.
		w.StorageServices.Cache.Delete(tenants.BindingCacheKey(event.UserID))

		log.Debug().
			Int64("event_id", event.EventID).
			Str("event", string(event.Event)).
			Uint("user_id", event.UserID).
			Str("key_uuid", event.KeyUUID).
			Msg("Processed key event")
	}
}

func RunWorkers(ctx context.Context, conf config.Workers, storageServices *storage.Services) {
	workers := &KeyGateWorker{
		Config:          conf,
		StorageServices: storageServices,
	}

	values := make(chan []byte)

	log.Debug().Msg("Starting Producer")
	var producerWg sync.WaitGroup
	producerWg.Add(1)
	go workers.Produce(ctx, values, &producerWg)

	log.Debug().Msg("Starting Consumers")
	var consumerWg sync.WaitGroup
	for i := 0; i < conf.Count; i++ {
		consumerWg.Add(1)
		go workers.Consume(values, i, &consumerWg)
	}

	producerWg.Wait()

	log.Debug().Msg("Closing Producer")
	close(values)

	log.Debug().Msg("Closing Consumers...")
	consumerWg.Wait()
}
