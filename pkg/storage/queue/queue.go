package queue

import (
	"errors"

	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/storage/queue/memory"
	"github.com/keygate/keygate/pkg/storage/queue/sqs"
)

// Queue carries fire-and-forget key lifecycle notifications to downstream
// consumers (cache invalidation, audit).
type Queue interface {
	Enqueue(value []byte) error
	Dequeue() ([]byte, bool)
}

func NewQueue(conf config.Queue) (Queue, error) {
	switch conf.Type {
	case "memory":
		return memory.NewQueue(conf.Settings)
	case "sqs":
		return sqs.NewQueue(conf.Settings)
	}

	return nil, errors.New("unknown queue type")
}
