package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
	"github.com/google/uuid"
)

// maxPending bounds the queue of one user. A user this far behind is stalled and
// newer events are dropped.
const maxPending = 64

type job struct {
	ctx    context.Context
	handle ws.Handle
	event  types.EventType
	msg    json.RawMessage
}

// outbox writes to each user from a single worker, in enqueue order, so a slow
// socket never holds up the caller or other users. A user has a worker only while
// their queue is non-empty.
type outbox struct {
	mu      sync.Mutex
	pending map[uuid.UUID][]job
	wg      sync.WaitGroup
	write   func(userID uuid.UUID, j job)
}

func newOutbox(write func(userID uuid.UUID, j job)) *outbox {
	return &outbox{pending: make(map[uuid.UUID][]job), write: write}
}

// push reports false when the user's queue is full.
func (o *outbox) push(userID uuid.UUID, j job) bool {
	o.mu.Lock()
	q, running := o.pending[userID]
	if len(q) >= maxPending {
		o.mu.Unlock()
		return false
	}
	o.pending[userID] = append(q, j)
	if !running {
		o.wg.Add(1)
	}
	o.mu.Unlock()

	if !running {
		go o.drain(userID)
	}
	return true
}

func (o *outbox) drain(userID uuid.UUID) {
	defer o.wg.Done()
	for {
		o.mu.Lock()
		q := o.pending[userID]
		if len(q) == 0 {
			delete(o.pending, userID)
			o.mu.Unlock()
			return
		}
		j := q[0]
		q[0] = job{}
		o.pending[userID] = q[1:]
		o.mu.Unlock()

		o.write(userID, j)
	}
}

func (o *outbox) wait() {
	o.wg.Wait()
}
