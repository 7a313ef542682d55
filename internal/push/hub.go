package push

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// subscriberBuffer bounds how far a connection may fall behind before
// the hub drops it.
const subscriberBuffer = 64

// Hub fans committed ledger events out to the live connections of the
// borrower they concern. Delivery is fire-and-forget: events for a
// borrower with no open connection are dropped, and a connection that
// cannot drain its inbox is detached rather than allowed to stall the
// payment path.
type Hub struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[*subscriber]struct{}
}

// subscriber is one connection's event inbox. The writer goroutine in
// conn.go drains ch; the hub owns closing it, so a closed inbox always
// means the subscriber has been detached.
type subscriber struct {
	borrowerID uuid.UUID
	ch         chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[*subscriber]struct{})}
}

func (h *Hub) subscribe(borrowerID uuid.UUID) *subscriber {
	sub := &subscriber{
		borrowerID: borrowerID,
		ch:         make(chan []byte, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[borrowerID] == nil {
		h.subs[borrowerID] = make(map[*subscriber]struct{})
	}
	h.subs[borrowerID][sub] = struct{}{}

	log.Debug().
		Str("borrower_id", borrowerID.String()).
		Msg("Push subscriber attached")
	return sub
}

// unsubscribe detaches sub and closes its inbox. Safe to call more than
// once; only the first call finds the subscriber registered.
func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.borrowerID]
	if !ok {
		return
	}
	if _, registered := set[sub]; !registered {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.borrowerID)
	}
	close(sub.ch)

	log.Debug().
		Str("borrower_id", sub.borrowerID.String()).
		Msg("Push subscriber detached")
}

// Broadcast delivers payload to every connection of the borrower. A
// subscriber whose inbox is full gets detached on the spot: one slow
// reader must never back-pressure ledger writes.
func (h *Hub) Broadcast(borrowerID uuid.UUID, payload []byte) {
	var stalled []*subscriber

	h.mu.RLock()
	for sub := range h.subs[borrowerID] {
		select {
		case sub.ch <- payload:
		default:
			stalled = append(stalled, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range stalled {
		log.Warn().
			Str("borrower_id", borrowerID.String()).
			Msg("Dropping stalled push subscriber")
		h.unsubscribe(sub)
	}
}
