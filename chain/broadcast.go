package chain

import (
	"log"
	"sync"
)

type broadcaster struct {
	mu      sync.RWMutex
	clients map[chan *Receipt]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{clients: map[chan *Receipt]struct{}{}}
}

func (b *broadcaster) add(buffer int) (<-chan *Receipt, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan *Receipt, buffer)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// publish never blocks: a full client buffer drops the receipt.
func (b *broadcaster) publish(rec *Receipt) {
	if len(rec.Events) == 0 {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- rec:
		default:
			log.Printf("chain: subscriber full, dropped %s", rec.TxId)
		}
	}
}
