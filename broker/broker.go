// Package broker fans live messages out to any number of subscribers
// without letting a slow consumer stall the producers.
package broker

import "sync/atomic"

type Message interface {
	Name() string
}

const subscriberBuffer = 1024

type Broker struct {
	subCount  int64  // needs 64-bit alignment
	dropCount uint64 // needs 64-bit alignment

	stopCh    chan struct{}
	publishCh chan Message
	subCh     chan chan Message
	unsubCh   chan chan Message
}

func NewBroker() *Broker {
	return &Broker{
		stopCh:    make(chan struct{}),
		publishCh: make(chan Message, 1),
		subCh:     make(chan chan Message, 1),
		unsubCh:   make(chan chan Message, 1),
	}
}

// Start runs the fan-out loop until Stop is called. Run it in its own
// goroutine; Subscribe, Unsubscribe and Publish all rendezvous with it.
func (b *Broker) Start() {
	subs := map[chan Message]struct{}{}
	for {
		select {
		case <-b.stopCh:
			return
		case ch := <-b.subCh:
			subs[ch] = struct{}{}
			atomic.StoreInt64(&b.subCount, int64(len(subs)))
		case ch := <-b.unsubCh:
			delete(subs, ch)
			atomic.StoreInt64(&b.subCount, int64(len(subs)))
		case msg := <-b.publishCh:
			for ch := range subs {
				// subscriber channels are buffered; drop rather than block
				select {
				case ch <- msg:
				default:
					atomic.AddUint64(&b.dropCount, 1)
				}
			}
		}
	}
}

func (b *Broker) Stop() {
	close(b.stopCh)
}

func (b *Broker) Subscribe() chan Message {
	ch := make(chan Message, subscriberBuffer)
	b.subCh <- ch
	return ch
}

func (b *Broker) Unsubscribe(ch chan Message) {
	b.unsubCh <- ch
}

func (b *Broker) Publish(msg Message) {
	b.publishCh <- msg
}

func (b *Broker) SubCount() int {
	return int(atomic.LoadInt64(&b.subCount))
}

// DropCount reports how many messages were discarded because a
// subscriber's buffer was full.
func (b *Broker) DropCount() int {
	return int(atomic.LoadUint64(&b.dropCount))
}

type Publisher interface {
	Publish(msg Message)
}
