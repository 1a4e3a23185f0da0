package router

import (
	"fmt"
	"log"
	"sort"
	"sync/atomic"

	"github.com/lamportlab/clocksim/metrics"
	"github.com/lamportlab/clocksim/wire"
)

// dispatchLoop is the single goroutine that owns the peer registry.
// Registrations, disconnects and inbound messages all arrive here over
// channels, so no locking is needed anywhere in the routing path.
func (r *Router) dispatchLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			for _, reg := range r.registry {
				reg.outbound.close()
				reg.conn.Close()
			}
			r.registry = make(map[string]*registration)
			atomic.StoreInt64(&r.peerCount, 0)
			if r.metrics != nil {
				r.metrics.PeersConnected.Set(0)
			}
			return

		case reg := <-r.registerCh:
			r.register(reg)

		case addr := <-r.unregisterCh:
			r.unregister(addr)

		case msg := <-r.inboundCh:
			r.handleMessage(msg)
		}
	}
}

// register inserts a peer into the registry and starts its pumps
func (r *Router) register(reg *registration) {
	r.registry[reg.addr] = reg
	atomic.AddInt64(&r.peerCount, 1)
	if r.metrics != nil {
		r.metrics.PeersAccepted.Inc()
		r.metrics.PeersConnected.Inc()
	}

	r.wg.Add(2)
	go r.readPump(reg)
	go r.writePump(reg)

	log.Printf("Accepted connection from %s", reg.addr)
}

// unregister removes a peer from the registry and closes its connection
func (r *Router) unregister(addr string) {
	reg, exists := r.registry[addr]
	if !exists {
		return
	}

	delete(r.registry, addr)
	reg.outbound.close()
	reg.conn.Close()
	atomic.AddInt64(&r.peerCount, -1)
	if r.metrics != nil {
		r.metrics.PeersConnected.Dec()
	}

	log.Printf("Closed connection to %s", addr)
}

// handleMessage applies the routing policy to one inbound message
func (r *Router) handleMessage(msg *wire.Message) {
	if r.messageLog != nil {
		fmt.Fprintf(r.messageLog, "---------------- RECEIVED MESSAGE ----------------\n%s\n\n", msg)
	}
	if r.metrics != nil {
		r.metrics.MessagesReceived.Inc()
	}

	others := r.otherPeers(msg.Source)

	// Routing is disabled until the simulated population reaches quorum.
	if len(others) < r.quorum-1 {
		r.countDrop(metrics.DropQuorumNotMet)
		return
	}

	frame, err := wire.Encode(msg)
	if err != nil {
		log.Printf("Failed to re-encode message from %s: %v", msg.Source, err)
		r.countDrop(metrics.DropInvalidType)
		return
	}

	switch msg.Type {
	case wire.MessageTypeSendFirst:
		r.enqueue(others[0], frame)

	case wire.MessageTypeSendSecond:
		if len(others) < 2 {
			r.countDrop(metrics.DropNoTarget)
			return
		}
		r.enqueue(others[1], frame)

	case wire.MessageTypeBroadcast:
		for _, addr := range others {
			r.enqueue(addr, frame)
		}

	default:
		log.Printf("Dropping message from %s: %v: %s", msg.Source, ErrInvalidMessageType, msg.Type)
		r.countDrop(metrics.DropInvalidType)
		return
	}

	if r.metrics != nil {
		r.metrics.MessagesRouted.WithLabelValues(msg.Type.String()).Inc()
	}
}

// otherPeers returns every registered address except the sender's, in
// lexicographic order. The ordering is the deterministic tie-break that
// assigns the "first" and "second" directed targets.
func (r *Router) otherPeers(source string) []string {
	others := make([]string, 0, len(r.registry))
	for addr := range r.registry {
		if addr != source {
			others = append(others, addr)
		}
	}
	sort.Strings(others)
	return others
}

// enqueue places a frame on a peer's outbound queue. The queue is
// unbounded and never blocks the dispatch goroutine; a slow connection
// accumulates its backlog there until the write pump catches up.
func (r *Router) enqueue(addr string, frame []byte) {
	reg, exists := r.registry[addr]
	if !exists {
		return
	}
	reg.outbound.push(frame)
}

func (r *Router) countDrop(reason string) {
	if r.metrics != nil {
		r.metrics.MessagesDropped.WithLabelValues(reason).Inc()
	}
}
