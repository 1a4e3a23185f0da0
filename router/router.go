// Package router implements the central router that multiplexes peer
// connections and forwards framed messages between them
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lamportlab/clocksim/metrics"
	"github.com/lamportlab/clocksim/wire"
)

// DefaultQuorumThreshold is the minimum number of live peers (MIN_HOSTS)
// required before the router routes any traffic
const DefaultQuorumThreshold = 3

// ErrInvalidMessageType is reported when a non-routable type code
// reaches dispatch. It is fatal to that one message, not the connection.
var ErrInvalidMessageType = errors.New("invalid message type")

// Config configures a Router
type Config struct {
	// Addr is the listening address as host:port
	Addr string

	// QuorumThreshold gates dispatch; zero selects DefaultQuorumThreshold
	QuorumThreshold int

	// WriteTimeout bounds a single frame write to a peer; zero disables it
	WriteTimeout time.Duration

	// MessageLog, when set, receives a text record of every message the
	// router handles
	MessageLog io.Writer

	// Metrics, when set, receives router instrumentation
	Metrics *metrics.Metrics
}

// registration is the router's view of one connected peer: its observed
// address and the queue of frames awaiting delivery to it
type registration struct {
	addr     string
	conn     net.Conn
	outbound *sendQueue
}

// Router accepts peer connections, reads framed messages off them and
// forwards each message according to its routing rule.
//
// All registry state is owned by the single dispatch goroutine; the
// accept loop and the per-connection read pumps communicate with it
// exclusively over channels.
type Router struct {
	addr         string
	quorum       int
	writeTimeout time.Duration
	messageLog   io.Writer
	metrics      *metrics.Metrics

	listener net.Listener
	running  int32 // atomic flag

	// registry is touched only by the dispatch goroutine
	registry map[string]*registration

	registerCh   chan *registration
	unregisterCh chan string
	inboundCh    chan *wire.Message

	peerCount int64 // atomic mirror of len(registry)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Router from the given configuration
func New(cfg Config) *Router {
	quorum := cfg.QuorumThreshold
	if quorum == 0 {
		quorum = DefaultQuorumThreshold
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Router{
		addr:         cfg.Addr,
		quorum:       quorum,
		writeTimeout: cfg.WriteTimeout,
		messageLog:   cfg.MessageLog,
		metrics:      cfg.Metrics,
		registry:     make(map[string]*registration),
		registerCh:   make(chan *registration),
		unregisterCh: make(chan string),
		inboundCh:    make(chan *wire.Message, 256),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start binds the listening socket and starts the accept and dispatch loops
func (r *Router) Start() error {
	if !atomic.CompareAndSwapInt32(&r.running, 0, 1) {
		return fmt.Errorf("router is already running")
	}

	listener, err := net.Listen("tcp", r.addr)
	if err != nil {
		atomic.StoreInt32(&r.running, 0)
		return fmt.Errorf("failed to listen on %s: %w", r.addr, err)
	}
	r.listener = listener

	r.wg.Add(2)
	go r.acceptLoop()
	go r.dispatchLoop()

	log.Printf("Router started at %s", listener.Addr())
	return nil
}

// Stop shuts the router down: the listener closes, every peer
// connection is torn down and all goroutines are joined
func (r *Router) Stop() error {
	if !atomic.CompareAndSwapInt32(&r.running, 1, 0) {
		return nil // Already stopped
	}

	r.cancel()
	if r.listener != nil {
		r.listener.Close()
	}
	r.wg.Wait()

	log.Printf("Router stopped")
	return nil
}

// Addr returns the listening address
func (r *Router) Addr() net.Addr {
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// PeerCount returns the number of currently registered peers
func (r *Router) PeerCount() int {
	return int(atomic.LoadInt64(&r.peerCount))
}

// acceptLoop accepts incoming peer connections and hands them to the
// dispatch goroutine for registration
func (r *Router) acceptLoop() {
	defer r.wg.Done()

	for {
		conn, err := r.listener.Accept()
		if err != nil {
			select {
			case <-r.ctx.Done():
				return
			default:
				log.Printf("Failed to accept connection: %v", err)
				continue
			}
		}

		// The registry key is the router-observed remote address, which
		// matches the address the peer self-reports as its source.
		reg := &registration{
			addr:     conn.RemoteAddr().String(),
			conn:     conn,
			outbound: newSendQueue(),
		}

		select {
		case r.registerCh <- reg:
		case <-r.ctx.Done():
			conn.Close()
			return
		}
	}
}

// readPump reads exactly one frame per iteration off a peer connection
// and forwards the decoded message to the dispatch goroutine. Any read
// or decode failure tears down that connection only.
func (r *Router) readPump(reg *registration) {
	defer r.wg.Done()

	for {
		msg, err := wire.ReadMessage(reg.conn)
		if err != nil {
			if errors.Is(err, wire.ErrMalformedFrame) {
				log.Printf("Malformed frame from %s: %v", reg.addr, err)
				if r.metrics != nil {
					r.metrics.FramesInvalid.Inc()
				}
			}
			select {
			case r.unregisterCh <- reg.addr:
			case <-r.ctx.Done():
			}
			return
		}

		select {
		case r.inboundCh <- msg:
		case <-r.ctx.Done():
			return
		}
	}
}

// writePump drains a peer's outbound queue. net.Conn.Write does not
// return until the whole frame is accepted, so a partially sent frame
// never interleaves with the next one.
func (r *Router) writePump(reg *registration) {
	defer r.wg.Done()

	for {
		frame, ok := reg.outbound.pop()
		if !ok {
			return
		}
		if r.writeTimeout > 0 {
			reg.conn.SetWriteDeadline(time.Now().Add(r.writeTimeout))
		}
		if _, err := reg.conn.Write(frame); err != nil {
			// The read pump observes the closed connection and
			// unregisters this peer.
			return
		}
	}
}
