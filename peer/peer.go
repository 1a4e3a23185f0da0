// Package peer implements a simulated host: a listener that drains the
// peer's connection to the router and a worker that advances a Lamport
// clock while processing received messages or synthesizing new events
package peer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/lamportlab/clocksim/clock"
	"github.com/lamportlab/clocksim/eventlog"
	"github.com/lamportlab/clocksim/wire"
)

// Clock speed bounds for randomly drawn speeds, in ticks per second
const (
	MinClockSpeed = 1
	MaxClockSpeed = 6
)

// DefaultProbInternal is the default probability that a synthetic step
// is a pure internal event
const DefaultProbInternal = 0.7

// DefaultQueueCapacity is the inbound queue capacity. The source design
// calls for an unbounded queue; a generously buffered channel stands in
// for it, and the listener blocks rather than dropping when it fills.
const DefaultQueueCapacity = 1024

// Config configures a Peer
type Config struct {
	// RouterAddr is the router endpoint to dial, as host:port
	RouterAddr string

	// LocalAddr optionally binds the outbound connection to a fixed
	// local host:port, which then becomes the peer's identity
	LocalAddr string

	// ClockSpeed is the worker cadence in ticks per second; zero draws
	// a speed uniformly from [MinClockSpeed, MaxClockSpeed]
	ClockSpeed int

	// ProbInternal is the probability of a synthetic step being a pure
	// internal event; negative selects DefaultProbInternal
	ProbInternal float64

	// DialTimeout bounds the connection attempt; zero means no timeout
	DialTimeout time.Duration

	// Seed fixes the random source for reproducible runs; zero seeds
	// from the current time
	Seed int64
}

// Peer is one simulated host. Its listener and worker run concurrently,
// sharing the inbound queue; the logical clock is written only by the
// worker.
type Peer struct {
	addr         string
	conn         net.Conn
	clockSpeed   int
	probInternal float64

	clk      clock.Clock
	inbound  chan *wire.Message
	recorder *eventlog.Recorder
	rng      *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	errMu     sync.Mutex
	workerErr error
}

// New dials the router and prepares a peer for Start. The peer's
// address (its Message source field) is the connection's local address,
// which is exactly how the router keys its registry entry.
func New(cfg Config) (*Peer, error) {
	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	if cfg.LocalAddr != "" {
		laddr, err := net.ResolveTCPAddr("tcp", cfg.LocalAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve local address %s: %w", cfg.LocalAddr, err)
		}
		dialer.LocalAddr = laddr
	}

	conn, err := dialer.Dial("tcp", cfg.RouterAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to router at %s: %w", cfg.RouterAddr, err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	clockSpeed := cfg.ClockSpeed
	if clockSpeed == 0 {
		clockSpeed = MinClockSpeed + rng.Intn(MaxClockSpeed-MinClockSpeed+1)
	}

	probInternal := cfg.ProbInternal
	if probInternal < 0 {
		probInternal = DefaultProbInternal
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Peer{
		addr:         conn.LocalAddr().String(),
		conn:         conn,
		clockSpeed:   clockSpeed,
		probInternal: probInternal,
		inbound:      make(chan *wire.Message, DefaultQueueCapacity),
		recorder:     eventlog.NewRecorder(),
		rng:          rng,
		ctx:          ctx,
		cancel:       cancel,
	}

	log.Printf("Peer %s initialized with clock speed %d Hz", p.addr, p.clockSpeed)
	return p, nil
}

// Start launches the listener and worker
func (p *Peer) Start() {
	p.wg.Add(2)
	go p.listen()
	go p.work()
}

// Stop raises the stop signal, closes the socket to unblock the
// listener, joins both activities and returns the worker's error, if
// any. Recorded events stay available for flushing afterwards.
func (p *Peer) Stop() error {
	p.cancel()
	p.conn.Close()
	p.wg.Wait()

	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.workerErr
}

// Addr returns the peer's own address, used as the source of every
// message it sends
func (p *Peer) Addr() string {
	return p.addr
}

// ClockSpeed returns the worker cadence in ticks per second
func (p *Peer) ClockSpeed() int {
	return p.clockSpeed
}

// ClockValue returns the logical clock value. Only meaningful once the
// worker has stopped; the clock cell is owned by the worker goroutine.
func (p *Peer) ClockValue() uint64 {
	return p.clk.Value()
}

// QueueLen returns the current inbound queue length
func (p *Peer) QueueLen() int {
	return len(p.inbound)
}

// Events returns a snapshot of the peer's recorded events
func (p *Peer) Events() []eventlog.Event {
	return p.recorder.Events()
}

// Flush writes the peer's recorded events to w as JSON
func (p *Peer) Flush(w io.Writer) error {
	return p.recorder.Flush(w)
}

// listen reads exactly one frame per iteration off the router
// connection and enqueues the decoded message. It never touches the
// logical clock. A short read means the router side closed; a decode
// failure means protocol desync. Both stop the peer.
func (p *Peer) listen() {
	defer p.wg.Done()
	defer p.cancel()

	for {
		msg, err := wire.ReadMessage(p.conn)
		if err != nil {
			if p.ctx.Err() == nil {
				if errors.Is(err, wire.ErrMalformedFrame) {
					log.Printf("Peer %s received malformed frame: %v", p.addr, err)
				} else {
					log.Printf("Peer %s disconnected from router", p.addr)
				}
			}
			return
		}

		select {
		case p.inbound <- msg:
		case <-p.ctx.Done():
			return
		}
	}
}

// work runs one simulation step per 1/clockSpeed seconds: process a
// queued message if one is ready, otherwise synthesize a local event,
// and always advance the logical clock
func (p *Peer) work() {
	defer p.wg.Done()

	interval := time.Second / time.Duration(p.clockSpeed)

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		p.step()

		select {
		case <-p.ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// step performs a single worker iteration
func (p *Peer) step() {
	// Non-blocking queue check: an empty queue means this step
	// synthesizes an event instead of waiting.
	select {
	case msg := <-p.inbound:
		p.clk.TickReceive(msg.LogicalClockTime)
		p.record(eventlog.EventReceive, msg)
		return
	default:
	}

	p.clk.Tick()

	if p.rng.Float64() < p.probInternal {
		p.record(eventlog.EventInternal, nil)
		return
	}

	kinds := [...]wire.MessageType{
		wire.MessageTypeSendFirst,
		wire.MessageTypeSendSecond,
		wire.MessageTypeBroadcast,
	}
	msg := wire.NewMessage(p.addr, kinds[p.rng.Intn(len(kinds))], p.clk.Value())

	if err := wire.WriteMessage(p.conn, msg); err != nil {
		// A transmit failure is fatal to this peer's worker, unless the
		// write lost a race with Stop closing the socket.
		if p.ctx.Err() == nil {
			p.setErr(fmt.Errorf("peer %s transmit failed: %w", p.addr, err))
		}
		p.cancel()
		return
	}

	p.record(eventlog.EventSend, msg)
}

// record appends one event with the current clock and queue state
func (p *Peer) record(eventType eventlog.EventType, msg *wire.Message) {
	p.recorder.Record(eventlog.Event{
		EventType:        eventType,
		SystemClockTime:  time.Now().UnixNano(),
		LogicalClockTime: p.clk.Value(),
		QueueSize:        len(p.inbound),
		Message:          msg,
	})
}

func (p *Peer) setErr(err error) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	if p.workerErr == nil {
		p.workerErr = err
	}
}
