// Package sim runs complete in-process experiments: one router plus a
// population of simulated peers, started together, run for a configured
// duration and shut down with their event logs flushed to disk
package sim

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/lamportlab/clocksim/config"
	"github.com/lamportlab/clocksim/eventlog"
	"github.com/lamportlab/clocksim/metrics"
	"github.com/lamportlab/clocksim/peer"
	"github.com/lamportlab/clocksim/router"
)

// Experiment owns one router and its peers for a single run
type Experiment struct {
	cfg     *config.Config
	metrics *metrics.Metrics

	router *router.Router
	peers  []*peer.Peer
}

// New validates the configuration and prepares an experiment
func New(cfg *config.Config) (*Experiment, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid experiment configuration: %w", err)
	}

	return &Experiment{
		cfg:     cfg,
		metrics: metrics.NewMetrics("clocksim"),
	}, nil
}

// Metrics returns the router instrumentation for this experiment
func (e *Experiment) Metrics() *metrics.Metrics {
	return e.metrics
}

// Run executes the experiment: start the router, connect the peers, let
// the simulation run for the configured duration (or until ctx is
// cancelled), then stop everything and flush the logs
func (e *Experiment) Run(ctx context.Context) error {
	logDir := filepath.Join(e.cfg.Log.Dir, e.cfg.Sim.ExperimentName)

	routerLog, err := eventlog.FileSink(logDir, "router.log")
	if err != nil {
		return err
	}
	defer routerLog.Close()

	e.router = router.New(router.Config{
		Addr:            e.cfg.RouterAddr(),
		QuorumThreshold: e.cfg.Network.QuorumThreshold,
		WriteTimeout:    e.cfg.Network.WriteTimeout,
		MessageLog:      routerLog,
		Metrics:         e.metrics,
	})
	if err := e.router.Start(); err != nil {
		return fmt.Errorf("failed to start router: %w", err)
	}
	defer e.router.Stop()

	speeds := e.clockSpeeds()
	for i := 0; i < e.cfg.Sim.PeerCount; i++ {
		p, err := peer.New(peer.Config{
			RouterAddr:   e.router.Addr().String(),
			ClockSpeed:   speeds[i],
			ProbInternal: e.cfg.Sim.ProbInternal,
			DialTimeout:  e.cfg.Network.DialTimeout,
		})
		if err != nil {
			e.stopPeers()
			return fmt.Errorf("failed to start peer %d: %w", i, err)
		}
		p.Start()
		e.peers = append(e.peers, p)
	}

	log.Printf("Experiment %q running for %s with %d peers",
		e.cfg.Sim.ExperimentName, e.cfg.Sim.RunTime(), e.cfg.Sim.PeerCount)

	select {
	case <-time.After(e.cfg.Sim.RunTime()):
	case <-ctx.Done():
		log.Printf("Experiment %q interrupted, shutting down early", e.cfg.Sim.ExperimentName)
	}

	e.stopPeers()
	if err := e.router.Stop(); err != nil {
		return err
	}

	return e.flushLogs(logDir)
}

// Peers returns the experiment's peers; populated once Run has started them
func (e *Experiment) Peers() []*peer.Peer {
	return e.peers
}

// clockSpeeds returns one clock speed per peer, using the configured
// speeds when present and drawing uniformly from the configured range
// otherwise
func (e *Experiment) clockSpeeds() []int {
	if len(e.cfg.Sim.ClockSpeeds) == e.cfg.Sim.PeerCount {
		return e.cfg.Sim.ClockSpeeds
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	speeds := make([]int, e.cfg.Sim.PeerCount)
	span := e.cfg.Sim.MaxClockSpeed - e.cfg.Sim.MinClockSpeed + 1
	for i := range speeds {
		speeds[i] = e.cfg.Sim.MinClockSpeed + rng.Intn(span)
	}
	log.Printf("No clock speeds provided, using randomly generated: %v", speeds)
	return speeds
}

// stopPeers stops every started peer, logging worker failures
func (e *Experiment) stopPeers() {
	for _, p := range e.peers {
		if err := p.Stop(); err != nil {
			log.Printf("Peer %s stopped with error: %v", p.Addr(), err)
		}
	}
}

// flushLogs writes each peer's recorded events as JSON under the
// experiment's log directory
func (e *Experiment) flushLogs(logDir string) error {
	for _, p := range e.peers {
		name := fmt.Sprintf("peer-%s.json", sanitizeAddr(p.Addr()))
		f, err := eventlog.FileSink(logDir, name)
		if err != nil {
			return err
		}
		if err := p.Flush(f); err != nil {
			f.Close()
			return fmt.Errorf("failed to flush events for %s: %w", p.Addr(), err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// sanitizeAddr makes an ip:port usable as a file name
func sanitizeAddr(addr string) string {
	return strings.NewReplacer(":", "-", "/", "-").Replace(addr)
}
