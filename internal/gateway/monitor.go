package gateway

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/robfig/cron"

	"aasx-facility-backend/config"
	"aasx-facility-backend/internal/metrics"
	"aasx-facility-backend/internal/model"
	"aasx-facility-backend/internal/store"
)

// Status is the connectivity state of an edge gateway.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	// StatusUnknown means no probe result is on the board, either because the
	// gateway was never probed or the last result expired.
	StatusUnknown Status = "unknown"
)

// GatewayStatus is one row of the status board.
type GatewayStatus struct {
	ID        int64      `json:"id"`
	PCName    string     `json:"pcName"`
	IPPort    string     `json:"ipPort"`
	Status    Status     `json:"status"`
	CheckedAt *time.Time `json:"checkedAt,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Prober checks whether a gateway is reachable.
type Prober interface {
	Probe(ctx context.Context, address string) error
}

// TCPProber is a real implementation of Prober that opens a TCP connection.
type TCPProber struct {
	Timeout time.Duration
}

// Probe dials address and closes the connection right away.
func (p *TCPProber) Probe(ctx context.Context, address string) error {
	dialer := net.Dialer{Timeout: p.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return conn.Close()
}

type job struct {
	gateway model.EdgeGateway
	done    *sync.WaitGroup
}

type probeResult struct {
	status    Status
	checkedAt time.Time
	err       string
}

// Monitor probes edge gateways with a pool of workers and keeps the latest
// results on a TTL status board.
type Monitor struct {
	cfg    *config.GatewayConfig
	size   int
	jobs   chan job
	store  store.Store
	prober Prober
	board  *cache.Cache
	cron   *cron.Cron

	startOnce sync.Once
}

// NewMonitor creates a new gateway monitor.
func NewMonitor(cfg *config.GatewayConfig, st store.Store) *Monitor {
	return &Monitor{
		cfg:    cfg,
		size:   cfg.Size,
		jobs:   make(chan job, cfg.Size), // Buffered channel
		store:  st,
		prober: &TCPProber{Timeout: cfg.ProbeTimeout},
		board:  cache.New(cfg.StatusTTL, 2*cfg.StatusTTL),
		cron:   cron.New(),
	}
}

// Start launches the worker goroutines. Calling it again is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		for i := 0; i < m.size; i++ {
			go m.worker(ctx, i)
		}
	})
}

func (m *Monitor) worker(ctx context.Context, id int) {
	for {
		select {
		case j := <-m.jobs:
			m.probe(ctx, j.gateway)
			j.done.Done()
		case <-ctx.Done():
			log.Printf("Gateway worker %d shutting down", id)
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context, gw model.EdgeGateway) {
	result := probeResult{status: StatusConnected, checkedAt: time.Now().UTC()}
	if err := m.prober.Probe(ctx, gw.IPPort); err != nil {
		result.status = StatusDisconnected
		result.err = err.Error()
		log.Printf("Warning: edge gateway %s (%s) unreachable: %v", gw.PCName, gw.IPPort, err)
	}
	m.board.Set(boardKey(gw.ID), result, cache.DefaultExpiration)
	metrics.GatewayProbed(gw.PCName, result.status == StatusConnected)
}

// CheckAll probes every registered gateway and returns once all probes
// have finished. Start must have been called.
func (m *Monitor) CheckAll(ctx context.Context) error {
	gateways, err := m.store.ListEdgeGateways(ctx)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, gw := range gateways {
		wg.Add(1)
		select {
		case m.jobs <- job{gateway: gw, done: &wg}:
		case <-ctx.Done():
			wg.Done()
			wg.Wait()
			return fmt.Errorf("gateway check interrupted: %w", ctx.Err())
		}
	}
	wg.Wait()
	return nil
}

// Statuses lists every registered gateway with its latest probe result.
func (m *Monitor) Statuses(ctx context.Context) ([]GatewayStatus, error) {
	gateways, err := m.store.ListEdgeGateways(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]GatewayStatus, 0, len(gateways))
	for _, gw := range gateways {
		s := GatewayStatus{ID: gw.ID, PCName: gw.PCName, IPPort: gw.IPPort, Status: StatusUnknown}
		if v, found := m.board.Get(boardKey(gw.ID)); found {
			r := v.(probeResult)
			checkedAt := r.checkedAt
			s.Status = r.status
			s.CheckedAt = &checkedAt
			s.Error = r.err
		}
		out = append(out, s)
	}
	return out, nil
}

// Run probes all gateways on the configured schedule until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.cfg.Enabled {
		log.Println("Gateway monitor is disabled. Not starting.")
		return nil
	}
	m.Start(ctx)

	check := func() {
		if err := m.CheckAll(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Error checking edge gateways: %v", err)
		}
	}
	if err := m.cron.AddFunc(m.cfg.Schedule, check); err != nil {
		return fmt.Errorf("invalid gateway schedule %q: %w", m.cfg.Schedule, err)
	}
	log.Printf("Starting gateway monitor with %d workers (schedule %q)...", m.size, m.cfg.Schedule)
	m.cron.Start()
	go check()

	<-ctx.Done()
	m.cron.Stop()
	return nil
}

func boardKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
