// monitor simulates liveness probes for the configured services and
// publishes service snapshots that drive the views. Per-service probers
// accumulate counters lock-free; a single collector folds them into
// immutable snapshots at the publish interval, so downstream consumers
// never share mutable state with the probers.
package monitor

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"linkboard/atomic_float"
	"linkboard/models"

	channerics "github.com/niceyeti/channerics/channels"
)

const outageRate = 0.02

type Monitor struct {
	services []models.Service
	out      chan []models.Service
}

func New(services []models.Service) *Monitor {
	return &Monitor{
		services: services,
		out:      make(chan []models.Service),
	}
}

// Updates returns the snapshot channel. It is closed when Run returns.
func (m *Monitor) Updates() <-chan []models.Service {
	return m.out
}

// probeStats is written by one prober goroutine and read by the collector.
type probeStats struct {
	latencySum float64
	latencyMax float64
	checks     int64
	up         int32
}

// Run starts one prober per service and publishes snapshots at the passed
// interval until the context is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	defer close(m.out)

	stats := make([]*probeStats, len(m.services))
	for i := range m.services {
		stats[i] = &probeStats{up: 1}
		go probe(ctx, stats[i], interval)
	}

	ticker := channerics.NewTicker(ctx.Done(), interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker:
			select {
			case m.out <- m.snapshot(stats):
			case <-ctx.Done():
				return
			}
		}
	}
}

// probe simulates one service's liveness checks: jittered latency with
// occasional outages.
func probe(ctx context.Context, st *probeStats, interval time.Duration) {
	ticker := channerics.NewTicker(ctx.Done(), interval)
	for range ticker {
		latency := 5 + rand.Float64()*45
		atomic_float.AtomicAdd(&st.latencySum, latency)
		atomic_float.AtomicMax(&st.latencyMax, latency)
		atomic.AddInt64(&st.checks, 1)

		if rand.Float64() < outageRate {
			atomic.StoreInt32(&st.up, 0)
		} else {
			atomic.StoreInt32(&st.up, 1)
		}
	}
}

// snapshot folds the current counters into a fresh service slice.
func (m *Monitor) snapshot(stats []*probeStats) []models.Service {
	services := make([]models.Service, len(m.services))
	for i, svc := range m.services {
		st := stats[i]
		checks := atomic.LoadInt64(&st.checks)
		svc.Up = atomic.LoadInt32(&st.up) == 1
		svc.Checks = int(checks)
		if checks > 0 {
			svc.LatencyMs = atomic_float.AtomicRead(&st.latencySum) / float64(checks)
			svc.MaxLatencyMs = atomic_float.AtomicRead(&st.latencyMax)
		}
		services[i] = svc
	}
	return services
}
