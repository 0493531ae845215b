package tacho

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Simulator generates edges like a shaft with one reflective mark, for
// running the instrument without hardware.
type Simulator struct {
	edge func(nowMicros int64)

	mu      sync.Mutex
	rpm     int
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// NewSimulator creates a simulator that delivers edges to the given callback.
func NewSimulator(rpm int, edge func(nowMicros int64)) *Simulator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Simulator{
		edge:   edge,
		rpm:    rpm,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetRPM changes the simulated shaft speed. Zero stops the edges without
// stopping the simulator.
func (s *Simulator) SetRPM(rpm int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rpm = rpm
}

// Start launches the edge generator goroutine.
func (s *Simulator) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("already running")
	}
	s.running = true

	go s.run()
	return nil
}

// Stop terminates the edge generator.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	s.running = false
}

func (s *Simulator) run() {
	for {
		s.mu.Lock()
		rpm := s.rpm
		s.mu.Unlock()

		// Idle poll while the shaft is stopped
		d := 100 * time.Millisecond
		if rpm > 0 {
			d = time.Duration(microsPerMinute/int64(rpm)) * time.Microsecond
		}

		timer := time.NewTimer(d)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if rpm > 0 {
				s.edge(time.Now().UnixMicro())
			}
		}
	}
}
