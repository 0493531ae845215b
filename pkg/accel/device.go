//go:build !tinygo

package accel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the standard baud rate for the sensor pod.
	DefaultBaudRate = 115200
	// maxMilliG bounds a plausible reading; the pod reports at most +-16 g.
	maxMilliG = 16000
)

// milliGToMS2 converts a milli-g reading to m/s^2.
const milliGToMS2 = 9.80665 / 1000.0

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial reads acceleration samples streamed by the sensor pod MCU.
type Serial struct {
	port     string
	baudRate int
	avg      int

	conn      serial.Port
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	last      Sample
	hasSample bool
}

// New creates a new Serial device for the given port. avg is the number of
// raw readings averaged into one published sample (0 or 1 disables averaging).
func New(port string, baudRate int, avg int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:      port,
		baudRate:  baudRate,
		avg:       avg,
		ctx:       ctx,
		cancel:    cancel,
		connected: false,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		// Try to get port description if available
		port, err := serial.Open(name, &serial.Mode{
			BaudRate: DefaultBaudRate,
		})
		if err == nil {
			// Port opened successfully, get description
			desc := name // Use name as description if we can't get more info
			port.Close()
			result = append(result, Port{
				Name:        name,
				Description: desc,
			})
		} else {
			// Still add the port even if we can't open it
			result = append(result, Port{
				Name:        name,
				Description: name,
			})
		}
	}

	return result, nil
}

// Connect connects to the serial port and starts reading samples.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	// Start reading samples in a goroutine
	go d.readSamples()

	return nil
}

// Close closes the connection and stops reading samples.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	// Cancel context to stop reading goroutine
	d.cancel()

	// Close serial port
	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	d.connected = false
	d.hasSample = false

	return nil
}

// TryRead returns the most recent sample published by the reader goroutine.
func (d *Serial) TryRead() (Sample, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return Sample{}, ErrNotConnected
	}
	if !d.hasSample {
		return Sample{}, ErrNoSample
	}
	return d.last, nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// publish stores a sample as the latest reading.
func (d *Serial) publish(s Sample) {
	d.mu.Lock()
	d.last = s
	d.hasSample = true
	d.mu.Unlock()
}

// readSamples reads lines from the serial port and publishes parsed samples.
func (d *Serial) readSamples() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readSamples: %v", r)
		}
	}()

	acc := newAvgAccum(d.avg)
	scanner := bufio.NewScanner(d.conn)
	for {
		select {
		case <-d.ctx.Done():
			return
		default:
			if !scanner.Scan() {
				// Scanner stopped (EOF or error)
				if err := scanner.Err(); err != nil {
					if err != io.EOF {
						log.Printf("Error reading from serial port: %v", err)
					}
				}
				return
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			sample, err := parseLine(line)
			if err != nil {
				log.Printf("Failed to parse line '%s': %v", line, err)
				continue
			}

			if out, ok := acc.add(sample); ok {
				d.publish(out)
			}
		}
	}
}

// avgAccum averages bursts of n readings into one sample. With n <= 1 every
// reading passes through unchanged.
type avgAccum struct {
	n                int
	count            int
	sumX, sumY, sumZ float32
	timestamp        time.Time
}

func newAvgAccum(n int) *avgAccum {
	return &avgAccum{n: n}
}

// add feeds one reading and reports the averaged sample once the burst is full.
func (a *avgAccum) add(s Sample) (Sample, bool) {
	if a.n <= 1 {
		return s, true
	}

	a.sumX += s.X
	a.sumY += s.Y
	a.sumZ += s.Z
	a.timestamp = s.Timestamp // Keep the newest timestamp
	a.count++

	if a.count < a.n {
		return Sample{}, false
	}

	out := Sample{
		Timestamp: a.timestamp,
		X:         a.sumX / float32(a.count),
		Y:         a.sumY / float32(a.count),
		Z:         a.sumZ / float32(a.count),
	}
	a.sumX, a.sumY, a.sumZ = 0, 0, 0
	a.count = 0
	return out, true
}

// parseLine parses a line from the sensor pod into a Sample.
// Format: unix_micros,x,y,z with axis values in milli-g.
// Example: 1234567890123,12,-38,1002
func parseLine(line string) (Sample, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return Sample{}, fmt.Errorf("invalid line format: expected 4 comma-separated values, got %d", len(parts))
	}

	// Parse timestamp (unix microseconds)
	timestampMicros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Sample{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	timestamp := time.Unix(0, timestampMicros*1000) // Convert microseconds to nanoseconds

	var axes [3]float32
	for i, name := range []string{"x", "y", "z"} {
		v, err := strconv.ParseInt(parts[i+1], 10, 32)
		if err != nil {
			return Sample{}, fmt.Errorf("invalid %s value: %w", name, err)
		}
		if v < -maxMilliG || v > maxMilliG {
			return Sample{}, fmt.Errorf("%s value out of range: %d (max +-%d)", name, v, maxMilliG)
		}
		axes[i] = float32(v) * milliGToMS2
	}

	return Sample{
		Timestamp: timestamp,
		X:         axes[0],
		Y:         axes[1],
		Z:         axes[2],
	}, nil
}
