package accel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Sample
		wantErr bool
	}{
		{
			name: "valid line - sensor at rest",
			line: "1234567890123,0,0,1000",
			want: Sample{
				Timestamp: time.Unix(0, 1234567890123*1000),
				X:         0,
				Y:         0,
				Z:         9.80665,
			},
			wantErr: false,
		},
		{
			name: "valid line - negative axes",
			line: "1234567890123,-500,250,-1000",
			want: Sample{
				Timestamp: time.Unix(0, 1234567890123*1000),
				X:         -4.903325,
				Y:         2.4516625,
				Z:         -9.80665,
			},
			wantErr: false,
		},
		{
			name: "valid line - max range",
			line: "1234567890123,16000,-16000,16000",
			want: Sample{
				Timestamp: time.Unix(0, 1234567890123*1000),
				X:         156.9064,
				Y:         -156.9064,
				Z:         156.9064,
			},
			wantErr: false,
		},
		{
			name:    "invalid - wrong number of fields",
			line:    "1234567890123,0,0",
			wantErr: true,
		},
		{
			name:    "invalid - too many fields",
			line:    "1234567890123,0,0,1000,extra",
			wantErr: true,
		},
		{
			name:    "invalid - non-numeric timestamp",
			line:    "abc,0,0,1000",
			wantErr: true,
		},
		{
			name:    "invalid - non-numeric axis",
			line:    "1234567890123,abc,0,1000",
			wantErr: true,
		},
		{
			name:    "invalid - x out of range",
			line:    "1234567890123,17000,0,1000",
			wantErr: true,
		},
		{
			name:    "invalid - z out of range",
			line:    "1234567890123,0,0,-17000",
			wantErr: true,
		},
		{
			name:    "invalid - fractional axis value",
			line:    "1234567890123,0.5,0,1000",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want.Timestamp.UnixNano(), got.Timestamp.UnixNano())
				assert.InDelta(t, tt.want.X, got.X, 1e-4)
				assert.InDelta(t, tt.want.Y, got.Y, 1e-4)
				assert.InDelta(t, tt.want.Z, got.Z, 1e-4)
			}
		})
	}
}

func TestNew(t *testing.T) {
	dev := New("COM3", 115200, 4)
	assert.NotNil(t, dev)
	assert.Equal(t, "COM3", dev.port)
	assert.Equal(t, 115200, dev.baudRate)
	assert.Equal(t, 4, dev.avg)
	assert.False(t, dev.IsConnected())
}

func TestNew_Defaults(t *testing.T) {
	dev := New("COM3", 0, 0)
	assert.NotNil(t, dev)
	assert.Equal(t, DefaultBaudRate, dev.baudRate)
}

func TestTryRead_NotConnected(t *testing.T) {
	dev := New("COM3", 0, 0)
	_, err := dev.TryRead()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestAvgAccum_Passthrough(t *testing.T) {
	acc := newAvgAccum(0)

	in := Sample{Timestamp: time.Unix(10, 0), X: 1, Y: 2, Z: 3}
	out, ok := acc.add(in)
	assert.True(t, ok)
	assert.Equal(t, in, out)
}

func TestAvgAccum_Averages(t *testing.T) {
	acc := newAvgAccum(4)

	base := time.Unix(10, 0)
	for i := 0; i < 3; i++ {
		_, ok := acc.add(Sample{Timestamp: base.Add(time.Duration(i) * time.Millisecond), X: float32(i), Z: 9.8})
		assert.False(t, ok, "burst should not complete before 4 readings")
	}

	out, ok := acc.add(Sample{Timestamp: base.Add(3 * time.Millisecond), X: 3, Z: 9.8})
	require.True(t, ok)
	assert.InDelta(t, 1.5, out.X, 1e-6) // mean of 0,1,2,3
	assert.InDelta(t, 0.0, out.Y, 1e-6)
	assert.InDelta(t, 9.8, out.Z, 1e-6)
	assert.Equal(t, base.Add(3*time.Millisecond), out.Timestamp)

	// Accumulator resets for the next burst
	_, ok = acc.add(Sample{X: 10})
	assert.False(t, ok)
}
