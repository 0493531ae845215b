package vibro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		peak     float64
		duration float64
		want     float64
	}{
		{"zero everything", 0, 0, 0},
		{"duration only", 0, 9, 1.5},
		{"peak only", 9, 0, 1},
		{"both decades", 9, 9, 2.5},
		{"strong shake", 99, 9, 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.peak, tt.duration), 1e-12)
		})
	}
}
