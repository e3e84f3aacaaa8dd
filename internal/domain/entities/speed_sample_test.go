package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSpeedSample(t *testing.T) {
	base := time.Date(2025, 1, 8, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		prev     CounterReading
		cur      CounterReading
		wantSent float64
		wantRecv float64
	}{
		{
			name:     "1초 간격 50바이트 증가",
			prev:     CounterReading{SentBytes: 100, RecvBytes: 200, At: base},
			cur:      CounterReading{SentBytes: 150, RecvBytes: 250, At: base.Add(time.Second)},
			wantSent: 50.0 / 1024,
			wantRecv: 50.0 / 1024,
		},
		{
			name:     "카운터 리셋 시 0으로 고정",
			prev:     CounterReading{SentBytes: 500, RecvBytes: 500, At: base},
			cur:      CounterReading{SentBytes: 10, RecvBytes: 10, At: base.Add(time.Second)},
			wantSent: 0,
			wantRecv: 0,
		},
		{
			name:     "2초 간격은 경과 시간으로 나눔",
			prev:     CounterReading{SentBytes: 0, RecvBytes: 0, At: base},
			cur:      CounterReading{SentBytes: 4096, RecvBytes: 2048, At: base.Add(2 * time.Second)},
			wantSent: 2,
			wantRecv: 1,
		},
		{
			name:     "시각이 같으면 기본 간격 사용",
			prev:     CounterReading{SentBytes: 0, RecvBytes: 0, At: base},
			cur:      CounterReading{SentBytes: 1024, RecvBytes: 0, At: base},
			wantSent: 1,
			wantRecv: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSpeedSample("eth0", tt.prev, tt.cur, time.Second)
			assert.Equal(t, "eth0", s.InterfaceName)
			assert.InDelta(t, tt.wantSent, s.SentRateKBps, 1e-9)
			assert.InDelta(t, tt.wantRecv, s.RecvRateKBps, 1e-9)
			assert.GreaterOrEqual(t, s.SentRateKBps, 0.0)
			assert.GreaterOrEqual(t, s.RecvRateKBps, 0.0)
		})
	}
}
