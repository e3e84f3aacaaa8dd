package entities

import "time"

// SpeedSample은 한 샘플링 구간 동안의 인터페이스 처리량입니다 (KB/s)
type SpeedSample struct {
	InterfaceName string    `json:"interface"`
	SentRateKBps  float64   `json:"sent_kbps"`
	RecvRateKBps  float64   `json:"recv_kbps"`
	Timestamp     time.Time `json:"timestamp"`
}

// CounterReading은 특정 시점의 송수신 바이트 카운터입니다
type CounterReading struct {
	SentBytes uint64
	RecvBytes uint64
	At        time.Time
}

// NewSpeedSample은 두 카운터 읽기 값의 차이로 샘플을 계산합니다.
// 카운터가 리셋되어 현재 값이 이전 값보다 작으면 속도는 0으로 고정됩니다.
func NewSpeedSample(name string, prev, cur CounterReading, fallback time.Duration) SpeedSample {
	elapsed := cur.At.Sub(prev.At)
	if elapsed <= 0 {
		elapsed = fallback
	}
	return SpeedSample{
		InterfaceName: name,
		SentRateKBps:  rateKBps(prev.SentBytes, cur.SentBytes, elapsed),
		RecvRateKBps:  rateKBps(prev.RecvBytes, cur.RecvBytes, elapsed),
		Timestamp:     cur.At,
	}
}

func rateKBps(prev, cur uint64, elapsed time.Duration) float64 {
	if cur <= prev || elapsed <= 0 {
		return 0
	}
	return float64(cur-prev) / elapsed.Seconds() / 1024
}
