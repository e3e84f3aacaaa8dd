package sampler

import (
	"context"
	"errors"
	"sync"
	"time"

	"multinic-bond/internal/application/polling"
	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/domain/interfaces"
	"multinic-bond/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// Status는 샘플러의 최근 동작 상태입니다 (헬스 체크용)
type Status struct {
	LastTick  time.Time
	LastError string
	Known     int
	Ticks     uint64
}

// ThroughputSampler는 인터페이스별 카운터 차이로 송수신 속도를 계산합니다.
// 카운터 맵의 모든 읽기/쓰기는 하나의 뮤텍스 안에서 이루어집니다.
type ThroughputSampler struct {
	inventory interfaces.InterfaceInventory
	clock     interfaces.Clock
	strategy  polling.Strategy
	interval  time.Duration
	logger    *logrus.Logger

	mu       sync.Mutex
	counters map[string]entities.CounterReading
	latest   []entities.SpeedSample
	status   Status

	subMu       sync.Mutex
	subscribers map[int]chan entities.SpeedSample
	nextSubID   int
}

// NewThroughputSampler는 새로운 ThroughputSampler를 생성합니다
func NewThroughputSampler(
	inventory interfaces.InterfaceInventory,
	clock interfaces.Clock,
	strategy polling.Strategy,
	interval time.Duration,
	logger *logrus.Logger,
) *ThroughputSampler {
	return &ThroughputSampler{
		inventory:   inventory,
		clock:       clock,
		strategy:    strategy,
		interval:    interval,
		logger:      logger,
		counters:    make(map[string]entities.CounterReading),
		subscribers: make(map[int]chan entities.SpeedSample),
	}
}

// Run은 ctx가 취소될 때까지 샘플링 루프를 실행합니다. 틱 실패로 종료되지 않습니다
func (s *ThroughputSampler) Run(ctx context.Context) error {
	s.logger.WithField("interval", s.interval).Info("Throughput sampler started")

	err := polling.NewPollingController(s.strategy, s.logger).Start(ctx, s.Tick)

	s.logger.Info("Throughput sampler stopped")
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Tick은 인벤토리를 읽어 한 번 샘플링하고 구독자에게 발행합니다
func (s *ThroughputSampler) Tick(ctx context.Context) error {
	ifaces, err := s.inventory.ListActive(ctx)
	if err != nil {
		metrics.RecordSamplerTick(false)
		s.mu.Lock()
		s.status.LastError = err.Error()
		s.mu.Unlock()
		return err
	}

	samples := s.Observe(ifaces, s.clock.Now())
	metrics.RecordSamplerTick(true)

	for _, sample := range samples {
		metrics.RecordSpeed(sample.InterfaceName, sample.SentRateKBps, sample.RecvRateKBps)
		s.publish(sample)
	}
	return nil
}

// Observe는 새 카운터를 저장된 값과 비교해 샘플을 만들고 저장 값을 교체합니다.
// 처음 보는 인터페이스는 기준값만 저장하고, 사라진 인터페이스는 조용히 제거합니다.
func (s *ThroughputSampler) Observe(ifaces []entities.Interface, at time.Time) []entities.SpeedSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]entities.CounterReading, len(ifaces))
	samples := make([]entities.SpeedSample, 0, len(ifaces))

	for _, iface := range ifaces {
		cur := entities.CounterReading{SentBytes: iface.SentBytes, RecvBytes: iface.RecvBytes, At: at}
		if prev, ok := s.counters[iface.Name]; ok {
			samples = append(samples, entities.NewSpeedSample(iface.Name, prev, cur, s.interval))
		}
		next[iface.Name] = cur
	}

	for name := range s.counters {
		if _, ok := next[name]; !ok {
			metrics.ForgetInterface(name)
			s.logger.WithField("interface", name).Debug("Interface vanished, dropped from sampler")
		}
	}

	s.counters = next
	s.latest = samples
	s.status.LastTick = at
	s.status.LastError = ""
	s.status.Known = len(next)
	s.status.Ticks++
	metrics.SetKnownInterfaces(len(next))

	return append([]entities.SpeedSample(nil), samples...)
}

// Refresh는 트랜잭션 시작 시 새로 읽은 인벤토리로 추적 대상을 맞춥니다.
// 기존 인터페이스의 저장 값은 유지되어 다음 샘플이 정상적으로 계산됩니다.
func (s *ThroughputSampler) Refresh(ifaces []entities.Interface) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	next := make(map[string]entities.CounterReading, len(ifaces))
	for _, iface := range ifaces {
		if prev, ok := s.counters[iface.Name]; ok {
			next[iface.Name] = prev
			continue
		}
		next[iface.Name] = entities.CounterReading{SentBytes: iface.SentBytes, RecvBytes: iface.RecvBytes, At: now}
	}
	for name := range s.counters {
		if _, ok := next[name]; !ok {
			metrics.ForgetInterface(name)
		}
	}

	s.counters = next
	s.status.Known = len(next)
	metrics.SetKnownInterfaces(len(next))
}

// Latest는 가장 최근 틱의 샘플을 반환합니다
func (s *ThroughputSampler) Latest() []entities.SpeedSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.SpeedSample(nil), s.latest...)
}

// Status는 샘플러 상태를 반환합니다
func (s *ThroughputSampler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Subscribe는 샘플 스트림을 구독합니다. 버퍼가 가득 찬 구독자에게는 샘플이 버려집니다.
// 반환된 함수로 구독을 해지하면 채널이 닫힙니다.
func (s *ThroughputSampler) Subscribe(buffer int) (<-chan entities.SpeedSample, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan entities.SpeedSample, buffer)

	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *ThroughputSampler) publish(sample entities.SpeedSample) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for id, ch := range s.subscribers {
		select {
		case ch <- sample:
		default:
			s.logger.WithField("subscriber", id).Debug("Subscriber is slow, dropping sample")
		}
	}
}
