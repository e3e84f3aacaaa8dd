package polling

import (
	"context"
	"math"
	"sync"
	"time"

	"multinic-bond/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// Strategy는 폴링 전략 인터페이스입니다
type Strategy interface {
	// NextInterval은 다음 폴링까지의 대기 시간을 반환합니다
	NextInterval(success bool) time.Duration
	// Reset은 폴링 전략을 초기 상태로 리셋합니다
	Reset()
}

// FixedIntervalStrategy는 결과와 무관하게 같은 간격을 유지합니다
type FixedIntervalStrategy struct {
	interval time.Duration
}

// NewFixedIntervalStrategy는 고정 간격 전략을 생성합니다
func NewFixedIntervalStrategy(interval time.Duration) *FixedIntervalStrategy {
	return &FixedIntervalStrategy{interval: interval}
}

// NextInterval은 항상 같은 간격을 반환합니다
func (s *FixedIntervalStrategy) NextInterval(bool) time.Duration {
	return s.interval
}

// Reset은 아무것도 하지 않습니다
func (s *FixedIntervalStrategy) Reset() {}

// ExponentialBackoffStrategy는 연속 실패 시 간격을 지수적으로 늘립니다.
// 한 번이라도 성공하면 기본 간격으로 돌아갑니다.
type ExponentialBackoffStrategy struct {
	mu             sync.Mutex
	baseInterval   time.Duration
	maxInterval    time.Duration
	multiplier     float64
	currentBackoff int
	logger         *logrus.Logger
}

// NewExponentialBackoffStrategy는 새로운 지수 백오프 전략을 생성합니다
func NewExponentialBackoffStrategy(
	baseInterval time.Duration,
	maxInterval time.Duration,
	multiplier float64,
	logger *logrus.Logger,
) *ExponentialBackoffStrategy {
	if multiplier <= 1 {
		multiplier = 2.0
	}
	if maxInterval < baseInterval {
		maxInterval = baseInterval
	}

	return &ExponentialBackoffStrategy{
		baseInterval: baseInterval,
		maxInterval:  maxInterval,
		multiplier:   multiplier,
		logger:       logger,
	}
}

// NextInterval은 다음 폴링까지의 대기 시간을 계산합니다
func (s *ExponentialBackoffStrategy) NextInterval(success bool) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if success {
		if s.currentBackoff > 0 {
			s.logger.WithField("failures", s.currentBackoff).Debug("Resetting sampler backoff after success")
			s.currentBackoff = 0
			metrics.SetBackoffLevel(0)
		}
		return s.baseInterval
	}

	s.currentBackoff++
	metrics.SetBackoffLevel(float64(s.currentBackoff))

	// base * multiplier^(n-1), 첫 실패는 기본 간격 유지
	next := time.Duration(float64(s.baseInterval) * math.Pow(s.multiplier, float64(s.currentBackoff-1)))
	if next > s.maxInterval || next <= 0 {
		next = s.maxInterval
	}

	s.logger.WithFields(logrus.Fields{
		"backoff_count": s.currentBackoff,
		"next_interval": next,
	}).Debug("Sampler backing off")

	return next
}

// Reset은 백오프 카운터를 리셋합니다
func (s *ExponentialBackoffStrategy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentBackoff = 0
	metrics.SetBackoffLevel(0)
}

// PollingController는 전략에 따라 작업을 주기적으로 실행합니다
type PollingController struct {
	strategy Strategy
	logger   *logrus.Logger
}

// NewPollingController는 새로운 폴링 컨트롤러를 생성합니다
func NewPollingController(strategy Strategy, logger *logrus.Logger) *PollingController {
	return &PollingController{
		strategy: strategy,
		logger:   logger,
	}
}

// Start는 작업을 즉시 한 번 실행한 뒤 ctx가 취소될 때까지 반복합니다
func (c *PollingController) Start(ctx context.Context, task func(context.Context) error) error {
	c.strategy.Reset()

	timer := time.NewTimer(c.runOnce(ctx, task))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(c.runOnce(ctx, task))
		}
	}
}

func (c *PollingController) runOnce(ctx context.Context, task func(context.Context) error) time.Duration {
	err := task(ctx)
	if err != nil && ctx.Err() == nil {
		c.logger.WithError(err).Warn("Polling task failed")
	}
	return c.strategy.NextInterval(err == nil)
}
