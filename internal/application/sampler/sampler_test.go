package sampler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"multinic-bond/internal/application/polling"
	"multinic-bond/internal/domain/entities"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockInventory struct {
	mock.Mock
}

func (m *MockInventory) ListActive(ctx context.Context) ([]entities.Interface, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Interface), args.Error(1)
}

func (m *MockInventory) Counters(ctx context.Context, name string) (uint64, uint64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(uint64), args.Get(1).(uint64), args.Error(2)
}

func (m *MockInventory) Addresses(ctx context.Context, name string) ([]entities.AddressInfo, error) {
	args := m.Called(ctx, name)
	return args.Get(0).([]entities.AddressInfo), args.Error(1)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestSampler(inv *MockInventory) (*ThroughputSampler, *fakeClock) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	clock := &fakeClock{now: t0}
	return NewThroughputSampler(inv, clock, polling.NewFixedIntervalStrategy(time.Second), time.Second, logger), clock
}

func iface(name string, sent, recv uint64) entities.Interface {
	return entities.Interface{Name: name, IsActive: true, SentBytes: sent, RecvBytes: recv}
}

func TestThroughputSampler_Observe(t *testing.T) {
	s, _ := newTestSampler(new(MockInventory))

	// 첫 관측은 기준값만 저장
	samples := s.Observe([]entities.Interface{iface("eth0", 100, 200)}, t0)
	assert.Empty(t, samples)

	samples = s.Observe([]entities.Interface{iface("eth0", 150, 250)}, t0.Add(time.Second))
	require.Len(t, samples, 1)
	assert.Equal(t, "eth0", samples[0].InterfaceName)
	assert.InDelta(t, 50.0/1024, samples[0].SentRateKBps, 1e-9)
	assert.InDelta(t, 50.0/1024, samples[0].RecvRateKBps, 1e-9)
	assert.Equal(t, t0.Add(time.Second), samples[0].Timestamp)
}

func TestThroughputSampler_CounterResetClampsToZero(t *testing.T) {
	s, _ := newTestSampler(new(MockInventory))

	s.Observe([]entities.Interface{iface("eth0", 500, 500)}, t0)
	samples := s.Observe([]entities.Interface{iface("eth0", 10, 10)}, t0.Add(time.Second))

	require.Len(t, samples, 1)
	assert.Equal(t, 0.0, samples[0].SentRateKBps)
	assert.Equal(t, 0.0, samples[0].RecvRateKBps)

	// 리셋된 값이 새 기준값
	samples = s.Observe([]entities.Interface{iface("eth0", 1034, 10)}, t0.Add(2*time.Second))
	require.Len(t, samples, 1)
	assert.InDelta(t, 1.0, samples[0].SentRateKBps, 1e-9)
}

func TestThroughputSampler_VanishedAndNewInterfaces(t *testing.T) {
	s, _ := newTestSampler(new(MockInventory))

	s.Observe([]entities.Interface{iface("eth0", 0, 0), iface("eth1", 0, 0)}, t0)
	samples := s.Observe([]entities.Interface{iface("eth1", 1024, 2048), iface("wlan0", 5, 5)}, t0.Add(time.Second))

	require.Len(t, samples, 1)
	assert.Equal(t, "eth1", samples[0].InterfaceName)
	assert.InDelta(t, 1.0, samples[0].SentRateKBps, 1e-9)
	assert.InDelta(t, 2.0, samples[0].RecvRateKBps, 1e-9)
	assert.Equal(t, 2, s.Status().Known)

	samples = s.Observe([]entities.Interface{iface("eth1", 1024, 2048), iface("wlan0", 5, 5)}, t0.Add(2*time.Second))
	assert.Len(t, samples, 2)
}

func TestThroughputSampler_UsesMeasuredElapsed(t *testing.T) {
	s, _ := newTestSampler(new(MockInventory))

	s.Observe([]entities.Interface{iface("eth0", 0, 0)}, t0)
	samples := s.Observe([]entities.Interface{iface("eth0", 4096, 0)}, t0.Add(2*time.Second))

	require.Len(t, samples, 1)
	assert.InDelta(t, 2.0, samples[0].SentRateKBps, 1e-9)
}

func TestThroughputSampler_Refresh(t *testing.T) {
	s, clock := newTestSampler(new(MockInventory))

	s.Observe([]entities.Interface{iface("eth0", 100, 100), iface("eth1", 0, 0)}, t0)

	clock.Advance(500 * time.Millisecond)
	// eth1 제거, wlan0 추가, eth0 기준값 유지
	s.Refresh([]entities.Interface{iface("eth0", 9999, 9999), iface("wlan0", 10, 10)})
	assert.Equal(t, 2, s.Status().Known)

	samples := s.Observe([]entities.Interface{iface("eth0", 1124, 100), iface("wlan0", 10, 10)}, t0.Add(time.Second))
	require.Len(t, samples, 2)
	assert.Equal(t, "eth0", samples[0].InterfaceName)
	assert.InDelta(t, 1.0, samples[0].SentRateKBps, 1e-9)
	assert.Equal(t, "wlan0", samples[1].InterfaceName)
	assert.Equal(t, 0.0, samples[1].SentRateKBps)
}

func TestThroughputSampler_TickPublishes(t *testing.T) {
	inv := new(MockInventory)
	inv.On("ListActive", mock.Anything).Return([]entities.Interface{iface("eth0", 0, 0)}, nil).Once()
	inv.On("ListActive", mock.Anything).Return([]entities.Interface{iface("eth0", 2048, 1024)}, nil).Once()

	s, clock := newTestSampler(inv)
	ch, cancel := s.Subscribe(4)
	defer cancel()

	require.NoError(t, s.Tick(context.Background()))
	clock.Advance(time.Second)
	require.NoError(t, s.Tick(context.Background()))

	select {
	case sample := <-ch:
		assert.Equal(t, "eth0", sample.InterfaceName)
		assert.InDelta(t, 2.0, sample.SentRateKBps, 1e-9)
		assert.InDelta(t, 1.0, sample.RecvRateKBps, 1e-9)
	default:
		t.Fatal("expected a published sample")
	}

	latest := s.Latest()
	require.Len(t, latest, 1)
	assert.Equal(t, "eth0", latest[0].InterfaceName)
	inv.AssertExpectations(t)
}

func TestThroughputSampler_TickError(t *testing.T) {
	inv := new(MockInventory)
	inv.On("ListActive", mock.Anything).Return(nil, errors.New("enumeration failed"))

	s, _ := newTestSampler(inv)
	err := s.Tick(context.Background())

	require.Error(t, err)
	assert.Equal(t, "enumeration failed", s.Status().LastError)
}

func TestThroughputSampler_SlowSubscriberDoesNotBlock(t *testing.T) {
	inv := new(MockInventory)
	inv.On("ListActive", mock.Anything).Return([]entities.Interface{iface("eth0", 0, 0)}, nil)

	s, clock := newTestSampler(inv)
	_, cancel := s.Subscribe(1)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Tick(context.Background()))
		clock.Advance(time.Second)
	}

	cancel()
	cancel() // 두 번 해지해도 안전
}

func TestThroughputSampler_ConcurrentAccess(t *testing.T) {
	s, _ := newTestSampler(new(MockInventory))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var negatives int

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				at := t0.Add(time.Duration(w*1000+i+1) * time.Millisecond)
				n := uint64(i * 1024)
				for _, sample := range s.Observe([]entities.Interface{iface("eth0", n, n), iface("eth1", n, n)}, at) {
					if sample.SentRateKBps < 0 || sample.RecvRateKBps < 0 {
						mu.Lock()
						negatives++
						mu.Unlock()
					}
				}
			}
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Refresh([]entities.Interface{iface("eth0", 0, 0), iface("eth1", 0, 0)})
			_ = s.Latest()
		}
	}()

	wg.Wait()
	assert.Zero(t, negatives)
	assert.Equal(t, 2, s.Status().Known)
}

func TestThroughputSampler_RunStopsOnCancel(t *testing.T) {
	inv := new(MockInventory)
	inv.On("ListActive", mock.Anything).Return([]entities.Interface{iface("eth0", 0, 0)}, nil)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	s := NewThroughputSampler(inv, &fakeClock{now: t0}, polling.NewFixedIntervalStrategy(time.Millisecond), time.Millisecond, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.NoError(t, s.Run(ctx))
	assert.GreaterOrEqual(t, s.Status().Ticks, uint64(1))
}
