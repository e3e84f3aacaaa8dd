package usecases

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/domain/errors"
)

// fakeHost는 인벤토리와 네트워크 백엔드를 메모리로 흉내냅니다.
// failOn에 등록된 호출은 변경 없이 실패하고, timeoutOn에 등록된 호출은 변경을 남긴 채 시간 초과로 실패합니다.
type fakeHost struct {
	mu         sync.Mutex
	ifaces     []entities.Interface
	addrs      map[string][]entities.AddressInfo
	metrics    map[string]int
	indexes    map[string]int
	autotuning bool
	templates  map[string]entities.TCPTemplate
	routes     []string
	calls      []string
	failOn     map[string]bool
	timeoutOn  map[string]bool
}

func newFakeHost(metrics map[string]int, names ...string) *fakeHost {
	h := &fakeHost{
		addrs:     make(map[string][]entities.AddressInfo),
		metrics:   make(map[string]int),
		indexes:   make(map[string]int),
		templates: make(map[string]entities.TCPTemplate),
		failOn:    make(map[string]bool),
		timeoutOn: make(map[string]bool),
	}
	for i, name := range names {
		h.ifaces = append(h.ifaces, entities.Interface{Name: name, IsActive: true})
		h.indexes[name] = 10 + i
		if m, ok := metrics[name]; ok {
			h.metrics[name] = m
		}
	}
	return h
}

func (h *fakeHost) call(desc string) error {
	h.calls = append(h.calls, desc)
	cmd := &errors.CommandError{Command: "fake", Args: []string{desc}, ExitCode: 1, Stderr: "injected failure: " + desc}
	if h.failOn[desc] {
		return errors.NewCommandFailedError(cmd)
	}
	return nil
}

func (h *fakeHost) timedOut(desc string) error {
	if h.timeoutOn[desc] {
		return errors.NewCommandTimeoutError(&errors.CommandError{Command: "fake", Args: []string{desc}, ExitCode: -1})
	}
	return nil
}

func (h *fakeHost) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (h *fakeHost) Metric(name string) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.metrics[name]
	return m, ok
}

// InterfaceInventory

func (h *fakeHost) ListActive(ctx context.Context) ([]entities.Interface, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]entities.Interface(nil), h.ifaces...), nil
}

func (h *fakeHost) Counters(ctx context.Context, name string) (uint64, uint64, error) {
	return 0, 0, nil
}

func (h *fakeHost) Addresses(ctx context.Context, name string) ([]entities.AddressInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addrs[name], nil
}

// NetworkBackend

func (h *fakeHost) Name() string { return "fake" }

func (h *fakeHost) SetAutotuning(ctx context.Context, enabled bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	desc := fmt.Sprintf("autotuning %t", enabled)
	if err := h.call(desc); err != nil {
		return err
	}
	h.autotuning = enabled
	return h.timedOut(desc)
}

func (h *fakeHost) SetTCPTemplate(ctx context.Context, name string, template entities.TCPTemplate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	desc := fmt.Sprintf("template %s %s", name, template)
	if err := h.call(desc); err != nil {
		return err
	}
	h.templates[name] = template
	return h.timedOut(desc)
}

func (h *fakeHost) SetMetric(ctx context.Context, name string, metric int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	desc := fmt.Sprintf("metric %s %d", name, metric)
	if err := h.call(desc); err != nil {
		return err
	}
	h.metrics[name] = metric
	return h.timedOut(desc)
}

func (h *fakeHost) AddDefaultRoute(ctx context.Context, name, gateway string, index, metric int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	desc := fmt.Sprintf("route %s %s %d %d", name, gateway, index, metric)
	if err := h.call(desc); err != nil {
		return err
	}
	h.routes = append(h.routes, desc)
	return h.timedOut(desc)
}

func (h *fakeHost) CurrentMetric(ctx context.Context, name string) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.metrics[name]
	return m, ok
}

func (h *fakeHost) InterfaceIndex(ctx context.Context, name string) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx, ok := h.indexes[name]
	return idx, ok
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func metricCall(name string, metric int) string {
	return "metric " + name + " " + strconv.Itoa(metric)
}
