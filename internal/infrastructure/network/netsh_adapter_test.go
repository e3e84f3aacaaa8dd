package network

import (
	"context"
	"testing"

	"multinic-bond/internal/domain/constants"
	"multinic-bond/internal/domain/entities"
	domainErrors "multinic-bond/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestNetshAdapter(m *MockCommandExecutor) *NetshAdapter {
	return NewNetshAdapter(m, testTimeout, constants.DefaultEnabledTokens, quietLogger())
}

func TestNetshAdapter_ConfigureCommands(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*MockCommandExecutor)
		call       func(*NetshAdapter) error
	}{
		{
			name: "자동 튜닝 활성화",
			setupMocks: func(m *MockCommandExecutor) {
				m.On("ExecuteWithTimeout", mock.Anything, testTimeout, "netsh", "int", "tcp", "set", "global", "autotuninglevel=normal").
					Return([]byte("Ok."), nil).Once()
			},
			call: func(a *NetshAdapter) error { return a.SetAutotuning(context.Background(), true) },
		},
		{
			name: "자동 튜닝 비활성화",
			setupMocks: func(m *MockCommandExecutor) {
				m.On("ExecuteWithTimeout", mock.Anything, testTimeout, "netsh", "int", "tcp", "set", "global", "autotuninglevel=disabled").
					Return([]byte("Ok."), nil).Once()
			},
			call: func(a *NetshAdapter) error { return a.SetAutotuning(context.Background(), false) },
		},
		{
			name: "인터넷 템플릿 적용",
			setupMocks: func(m *MockCommandExecutor) {
				m.On("ExecuteWithTimeout", mock.Anything, testTimeout, "netsh", "int", "tcp", "set", "supplemental", "template=internet", "interface=Ethernet 2").
					Return([]byte("Ok."), nil).Once()
			},
			call: func(a *NetshAdapter) error {
				return a.SetTCPTemplate(context.Background(), "Ethernet 2", entities.TemplateInternet)
			},
		},
		{
			name: "메트릭 설정",
			setupMocks: func(m *MockCommandExecutor) {
				m.On("ExecuteWithTimeout", mock.Anything, testTimeout, "netsh", "interface", "ipv4", "set", "interface", "interface=Ethernet", "metric=1000").
					Return([]byte("Ok."), nil).Once()
			},
			call: func(a *NetshAdapter) error { return a.SetMetric(context.Background(), "Ethernet", 1000) },
		},
		{
			name: "기본 경로 추가",
			setupMocks: func(m *MockCommandExecutor) {
				m.On("ExecuteWithTimeout", mock.Anything, testTimeout, "route", "add", "0.0.0.0", "mask", "0.0.0.0", "192.168.1.1", "if", "12", "metric", "1").
					Return([]byte(" OK!"), nil).Once()
			},
			call: func(a *NetshAdapter) error {
				return a.AddDefaultRoute(context.Background(), "Ethernet", "192.168.1.1", 12, 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockCommandExecutor)
			tt.setupMocks(m)

			err := tt.call(newTestNetshAdapter(m))

			assert.NoError(t, err)
			m.AssertExpectations(t)
		})
	}
}

func TestNetshAdapter_SetMetric_FailurePassesCommandError(t *testing.T) {
	m := new(MockCommandExecutor)
	cmdErr := &domainErrors.CommandError{
		Command:  "netsh",
		Args:     []string{"interface", "ipv4", "set", "interface", "interface=Ethernet", "metric=1"},
		ExitCode: 1,
		Stdout:   "Element not found.",
	}
	m.On("ExecuteWithTimeout", mock.Anything, testTimeout, "netsh", "interface", "ipv4", "set", "interface", "interface=Ethernet", "metric=1").
		Return([]byte("Element not found."), domainErrors.NewCommandFailedError(cmdErr)).Once()

	err := newTestNetshAdapter(m).SetMetric(context.Background(), "Ethernet", 1)

	require.Error(t, err)
	assert.True(t, domainErrors.IsCommandFailedError(err))
	got, ok := domainErrors.AsCommandError(err)
	require.True(t, ok)
	assert.Equal(t, "Element not found.", got.Stdout)
}

func TestNetshAdapter_CurrentMetric(t *testing.T) {
	t.Run("메트릭 파싱", func(t *testing.T) {
		m := new(MockCommandExecutor)
		m.On("ExecuteWithTimeout", mock.Anything, testTimeout, "netsh", "interface", "ipv4", "show", "interface", "Ethernet").
			Return([]byte(netshShowInterfaceEN), nil).Once()

		metric, ok := newTestNetshAdapter(m).CurrentMetric(context.Background(), "Ethernet")

		assert.True(t, ok)
		assert.Equal(t, 25, metric)
	})

	t.Run("제거된 인터페이스는 알 수 없음", func(t *testing.T) {
		m := new(MockCommandExecutor)
		m.On("ExecuteWithTimeout", mock.Anything, testTimeout, "netsh", "interface", "ipv4", "show", "interface", "Gone").
			Return([]byte(""), domainErrors.NewCommandFailedError(&domainErrors.CommandError{Command: "netsh", ExitCode: 1})).Once()

		_, ok := newTestNetshAdapter(m).CurrentMetric(context.Background(), "Gone")

		assert.False(t, ok)
	})
}

func TestNetshAdapter_InterfaceIndex(t *testing.T) {
	m := new(MockCommandExecutor)
	m.On("ExecuteWithTimeout", mock.Anything, testTimeout, "netsh", "interface", "ipv4", "show", "interfaces").
		Return([]byte(netshShowInterfacesZH), nil)

	a := newTestNetshAdapter(m)

	idx, ok := a.InterfaceIndex(context.Background(), "以太网")
	assert.True(t, ok)
	assert.Equal(t, 12, idx)

	_, ok = a.InterfaceIndex(context.Background(), "Missing")
	assert.False(t, ok)
}

func TestNetshAdapter_LookupGateway(t *testing.T) {
	m := new(MockCommandExecutor)
	m.On("ExecuteWithTimeout", mock.Anything, testTimeout, "netsh", "interface", "ipv4", "show", "config", "name=Ethernet").
		Return([]byte(netshShowConfig), nil).Once()

	gw, ok := newTestNetshAdapter(m).LookupGateway(context.Background(), "Ethernet")

	assert.True(t, ok)
	assert.Equal(t, "192.168.1.1", gw)
}
