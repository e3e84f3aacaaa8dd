package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 명령 실행 관련 메트릭
	CommandsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multinic_bond_commands_total",
			Help: "Total number of network configuration commands executed",
		},
		[]string{"command", "result"}, // success, failed, timeout
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "multinic_bond_command_duration_seconds",
			Help:    "Time spent executing each network configuration command",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	// 트랜잭션 관련 메트릭
	TransactionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "multinic_bond_transaction_state",
			Help: "Current transaction state (1 for the active state label)",
		},
		[]string{"state"},
	)

	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multinic_bond_transactions_total",
			Help: "Total number of apply/stop transactions",
		},
		[]string{"operation", "mode", "result"},
	)

	RollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multinic_bond_rollbacks_total",
			Help: "Total number of rollbacks and restores",
		},
		[]string{"result"}, // complete, incomplete
	)

	// 샘플러 관련 메트릭
	InterfaceSendRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "multinic_bond_interface_send_kbps",
			Help: "Most recent send rate per interface in KB/s",
		},
		[]string{"interface"},
	)

	InterfaceRecvRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "multinic_bond_interface_recv_kbps",
			Help: "Most recent receive rate per interface in KB/s",
		},
		[]string{"interface"},
	)

	SamplerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multinic_bond_sampler_ticks_total",
			Help: "Total number of sampler ticks",
		},
		[]string{"result"},
	)

	SamplerBackoffLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "multinic_bond_sampler_backoff_level",
			Help: "Current sampler backoff level (0 = no backoff)",
		},
	)

	KnownInterfaces = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "multinic_bond_known_interfaces",
			Help: "Number of active interfaces tracked by the sampler",
		},
	)

	// 이력 저장소 관련 메트릭
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "multinic_bond_db_query_duration_seconds",
			Help:    "Time spent executing database queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type"},
	)

	// 에러 메트릭
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multinic_bond_errors_total",
			Help: "Total number of errors encountered",
		},
		[]string{"error_type"},
	)

	// 시스템 정보
	AgentInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "multinic_bond_agent_info",
			Help: "Agent information",
		},
		[]string{"version", "os_type", "backend", "node_name"},
	)
)

var transactionStates = []string{"idle", "applying", "active", "rolling_back"}

// RecordCommand는 명령 실행 결과와 시간을 기록합니다
func RecordCommand(command string, result string, duration float64) {
	CommandsExecuted.WithLabelValues(command, result).Inc()
	CommandDuration.WithLabelValues(command).Observe(duration)
}

// SetTransactionState는 현재 상태 라벨만 1로 설정합니다
func SetTransactionState(state string) {
	for _, s := range transactionStates {
		if s == state {
			TransactionState.WithLabelValues(s).Set(1)
		} else {
			TransactionState.WithLabelValues(s).Set(0)
		}
	}
}

// RecordTransaction은 트랜잭션 결과를 기록합니다
func RecordTransaction(operation, mode, result string) {
	TransactionsTotal.WithLabelValues(operation, mode, result).Inc()
}

// RecordRollback은 롤백 결과를 기록합니다
func RecordRollback(complete bool) {
	if complete {
		RollbacksTotal.WithLabelValues("complete").Inc()
	} else {
		RollbacksTotal.WithLabelValues("incomplete").Inc()
	}
}

// RecordSpeed는 인터페이스별 최신 속도를 기록합니다
func RecordSpeed(iface string, sentKBps, recvKBps float64) {
	InterfaceSendRate.WithLabelValues(iface).Set(sentKBps)
	InterfaceRecvRate.WithLabelValues(iface).Set(recvKBps)
}

// ForgetInterface는 사라진 인터페이스의 속도 시계열을 제거합니다
func ForgetInterface(iface string) {
	InterfaceSendRate.DeleteLabelValues(iface)
	InterfaceRecvRate.DeleteLabelValues(iface)
}

// RecordSamplerTick은 샘플러 주기 결과를 기록합니다
func RecordSamplerTick(success bool) {
	if success {
		SamplerTicks.WithLabelValues("success").Inc()
	} else {
		SamplerTicks.WithLabelValues("failed").Inc()
	}
}

// SetBackoffLevel은 현재 백오프 레벨을 설정합니다
func SetBackoffLevel(level float64) {
	SamplerBackoffLevel.Set(level)
}

// SetKnownInterfaces는 추적 중인 인터페이스 수를 설정합니다
func SetKnownInterfaces(count int) {
	KnownInterfaces.Set(float64(count))
}

// RecordDBQuery는 데이터베이스 쿼리 시간을 기록합니다
func RecordDBQuery(queryType string, duration float64) {
	DBQueryDuration.WithLabelValues(queryType).Observe(duration)
}

// RecordError는 에러 발생을 기록합니다
func RecordError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}

// SetAgentInfo는 에이전트 정보를 설정합니다
func SetAgentInfo(version, osType, backend, nodeName string) {
	AgentInfo.WithLabelValues(version, osType, backend, nodeName).Set(1)
}
