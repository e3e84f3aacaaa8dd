package container

import (
	"context"
	"database/sql"
	"time"

	"multinic-bond/internal/application/polling"
	"multinic-bond/internal/application/sampler"
	"multinic-bond/internal/application/usecases"
	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/domain/interfaces"
	"multinic-bond/internal/domain/services"
	"multinic-bond/internal/infrastructure/adapters"
	"multinic-bond/internal/infrastructure/api"
	"multinic-bond/internal/infrastructure/config"
	"multinic-bond/internal/infrastructure/health"
	"multinic-bond/internal/infrastructure/inventory"
	"multinic-bond/internal/infrastructure/network"
	"multinic-bond/internal/infrastructure/persistence"
	infraservices "multinic-bond/internal/infrastructure/services"

	"github.com/sirupsen/logrus"
)

const dbPingTimeout = 5 * time.Second

// Container는 의존성 주입을 관리하는 컨테이너입니다
type Container struct {
	config *config.Config
	logger *logrus.Logger

	// 인프라스트럭처 어댑터들
	fileSystem      interfaces.FileSystem
	commandExecutor interfaces.CommandExecutor
	clock           interfaces.Clock
	osDetector      interfaces.OSDetector

	// 서비스들
	inventory      *inventory.Inventory
	networkFactory *network.NetworkManagerFactory
	backend        interfaces.NetworkBackend
	inspection     *services.InspectionService
	snapshots      *services.MemorySnapshotStore
	journal        interfaces.SnapshotJournal
	sampler        *sampler.ThroughputSampler
	healthService  *health.HealthService

	// 레포지토리
	history interfaces.TransactionHistoryRepository

	// 유스케이스
	transactionManager *usecases.TransactionManager

	// 프레젠테이션
	streamHub  *api.StreamHub
	apiHandler *api.Handler

	// 데이터베이스 (이력 비활성화 시 nil)
	db    *sql.DB
	dbErr error
}

// NewContainer는 새로운 Container를 생성합니다
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	container := &Container{
		config: cfg,
		logger: logger,
	}

	if err := container.initializeInfrastructure(); err != nil {
		return nil, err
	}

	if err := container.initializeServices(); err != nil {
		return nil, err
	}

	if err := container.initializeUseCases(); err != nil {
		return nil, err
	}

	container.initializePresentation()

	return container, nil
}

// initializeInfrastructure는 인프라스트럭처 컴포넌트들을 초기화합니다
func (c *Container) initializeInfrastructure() error {
	// 기본 어댑터들 초기화
	c.fileSystem = adapters.NewRealFileSystem()
	c.commandExecutor = adapters.NewRealCommandExecutor(c.logger)
	c.clock = adapters.NewRealClock()
	c.osDetector = adapters.NewRealOSDetector()

	if !c.config.History.Enabled {
		c.history = persistence.NoopHistoryRepository{}
		return nil
	}

	// 데이터베이스 연결
	dbCfg := c.config.History.Database
	db, err := sql.Open("mysql", dbCfg.DSN())
	if err != nil {
		return err
	}

	// 연결 풀 설정
	db.SetMaxOpenConns(dbCfg.MaxOpenConns)
	db.SetMaxIdleConns(dbCfg.MaxIdleConns)
	db.SetConnMaxLifetime(dbCfg.MaxLifetime)

	c.db = db

	repo := persistence.NewMySQLHistoryRepository(db, c.logger)
	c.history = repo

	// 연결 테스트. 실패해도 에이전트는 계속 동작하며 헬스 체크에 반영됨
	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		c.dbErr = err
		c.logger.WithError(err).Warn("History database is unreachable; transactions will not be recorded until it recovers")
		return nil
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		c.logger.WithError(err).Warn("Failed to ensure history schema")
	}

	return nil
}

// initializeServices는 서비스들을 초기화합니다
func (c *Container) initializeServices() error {
	// 인벤토리
	filter := services.NewInterfaceFilter(c.config.Network.ExcludedPrefixes)
	c.inventory = inventory.NewInventory(inventory.NewLinkLister(c.logger), filter, c.logger)

	// 네트워크 백엔드 팩토리
	c.networkFactory = network.NewNetworkManagerFactory(
		c.osDetector,
		c.commandExecutor,
		c.config.Agent.CommandTimeout,
		c.config.Network.EnabledTokens,
		c.logger,
	)

	backend, err := c.networkFactory.CreateNetworkBackend(c.config.Network.Backend)
	if err != nil {
		return err
	}
	c.backend = backend

	c.inspection = services.NewInspectionService(c.inventory, c.backend, c.logger)
	c.snapshots = services.NewMemorySnapshotStore(c.clock)

	if c.config.Journal.Enabled {
		c.journal = infraservices.NewSnapshotJournal(
			c.fileSystem,
			c.logger,
			c.config.Journal.Directory,
			c.config.Journal.Retention,
		)
	}

	// 샘플러 폴링 전략
	var strategy polling.Strategy
	if c.config.Sampler.BackoffEnabled {
		strategy = polling.NewExponentialBackoffStrategy(
			c.config.Sampler.Interval,
			c.config.Sampler.BackoffMaxInterval,
			c.config.Sampler.BackoffMultiplier,
			c.logger,
		)
	} else {
		strategy = polling.NewFixedIntervalStrategy(c.config.Sampler.Interval)
	}
	c.sampler = sampler.NewThroughputSampler(c.inventory, c.clock, strategy, c.config.Sampler.Interval, c.logger)

	return nil
}

// initializeUseCases는 유스케이스들을 초기화합니다
func (c *Container) initializeUseCases() error {
	c.transactionManager = usecases.NewTransactionManager(
		c.inventory,
		c.backend,
		c.inspection,
		c.snapshots,
		c.journal,
		c.history,
		c.sampler,
		c.clock,
		c.logger,
	)

	// 헬스 서비스. 샘플 간격의 5배(백오프 시 최대 간격의 2배) 동안 주기가 없으면 degraded
	staleAfter := 5 * c.config.Sampler.Interval
	if c.config.Sampler.BackoffEnabled {
		staleAfter = 2 * c.config.Sampler.BackoffMaxInterval
	}
	c.healthService = health.NewHealthService(c.clock, c.transactionManager, c.sampler, staleAfter, c.logger)
	c.healthService.SetBackend(c.backend.Name())
	c.healthService.SetHistoryEnabled(c.config.History.Enabled)
	if c.db != nil {
		c.healthService.UpdateDBHealth(c.dbErr == nil, c.dbErr)
	}
	c.transactionManager.OnStateChange(c.healthService.ObserveTransition)

	return nil
}

// initializePresentation은 제어 API와 스트림 허브를 초기화합니다
func (c *Container) initializePresentation() {
	c.streamHub = api.NewStreamHub(c.logger)
	c.transactionManager.OnStateChange(func(from, to entities.TransactionState) {
		c.streamHub.Publish(api.TopicState, c.transactionManager.State())
	})

	c.apiHandler = api.NewHandler(
		c.inventory,
		c.transactionManager,
		c.sampler,
		c.history,
		c.journal,
		c.streamHub,
		c.logger,
	)
}

// CheckHistory는 이력 데이터베이스 연결을 확인하고 헬스 상태에 반영합니다
func (c *Container) CheckHistory(ctx context.Context) error {
	if c.db == nil {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()

	err := c.db.PingContext(pingCtx)
	c.healthService.UpdateDBHealth(err == nil, err)
	return err
}

// GetConfig는 설정을 반환합니다
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetOSDetector는 OS 감지기를 반환합니다
func (c *Container) GetOSDetector() interfaces.OSDetector {
	return c.osDetector
}

// GetBackend는 선택된 네트워크 백엔드를 반환합니다
func (c *Container) GetBackend() interfaces.NetworkBackend {
	return c.backend
}

// GetHealthService는 헬스 서비스를 반환합니다
func (c *Container) GetHealthService() *health.HealthService {
	return c.healthService
}

// GetSampler는 처리량 샘플러를 반환합니다
func (c *Container) GetSampler() *sampler.ThroughputSampler {
	return c.sampler
}

// GetTransactionManager는 트랜잭션 관리자를 반환합니다
func (c *Container) GetTransactionManager() *usecases.TransactionManager {
	return c.transactionManager
}

// GetStreamHub는 웹소켓 스트림 허브를 반환합니다
func (c *Container) GetStreamHub() *api.StreamHub {
	return c.streamHub
}

// GetAPIHandler는 제어 API 핸들러를 반환합니다
func (c *Container) GetAPIHandler() *api.Handler {
	return c.apiHandler
}

// Close는 컨테이너를 정리합니다
func (c *Container) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
