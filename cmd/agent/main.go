package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"multinic-bond/internal/application/polling"
	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/infrastructure/config"
	"multinic-bond/internal/infrastructure/container"
	"multinic-bond/internal/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// version은 빌드 시 -ldflags "-X main.version=..." 로 설정됩니다
var version = "dev"

const (
	historyCheckInterval = 30 * time.Second
	shutdownTimeout      = 5 * time.Second
)

func main() {
	// 로거 초기화
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	// 설정 로드
	configLoader := config.NewEnvironmentConfigLoader()
	cfg, err := configLoader.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	setLogLevel(logger, cfg.Agent.LogLevel)

	// 의존성 주입 컨테이너 생성
	appContainer, err := container.NewContainer(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create dependency injection container")
	}
	defer func() {
		if err := appContainer.Close(); err != nil {
			logger.WithError(err).Error("Failed to cleanup container")
		}
	}()

	// 애플리케이션 시작
	app := NewApplication(appContainer, logger)
	if err := app.Run(); err != nil {
		logger.WithError(err).Fatal("Failed to run application")
	}
}

// setLogLevel은 설정된 로그 레벨을 적용합니다. 알 수 없는 값이면 Info를 유지합니다
func setLogLevel(logger *logrus.Logger, level string) {
	if level == "" {
		return
	}
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithError(err).Warnf("Unknown LOG_LEVEL value: %s. Using default Info level.", level)
		return
	}
	logger.SetLevel(logLevel)
}

// Application은 메인 애플리케이션 구조체입니다
type Application struct {
	container *container.Container
	logger    *logrus.Logger
	server    *http.Server
}

// NewApplication은 새로운 Application을 생성합니다
func NewApplication(container *container.Container, logger *logrus.Logger) *Application {
	return &Application{
		container: container,
		logger:    logger,
	}
}

// Run은 애플리케이션을 실행하고 종료 시그널을 받을 때까지 대기합니다
func (a *Application) Run() error {
	cfg := a.container.GetConfig()
	backend := a.container.GetBackend()

	// OS 타입 감지 및 에이전트 정보 메트릭
	osType, err := a.container.GetOSDetector().DetectOS()
	if err != nil {
		a.logger.WithError(err).Warn("Failed to detect OS type")
	}
	a.logger.WithFields(logrus.Fields{
		"os_type": osType,
		"backend": backend.Name(),
		"version": version,
	}).Info("Operating system detected")
	metrics.SetAgentInfo(version, string(osType), backend.Name(), cfg.Agent.NodeName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.startServer(cfg.Server.Port); err != nil {
		return err
	}

	var wg sync.WaitGroup

	// 처리량 샘플러
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.container.GetSampler().Run(ctx); err != nil {
			a.logger.WithError(err).Error("Throughput sampler stopped")
		}
	}()

	// 웹소켓 스트림
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.container.GetStreamHub().Run(ctx, a.container.GetSampler())
	}()

	// 이력 DB 연결 상태 확인
	if cfg.History.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checker := polling.NewPollingController(polling.NewFixedIntervalStrategy(historyCheckInterval), a.logger)
			_ = checker.Start(ctx, a.container.CheckHistory)
		}()
	}

	a.logger.WithField("port", cfg.Server.Port).Info("MultiNIC bonding agent started")

	<-ctx.Done()
	a.logger.Info("Received shutdown signal")

	a.shutdown()
	wg.Wait()
	return nil
}

// startServer는 헬스 체크, 메트릭, 제어 API 서버를 시작합니다
func (a *Application) startServer(port string) error {
	mux := http.NewServeMux()
	mux.Handle("/healthz", a.container.GetHealthService())
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/", a.container.GetAPIHandler())

	a.server = &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.WithField("port", port).Info("HTTP server started (/healthz, /metrics, /api)")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server failed")
		}
	}()

	return nil
}

// shutdown은 애플리케이션을 정리합니다
func (a *Application) shutdown() {
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).Error("Failed to shutdown HTTP server")
		}
	}

	// 스냅샷은 메모리에만 있으므로 재시작 후에는 자동 복원이 불가능
	state := a.container.GetTransactionManager().State()
	if state.State != entities.StateIdle || state.PendingRestore {
		a.logger.WithFields(logrus.Fields{
			"state":       state.State,
			"mode":        state.Mode,
			"selection":   state.Selection,
			"snapshot_id": state.SnapshotID,
		}).Warn("Exiting with bonding configuration applied; it cannot be restored after restart")
	}
}
