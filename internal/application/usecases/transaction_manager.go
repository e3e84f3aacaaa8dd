package usecases

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"multinic-bond/internal/domain/constants"
	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/domain/errors"
	"multinic-bond/internal/domain/interfaces"
	"multinic-bond/internal/domain/services"
	"multinic-bond/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

// StateListener는 상태 전이를 통보받습니다
type StateListener func(from, to entities.TransactionState)

// ApplyInput은 apply의 입력 파라미터입니다
type ApplyInput struct {
	Mode       entities.BondingMode
	Interfaces []string
}

// ApplyResult는 성공한 apply의 결과입니다
type ApplyResult struct {
	SnapshotID     string               `json:"snapshot_id"`
	Mode           entities.BondingMode `json:"mode"`
	Selection      []string             `json:"selection"`
	Target         string               `json:"target,omitempty"`
	RouteInstalled bool                 `json:"route_installed"`
	Warnings       []string             `json:"warnings,omitempty"`
}

// StopResult는 stop의 결과입니다. 복원이 불완전해도 반환됩니다
type StopResult struct {
	SnapshotID string   `json:"snapshot_id"`
	Restored   int      `json:"restored"`
	Errors     []string `json:"errors,omitempty"`
}

// StateView는 현재 트랜잭션 상태의 읽기 전용 사본입니다
type StateView struct {
	State          entities.TransactionState `json:"state"`
	Mode           entities.BondingMode      `json:"mode,omitempty"`
	Selection      []string                  `json:"selection,omitempty"`
	SnapshotID     string                    `json:"snapshot_id,omitempty"`
	PendingRestore bool                      `json:"pending_restore"`
}

// TransactionManager는 본딩 설정을 하나의 트랜잭션으로 적용하고 되돌립니다.
// apply와 stop의 상호 배제는 상태 머신으로만 보장됩니다.
type TransactionManager struct {
	inventory  interfaces.InterfaceInventory
	backend    interfaces.NetworkConfigurer
	inspection *services.InspectionService
	snapshots  interfaces.SnapshotStore
	journal    interfaces.SnapshotJournal
	history    interfaces.TransactionHistoryRepository
	observer   interfaces.InventoryObserver
	clock      interfaces.Clock
	logger     *logrus.Logger

	mu        sync.Mutex
	state     entities.TransactionState
	mode      entities.BondingMode
	selection []string
	listeners []StateListener
}

// NewTransactionManager는 새로운 TransactionManager를 생성합니다.
// journal, history, observer는 nil일 수 있습니다.
func NewTransactionManager(
	inventory interfaces.InterfaceInventory,
	backend interfaces.NetworkConfigurer,
	inspection *services.InspectionService,
	snapshots interfaces.SnapshotStore,
	journal interfaces.SnapshotJournal,
	history interfaces.TransactionHistoryRepository,
	observer interfaces.InventoryObserver,
	clock interfaces.Clock,
	logger *logrus.Logger,
) *TransactionManager {
	metrics.SetTransactionState(string(entities.StateIdle))
	return &TransactionManager{
		inventory:  inventory,
		backend:    backend,
		inspection: inspection,
		snapshots:  snapshots,
		journal:    journal,
		history:    history,
		observer:   observer,
		clock:      clock,
		logger:     logger,
		state:      entities.StateIdle,
	}
}

// OnStateChange는 상태 전이 리스너를 등록합니다
func (tm *TransactionManager) OnStateChange(listener StateListener) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.listeners = append(tm.listeners, listener)
}

// State는 현재 상태를 반환합니다
func (tm *TransactionManager) State() StateView {
	tm.mu.Lock()
	view := StateView{
		State:     tm.state,
		Mode:      tm.mode,
		Selection: append([]string(nil), tm.selection...),
	}
	tm.mu.Unlock()

	if snap, ok := tm.snapshots.Get(); ok {
		view.SnapshotID = snap.ID()
		view.PendingRestore = true
	}
	return view
}

// Snapshot은 현재 보관 중인 스냅샷을 반환합니다
func (tm *TransactionManager) Snapshot() (*entities.ConfigurationSnapshot, bool) {
	return tm.snapshots.Get()
}

// Apply는 선택된 인터페이스에 본딩 설정을 적용합니다.
// 실패하면 캡처한 스냅샷으로 롤백하고 원래 에러와 롤백 에러를 함께 반환합니다.
func (tm *TransactionManager) Apply(ctx context.Context, input ApplyInput) (*ApplyResult, error) {
	startedAt := tm.clock.Now()

	known, selection, err := tm.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	if !tm.transition(entities.StateIdle, entities.StateApplying) {
		return nil, errors.NewInvalidSelectionError(fmt.Sprintf("transaction state is %s, expected %s", tm.currentState(), entities.StateIdle))
	}

	tm.mu.Lock()
	tm.mode = input.Mode
	tm.selection = selection
	tm.mu.Unlock()

	// 시작된 apply는 호출자 취소와 무관하게 끝까지 실행
	runCtx := context.WithoutCancel(ctx)

	if tm.observer != nil {
		tm.observer.Refresh(known)
	}

	if prev, ok := tm.snapshots.Get(); ok {
		tm.logger.WithField("snapshot_id", prev.ID()).Warn("Discarding snapshot left by an incomplete restore")
	}
	snap := tm.capture(runCtx, known, input.Mode, selection)

	result := &ApplyResult{
		SnapshotID: snap.ID(),
		Mode:       input.Mode,
		Selection:  selection,
	}

	tm.logger.WithFields(logrus.Fields{
		"mode":        input.Mode,
		"selection":   selection,
		"known":       len(known),
		"snapshot_id": snap.ID(),
	}).Info("Applying bonding configuration")

	var changed int
	switch input.Mode {
	case entities.ModeBonded:
		changed, err = tm.applyBonded(runCtx, known, selection)
	case entities.ModeSingleActive:
		changed, err = tm.applySingleActive(runCtx, known, selection, result)
	}

	if err != nil {
		txErr := tm.abort(runCtx, snap, input.Mode, changed, err)
		tm.recordHistory(runCtx, "apply", input.Mode, selection, snap.ID(), startedAt, txErr)
		return nil, txErr
	}

	tm.transition(entities.StateApplying, entities.StateActive)
	tm.recordHistory(runCtx, "apply", input.Mode, selection, snap.ID(), startedAt, nil)

	tm.logger.WithFields(logrus.Fields{
		"mode":            input.Mode,
		"selection":       selection,
		"route_installed": result.RouteInstalled,
	}).Info("Bonding configuration active")

	return result, nil
}

// Stop은 스냅샷의 메트릭을 복원하고 TCP 설정을 끕니다.
// 복원 실패가 있어도 항상 Idle로 돌아갑니다.
func (tm *TransactionManager) Stop(ctx context.Context) (*StopResult, error) {
	startedAt := tm.clock.Now()

	if !tm.transition(entities.StateActive, entities.StateRollingBack) {
		return nil, errors.NewInvalidStateError(fmt.Sprintf("transaction state is %s, expected %s", tm.currentState(), entities.StateActive))
	}

	runCtx := context.WithoutCancel(ctx)

	tm.mu.Lock()
	mode, selection := tm.mode, tm.selection
	tm.mu.Unlock()

	result := &StopResult{}
	var restoreErrs []error

	snap, ok := tm.snapshots.Get()
	if !ok {
		restoreErrs = append(restoreErrs, errors.NewRestoreFailedError("no snapshot available to restore", nil))
	} else {
		result.SnapshotID = snap.ID()
		restored, errs := tm.restoreMetrics(runCtx, snap)
		result.Restored = restored
		restoreErrs = append(restoreErrs, errs...)
		restoreErrs = append(restoreErrs, tm.disableTuning(runCtx, snap)...)
	}

	var err error
	if len(restoreErrs) == 0 {
		tm.snapshots.Clear()
		metrics.RecordRollback(true)
		tm.logger.WithField("snapshot_id", result.SnapshotID).Info("Rollback completed")
	} else {
		for _, re := range restoreErrs {
			result.Errors = append(result.Errors, re.Error())
		}
		metrics.RecordRollback(false)
		tm.logger.WithFields(logrus.Fields{
			"snapshot_id":    result.SnapshotID,
			"restore_errors": result.Errors,
		}).Error("Rollback incomplete")
		err = &errors.TransactionError{
			Op:            "stop",
			Cause:         errors.NewRestoreFailedError(fmt.Sprintf("%d restore step(s) failed", len(restoreErrs)), nil),
			RestoreErrors: restoreErrs,
			RolledBack:    true,
		}
	}

	tm.mu.Lock()
	tm.mode = ""
	tm.selection = nil
	tm.mu.Unlock()
	tm.transition(entities.StateRollingBack, entities.StateIdle)

	tm.recordHistory(runCtx, "stop", mode, selection, result.SnapshotID, startedAt, err)
	return result, err
}

func (tm *TransactionManager) validate(ctx context.Context, input ApplyInput) ([]entities.Interface, []string, error) {
	if !input.Mode.Valid() {
		return nil, nil, errors.NewInvalidSelectionError(fmt.Sprintf("unknown bonding mode %q", input.Mode))
	}

	selection := dedupe(input.Interfaces)
	if len(selection) == 0 {
		return nil, nil, errors.NewInvalidSelectionError("no interfaces selected")
	}

	if state := tm.currentState(); state != entities.StateIdle {
		return nil, nil, errors.NewInvalidSelectionError(fmt.Sprintf("transaction state is %s, expected %s", state, entities.StateIdle))
	}

	known, err := tm.inventory.ListActive(ctx)
	if err != nil {
		return nil, nil, err
	}

	names := make(map[string]bool, len(known))
	for _, iface := range known {
		names[iface.Name] = true
	}

	var missing []string
	for _, name := range selection {
		if !names[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, errors.NewInvalidSelectionError(fmt.Sprintf("interfaces not active: %s", strings.Join(missing, ", ")))
	}

	return known, selection, nil
}

// capture는 선택과 무관하게 알려진 모든 인터페이스의 메트릭을 스냅샷합니다
func (tm *TransactionManager) capture(ctx context.Context, known []entities.Interface, mode entities.BondingMode, selection []string) *entities.ConfigurationSnapshot {
	entries := make([]entities.MetricEntry, 0, len(known))
	for _, iface := range known {
		metric, ok := tm.inspection.CurrentMetric(ctx, iface.Name)
		if !ok {
			tm.logger.WithField("interface", iface.Name).Warn("Current metric unknown, interface will not be restored")
		}
		entries = append(entries, entities.MetricEntry{Name: iface.Name, Metric: metric, Known: ok})
	}

	snap := tm.snapshots.Capture(entries)

	if tm.journal != nil {
		if err := tm.journal.Record(ctx, snap, mode, selection); err != nil {
			tm.logger.WithError(err).WithField("snapshot_id", snap.ID()).Warn("Failed to journal snapshot")
		}
	}
	return snap
}

func (tm *TransactionManager) applyBonded(ctx context.Context, known []entities.Interface, selection []string) (int, error) {
	selected := make(map[string]bool, len(selection))
	for _, name := range selection {
		selected[name] = true
	}

	changed := 0
	if err := tm.backend.SetAutotuning(ctx, true); err != nil {
		return changed, err
	}
	changed++

	for _, iface := range known {
		if err := tm.backend.SetTCPTemplate(ctx, iface.Name, entities.TemplateInternet); err != nil {
			return changed, err
		}
		changed++
	}

	for _, iface := range known {
		metric := constants.MetricDeprioritized
		if selected[iface.Name] {
			metric = constants.MetricPreferred
		}
		if err := tm.backend.SetMetric(ctx, iface.Name, metric); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

func (tm *TransactionManager) applySingleActive(ctx context.Context, known []entities.Interface, selection []string, result *ApplyResult) (int, error) {
	target := selection[0]
	result.Target = target
	if len(selection) > 1 {
		tm.logger.WithFields(logrus.Fields{
			"target":  target,
			"ignored": selection[1:],
		}).Warn("Single-active mode uses only the first selected interface, the rest are deprioritized")
	}

	changed := 0
	for _, iface := range known {
		metric := constants.MetricDeprioritized
		if iface.Name == target {
			metric = constants.MetricPreferred
		}
		if err := tm.backend.SetMetric(ctx, iface.Name, metric); err != nil {
			return changed, err
		}
		changed++
	}

	gateway, gwOK := tm.inspection.DefaultGateway(ctx, target)
	index, idxOK := tm.inspection.InterfaceIndex(ctx, target)
	if !gwOK || !idxOK {
		warn := errors.NewResolutionFailedError(
			fmt.Sprintf("default route not installed for %s (gateway resolved: %t, index resolved: %t)", target, gwOK, idxOK), nil)
		result.Warnings = append(result.Warnings, warn.Error())
		tm.logger.WithField("interface", target).Warn(warn.Message)
		return changed, nil
	}

	if err := tm.backend.AddDefaultRoute(ctx, target, gateway, index, constants.DefaultRouteMetric); err != nil {
		return changed, err
	}
	result.RouteInstalled = true
	return changed + 1, nil
}

// abort는 실패한 apply를 스냅샷으로 되돌립니다. 롤백 실패는 모아서 보고하며 재귀 롤백은 없습니다
func (tm *TransactionManager) abort(ctx context.Context, snap *entities.ConfigurationSnapshot, mode entities.BondingMode, changed int, cause error) error {
	tm.logger.WithError(cause).WithField("snapshot_id", snap.ID()).Error("Apply failed, rolling back")

	txErr := &errors.TransactionError{Op: "apply", Cause: cause, RolledBack: true}

	tm.transition(entities.StateApplying, entities.StateRollingBack)

	// 실패한 백엔드 호출도 일부 명령을 이미 실행했을 수 있으므로 메트릭 복원은 항상 수행 (복원은 멱등)
	_, restoreErrs := tm.restoreMetrics(ctx, snap)

	// TCP 설정은 자동 튜닝 명령이 결과 불명으로 끝났거나 이후 단계까지 진행된 경우에만 정리
	if mode == entities.ModeBonded && (changed > 0 || errors.IsCommandTimeoutError(cause)) {
		restoreErrs = append(restoreErrs, tm.disableTuning(ctx, snap)...)
	}
	txErr.RestoreErrors = restoreErrs

	if len(restoreErrs) == 0 {
		tm.snapshots.Clear()
		metrics.RecordRollback(true)
		tm.logger.WithField("snapshot_id", snap.ID()).Info("Rollback completed")
	} else {
		metrics.RecordRollback(false)
		tm.logger.WithField("snapshot_id", snap.ID()).WithField("restore_errors", txErr.Error()).Error("Rollback incomplete")
	}

	tm.clearSelection()
	tm.transition(entities.StateRollingBack, entities.StateIdle)
	return txErr
}

// restoreMetrics는 알려진 메트릭만 복원합니다
func (tm *TransactionManager) restoreMetrics(ctx context.Context, snap *entities.ConfigurationSnapshot) (int, []error) {
	var errs []error
	restored := 0
	for _, entry := range snap.Entries() {
		if !entry.Known {
			continue
		}
		if err := tm.backend.SetMetric(ctx, entry.Name, entry.Metric); err != nil {
			errs = append(errs, errors.NewRestoreFailedError(
				fmt.Sprintf("failed to restore metric %d on %s", entry.Metric, entry.Name), err))
			continue
		}
		restored++
	}
	return restored, errs
}

// disableTuning은 스냅샷된 모든 인터페이스의 TCP 템플릿과 전역 자동 튜닝을 끕니다
func (tm *TransactionManager) disableTuning(ctx context.Context, snap *entities.ConfigurationSnapshot) []error {
	var errs []error
	for _, entry := range snap.Entries() {
		if err := tm.backend.SetTCPTemplate(ctx, entry.Name, entities.TemplateDisabled); err != nil {
			errs = append(errs, errors.NewRestoreFailedError(
				fmt.Sprintf("failed to disable TCP template on %s", entry.Name), err))
		}
	}
	if err := tm.backend.SetAutotuning(ctx, false); err != nil {
		errs = append(errs, errors.NewRestoreFailedError("failed to disable TCP autotuning", err))
	}
	return errs
}

// transition은 현재 상태가 from일 때만 to로 바꿉니다
func (tm *TransactionManager) transition(from, to entities.TransactionState) bool {
	tm.mu.Lock()
	if tm.state != from {
		tm.mu.Unlock()
		return false
	}
	tm.state = to
	listeners := append([]StateListener(nil), tm.listeners...)
	tm.mu.Unlock()

	metrics.SetTransactionState(string(to))
	tm.logger.WithFields(logrus.Fields{
		"from": from,
		"to":   to,
	}).Info("Transaction state changed")

	for _, listener := range listeners {
		listener(from, to)
	}
	return true
}

func (tm *TransactionManager) currentState() entities.TransactionState {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.state
}

func (tm *TransactionManager) clearSelection() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.mode = ""
	tm.selection = nil
}

// recordHistory는 메트릭과 이력 저장소에 결과를 남깁니다. 저장 실패는 트랜잭션에 영향을 주지 않습니다
func (tm *TransactionManager) recordHistory(ctx context.Context, op string, mode entities.BondingMode, selection []string, snapshotID string, startedAt time.Time, err error) {
	record := entities.TransactionRecord{
		Operation:  op,
		Mode:       mode,
		Interfaces: selection,
		Result:     entities.ResultSuccess,
		SnapshotID: snapshotID,
		StartedAt:  startedAt,
		FinishedAt: tm.clock.Now(),
	}
	if err != nil {
		record.Result = entities.ResultFailed
		record.Error = err.Error()
		if txErr, ok := err.(*errors.TransactionError); ok && len(txErr.RestoreErrors) > 0 {
			record.Result = entities.ResultRestoreIncomplete
		}
		if errType, ok := errors.TypeOf(err); ok {
			metrics.RecordError(string(errType))
		}
	}
	metrics.RecordTransaction(op, string(mode), record.Result)

	if tm.history == nil {
		return
	}
	if herr := tm.history.RecordTransaction(ctx, record); herr != nil {
		tm.logger.WithError(herr).WithField("operation", op).Warn("Failed to record transaction history")
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
