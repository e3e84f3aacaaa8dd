package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"multinic-bond/internal/application/usecases"
	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/domain/errors"
	"multinic-bond/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 20
	maxRequestBody      = 64 << 10
)

// TransactionController는 API가 사용하는 트랜잭션 관리자 기능입니다
type TransactionController interface {
	Apply(ctx context.Context, input usecases.ApplyInput) (*usecases.ApplyResult, error)
	Stop(ctx context.Context) (*usecases.StopResult, error)
	State() usecases.StateView
}

// SpeedSource는 최신 속도 샘플을 제공합니다
type SpeedSource interface {
	Latest() []entities.SpeedSample
}

// ApplyRequest는 POST /api/apply 본문입니다
type ApplyRequest struct {
	Mode       string   `json:"mode"`
	Interfaces []string `json:"interfaces"`
}

// InterfaceView는 GET /api/interfaces 항목입니다
type InterfaceView struct {
	Name      string        `json:"name"`
	Active    bool          `json:"active"`
	SentBytes uint64        `json:"sent_bytes"`
	RecvBytes uint64        `json:"recv_bytes"`
	Addresses []AddressView `json:"addresses,omitempty"`
}

// CountersView는 GET /api/interfaces/{name}/counters 응답입니다
type CountersView struct {
	Name      string `json:"name"`
	SentBytes uint64 `json:"sent_bytes"`
	RecvBytes uint64 `json:"recv_bytes"`
}

// AddressView는 인터페이스 주소 정보입니다
type AddressView struct {
	Family  int    `json:"family"`
	Address string `json:"address"`
	Netmask string `json:"netmask,omitempty"`
	Gateway string `json:"gateway,omitempty"`
}

// ErrorResponse는 모든 실패 응답의 본문입니다
type ErrorResponse struct {
	Error         string   `json:"error"`
	Type          string   `json:"type,omitempty"`
	Command       string   `json:"command,omitempty"`
	Stderr        string   `json:"stderr,omitempty"`
	RestoreErrors []string `json:"restore_errors,omitempty"`
}

// StopResponse는 stop이 불완전하게 끝났을 때도 결과를 함께 돌려줍니다
type StopResponse struct {
	*usecases.StopResult
	Error *ErrorResponse `json:"error,omitempty"`
}

// Handler는 에이전트 제어 API입니다
type Handler struct {
	inventory    interfaces.InterfaceInventory
	transactions TransactionController
	speeds       SpeedSource
	history      interfaces.TransactionHistoryRepository
	journal      interfaces.SnapshotJournal
	stream       *StreamHub
	logger       *logrus.Logger
	mux          *http.ServeMux
}

// NewHandler는 새로운 Handler를 생성합니다. journal과 stream은 nil일 수 있습니다
func NewHandler(
	inventory interfaces.InterfaceInventory,
	transactions TransactionController,
	speeds SpeedSource,
	history interfaces.TransactionHistoryRepository,
	journal interfaces.SnapshotJournal,
	stream *StreamHub,
	logger *logrus.Logger,
) *Handler {
	h := &Handler{
		inventory:    inventory,
		transactions: transactions,
		speeds:       speeds,
		history:      history,
		journal:      journal,
		stream:       stream,
		logger:       logger,
		mux:          http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /api/interfaces", h.listInterfaces)
	h.mux.HandleFunc("GET /api/interfaces/{name}/counters", h.getCounters)
	h.mux.HandleFunc("GET /api/state", h.getState)
	h.mux.HandleFunc("POST /api/apply", h.apply)
	h.mux.HandleFunc("POST /api/stop", h.stop)
	h.mux.HandleFunc("GET /api/speeds", h.getSpeeds)
	h.mux.HandleFunc("GET /api/history", h.getHistory)
	h.mux.HandleFunc("GET /api/journal/latest", h.getLatestJournal)
	if stream != nil {
		h.mux.Handle("GET /api/ws", stream)
	}
	return h
}

// ServeHTTP는 http.Handler를 구현합니다
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) listInterfaces(w http.ResponseWriter, r *http.Request) {
	ifaces, err := h.inventory.ListActive(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	views := make([]InterfaceView, 0, len(ifaces))
	for _, iface := range ifaces {
		view := InterfaceView{
			Name:      iface.Name,
			Active:    iface.IsActive,
			SentBytes: iface.SentBytes,
			RecvBytes: iface.RecvBytes,
		}
		addrs, err := h.inventory.Addresses(r.Context(), iface.Name)
		if err != nil {
			// 열거와 조회 사이에 사라진 인터페이스
			h.logger.WithError(err).WithField("interface", iface.Name).Debug("Failed to read addresses")
		}
		for _, a := range addrs {
			view.Addresses = append(view.Addresses, AddressView{
				Family:  int(a.Family),
				Address: a.Address,
				Netmask: a.Netmask,
				Gateway: a.Gateway,
			})
		}
		views = append(views, view)
	}

	h.writeJSON(w, http.StatusOK, views)
}

// getCounters는 카운터가 아직 없는 인터페이스에 대해 (0,0)을 돌려줍니다
func (h *Handler) getCounters(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	sent, recv, err := h.inventory.Counters(r.Context(), name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CountersView{Name: name, SentBytes: sent, RecvBytes: recv})
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.transactions.State())
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.writeError(w, errors.NewValidationError("invalid request body", err))
		return
	}

	mode, err := entities.ParseBondingMode(req.Mode)
	if err != nil {
		h.writeError(w, errors.NewInvalidSelectionError(err.Error()))
		return
	}

	result, err := h.transactions.Apply(r.Context(), usecases.ApplyInput{
		Mode:       mode,
		Interfaces: req.Interfaces,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) stop(w http.ResponseWriter, r *http.Request) {
	result, err := h.transactions.Stop(r.Context())
	if err != nil && result == nil {
		h.writeError(w, err)
		return
	}
	if err != nil {
		status, body := toErrorResponse(err)
		h.writeJSON(w, status, StopResponse{StopResult: result, Error: &body})
		return
	}

	h.writeJSON(w, http.StatusOK, StopResponse{StopResult: result})
}

func (h *Handler) getSpeeds(w http.ResponseWriter, r *http.Request) {
	samples := h.speeds.Latest()
	if samples == nil {
		samples = []entities.SpeedSample{}
	}
	h.writeJSON(w, http.StatusOK, samples)
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, errors.NewValidationError("limit must be a positive integer", err))
			return
		}
		limit = n
	}

	records, err := h.history.RecentTransactions(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if records == nil {
		records = []entities.TransactionRecord{}
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) getLatestJournal(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		h.writeError(w, errors.NewNotFoundError("snapshot journal is disabled"))
		return
	}

	data, err := h.journal.Latest(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.WithError(err).Debug("Failed to write journal record")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithError(err).Error("failed to encode API response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, body := toErrorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).Error("API request failed")
	}
	h.writeJSON(w, status, body)
}

// toErrorResponse는 도메인 에러를 HTTP 상태와 본문으로 변환합니다
func toErrorResponse(err error) (int, ErrorResponse) {
	body := ErrorResponse{Error: err.Error()}

	status := http.StatusInternalServerError
	if t, ok := errors.TypeOf(err); ok {
		body.Type = string(t)
		switch t {
		case errors.ErrorTypeInvalidSelection, errors.ErrorTypeInvalidState, errors.ErrorTypeValidation:
			status = http.StatusBadRequest
		case errors.ErrorTypeNotFound:
			status = http.StatusNotFound
		}
	}

	if cmdErr, ok := errors.AsCommandError(err); ok {
		body.Command = cmdErr.CommandLine()
		body.Stderr = cmdErr.Stderr
	}

	var txErr *errors.TransactionError
	if stderrors.As(err, &txErr) {
		for _, re := range txErr.RestoreErrors {
			body.RestoreErrors = append(body.RestoreErrors, re.Error())
		}
	}

	return status, body
}
