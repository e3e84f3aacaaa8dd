package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"multinic-bond/internal/application/usecases"
	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/infrastructure/api"
	"multinic-bond/internal/infrastructure/services"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// APIError는 에이전트가 반환한 실패 응답입니다
type APIError struct {
	StatusCode int
	api.ErrorResponse
}

// Error는 error 인터페이스를 구현합니다
func (e *APIError) Error() string {
	var b strings.Builder
	if e.Type != "" {
		fmt.Fprintf(&b, "[%s] ", e.Type)
	}
	b.WriteString(e.ErrorResponse.Error)
	if e.Command != "" {
		fmt.Fprintf(&b, "\n  command: %s", e.Command)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		fmt.Fprintf(&b, "\n  stderr: %s", stderr)
	}
	for _, re := range e.RestoreErrors {
		fmt.Fprintf(&b, "\n  restore: %s", re)
	}
	return b.String()
}

// HTTPClient는 에이전트 제어 API 클라이언트입니다
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewHTTPClient는 새로운 HTTPClient를 생성합니다
func NewHTTPClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *HTTPClient {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Interfaces는 활성 인터페이스 목록을 조회합니다
func (c *HTTPClient) Interfaces(ctx context.Context) ([]api.InterfaceView, error) {
	var out []api.InterfaceView
	err := c.do(ctx, http.MethodGet, "/api/interfaces", nil, &out)
	return out, err
}

// Counters는 인터페이스 하나의 바이트 카운터를 조회합니다
func (c *HTTPClient) Counters(ctx context.Context, name string) (*api.CountersView, error) {
	var out api.CountersView
	if err := c.do(ctx, http.MethodGet, "/api/interfaces/"+url.PathEscape(name)+"/counters", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// State는 트랜잭션 상태를 조회합니다
func (c *HTTPClient) State(ctx context.Context) (*usecases.StateView, error) {
	var out usecases.StateView
	if err := c.do(ctx, http.MethodGet, "/api/state", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Apply는 본딩 설정을 적용합니다
func (c *HTTPClient) Apply(ctx context.Context, mode string, ifaces []string) (*usecases.ApplyResult, error) {
	var out usecases.ApplyResult
	req := api.ApplyRequest{Mode: mode, Interfaces: ifaces}
	if err := c.do(ctx, http.MethodPost, "/api/apply", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stop은 본딩 설정을 되돌립니다. 복원이 불완전하면 결과와 에러를 함께 반환합니다
func (c *HTTPClient) Stop(ctx context.Context) (*usecases.StopResult, error) {
	var out api.StopResponse
	err := c.do(ctx, http.MethodPost, "/api/stop", nil, &out)
	if err != nil {
		apiErr, ok := err.(*APIError)
		if !ok || out.StopResult == nil {
			return nil, err
		}
		return out.StopResult, apiErr
	}
	if out.StopResult == nil {
		out.StopResult = &usecases.StopResult{}
	}
	return out.StopResult, nil
}

// Speeds는 최신 속도 샘플을 조회합니다
func (c *HTTPClient) Speeds(ctx context.Context) ([]entities.SpeedSample, error) {
	var out []entities.SpeedSample
	err := c.do(ctx, http.MethodGet, "/api/speeds", nil, &out)
	return out, err
}

// History는 최근 트랜잭션 이력을 조회합니다
func (c *HTTPClient) History(ctx context.Context, limit int) ([]entities.TransactionRecord, error) {
	path := "/api/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []entities.TransactionRecord
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// LatestJournal은 가장 최근에 기록된 스냅샷을 조회합니다
func (c *HTTPClient) LatestJournal(ctx context.Context) (*services.JournalRecord, error) {
	var raw []byte
	if err := c.do(ctx, http.MethodGet, "/api/journal/latest", nil, &raw); err != nil {
		return nil, err
	}
	return services.ParseRecord(raw)
}

// Watch는 스트림에 연결해 ctx가 끝나거나 연결이 끊길 때까지 메시지를 전달합니다
func (c *HTTPClient) Watch(ctx context.Context, topics []string, onMessage func(api.StreamMessage)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/ws"
	if len(topics) > 0 {
		wsURL += "?topics=" + url.QueryEscape(strings.Join(topics, ","))
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial stream: %w", err)
	}
	defer conn.Close()

	// ctx 종료 시 읽기 루프를 깨움
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("stream read error: %w", err)
		}

		var msg api.StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.WithError(err).Debug("Skipping malformed stream message")
			continue
		}
		onMessage(msg)
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.WithFields(logrus.Fields{"method": method, "path": path}).Debug("Sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to agent failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{"status": resp.StatusCode, "bytes": len(data)}).Debug("Received response")

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if path == "/api/stop" {
			// stop 실패 응답은 결과와 에러를 함께 담고 있음
			var stopResp api.StopResponse
			if json.Unmarshal(data, &stopResp) == nil && stopResp.Error != nil {
				if sr, ok := out.(*api.StopResponse); ok {
					*sr = stopResp
				}
				apiErr.ErrorResponse = *stopResp.Error
				return apiErr
			}
		}
		if json.Unmarshal(data, &apiErr.ErrorResponse) != nil || apiErr.ErrorResponse.Error == "" {
			apiErr.ErrorResponse.Error = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	switch o := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*o = data
		return nil
	default:
		return json.Unmarshal(data, out)
	}
}
