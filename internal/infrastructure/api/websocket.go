package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"multinic-bond/internal/domain/entities"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// 스트림 토픽
const (
	TopicSpeed = "speed"
	TopicState = "state"
)

const (
	clientSendBuffer = 64
	writeTimeout     = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin 헤더가 있으면 같은 호스트 또는 localhost만 허용
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if strings.Contains(origin, "://localhost:") || strings.Contains(origin, "://127.0.0.1:") {
			return true
		}
		for _, scheme := range []string{"http://", "https://"} {
			if host, ok := strings.CutPrefix(origin, scheme); ok {
				return host == r.Host
			}
		}
		return false
	},
}

// StreamMessage는 웹소켓으로 전송되는 토픽 메시지입니다
type StreamMessage struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// SpeedSubscriber는 속도 샘플 스트림을 구독할 수 있는 샘플러입니다
type SpeedSubscriber interface {
	Subscribe(buffer int) (<-chan entities.SpeedSample, func())
}

type streamClient struct {
	conn   *websocket.Conn
	topics map[string]bool
	send   chan []byte
	once   sync.Once
}

// StreamHub는 샘플과 상태 전이를 웹소켓 클라이언트에 토픽별로 전달합니다.
// 느린 클라이언트에게는 메시지가 버려집니다.
type StreamHub struct {
	logger *logrus.Logger

	mu      sync.RWMutex
	clients map[*streamClient]bool
}

// NewStreamHub는 새로운 StreamHub를 생성합니다
func NewStreamHub(logger *logrus.Logger) *StreamHub {
	return &StreamHub{
		logger:  logger,
		clients: make(map[*streamClient]bool),
	}
}

// Run은 샘플러를 구독해 ctx가 끝날 때까지 speed 토픽으로 전달합니다
func (m *StreamHub) Run(ctx context.Context, source SpeedSubscriber) {
	samples, cancel := source.Subscribe(clientSendBuffer)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case sample, ok := <-samples:
			if !ok {
				return
			}
			m.Publish(TopicSpeed, sample)
		}
	}
}

// Publish는 토픽을 구독한 모든 클라이언트에 메시지를 보냅니다
func (m *StreamHub) Publish(topic string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		m.logger.WithError(err).WithField("topic", topic).Error("Failed to encode stream message")
		return
	}
	msg, err := json.Marshal(StreamMessage{Topic: topic, Data: payload})
	if err != nil {
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for client := range m.clients {
		if !client.topics[topic] {
			continue
		}
		select {
		case client.send <- msg:
		default:
			// 버퍼가 가득 찬 클라이언트는 건너뜀
		}
	}
}

// ClientCount는 연결된 클라이언트 수를 반환합니다
func (m *StreamHub) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// ServeHTTP는 웹소켓 업그레이드를 처리합니다.
// ?topics=speed,state 로 초기 구독을 지정하며 기본값은 모든 토픽입니다.
func (m *StreamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.WithError(err).Warn("Failed to upgrade stream connection")
		return
	}

	client := &streamClient{
		conn:   conn,
		topics: parseTopics(r.URL.Query().Get("topics")),
		send:   make(chan []byte, clientSendBuffer),
	}

	m.mu.Lock()
	m.clients[client] = true
	m.mu.Unlock()

	m.logger.WithField("remote", r.RemoteAddr).Debug("Stream client connected")

	go client.writePump()
	go m.readPump(client)
}

// readPump는 구독 변경 메시지를 처리하고 연결 종료를 감지합니다
func (m *StreamHub) readPump(c *streamClient) {
	defer m.remove(c)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg struct {
			Action string   `json:"action"`
			Topics []string `json:"topics"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		m.mu.Lock()
		switch msg.Action {
		case "subscribe":
			for _, topic := range msg.Topics {
				c.topics[topic] = true
			}
		case "unsubscribe":
			for _, topic := range msg.Topics {
				delete(c.topics, topic)
			}
		}
		m.mu.Unlock()
	}
}

// writePump는 전송 큐를 비웁니다. 큐가 닫히면 연결도 닫습니다
func (c *streamClient) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

func (m *StreamHub) remove(c *streamClient) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[c]; ok {
		delete(m.clients, c)
		c.once.Do(func() { close(c.send) })
	}
}

func (m *StreamHub) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for c := range m.clients {
		delete(m.clients, c)
		c.once.Do(func() { close(c.send) })
	}
}

func parseTopics(raw string) map[string]bool {
	topics := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics[t] = true
		}
	}
	if len(topics) == 0 {
		topics[TopicSpeed] = true
		topics[TopicState] = true
	}
	return topics
}
