package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"multinic-bond/internal/domain/entities"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialStream(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) StreamMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg StreamMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func newStreamServer(t *testing.T) (*StreamHub, *httptest.Server) {
	t.Helper()
	hub := NewStreamHub(quietLogger())
	deps := newDeps()
	h := NewHandler(deps.inventory, deps.tm, deps.speeds, deps.history, deps.journal, hub, quietLogger())
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return hub, server
}

func TestStreamHub_PublishToSubscribedTopics(t *testing.T) {
	hub, server := newStreamServer(t)

	conn := dialStream(t, server, "?topics=state")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	// speed는 구독하지 않았으므로 state만 도착해야 함
	hub.Publish(TopicSpeed, entities.SpeedSample{InterfaceName: "eth0"})
	hub.Publish(TopicState, map[string]string{"state": "active"})

	msg := readMessage(t, conn)
	assert.Equal(t, TopicState, msg.Topic)
	assert.JSONEq(t, `{"state":"active"}`, string(msg.Data))
}

func TestStreamHub_SubscribeMessage(t *testing.T) {
	hub, server := newStreamServer(t)

	conn := dialStream(t, server, "?topics=state")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"action": "subscribe",
		"topics": []string{TopicSpeed},
	}))

	// 구독 메시지가 반영될 때까지 대기
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for c := range hub.clients {
			return c.topics[TopicSpeed]
		}
		return false
	}, time.Second, 10*time.Millisecond)

	hub.Publish(TopicSpeed, entities.SpeedSample{InterfaceName: "eth0", SentRateKBps: 50})

	msg := readMessage(t, conn)
	assert.Equal(t, TopicSpeed, msg.Topic)
	var sample entities.SpeedSample
	require.NoError(t, json.Unmarshal(msg.Data, &sample))
	assert.Equal(t, "eth0", sample.InterfaceName)
}

func TestStreamHub_ClientDisconnect(t *testing.T) {
	hub, server := newStreamServer(t)

	conn := dialStream(t, server, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	// 연결이 끊긴 뒤 발행해도 패닉이 없어야 함
	hub.Publish(TopicState, map[string]string{"state": "idle"})
}

func TestParseTopics(t *testing.T) {
	assert.Equal(t, map[string]bool{TopicSpeed: true, TopicState: true}, parseTopics(""))
	assert.Equal(t, map[string]bool{TopicSpeed: true}, parseTopics(" speed ,"))
	assert.Equal(t, map[string]bool{TopicSpeed: true, TopicState: true}, parseTopics("speed,state"))
}

type fakeSubscriber struct {
	ch chan entities.SpeedSample
}

func (f *fakeSubscriber) Subscribe(buffer int) (<-chan entities.SpeedSample, func()) {
	return f.ch, func() {}
}

func TestStreamHub_RunForwardsSamples(t *testing.T) {
	hub, server := newStreamServer(t)
	source := &fakeSubscriber{ch: make(chan entities.SpeedSample, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx, source)
		close(done)
	}()

	conn := dialStream(t, server, "?topics=speed")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	source.ch <- entities.SpeedSample{InterfaceName: "wlan0", RecvRateKBps: 3}

	msg := readMessage(t, conn)
	assert.Equal(t, TopicSpeed, msg.Topic)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Equal(t, 0, hub.ClientCount())

	// 종료 시 클라이언트 연결이 닫힘
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
