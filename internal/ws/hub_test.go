package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jalh2/businesschat-backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// dialTestHub 起一个裸 WebSocket 服务端，把连接注册进 hub 后返回客户端侧连接
func dialTestHub(t *testing.T, hub *Hub, userID int64) (*websocket.Conn, *Client) {
	t.Helper()
	logger.Logger = zap.NewNop()

	registered := make(chan *Client, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		registered <- hub.Add(userID, conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn, <-registered
}

func TestBroadcastReachesOnlySubscribers(t *testing.T) {
	hub := NewHub()

	subConn, subClient := dialTestHub(t, hub, 1)
	otherConn, otherClient := dialTestHub(t, hub, 2)

	hub.Subscribe(subClient, 42)
	hub.Subscribe(otherClient, 7)

	hub.Broadcast(42, "chat:balanceUpdated", map[string]int64{"id": 42})

	subConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := subConn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "chat:balanceUpdated", env.Event)

	// 订阅了别的频道的连接收不到
	otherConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = otherConn.ReadMessage()
	assert.Error(t, err)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()

	conn, client := dialTestHub(t, hub, 1)
	hub.Subscribe(client, 5)
	hub.Unsubscribe(client, 5)

	hub.Broadcast(5, "message:new", "x")

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestRemoveCleansSubscriptions(t *testing.T) {
	hub := NewHub()

	_, client := dialTestHub(t, hub, 1)
	hub.Subscribe(client, 9)
	hub.Subscribe(client, 10)

	hub.Remove(client)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Empty(t, hub.chats)
	assert.Empty(t, hub.clients)
}

// 读协程刷新活跃时间与心跳协程读取它并发进行，活跃连接不能被清理
// （配合 -race 运行可检出未加锁的 lastSeen 访问）
func TestHeartbeatConcurrentWithClientActivity(t *testing.T) {
	hub := NewHub()

	_, client := dialTestHub(t, hub, 1)
	hub.Subscribe(client, 1)

	go hub.Heartbeat(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			client.touch()
			time.Sleep(time.Millisecond)
		}
	}()
	<-done

	assert.Less(t, client.idle(), time.Second)

	hub.mu.RLock()
	_, registered := hub.clients[client]
	hub.mu.RUnlock()
	assert.True(t, registered)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	hub := NewHub()

	_, client := dialTestHub(t, hub, 1)
	hub.Subscribe(client, 3)
	hub.Subscribe(client, 3)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Len(t, hub.chats[3], 1)
	assert.Len(t, hub.clients[client], 1)
}
