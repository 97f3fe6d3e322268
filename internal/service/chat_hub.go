package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"social_chat_backend/internal/model"
	"social_chat_backend/internal/repository"
	"social_chat_backend/internal/util"
	"social_chat_backend/pkg/logger"
	"social_chat_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	shardCount     = 32
	onlineTTL      = 2 * time.Minute // 在线状态过期时间
)

// 服务端下行事件
const (
	EventMessageNew     = "message:new"
	EventPollNew        = "poll:new"
	EventPollUpdate     = "poll:update"
	EventPollResponse   = "poll:response"
	EventUserOnline     = "user:online"
	EventUserOffline    = "user:offline"
	EventFriendRequest  = "friend:request"
	EventFriendAccepted = "friend:accepted"
	EventError          = "error"
)

// 客户端上行事件
const (
	EventJoinRoom    = "join:room"
	EventLeaveRoom   = "leave:room"
	EventMessageSend = "message:send"
	EventPollRespond = "poll:respond"
	EventUserStatus  = "user:status"
)

var messagePool = sync.Pool{
	New: func() interface{} {
		return &WSMessage{}
	},
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// DirectRoom 私聊房间名，按双方 ID 归一化，两端算出同一个房间
func DirectRoom(a, b uint) string {
	low, high := model.NormalizePair(a, b)
	return fmt.Sprintf("dm:%d:%d", low, high)
}

// UserRoom 个人通知房间名
func UserRoom(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// RoomRegistry 房间成员表。默认内存实现按实例维护，
// 跨实例投递靠 Redis 发布房间名、各实例对照本地成员表分发
type RoomRegistry interface {
	Join(room string, userID uint)
	Leave(room string, userID uint)
	LeaveAll(userID uint)
	Members(room string) []uint
}

type memoryRoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[uint]bool
}

func NewMemoryRoomRegistry() RoomRegistry {
	return &memoryRoomRegistry{rooms: make(map[string]map[uint]bool)}
}

func (r *memoryRoomRegistry) Join(room string, userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[uint]bool)
		r.rooms[room] = members
	}
	members[userID] = true
}

func (r *memoryRoomRegistry) Leave(room string, userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if members, ok := r.rooms[room]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
}

func (r *memoryRoomRegistry) LeaveAll(userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room, members := range r.rooms {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
}

func (r *memoryRoomRegistry) Members(room string) []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	ids := make([]uint, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

type Client struct {
	Hub     *ChatHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	Limiter *rate.Limiter // 限流器
}

type shard struct {
	clients map[uint]*Client
	mu      sync.RWMutex
}

type ChatHub struct {
	shards     [shardCount]*shard
	register   chan *Client
	unregister chan *Client
	Rooms      RoomRegistry
	Redis      *redis.Client
	UserRepo   *repository.UserRepository

	// 上行事件依赖的业务服务，构造后由 BindServices 注入，避免循环依赖
	messageSvc *MessageService
	pollSvc    *PollService

	ctx context.Context
}

func NewChatHub(rdb *redis.Client, userRepo *repository.UserRepository) *ChatHub {
	h := &ChatHub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		Rooms:      NewMemoryRoomRegistry(),
		Redis:      rdb,
		UserRepo:   userRepo,
		ctx:        context.Background(),
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{
			clients: make(map[uint]*Client),
		}
	}
	return h
}

// BindServices 注入消息与投票服务（hub 需要它们处理上行事件，它们发事件又要经过 hub）
func (h *ChatHub) BindServices(messageSvc *MessageService, pollSvc *PollService) {
	h.messageSvc = messageSvc
	h.pollSvc = pollSvc
}

func (h *ChatHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

// PubSubMessage 跨实例投递载荷：按房间名、按用户 ID 列表，或全量广播
type PubSubMessage struct {
	Room        string          `json:"room,omitempty"`
	TargetUsers []uint          `json:"targetUsers,omitempty"`
	Broadcast   bool            `json:"broadcast,omitempty"`
	Payload     json.RawMessage `json:"payload"`
}

func (h *ChatHub) Run() {
	pubsub := h.Redis.Subscribe(h.ctx, "chat_channel")
	go func() {
		ch := pubsub.Channel()
		for msg := range ch {
			var psMsg PubSubMessage
			if err := json.Unmarshal([]byte(msg.Payload), &psMsg); err != nil {
				logger.Log.Error("PubSub unmarshal error", zap.Error(err))
				continue
			}
			if psMsg.Broadcast {
				h.pushToAllLocal(psMsg.Payload)
				continue
			}
			targets := psMsg.TargetUsers
			if psMsg.Room != "" {
				targets = h.Rooms.Members(psMsg.Room)
			}
			h.pushToLocalRawUsers(targets, psMsg.Payload)
		}
	}()

	// 批量处理状态更新
	ticker := time.NewTicker(500 * time.Millisecond)
	// 状态续期定时器 (Heartbeat)
	heartbeatTicker := time.NewTicker(1 * time.Minute)
	defer func() {
		ticker.Stop()
		heartbeatTicker.Stop()
	}()

	type statusUpdate struct {
		userID uint
		status string
	}
	var pendingUpdates []statusUpdate

	for {
		select {
		case client := <-h.register:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			s.clients[client.UserID] = client
			s.mu.Unlock()
			h.Rooms.Join(UserRoom(client.UserID), client.UserID)
			pendingUpdates = append(pendingUpdates, statusUpdate{client.UserID, string(model.StatusOnline)})
			monitoring.OnlineConnections.Inc()

		case client := <-h.unregister:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			if _, ok := s.clients[client.UserID]; ok {
				delete(s.clients, client.UserID)
				close(client.Send)
				monitoring.OnlineConnections.Dec()
			}
			s.mu.Unlock()
			h.Rooms.LeaveAll(client.UserID)
			pendingUpdates = append(pendingUpdates, statusUpdate{client.UserID, string(model.StatusOffline)})

		case <-heartbeatTicker.C:
			// 为本地在线用户批量续期
			h.refreshOnlineStatus()

		case <-ticker.C:
			if len(pendingUpdates) == 0 {
				continue
			}

			pipe := h.Redis.Pipeline()
			for _, update := range pendingUpdates {
				key := fmt.Sprintf("user:online:%d", update.userID)
				if update.status == string(model.StatusOnline) {
					pipe.Set(h.ctx, key, "true", onlineTTL)
				} else {
					pipe.Del(h.ctx, key)
				}
			}
			if _, err := pipe.Exec(h.ctx); err != nil {
				logger.Log.Error("Redis pipeline error", zap.Error(err))
			}

			for _, update := range pendingUpdates {
				h.UserRepo.UpdateStatus(update.userID, model.UserStatus(update.status))
				h.NotifyStatus(update.userID, update.status)
			}
			pendingUpdates = pendingUpdates[:0]
		}
	}
}

// refreshOnlineStatus 刷新当前服务器所有在线用户的过期时间
func (h *ChatHub) refreshOnlineStatus() {
	pipe := h.Redis.Pipeline()
	count := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		for userID := range s.clients {
			pipe.Expire(h.ctx, fmt.Sprintf("user:online:%d", userID), onlineTTL)
			count++
		}
		s.mu.RUnlock()
	}
	if count > 0 {
		pipe.Exec(h.ctx)
		logger.Log.Debug("Refreshed online status", zap.Int("count", count))
	}
}

// presenceEvent 状态到事件名的映射，online 之外一律报下线
func presenceEvent(status string) string {
	if status == string(model.StatusOnline) {
		return EventUserOnline
	}
	return EventUserOffline
}

// NotifyStatus 全量广播上下线，不按好友关系过滤。
// REST 与 WS 两条状态变更入口共用这一个出口
func (h *ChatHub) NotifyStatus(userID uint, status string) {
	h.PushToAll(WSMessage{
		Type: presenceEvent(status),
		Data: map[string]interface{}{
			"userId": userID,
			"status": status,
		},
	})
}

// Stop 关闭所有连接并清理在线状态
func (h *ChatHub) Stop() {
	logger.Log.Info("ChatHub stopping: clearing online status and closing connections...")

	var allUserIDs []uint
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, client := range s.clients {
			allUserIDs = append(allUserIDs, userID)
			close(client.Send)
			delete(s.clients, userID)
		}
		s.mu.Unlock()
	}

	if len(allUserIDs) > 0 {
		pipe := h.Redis.Pipeline()
		for _, userID := range allUserIDs {
			pipe.Del(h.ctx, fmt.Sprintf("user:online:%d", userID))
		}
		pipe.Exec(h.ctx)
	}

	monitoring.OnlineConnections.Set(0)
	logger.Log.Info("ChatHub stopped", zap.Int("closedConnections", len(allUserIDs)))
}

// PushToRoom 按房间投递，经 Redis 广播到所有实例
func (h *ChatHub) PushToRoom(room string, msg WSMessage) {
	msgBytes, _ := json.Marshal(msg)
	psMsg := PubSubMessage{
		Room:    room,
		Payload: msgBytes,
	}
	payload, _ := json.Marshal(psMsg)
	h.Redis.Publish(h.ctx, "chat_channel", payload)
	monitoring.EventCounter.WithLabelValues(msg.Type, "out").Inc()
}

// PushToUsers 按用户 ID 列表投递，经 Redis 广播到所有实例
func (h *ChatHub) PushToUsers(userIDs []uint, msg WSMessage) {
	// 避免二次序列化
	msgBytes, _ := json.Marshal(msg)
	psMsg := PubSubMessage{
		TargetUsers: userIDs,
		Payload:     msgBytes,
	}
	payload, _ := json.Marshal(psMsg)
	h.Redis.Publish(h.ctx, "chat_channel", payload)
	monitoring.EventCounter.WithLabelValues(msg.Type, "out").Inc()
}

// PushToAll 推送给全部连接，经 Redis 广播到所有实例
func (h *ChatHub) PushToAll(msg WSMessage) {
	msgBytes, _ := json.Marshal(msg)
	psMsg := PubSubMessage{
		Broadcast: true,
		Payload:   msgBytes,
	}
	payload, _ := json.Marshal(psMsg)
	h.Redis.Publish(h.ctx, "chat_channel", payload)
	monitoring.EventCounter.WithLabelValues(msg.Type, "out").Inc()
}

// BroadcastMessage 把一条落库消息推到它所属的房间。
// REST 发送与 WS 发送共用这条出口，保证两种入口的事件一致
func (h *ChatHub) BroadcastMessage(eventType string, msg *model.Message) {
	room := ""
	switch {
	case msg.GroupID != nil && *msg.GroupID != "":
		room = *msg.GroupID
	case msg.ReceiverID != nil:
		room = DirectRoom(msg.SenderID, *msg.ReceiverID)
	default:
		return
	}
	h.PushToRoom(room, WSMessage{Type: eventType, Data: msg})
	// 私聊额外推个人房间，覆盖接收方尚未打开会话的情况
	if msg.ReceiverID != nil {
		h.PushToUsers([]uint{*msg.ReceiverID}, WSMessage{Type: eventType, Data: msg})
	}
}

// BroadcastPoll 投票状态变更推送到群房间
func (h *ChatHub) BroadcastPoll(eventType string, poll *model.Poll) {
	h.PushToRoom(poll.GroupID, WSMessage{Type: eventType, Data: poll})
}

func (h *ChatHub) pushToAllLocal(payload []byte) {
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		for _, client := range s.clients {
			select {
			case client.Send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
	}
}

func (h *ChatHub) pushToLocalRawUsers(userIDs []uint, payload []byte) {
	if len(userIDs) == 0 {
		return
	}
	for _, id := range userIDs {
		s := h.getShard(id)
		s.mu.RLock()
		if client, ok := s.clients[id]; ok {
			select {
			case client.Send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
	}
}

func (h *ChatHub) IsUserOnline(userID uint) bool {
	// 查本地分片
	s := h.getShard(userID)
	s.mu.RLock()
	_, ok := s.clients[userID]
	s.mu.RUnlock()
	if ok {
		return true
	}

	// 查 Redis (多实例部署)
	val, err := h.Redis.Get(h.ctx, fmt.Sprintf("user:online:%d", userID)).Result()
	return err == nil && val == "true"
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}

		// 限流校验 (每秒最多 30 条消息，允许突发 50 条)
		if !c.Limiter.Allow() {
			continue
		}

		// 对象池解析消息
		wsMsg := messagePool.Get().(*WSMessage)
		if err := json.Unmarshal(message, wsMsg); err != nil {
			messagePool.Put(wsMsg)
			continue
		}

		monitoring.EventCounter.WithLabelValues(wsMsg.Type, "in").Inc()
		c.Hub.handleClientEvent(c, wsMsg)
		messagePool.Put(wsMsg)
	}
}

// handleClientEvent 处理上行事件分发
func (h *ChatHub) handleClientEvent(c *Client, msg *WSMessage) {
	data, _ := msg.Data.(map[string]interface{})

	switch msg.Type {
	case EventJoinRoom:
		// 房间订阅不做成员校验，历史与消息接口各自有权限闸门
		if room, _ := data["room"].(string); room != "" {
			h.Rooms.Join(room, c.UserID)
		}

	case EventLeaveRoom:
		if room, _ := data["room"].(string); room != "" {
			h.Rooms.Leave(room, c.UserID)
		}

	case EventMessageSend:
		if h.messageSvc == nil {
			return
		}
		content, _ := data["content"].(string)
		var groupID *string
		var receiverID *uint
		if g, ok := data["groupId"].(string); ok && g != "" {
			groupID = &g
		}
		if r, ok := data["receiverId"].(float64); ok && r > 0 {
			id := uint(r)
			receiverID = &id
		}
		saved, err := h.messageSvc.SendMessage(c.UserID, content, groupID, receiverID)
		if err != nil {
			h.sendError(c, err)
			return
		}
		h.BroadcastMessage(EventMessageNew, saved)

	case EventPollRespond:
		if h.pollSvc == nil {
			return
		}
		pollID, _ := data["pollId"].(string)
		optionID, _ := data["optionId"].(string)
		poll, err := h.pollSvc.RecordResponse(pollID, c.UserID, optionID)
		if err != nil {
			h.sendError(c, err)
			return
		}
		h.BroadcastPoll(EventPollResponse, poll)

	case EventUserStatus:
		status, _ := data["status"].(string)
		switch model.UserStatus(status) {
		case model.StatusOnline, model.StatusOffline, model.StatusAway:
			h.UserRepo.UpdateStatus(c.UserID, model.UserStatus(status))
			h.NotifyStatus(c.UserID, status)
		}
	}
}

// sendError 将业务错误回推给单个连接，不影响其它客户端
func (h *ChatHub) sendError(c *Client, err error) {
	payload, _ := json.Marshal(WSMessage{
		Type: EventError,
		Data: map[string]interface{}{"message": util.MessageOf(err)},
	})
	select {
	case c.Send <- payload:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if n := len(c.Send); n > 0 {
				for i := 0; i < n; i++ {
					w.Write(<-c.Send)
				}
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func ServeWs(hub *ChatHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		UserID:  userID,
		Limiter: rate.NewLimiter(rate.Limit(30), 50), // 每秒30条，允许突发50条
	}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
