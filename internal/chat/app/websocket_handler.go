package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/internal/chat/repository"
	"campus_chat_service/pkg/logger"
	"campus_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler streaming entry point for the messaging core
type ChatWebsocketHandler struct {
	directory *RoomDirectoryUseCase
	messageUC *MessageUseCase
	presence  *PresenceTracker
	pubsub    repository.PubSub
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	directory *RoomDirectoryUseCase,
	messageUC *MessageUseCase,
	presence *PresenceTracker,
	pubsub repository.PubSub,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		directory: directory,
		messageUC: messageUC,
		presence:  presence,
		pubsub:    pubsub,
	}
}

// clientConn per-connection state: the verified identity plus the room
// subscriptions this connection currently holds
type clientConn struct {
	conn     *websocket.Conn
	identity domain.Identity

	// writeMu serializes writes; subscription goroutines and the read loop
	// both push frames
	writeMu sync.Mutex

	mu    sync.Mutex
	rooms map[string]*joinedRoom
}

type joinedRoom struct {
	room   *domain.ChatRoom
	cancel context.CancelFunc
}

func identityFromLocals(conn *websocket.Conn) domain.Identity {
	id := domain.Identity{}
	if v, ok := conn.Locals(middlewares.TokenUserID).(string); ok {
		id.UserID = v
	}
	if v, ok := conn.Locals(middlewares.TokenRole).(string); ok {
		id.Role = domain.Role(v)
	}
	if v, ok := conn.Locals(middlewares.TokenDepartment).(string); ok {
		id.Department = v
	}
	if v, ok := conn.Locals(middlewares.TokenYear).(int); ok {
		id.Year = v
	}
	if v, ok := conn.Locals(middlewares.TokenBatch).(string); ok {
		id.Batch = v
	}
	return id
}

// HandleConnection websocket connection entry point. Authenticates once via
// the middleware locals, resolves the membership set, subscribes the
// connection to its channels and then serves the action loop until the peer
// goes away.
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	identity := identityFromLocals(conn)
	logger.Log.Info("websocket connect", zap.String("UserID", identity.UserID), zap.String("role", string(identity.Role)))

	c := &clientConn{
		conn:     conn,
		identity: identity,
		rooms:    make(map[string]*joinedRoom),
	}

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		ticker.Stop()
		logger.Log.Info("websocket close", zap.String("UserID", identity.UserID))
		conn.Close()
		cancel()
		h.presence.OnDisconnect(conn)
		h.broadcastOnline()
	}()

	//client close lands as a read error; fiber handles the handshake, the
	//handler only logs
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		return nil
	})

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	h.presence.OnConnect(identity.UserID, conn)

	// sender-scoped events (message_save_failed) and presence snapshots
	h.subscribe(ctxClose, c, domain.UserChannel(identity.UserID))
	h.subscribe(ctxClose, c, domain.PresenceChannel)

	// notice channels derived from the identity
	h.subscribe(ctxClose, c, domain.NoticeChannelGlobal)
	if identity.Department != "" {
		h.subscribe(ctxClose, c, domain.NoticeDepartmentChannel(identity.Department))
	}
	if identity.Role == domain.RoleStudent && identity.Year != 0 && identity.Batch != "" {
		h.subscribe(ctxClose, c, domain.NoticeClassChannel(identity.Department, identity.Year, identity.Batch))
	}

	// membership set resolved once at connect; join_room/leave_room adjust it
	rooms, err := h.directory.RoomsFor(ctx, identity)
	if err != nil {
		logger.Log.Errorf("resolve membership err:", err, zap.String("UserID", identity.UserID))
	}
	for i := range rooms {
		room := rooms[i]
		h.subscribeRoom(ctxClose, c, &room)
	}

	h.broadcastOnline()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("Connection closed:", err)
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, ctxClose, c, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx, ctxClose context.Context, c *clientConn, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, ctxClose, c, msg)
	default:
		h.sendError(c, "unknown message type")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx, ctxClose context.Context, c *clientConn, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		h.sendError(c, "malformed request")
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch req.Action {

	case string(domain.JoinRoom):
		if _, ok := c.joined(req.RoomID); ok {
			resp.Success = true
			resp.Payload["room_id"] = req.RoomID
			break
		}
		room, err := h.directory.GetRoom(ctx, c.identity, req.RoomID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		h.subscribeRoom(ctxClose, c, room)
		resp.Success = true
		resp.Payload["room_id"] = room.ID

	case string(domain.LeaveRoom):
		c.leave(req.RoomID)
		resp.Success = true
		resp.Payload["room_id"] = req.RoomID

	case string(domain.SendMessage):
		jr, ok := c.joined(req.RoomID)
		if !ok {
			resp.Error = "not subscribed to room"
			break
		}
		provisional, err := h.messageUC.SendStream(
			c.identity, jr.room,
			req.Content, domain.MessageType(req.Type),
			req.Attachments, req.CorrelationToken,
		)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["message_id"] = provisional.ID
			resp.Payload["correlation_token"] = req.CorrelationToken
		}

	case string(domain.Typing):
		if _, ok := c.joined(req.RoomID); !ok {
			resp.Error = "not subscribed to room"
			break
		}
		if err := h.pubsub.Publish(domain.RoomChannel(req.RoomID), domain.ServerEvent{
			Event: domain.EventUserTyping,
			Payload: map[string]interface{}{
				"room_id":   req.RoomID,
				"user_id":   c.identity.UserID,
				"is_typing": req.IsTyping,
			},
		}); err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true

	case string(domain.MarkRead):
		ids := req.MessageIDs
		if len(ids) == 0 && req.MessageID != "" {
			ids = []string{req.MessageID}
		}
		if err := h.messageUC.MarkRead(ctx, c.identity, req.RoomID, ids); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
		}

	case string(domain.DeleteMessage):
		if err := h.messageUC.Delete(ctx, c.identity, req.MessageID); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["message_id"] = req.MessageID
		}

	default:
		h.sendError(c, "unknown action")
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err",
			zap.String("UserID", c.identity.UserID),
			zap.String("Action", req.Action),
			zap.String("err", resp.Error))
	}
	h.sendResponse(c, resp)
}

// subscribe wire a channel into this connection for its lifetime
func (h *ChatWebsocketHandler) subscribe(ctxClose context.Context, c *clientConn, channel string) {
	err := h.pubsub.Subscribe(ctxClose, channel, func(event domain.ServerEvent) {
		h.forward(c, event)
	})
	if err != nil {
		logger.Log.Errorf("subscribe err:", err, zap.String("channel", channel))
	}
}

// subscribeRoom wire a room channel with its own cancel so leave_room can
// drop just this one
func (h *ChatWebsocketHandler) subscribeRoom(ctxClose context.Context, c *clientConn, room *domain.ChatRoom) {
	roomCtx, cancel := context.WithCancel(ctxClose)
	err := h.pubsub.Subscribe(roomCtx, domain.RoomChannel(room.ID), func(event domain.ServerEvent) {
		h.forward(c, event)
	})
	if err != nil {
		cancel()
		logger.Log.Errorf("subscribe room err:", err, zap.String("RoomID", room.ID))
		return
	}

	c.mu.Lock()
	c.rooms[room.ID] = &joinedRoom{room: room, cancel: cancel}
	c.mu.Unlock()
}

func (c *clientConn) joined(roomID string) (*joinedRoom, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	jr, ok := c.rooms[roomID]
	return jr, ok
}

func (c *clientConn) leave(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if jr, ok := c.rooms[roomID]; ok {
		jr.cancel()
		delete(c.rooms, roomID)
	}
}

// broadcastOnline push the full online snapshot to every connection
func (h *ChatWebsocketHandler) broadcastOnline() {
	if err := h.pubsub.Publish(domain.PresenceChannel, domain.ServerEvent{
		Event: domain.EventOnlineUsers,
		Payload: map[string]interface{}{
			"snapshot": h.presence.Snapshot(),
		},
	}); err != nil {
		logger.Log.Errorf("fanout online_users err:", err)
	}
}

// forward push a fanned-out event to the peer
func (h *ChatWebsocketHandler) forward(c *clientConn, event domain.ServerEvent) {
	h.sendResponse(c, domain.WSResponse{
		Action:  event.Event,
		Success: true,
		Payload: event.Payload,
	})
}

func (h *ChatWebsocketHandler) sendResponse(c *clientConn, resp domain.WSResponse) {
	b, _ := json.Marshal(resp)
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

func (h *ChatWebsocketHandler) sendError(c *clientConn, errorMsg string) {
	h.sendResponse(c, domain.WSResponse{
		Action:  "error",
		Success: false,
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	})
}
