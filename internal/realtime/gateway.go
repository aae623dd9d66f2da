package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/dispatchcrew/airdispatch/errors"
	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/pkg/jwt"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// clientMessage is an inbound gateway frame
type clientMessage struct {
	Action string `json:"action"` // subscribe | unsubscribe | ping
	Room   string `json:"room,omitempty"`
}

// serverMessage is an outbound gateway frame
type serverMessage struct {
	Type    string                `json:"type"` // connected | subscribed | unsubscribed | pong | error | event
	Room    string                `json:"room,omitempty"`
	Error   string                `json:"error,omitempty"`
	Session string                `json:"session_id,omitempty"`
	Event   *entities.DomainEvent `json:"event,omitempty"`
}

// Gateway upgrades authenticated HTTP requests to websocket sessions
type Gateway struct {
	jwtManager *jwt.Manager
	registry   *Registry
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewGateway constructs the websocket gateway
func NewGateway(jwtManager *jwt.Manager, registry *Registry, logger *zap.Logger) *Gateway {
	return &Gateway{
		jwtManager: jwtManager,
		registry:   registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers cannot set Authorization headers on websocket
			// requests from arbitrary origins; the token itself gates
			// access.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Handle is the GET /v1/ws endpoint. The token comes from the
// Authorization header or, for browser clients, the token query
// parameter. Authentication failures are rejected before the upgrade.
func (g *Gateway) Handle(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}
	claims, err := g.jwtManager.ValidateAccessToken(token)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("websocket handshake rejected", zap.Error(err))
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
	}

	ws, err := g.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	session := entities.NewSession(claims.UserID, claims.TenantID, claims.Roles)
	// Every connection observes its own tenant's org room.
	session.JoinRoom(entities.OrgRoom(claims.TenantID))

	ctx := c.Request().Context()
	send := g.registry.Add(ctx, session)
	// Ack and error frames from the reader go through this channel so
	// the writer goroutine is the only one touching the conn.
	frames := make(chan serverMessage, 16)

	if g.logger != nil {
		g.logger.Info("websocket session opened",
			zap.String("session_id", session.ID),
			zap.String("tenant_id", session.TenantID.String()),
			zap.String("user_id", session.UserID.String()),
		)
	}

	go g.writer(ws, session.ID, send, frames)
	g.reader(ctx, ws, session, claims, frames)
	return nil
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.QueryParam("token")
}

// reader consumes client frames until the connection drops. It owns
// session teardown and never writes to the conn itself.
func (g *Gateway) reader(ctx context.Context, ws *websocket.Conn, session *entities.Session, claims *jwt.Claims, frames chan<- serverMessage) {
	defer func() {
		g.registry.Remove(context.WithoutCancel(ctx), session.ID)
		ws.Close()
		if g.logger != nil {
			g.logger.Info("websocket session closed",
				zap.String("session_id", session.ID),
			)
		}
	}()

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	g.enqueueFrame(frames, session.ID, serverMessage{Type: "connected", Session: session.ID})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			g.enqueueFrame(frames, session.ID, serverMessage{Type: "error", Error: "malformed frame"})
			continue
		}
		g.handleFrame(ctx, session, claims, msg, frames)
	}
}

func (g *Gateway) handleFrame(ctx context.Context, session *entities.Session, claims *jwt.Claims, msg clientMessage, frames chan<- serverMessage) {
	switch msg.Action {
	case "ping":
		g.enqueueFrame(frames, session.ID, serverMessage{Type: "pong"})
	case "subscribe":
		room, err := ParseRoom(msg.Room)
		if err == nil {
			err = Authorize(claims, room)
		}
		if err != nil {
			g.rejectSubscription(session, msg.Room, err, frames)
			return
		}
		if err := g.registry.AddRoom(ctx, session.ID, room.ID()); err != nil {
			g.enqueueFrame(frames, session.ID, serverMessage{Type: "error", Room: msg.Room, Error: "session no longer registered"})
			return
		}
		g.enqueueFrame(frames, session.ID, serverMessage{Type: "subscribed", Room: room.ID()})
	case "unsubscribe":
		// The org room is joined automatically and stays joined for the
		// life of the connection.
		if msg.Room == entities.OrgRoom(session.TenantID) {
			g.enqueueFrame(frames, session.ID, serverMessage{Type: "error", Room: msg.Room, Error: "cannot unsubscribe from the org room"})
			return
		}
		if err := g.registry.RemoveRoom(ctx, session.ID, msg.Room); err != nil {
			g.enqueueFrame(frames, session.ID, serverMessage{Type: "error", Room: msg.Room, Error: "session no longer registered"})
			return
		}
		g.enqueueFrame(frames, session.ID, serverMessage{Type: "unsubscribed", Room: msg.Room})
	default:
		g.enqueueFrame(frames, session.ID, serverMessage{Type: "error", Error: "unknown action"})
	}
}

// rejectSubscription queues an explicit error frame and logs the
// attempt. The connection stays open; a bad subscribe is not fatal.
func (g *Gateway) rejectSubscription(session *entities.Session, room string, err error, frames chan<- serverMessage) {
	message := "subscription denied"
	if appErr, ok := apperrors.AsAppError(err); ok {
		message = appErr.Message
	}
	if g.logger != nil {
		g.logger.Warn("room subscription rejected",
			zap.String("session_id", session.ID),
			zap.String("tenant_id", session.TenantID.String()),
			zap.String("room", room),
			zap.String("reason", message),
		)
	}
	g.enqueueFrame(frames, session.ID, serverMessage{Type: "error", Room: room, Error: message})
}

// writer is the only goroutine allowed to write to the conn, per the
// gorilla/websocket single-writer contract. It drains both the
// session's event feed and the reader's ack frames, and runs the
// keepalive ping. It exits when the registry closes the send channel;
// the reader stops producing frames before that happens.
func (g *Gateway) writer(ws *websocket.Conn, sessionID string, send <-chan entities.DomainEvent, frames <-chan serverMessage) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case event, ok := <-send:
			if !ok {
				ws.SetWriteDeadline(time.Now().Add(writeWait))
				ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			ev := event
			if err := ws.WriteJSON(serverMessage{Type: "event", Room: event.Room, Event: &ev}); err != nil {
				if g.logger != nil {
					g.logger.Warn("failed to write event frame",
						zap.String("session_id", sessionID),
						zap.Error(err),
					)
				}
				return
			}
		case msg := <-frames:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(msg); err != nil {
				if g.logger != nil {
					g.logger.Debug("failed to write control frame",
						zap.String("session_id", sessionID),
						zap.Error(err),
					)
				}
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueueFrame hands a frame to the writer. A full buffer means the
// writer is stalled or gone; the frame is dropped so the reader never
// blocks on a dead connection.
func (g *Gateway) enqueueFrame(frames chan<- serverMessage, sessionID string, msg serverMessage) {
	select {
	case frames <- msg:
	default:
		if g.logger != nil {
			g.logger.Warn("dropping control frame for stalled session",
				zap.String("session_id", sessionID),
				zap.String("frame_type", msg.Type),
			)
		}
	}
}
