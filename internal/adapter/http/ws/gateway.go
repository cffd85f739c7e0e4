package wshandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/ws/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	rideservice "github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const serviceName = "dispatch"

type RideService interface {
	UpdateDriverLocation(ctx context.Context, driverID uuid.UUID, loc models.Location) error
	ListNearby(ctx context.Context, driverID uuid.UUID, point *models.Location) ([]*models.Ride, error)
	Claim(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error)
	Transition(ctx context.Context, in rideservice.TransitionInput) (*models.Ride, error)
	GetActive(ctx context.Context, who models.Identity) (*models.Ride, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Identity, error)
}

// Presence is the registry of live connections.
type Presence interface {
	Register(userID uuid.UUID, role string, handle ws.Handle) (ws.Handle, bool)
	UnregisterHandle(userID uuid.UUID, handle ws.Handle) bool
}

type Config struct {
	AuthTimeout    time.Duration
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	RequestTimeout time.Duration
	MaxMessageSize int64
}

type handlerFunc func(ctx context.Context, who models.Identity, data json.RawMessage) (any, error)

// Gateway serves the websocket endpoint: it authenticates the connection,
// registers it for pushes and answers tagged requests one at a time.
type Gateway struct {
	upgrader websocket.Upgrader
	rides    RideService
	auth     Authenticator
	presence Presence
	handlers map[string]handlerFunc

	cfg Config
	log logger.Logger
}

func NewGateway(rides RideService, auth Authenticator, presence Presence, cfg Config, log logger.Logger) *Gateway {
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = 5 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = cfg.PongWait * 9 / 10
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 8192
	}

	g := &Gateway{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// клиенты мобильные, origin не проверяем
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rides:    rides,
		auth:     auth,
		presence: presence,
		cfg:      cfg,
		log:      log,
	}
	g.handlers = map[string]handlerFunc{
		dto.TypeLocationUpdate: g.locationUpdate,
		dto.TypeNearbyRequest:  g.nearbyRequest,
		dto.TypeClaimRide:      g.claimRide,
		dto.TypeTransitionRide: g.transitionRide,
		dto.TypeGetActiveRide:  g.getActiveRide,
	}
	return g
}

// ServeWS godoc
// @Summary      Realtime connection
// @Description  Authenticate with the Authorization header or a first {"type":"auth","token":...} message.
// @Tags         Websocket
// @Router       /ws [get]
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionWSConnected)

	raw, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered
		g.log.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}
	raw.SetReadLimit(g.cfg.MaxMessageSize)
	conn := ws.NewConn(raw, g.cfg.WriteWait)

	who, err := g.authenticate(ctx, r, raw)
	if err != nil {
		g.log.Warn(wrap.ErrorCtx(ctx, err), "websocket authentication failed", "error", err.Error())
		_ = conn.Send(errorReply("", err))
		_ = conn.Close()
		return
	}
	ctx = wrap.WithUserID(ctx, who.UserID.String())

	if prev, replaced := g.presence.Register(who.UserID, who.Role.String(), conn); replaced {
		_ = prev.Close()
	}
	metrics.WebSocketConnectionsGauge.WithLabelValues(serviceName, who.Role.String()).Inc()
	g.log.Info(ctx, "websocket connected", "role", who.Role)

	defer func() {
		g.presence.UnregisterHandle(who.UserID, conn)
		_ = conn.Close()
		metrics.WebSocketConnectionsGauge.WithLabelValues(serviceName, who.Role.String()).Dec()
		g.log.Info(wrap.WithAction(ctx, types.ActionWSDisconnected), "websocket disconnected")
	}()

	if err := conn.Send(dto.Reply{Type: dto.TypeConnected, Data: who}); err != nil {
		return
	}

	go g.keepAlive(conn)
	g.readLoop(ctx, raw, conn, who)
}

func (g *Gateway) authenticate(ctx context.Context, r *http.Request, raw *websocket.Conn) (models.Identity, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, err := middleware.ExtractBearerToken(header)
		if err != nil {
			return models.Identity{}, fmt.Errorf("%w: %w", types.ErrUnauthenticated, err)
		}
		return g.auth.Authenticate(ctx, token)
	}

	if err := raw.SetReadDeadline(time.Now().Add(g.cfg.AuthTimeout)); err != nil {
		return models.Identity{}, err
	}

	var msg dto.Inbound
	if err := raw.ReadJSON(&msg); err != nil {
		return models.Identity{}, fmt.Errorf("%w: no auth message received", types.ErrUnauthenticated)
	}
	if msg.Type != dto.TypeAuth || msg.Token == "" {
		return models.Identity{}, fmt.Errorf("%w: first message must be auth", types.ErrUnauthenticated)
	}

	return g.auth.Authenticate(ctx, strings.TrimPrefix(msg.Token, "Bearer "))
}

// keepAlive pings until the connection closes. A failed ping closes it, which
// ends the read loop.
func (g *Gateway) keepAlive(conn *ws.Conn) {
	ticker := time.NewTicker(g.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-conn.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

// readLoop is the only reader of raw. Requests are answered in arrival order.
func (g *Gateway) readLoop(ctx context.Context, raw *websocket.Conn, conn *ws.Conn, who models.Identity) {
	_ = raw.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	})

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.log.Debug(ctx, "websocket read failed", "error", err.Error())
			}
			return
		}
		_ = raw.SetReadDeadline(time.Now().Add(g.cfg.PongWait))

		if err := conn.Send(g.handle(ctx, who, data)); err != nil {
			g.log.Warn(ctx, "failed to send reply", "error", err.Error())
			return
		}
	}
}

// handle produces exactly one reply for a raw message, within the request timeout.
func (g *Gateway) handle(ctx context.Context, who models.Identity, data []byte) dto.Reply {
	var msg dto.Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return errorReply("", types.InvalidInput("malformed message"))
	}

	v := validator.New()
	msg.Validate(v)
	if !v.Valid() {
		return errorReply(msg.RequestID, &rideservice.ValidationError{Fields: v.Errors})
	}

	h, ok := g.handlers[msg.Type]
	if !ok {
		return errorReply(msg.RequestID, types.InvalidInput("unknown message type %q", msg.Type))
	}

	ctx = wrap.WithRequestID(wrap.WithAction(ctx, "ws_"+msg.Type), msg.RequestID)
	ctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	result, err := h(ctx, who, msg.Data)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		g.logFailure(ctx, msg.Type, err)
		return errorReply(msg.RequestID, err)
	}

	g.log.Debug(ctx, "websocket request handled", "type", msg.Type, "duration", time.Since(start))
	return dto.Reply{Type: dto.ResultType(msg.Type), RequestID: msg.RequestID, Data: result}
}

func (g *Gateway) logFailure(ctx context.Context, msgType string, err error) {
	switch errorCode(err) {
	case codeInternal, codeStoreUnavailable:
		g.log.Error(wrap.ErrorCtx(ctx, err), "websocket request failed", err, "type", msgType)
	default:
		g.log.Debug(ctx, "websocket request rejected", "type", msgType, "error", err.Error())
	}
}

func requireDriver(who models.Identity) error {
	if who.Role != types.DriverRole {
		return fmt.Errorf("%w: drivers only", types.ErrUnauthorized)
	}
	return nil
}

func (g *Gateway) locationUpdate(ctx context.Context, who models.Identity, data json.RawMessage) (any, error) {
	if err := requireDriver(who); err != nil {
		return nil, err
	}
	var req dto.LocationUpdate
	if err := decode(data, &req); err != nil {
		return nil, err
	}

	loc := models.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if err := g.rides.UpdateDriverLocation(ctx, who.UserID, loc); err != nil {
		return nil, err
	}
	return map[string]any{"location": loc}, nil
}

func (g *Gateway) nearbyRequest(ctx context.Context, who models.Identity, data json.RawMessage) (any, error) {
	if err := requireDriver(who); err != nil {
		return nil, err
	}
	var req dto.NearbyRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}

	var point *models.Location
	if req.Latitude != nil {
		point = &models.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	rides, err := g.rides.ListNearby(ctx, who.UserID, point)
	if err != nil {
		return nil, err
	}
	return map[string]any{"rides": rides, "count": len(rides)}, nil
}

func (g *Gateway) claimRide(ctx context.Context, who models.Identity, data json.RawMessage) (any, error) {
	if err := requireDriver(who); err != nil {
		return nil, err
	}
	var req dto.ClaimRide
	if err := decode(data, &req); err != nil {
		return nil, err
	}

	ride, err := g.rides.Claim(ctx, req.RideID, who.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"ride": ride}, nil
}

func (g *Gateway) transitionRide(ctx context.Context, who models.Identity, data json.RawMessage) (any, error) {
	var req dto.TransitionRide
	if err := decode(data, &req); err != nil {
		return nil, err
	}

	ride, err := g.rides.Transition(ctx, rideservice.TransitionInput{
		RideID:    req.RideID,
		ActorID:   who.UserID,
		ActorRole: who.Role,
		Target:    req.Status,
		Reason:    req.Reason,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"ride": ride}, nil
}

func (g *Gateway) getActiveRide(ctx context.Context, who models.Identity, _ json.RawMessage) (any, error) {
	ride, err := g.rides.GetActive(ctx, who)
	if err != nil {
		return nil, err
	}
	return map[string]any{"ride": ride}, nil
}
