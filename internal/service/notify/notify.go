package notify

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
	"github.com/google/uuid"
)

const serviceName = "dispatch"

type Registry interface {
	Lookup(userID uuid.UUID) (ws.Handle, bool)
	Each(role string) []ws.Entry
}

// Relay carries deliveries to every instance, this one included.
type Relay interface {
	Publish(ctx context.Context, d Delivery) error
}

// Delivery is an encoded event addressed to one user or to all connected drivers.
type Delivery struct {
	UserID  *uuid.UUID      `json:"user_id,omitempty"`
	Except  []uuid.UUID     `json:"except,omitempty"`
	Event   types.EventType `json:"event"`
	Message json.RawMessage `json:"message"`
}

// Service pushes events to connected users. An offline user is not an error:
// the event is dropped, never queued. Writes happen in the background, in order
// per user, so callers never wait on a socket.
type Service struct {
	registry Registry
	relay    Relay
	out      *outbox
	log      logger.Logger
}

func New(registry Registry, log logger.Logger) *Service {
	s := &Service{registry: registry, log: log}
	s.out = newOutbox(s.write)
	return s
}

// Wait blocks until every accepted write has been attempted.
func (s *Service) Wait() {
	s.out.wait()
}

// WithRelay routes deliveries through relay. Local delivery is the fallback when
// publishing fails.
func (s *Service) WithRelay(relay Relay) *Service {
	s.relay = relay
	return s
}

// Notify delivers event to userID if they are connected.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, event models.Event) {
	ctx = wrap.WithAction(wrap.WithUserID(ctx, userID.String()), types.ActionNotify)

	msg, err := json.Marshal(models.NewEnvelope(event))
	if err != nil {
		s.log.Error(ctx, "failed to encode event", err, "event", event.EventType())
		return
	}

	s.dispatch(ctx, Delivery{UserID: &userID, Event: event.EventType(), Message: msg})
}

// BroadcastDrivers delivers event to every connected driver except the listed ones.
func (s *Service) BroadcastDrivers(ctx context.Context, event models.Event, except ...uuid.UUID) {
	ctx = wrap.WithAction(ctx, types.ActionNotify)

	msg, err := json.Marshal(models.NewEnvelope(event))
	if err != nil {
		s.log.Error(ctx, "failed to encode event", err, "event", event.EventType())
		return
	}

	s.dispatch(ctx, Delivery{Except: except, Event: event.EventType(), Message: msg})
}

func (s *Service) dispatch(ctx context.Context, d Delivery) {
	if s.relay != nil {
		err := s.relay.Publish(ctx, d)
		if err == nil {
			return
		}
		s.log.Warn(ctx, "relay publish failed, delivering locally", "error", err.Error())
	}
	s.Deliver(ctx, d)
}

// Deliver pushes d to the matching local connections.
func (s *Service) Deliver(ctx context.Context, d Delivery) {
	if d.UserID != nil {
		s.send(ctx, *d.UserID, d.Event, d.Message)
		return
	}

	for _, e := range s.registry.Each(types.DriverRole.String()) {
		if slices.Contains(d.Except, e.UserID) {
			continue
		}
		s.sendTo(ctx, e.UserID, e.Handle, d.Event, d.Message)
	}
}

func (s *Service) send(ctx context.Context, userID uuid.UUID, event types.EventType, msg json.RawMessage) {
	h, ok := s.registry.Lookup(userID)
	if !ok {
		metrics.RecordNotification(serviceName, string(event), "offline")
		s.log.Debug(ctx, "user not connected, event dropped", "event", event)
		return
	}
	s.sendTo(ctx, userID, h, event, msg)
}

func (s *Service) sendTo(ctx context.Context, userID uuid.UUID, h ws.Handle, event types.EventType, msg json.RawMessage) {
	j := job{ctx: context.WithoutCancel(ctx), handle: h, event: event, msg: msg}
	if !s.out.push(userID, j) {
		metrics.RecordNotification(serviceName, string(event), "dropped")
		s.log.Warn(ctx, "user is not keeping up, event dropped", "event", event, "user_id", userID)
	}
}

func (s *Service) write(userID uuid.UUID, j job) {
	if err := j.handle.Send(j.msg); err != nil {
		metrics.RecordNotification(serviceName, string(j.event), "failed")
		s.log.Warn(j.ctx, "failed to push event", "event", j.event, "user_id", userID, "error", err.Error())
		return
	}
	metrics.RecordNotification(serviceName, string(j.event), "delivered")
}
