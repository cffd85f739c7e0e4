package ride

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
	"github.com/google/uuid"
)

const serviceName = "dispatch"

type Config struct {
	SearchRadiusMeters   float64
	CandidateLimit       int
	ClaimTimeout         time.Duration
	DefaultPaymentMethod types.PaymentMethod
	PendingTTL           time.Duration
	SweepInterval        time.Duration
}

// Deps are the collaborators of the ride service. Geocoder and Publishers are optional.
type Deps struct {
	Store      RideStore
	Finder     CandidateFinder
	Locations  LocationStore
	Events     EventLog
	Publishers []EventPublisher
	Notifier   Notifier
	Pricing    Pricing
	Geocoder   Geocoder
	TxManager  trm.TxManager
}

// Service owns every ride status change: requests, claims, transitions, ratings and expiry.
type Service struct {
	store      RideStore
	finder     CandidateFinder
	locations  LocationStore
	events     EventLog
	publishers []EventPublisher
	notifier   Notifier
	pricing    Pricing
	geocoder   Geocoder
	trm        trm.TxManager

	cfg Config
	log logger.Logger
	now func() time.Time
}

func New(deps Deps, cfg Config, log logger.Logger) *Service {
	if cfg.SearchRadiusMeters <= 0 {
		cfg.SearchRadiusMeters = 10000
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 5
	}
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = 10 * time.Second
	}
	if !cfg.DefaultPaymentMethod.Valid() {
		cfg.DefaultPaymentMethod = types.PaymentCash
	}
	if deps.TxManager == nil {
		deps.TxManager = trm.Nop{}
	}

	return &Service{
		store:      deps.Store,
		finder:     deps.Finder,
		locations:  deps.Locations,
		events:     deps.Events,
		publishers: deps.Publishers,
		notifier:   deps.Notifier,
		pricing:    deps.Pricing,
		geocoder:   deps.Geocoder,
		trm:        deps.TxManager,
		cfg:        cfg,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) logEntry(ride *models.Ride, from types.RideStatus, actorID *uuid.UUID, role types.UserRole, event types.RideEvent) models.RideLogEntry {
	return models.RideLogEntry{
		ID:         uuid.New(),
		RideID:     ride.ID,
		Type:       event,
		ActorID:    actorID,
		ActorRole:  role,
		FromStatus: from,
		ToStatus:   ride.Status,
		Ride:       ride.Clone(),
		OccurredAt: s.now(),
	}
}

// appendEvent writes the lifecycle log entry inside the caller's transaction.
func (s *Service) appendEvent(ctx context.Context, entry models.RideLogEntry) error {
	if s.events == nil {
		return nil
	}
	return s.events.Append(ctx, entry)
}

// publish hands a committed entry to every publisher. Publisher failures are logged only.
func (s *Service) publish(ctx context.Context, entry models.RideLogEntry) {
	ctx = context.WithoutCancel(ctx)
	for _, p := range s.publishers {
		if err := p.Publish(ctx, entry); err != nil {
			s.log.Warn(ctx, "failed to publish ride event", "event_type", entry.Type, "error", err.Error())
		}
	}
}

func (s *Service) notify(ctx context.Context, userID *uuid.UUID, event models.Event) {
	if userID == nil || s.notifier == nil {
		return
	}
	s.notifier.Notify(context.WithoutCancel(ctx), *userID, event)
}

func (s *Service) broadcastUnavailable(ctx context.Context, rideID uuid.UUID, except ...uuid.UUID) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastDrivers(context.WithoutCancel(ctx), models.RideUnavailable{RideID: rideID}, except...)
}
