// Package memory keeps rides in process memory. It serves single-instance
// deployments and tests; every conditional write is applied under one lock.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	"github.com/google/uuid"
)

type Store struct {
	mu        sync.RWMutex
	rides     map[uuid.UUID]*models.Ride
	profiles  map[uuid.UUID]models.Profile
	locations map[uuid.UUID]models.DriverLocation
	events    []models.RideLogEntry
}

func New() *Store {
	return &Store{
		rides:     make(map[uuid.UUID]*models.Ride),
		profiles:  make(map[uuid.UUID]models.Profile),
		locations: make(map[uuid.UUID]models.DriverLocation),
	}
}

func (s *Store) AddProfile(p models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

func (s *Store) Create(_ context.Context, ride *models.Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeLocked(ride.PassengerID, types.PassengerRole) != nil {
		return types.ErrActiveRideExist
	}
	s.rides[ride.ID] = ride.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, rideID uuid.UUID) (*models.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rides[rideID]
	if !ok {
		return nil, types.ErrRideNotFound
	}
	return r.Clone(), nil
}

func (s *Store) GetActive(_ context.Context, userID uuid.UUID, role types.UserRole) (*models.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked(userID, role).Clone(), nil
}

func (s *Store) activeLocked(userID uuid.UUID, role types.UserRole) *models.Ride {
	var found *models.Ride
	for _, r := range s.rides {
		if !r.Status.Active() {
			continue
		}
		mine := (role == types.PassengerRole && r.PassengerID == userID) ||
			(role == types.DriverRole && r.DriverID != nil && *r.DriverID == userID)
		if mine && (found == nil || r.CreatedAt.After(found.CreatedAt)) {
			found = r
		}
	}
	return found
}

func (s *Store) Claim(_ context.Context, c models.Claim) (*models.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[c.RideID]
	if !ok || r.Status != types.StatusPending {
		return nil, types.ErrConditionFailed
	}
	if s.activeLocked(c.DriverID, types.DriverRole) != nil {
		return nil, types.ErrDriverBusy
	}

	r.ApplyClaim(c)

	out := r.Clone()
	out.Passenger = s.profileLocked(r.PassengerID, types.PassengerRole)
	return out, nil
}

func (s *Store) UpdateStatus(_ context.Context, u models.StatusUpdate) (*models.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[u.RideID]
	if !ok || r.Status != u.From {
		return nil, types.ErrConditionFailed
	}
	r.Apply(u)
	return r.Clone(), nil
}

func (s *Store) SetRating(_ context.Context, u models.RatingUpdate) (*models.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[u.RideID]
	if !ok || r.Status != types.StatusCompleted || r.RatedBy(u.By) {
		return nil, types.ErrConditionFailed
	}
	r.ApplyRating(u)
	return r.Clone(), nil
}

func (s *Store) ListPendingBefore(_ context.Context, before time.Time, limit int) ([]*models.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Ride
	for _, r := range s.rides {
		if r.Status == types.StatusPending && r.CreatedAt.Before(before) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetProfile(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	return &p, nil
}

func (s *Store) profileLocked(userID uuid.UUID, role types.UserRole) *models.Profile {
	if p, ok := s.profiles[userID]; ok {
		return &p
	}
	return &models.Profile{ID: userID, Role: role}
}

// FindNearby scans pending rides and orders them by great-circle distance to the query point.
func (s *Store) FindNearby(_ context.Context, q models.NearbyQuery) ([]*models.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Ride, 0, q.Limit)
	for _, r := range s.rides {
		if r.Status != types.StatusPending || !r.Origin.Valid() {
			continue
		}
		d := ridecalc.DistanceMeters(q.Point, r.Origin)
		if d > q.RadiusMeters {
			continue
		}
		c := r.Clone()
		c.DistanceToOrigin = &d
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return *out[i].DistanceToOrigin < *out[j].DistanceToOrigin })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) Append(_ context.Context, entry models.RideLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, entry)
	return nil
}

// Events returns the lifecycle log of rideID in append order.
func (s *Store) Events(rideID uuid.UUID) []models.RideLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.RideLogEntry
	for _, e := range s.events {
		if e.RideID == rideID {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) SetDriverLocation(_ context.Context, loc models.DriverLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[loc.DriverID] = loc
	return nil
}

func (s *Store) GetDriverLocation(_ context.Context, driverID uuid.UUID) (*models.DriverLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.locations[driverID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &loc, nil
}
