package service

import (
	"context"
	"time"

	"zonectl/internal/models"
	"zonectl/internal/repository"
)

type ZoneService struct {
	zoneRepo repository.ZoneStatusRepo
}

func NewZoneService(zoneRepo repository.ZoneStatusRepo) *ZoneService {
	return &ZoneService{zoneRepo: zoneRepo}
}

// List returns the latest persisted status of every zone that has been addressed.
// An empty slice means no command reached a zone yet.
func (s *ZoneService) List(ctx context.Context) ([]models.ZoneStatus, error) {
	zones, err := s.zoneRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if zones == nil {
		return []models.ZoneStatus{}, nil
	}
	for i := range zones {
		zones[i].UpdatedAt = toUTC(zones[i].UpdatedAt)
	}
	return zones, nil
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
