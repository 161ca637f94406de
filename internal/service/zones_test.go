package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"zonectl/internal/models"
)

func TestZoneService_List(t *testing.T) {
	t.Parallel()

	local := time.Date(2025, 6, 1, 15, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))

	cases := []struct {
		name       string
		repo       *zoneRepoStub
		assertFunc func(t *testing.T, got []models.ZoneStatus, err error)
	}{
		{
			name: "propagates repository error",
			repo: &zoneRepoStub{err: errors.New("db down")},
			assertFunc: func(t *testing.T, got []models.ZoneStatus, err error) {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if got != nil {
					t.Errorf("expected nil zones, got %v", got)
				}
			},
		},
		{
			name: "empty store returns empty slice",
			repo: &zoneRepoStub{},
			assertFunc: func(t *testing.T, got []models.ZoneStatus, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got == nil || len(got) != 0 {
					t.Fatalf("expected non-nil empty slice, got %#v", got)
				}
			},
		},
		{
			name: "normalizes updated_at to UTC",
			repo: &zoneRepoStub{list: []models.ZoneStatus{{Zone: 3, LastOutcome: "OK", UpdatedAt: local}}},
			assertFunc: func(t *testing.T, got []models.ZoneStatus, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(got) != 1 || got[0].Zone != 3 {
					t.Fatalf("unexpected zones: %+v", got)
				}
				if got[0].UpdatedAt.Location() != time.UTC || !got[0].UpdatedAt.Equal(local) {
					t.Errorf("expected UTC instant, got %v", got[0].UpdatedAt)
				}
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := NewZoneService(tc.repo)
			got, err := svc.List(context.Background())
			tc.assertFunc(t, got, err)
		})
	}
}
