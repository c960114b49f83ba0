package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/plugin-hub/internal/domain"
)

func registerEngine(s *SyncService, id string, source domain.CatalogSource) *SyncEngine {
	engine := NewSyncEngine(domain.RepositoryConfig{
		ID:       id,
		Name:     id + " repository",
		Endpoint: "https://" + id + ".example.com",
	}, source, "1.5.0", nil)
	s.Register(engine)
	return engine
}

func TestSyncService_ListInRegistrationOrder(t *testing.T) {
	svc := NewSyncService(nil)
	registerEngine(svc, "official", newMockSource())
	registerEngine(svc, "community", newMockSource())

	statuses := svc.List()

	require.Len(t, statuses, 2)
	assert.Equal(t, "official", statuses[0].ID)
	assert.Equal(t, "community", statuses[1].ID)
	assert.Equal(t, domain.SyncIdle, statuses[0].SyncStatus)
}

func TestSyncService_InitializeAll(t *testing.T) {
	svc := NewSyncService(nil)
	registerEngine(svc, "official", newMockSource(&domain.PluginPackage{ID: "a", Name: "A"}))
	registerEngine(svc, "community", newMockSource())

	err := svc.InitializeAll(context.Background())
	require.NoError(t, err)

	statuses := svc.List()
	assert.Equal(t, domain.SyncSynced, statuses[0].SyncStatus)
	assert.Equal(t, 1, statuses[0].PackageCount)
	assert.Equal(t, domain.SyncSynced, statuses[1].SyncStatus)
}

func TestSyncService_InitializeAll_PartialFailure(t *testing.T) {
	svc := NewSyncService(nil)
	broken := newMockSource()
	broken.handshakeErr = errors.New("connection refused")
	registerEngine(svc, "broken", broken)
	registerEngine(svc, "official", newMockSource(&domain.PluginPackage{ID: "a", Name: "A"}))

	err := svc.InitializeAll(context.Background())

	// the failure is reported but does not stop the other repository
	assert.Error(t, err)

	official, ok := svc.Engine("official")
	require.True(t, ok)
	assert.Len(t, official.GetAvailablePackages(), 1)
}

func TestSyncService_UnknownEngine(t *testing.T) {
	svc := NewSyncService(nil)

	_, ok := svc.Engine("nope")
	assert.False(t, ok)
}

func TestSyncService_StartPeriodicZeroIntervalIsDisabled(t *testing.T) {
	svc := NewSyncService(nil)

	require.NoError(t, svc.StartPeriodic(context.Background(), 0))
	svc.Stop()
}
