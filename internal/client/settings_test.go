package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"am-client/internal/docstore"
	"am-client/internal/transport"
)

func TestSettingsCachedWithinRefreshInterval(t *testing.T) {
	tr := new(transport.MockTransport)
	tr.On("GetStatus", mock.Anything).Return(transport.StatusResponse{
		SystemSettings: &transport.SystemSettings{CacheRetentionHours: 48},
	}, nil)

	c := newTestClient(tr, docstore.NewMemoryStore(), Config{SettingsRefreshInterval: 5 * time.Minute})

	for i := 0; i < 3; i++ {
		s := c.CheckSystemStatus(context.Background(), false)
		if s.CacheRetentionHours != 48 {
			t.Fatalf("call %d: got retention %v, want 48", i, s.CacheRetentionHours)
		}
	}
	tr.AssertNumberOfCalls(t, "GetStatus", 1)
}

func TestSettingsRefreshAfterInterval(t *testing.T) {
	tr := new(transport.MockTransport)
	tr.On("GetStatus", mock.Anything).Return(transport.StatusResponse{
		SystemSettings: &transport.SystemSettings{CacheRetentionHours: 48},
	}, nil)

	c := newTestClient(tr, docstore.NewMemoryStore(), Config{SettingsRefreshInterval: 5 * time.Minute})

	current := time.Now()
	c.now = func() time.Time { return current }

	c.CheckSystemStatus(context.Background(), false)
	current = current.Add(6 * time.Minute)
	c.CheckSystemStatus(context.Background(), false)

	tr.AssertNumberOfCalls(t, "GetStatus", 2)
}

func TestSettingsForceRefresh(t *testing.T) {
	tr := new(transport.MockTransport)
	tr.On("GetStatus", mock.Anything).Return(transport.StatusResponse{}, nil)

	c := newTestClient(tr, docstore.NewMemoryStore(), Config{SettingsRefreshInterval: time.Hour})
	c.CheckSystemStatus(context.Background(), false)
	c.CheckSystemStatus(context.Background(), true)

	tr.AssertNumberOfCalls(t, "GetStatus", 2)
}

func TestSettingsRefreshFailureKeepsPrevious(t *testing.T) {
	tr := new(transport.MockTransport)
	tr.On("GetStatus", mock.Anything).Return(transport.StatusResponse{
		SystemSettings: &transport.SystemSettings{CacheRetentionHours: 72, MaintenanceMode: true},
	}, nil).Once()
	tr.On("GetStatus", mock.Anything).Return(transport.StatusResponse{}, networkError())

	c := newTestClient(tr, docstore.NewMemoryStore(), Config{SettingsRefreshInterval: time.Minute})
	first := c.CheckSystemStatus(context.Background(), false)
	second := c.CheckSystemStatus(context.Background(), true)

	if first != second {
		t.Errorf("failed refresh changed settings: %+v then %+v", first, second)
	}
	if !second.MaintenanceMode || second.CacheRetentionHours != 72 {
		t.Errorf("previous settings lost: %+v", second)
	}
}

func TestSettingsFailureWithoutPreviousUsesDefaults(t *testing.T) {
	tr := new(transport.MockTransport)
	tr.On("GetStatus", mock.Anything).Return(transport.StatusResponse{}, networkError())

	c := newTestClient(tr, docstore.NewMemoryStore(), Config{})
	s := c.CheckSystemStatus(context.Background(), false)

	if s.CacheRetentionHours != defaultRetentionHours {
		t.Errorf("got retention %v, want default %d", s.CacheRetentionHours, defaultRetentionHours)
	}
	if s.MaintenanceMode {
		t.Error("defaults must not report maintenance")
	}
}

func TestSettingsNoNegativeCaching(t *testing.T) {
	tr := new(transport.MockTransport)
	tr.On("GetStatus", mock.Anything).Return(transport.StatusResponse{}, networkError()).Once()
	tr.On("GetStatus", mock.Anything).Return(transport.StatusResponse{
		SystemSettings: &transport.SystemSettings{CacheRetentionHours: 24},
	}, nil).Once()

	c := newTestClient(tr, docstore.NewMemoryStore(), Config{SettingsRefreshInterval: time.Hour})

	c.CheckSystemStatus(context.Background(), false)
	// The failure was not cached; the very next check hits the backend.
	s := c.CheckSystemStatus(context.Background(), false)

	if s.CacheRetentionHours != 24 {
		t.Errorf("got retention %v, want 24 from the retried fetch", s.CacheRetentionHours)
	}
	tr.AssertNumberOfCalls(t, "GetStatus", 2)
}

func TestSettingsOmittedRetentionDefaults(t *testing.T) {
	tr := new(transport.MockTransport)
	tr.On("GetStatus", mock.Anything).Return(transport.StatusResponse{
		SystemSettings: &transport.SystemSettings{MaintenanceMode: false},
	}, nil).Once()

	c := newTestClient(tr, docstore.NewMemoryStore(), Config{})
	s := c.CheckSystemStatus(context.Background(), false)

	if s.CacheRetentionHours != defaultRetentionHours {
		t.Errorf("got retention %v, want default %d", s.CacheRetentionHours, defaultRetentionHours)
	}
}

func TestIsMaintenanceMode(t *testing.T) {
	tr := new(transport.MockTransport)
	tr.On("GetStatus", mock.Anything).Return(transport.StatusResponse{
		SystemSettings: &transport.SystemSettings{CacheRetentionHours: 168, MaintenanceMode: true},
	}, nil)

	c := newTestClient(tr, docstore.NewMemoryStore(), Config{})
	if !c.IsMaintenanceMode(context.Background()) {
		t.Error("expected maintenance mode")
	}
}
