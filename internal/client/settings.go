package client

import (
	"context"

	"am-client/internal/transport"
)

// defaultRetentionHours applies when the server omits a retention window.
const defaultRetentionHours = 168

func defaultSettings() transport.SystemSettings {
	return transport.SystemSettings{CacheRetentionHours: defaultRetentionHours}
}

// CheckSystemStatus returns the current system settings, refreshing them
// from the backend when the cached copy is older than the refresh interval
// or force is set. Refresh failures keep the previous value; there is no
// negative caching.
func (c *Client) CheckSystemStatus(ctx context.Context, force bool) transport.SystemSettings {
	return c.systemSettings(ctx, force)
}

// IsMaintenanceMode reports whether the backend asked clients to stand down.
func (c *Client) IsMaintenanceMode(ctx context.Context) bool {
	return c.systemSettings(ctx, false).MaintenanceMode
}

func (c *Client) systemSettings(ctx context.Context, force bool) transport.SystemSettings {
	c.mu.Lock()
	if !force && c.hasSettings && c.now().Sub(c.settingsFetchedAt) < c.cfg.SettingsRefreshInterval {
		s := c.settings
		c.mu.Unlock()
		return s
	}
	c.mu.Unlock()

	type outcome struct {
		settings transport.SystemSettings
		fetched  bool
	}

	// Concurrent refreshes collapse into one backend call.
	v, _, _ := c.settingsGroup.Do("settings", func() (any, error) {
		resp, err := c.transport.GetStatus(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.log.Debug("settings refresh failed; reusing previous value", "err", err)
			if c.hasSettings {
				return outcome{settings: c.settings}, nil
			}
			return outcome{settings: defaultSettings()}, nil
		}

		s := defaultSettings()
		if resp.SystemSettings != nil {
			s = *resp.SystemSettings
			if s.CacheRetentionHours <= 0 {
				s.CacheRetentionHours = defaultRetentionHours
			}
		}
		c.settings = s
		c.settingsFetchedAt = c.now()
		c.hasSettings = true
		return outcome{settings: s, fetched: true}, nil
	})

	out := v.(outcome)
	if out.fetched {
		c.setState(StateOnline)
	}
	return out.settings
}
