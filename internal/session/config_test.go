package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 15*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 5*time.Minute, cfg.WarningMargin)
	assert.Equal(t, []EventType{EventClick, EventKeypress, EventMousemove, EventTouchstart}, cfg.TrackedEvents)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "returnTo", cfg.ReturnParam)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero timeout", mutate: func(c *Config) { c.SessionTimeout = 0 }},
		{name: "negative margin", mutate: func(c *Config) { c.WarningMargin = -time.Second }},
		{name: "margin not below timeout", mutate: func(c *Config) { c.WarningMargin = c.SessionTimeout }},
		{name: "no events", mutate: func(c *Config) { c.TrackedEvents = nil }},
		{name: "unknown event", mutate: func(c *Config) { c.TrackedEvents = []EventType{"scroll"} }},
		{name: "relative login path", mutate: func(c *Config) { c.LoginPath = "login" }},
		{name: "empty return param", mutate: func(c *Config) { c.ReturnParam = "" }},
		{name: "negative burst", mutate: func(c *Config) { c.LoginBurst = -1 }},
		{name: "burst without refill", mutate: func(c *Config) { c.LoginRefill = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrConfig)
		})
	}
}

func TestConfigValidate_ThrottleOffNeedsNoRefill(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoginBurst = 0
	cfg.LoginRefill = 0
	assert.NoError(t, cfg.Validate())
}
