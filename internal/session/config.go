package session

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the session tunables.
type Config struct {
	// SessionTimeout is how long a session lives after login or the most
	// recent tracked activity.
	SessionTimeout time.Duration

	// WarningMargin is how far ahead of the deadline the session stops
	// counting as secure.
	WarningMargin time.Duration

	// TrackedEvents are the activity event types that extend the session.
	TrackedEvents []EventType

	// LoginPath is where logged-out users are sent.
	LoginPath string

	// ReturnParam is the query parameter carrying the originally requested path.
	ReturnParam string

	// LoginBurst is the number of login attempts allowed per identifier
	// before throttling kicks in. Zero disables throttling.
	LoginBurst int

	// LoginRefill is the interval after which one more attempt is allowed.
	LoginRefill time.Duration
}

func DefaultConfig() Config {
	return Config{
		SessionTimeout: 15 * time.Minute,
		WarningMargin:  5 * time.Minute,
		TrackedEvents:  DefaultTrackedEvents(),
		LoginPath:      "/login",
		ReturnParam:    "returnTo",
		LoginBurst:     5,
		LoginRefill:    time.Minute,
	}
}

// Validate returns an error wrapping ErrConfig for unusable settings.
func (c Config) Validate() error {
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("%w: session timeout must be positive", ErrConfig)
	}
	if c.WarningMargin < 0 || c.WarningMargin >= c.SessionTimeout {
		return fmt.Errorf("%w: warning margin must be in [0, session timeout)", ErrConfig)
	}
	if len(c.TrackedEvents) == 0 {
		return fmt.Errorf("%w: at least one tracked event is required", ErrConfig)
	}
	for _, t := range c.TrackedEvents {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown event type %q", ErrConfig, t)
		}
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		return fmt.Errorf("%w: login path must start with /", ErrConfig)
	}
	if c.ReturnParam == "" {
		return fmt.Errorf("%w: return parameter is empty", ErrConfig)
	}
	if c.LoginBurst < 0 {
		return fmt.Errorf("%w: login burst must not be negative", ErrConfig)
	}
	if c.LoginBurst > 0 && c.LoginRefill <= 0 {
		return fmt.Errorf("%w: login refill must be positive when throttling", ErrConfig)
	}
	return nil
}
