package health

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Breaker reports a failing check while healthy returns false, e.g. when
// every reward API endpoint has an open circuit. A nil healthy func means
// the dependency is not configured and always passes. When open is set, the
// endpoints it returns are named in the error.
func Breaker(name string, healthy func() bool, open func() []string) Checker {
	return Checker{
		Name: name,
		Check: func(context.Context) error {
			if healthy == nil || healthy() {
				return nil
			}
			if open != nil {
				if names := open(); len(names) > 0 {
					return fmt.Errorf("circuit open: %s", strings.Join(names, ", "))
				}
			}
			return errors.New("circuit open")
		},
	}
}

// ConfigLoaded fails until loaded returns true.
func ConfigLoaded(loaded func() bool) Checker {
	return Checker{
		Name: "config",
		Check: func(context.Context) error {
			if loaded == nil || !loaded() {
				return errors.New("configuration not loaded")
			}
			return nil
		},
	}
}
