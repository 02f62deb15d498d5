package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts "now" so period eligibility and scheduler sweeps are
// testable against a fake clock.
type Clock interface {
	Now() time.Time
}

// Module provides the system clock.
var Module = fx.Provide(NewSystemClock)

type systemClock struct{}

func NewSystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }
