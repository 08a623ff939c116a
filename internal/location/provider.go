// Package location abstracts the position-fix stream so the engine can be
// driven by MQTT in production and by synthetic fixes in tests.
package location

import (
	"github.com/jobin2005/roadgaurd-dark/internal/models"
)

// FixHandler consumes one position fix. Implementations must not block.
type FixHandler func(fix models.PositionFix)

// ErrorHandler receives provider-side failures (broker drop, bad payloads
// are logged instead). The journey keeps tracking in a degraded state.
type ErrorHandler func(err error)

// Subscription is the handle for one active watch. Unsubscribe is
// idempotent and must release the underlying delivery mechanism.
type Subscription interface {
	Unsubscribe()
}

// Provider delivers position fixes on its own schedule until unsubscribed.
type Provider interface {
	Watch(onFix FixHandler, onError ErrorHandler) (Subscription, error)
}
