package lobby

import (
	"go.uber.org/zap"
)

// Broadcaster fans event lines out to sets of players. Delivery is an
// enqueue onto each player's Outbox, so it is safe to call while holding a
// session or registry lock; a slow consumer can fill its own buffer but can
// never block the broadcast.
type Broadcaster struct {
	logger *zap.Logger
}

// NewBroadcaster creates a Broadcaster.
//
// Precondition: logger must be non-nil.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{logger: logger}
}

// Deliver sends line to every player except excludeID (empty excludes
// nobody). Order across players is unspecified; each player's own lines
// arrive in submission order. A failed enqueue drops the line for that
// player only.
func (b *Broadcaster) Deliver(players []*Player, line string, excludeID string) {
	for _, p := range players {
		if excludeID != "" && p.ID == excludeID {
			continue
		}
		if err := p.Send(line); err != nil {
			b.logger.Warn("dropping event line",
				zap.String("player_id", p.ID),
				zap.Error(err),
			)
		}
	}
}
