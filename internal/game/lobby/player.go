// Package lobby implements the Mastermind session coordination engine: the
// player directory, game sessions with their turn state machines, and event
// fan-out to connected players.
package lobby

import (
	"fmt"
	"sync"
)

// Sink is an outbound delivery handle: the only thing the core needs to know
// about a connection is how to hand it one event line.
type Sink interface {
	// Send enqueues one event line for delivery.
	Send(line string) error
	// Close releases the handle. Further Send calls fail.
	Close() error
}

// Outbox is a channel-backed Sink. Sends enqueue without blocking; a
// connection-owned writer goroutine drains Lines in submission order, so
// delivery to one player never stalls a session critical section.
type Outbox struct {
	mu     sync.Mutex
	lines  chan string
	closed bool
}

// NewOutbox creates an Outbox with the given buffer size.
//
// Precondition: buffer must be > 0; a non-positive value falls back to 64.
// Postcondition: Returns an Outbox with an open lines channel.
func NewOutbox(buffer int) *Outbox {
	if buffer <= 0 {
		buffer = 64
	}
	return &Outbox{
		lines: make(chan string, buffer),
	}
}

// Send enqueues one line for delivery.
//
// Postcondition: The line is enqueued in submission order, or an error is
// returned if the outbox is closed or full. Send never blocks.
func (o *Outbox) Send(line string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("outbox is closed")
	}
	select {
	case o.lines <- line:
		return nil
	default:
		return fmt.Errorf("outbox buffer full")
	}
}

// Lines returns the read-only delivery channel. The connection's writer
// goroutine reads from it until it is closed.
func (o *Outbox) Lines() <-chan string {
	return o.lines
}

// Close marks the outbox as closed and closes the lines channel. Lines
// already enqueued remain readable.
//
// Postcondition: Further Send calls return an error. Close is idempotent.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.lines)
	}
	return nil
}

// Player is a connected player: identity plus the outbound handle. Players
// are owned by the Registry and referenced, never owned, by sessions.
type Player struct {
	// ID is the server-assigned unique player id.
	ID string
	// Name is the display name supplied on CONNECT.
	Name string

	sink Sink
}

// NewPlayer creates a Player delivering through the given sink.
//
// Precondition: id must be non-empty; sink must be non-nil.
func NewPlayer(id, name string, sink Sink) *Player {
	return &Player{ID: id, Name: name, sink: sink}
}

// Send delivers one event line to this player.
func (p *Player) Send(line string) error {
	return p.sink.Send(line)
}
