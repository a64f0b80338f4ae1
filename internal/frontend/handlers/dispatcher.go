// Package handlers implements the per-connection command loop: parsing
// wire commands, driving the lobby, and pumping outbound events back to
// the client.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pegboard/mastermind/internal/config"
	"github.com/pegboard/mastermind/internal/frontend/tcp"
	"github.com/pegboard/mastermind/internal/game/lobby"
	"github.com/pegboard/mastermind/internal/protocol"
)

// ProtocolVersion is echoed back on HELLO.
const ProtocolVersion = "1.0"

// GameHandler runs the command loop for one client connection. A single
// GameHandler instance serves every connection; all per-connection state
// lives in HandleSession locals.
type GameHandler struct {
	registry *lobby.Registry
	cfg      config.GameConfig
	logger   *zap.Logger
}

// NewGameHandler creates a GameHandler backed by the given lobby registry.
//
// Precondition: registry and logger must be non-nil.
func NewGameHandler(registry *lobby.Registry, cfg config.GameConfig, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// HandleSession processes one client connection until it disconnects or the
// server shuts down.
//
// Outbound delivery runs on a dedicated writer goroutine draining the
// connection's outbox, so lobby broadcasts never write to the socket
// directly. Cleanup runs exactly once: the player is unregistered (leaving
// any game), then the outbox is closed and the writer drained.
func (h *GameHandler) HandleSession(ctx context.Context, conn *tcp.Conn) error {
	outbox := lobby.NewOutbox(h.cfg.OutboxBuffer)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for line := range outbox.Lines() {
			if err := conn.WriteLine(line); err != nil {
				h.logger.Debug("writing to client", zap.Error(err))
				return
			}
		}
	}()

	playerID := ""
	defer func() {
		if playerID != "" {
			h.registry.UnregisterPlayer(playerID)
		}
		_ = outbox.Close()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := conn.ReadLine()
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmd, err := protocol.Parse(line)
		if err != nil {
			h.reject(outbox, cmd, err)
			continue
		}

		switch cmd.Kind {
		case protocol.KindHello:
			h.send(outbox, protocol.HelloEvent(ProtocolVersion))

		case protocol.KindConnect:
			if playerID != "" {
				h.logger.Debug("ignoring duplicate CONNECT",
					zap.String("player_id", playerID),
				)
				continue
			}
			playerID = "p" + uuid.NewString()[:8]
			h.registry.RegisterPlayer(playerID, cmd.PlayerName, outbox)
			h.send(outbox, protocol.ConnectedEvent(playerID))

		case protocol.KindGetGames:
			h.send(outbox, protocol.GameListEvent(h.registry.GameListJSON()))

		case protocol.KindCreateGame:
			sess := h.registry.CreateSession(cmd.GameName, cmd.RequiredPlayers)
			h.send(outbox, protocol.GameCreatedEvent(sess.ID()))
			h.registry.BroadcastGameList()

		case protocol.KindJoinGame:
			h.handleJoin(outbox, playerID, cmd.GameID)

		case protocol.KindLeaveGame:
			if playerID != "" {
				h.registry.LeaveSession(cmd.GameID, playerID)
			}

		case protocol.KindGuess:
			sess := h.registry.Session(cmd.GameID)
			if sess == nil {
				h.send(outbox, protocol.ErrorEvent(protocol.ReasonGameNotStarted))
				continue
			}
			sess.ProcessGuess(playerID, cmd.Guess)

		case protocol.KindChat:
			h.handleChat(playerID, cmd.GameID, cmd.Text)

		case protocol.KindDisconnect:
			return nil
		}
	}
}

// handleJoin places the player in a game, acknowledges the join, announces
// the new member to the rest of the roster, and auto-starts the game the
// moment the roster is complete.
func (h *GameHandler) handleJoin(outbox *lobby.Outbox, playerID, gameID string) {
	if playerID == "" {
		h.send(outbox, protocol.ErrorEvent(protocol.ReasonJoinGameFailed))
		return
	}

	sess, err := h.registry.JoinSession(gameID, playerID)
	if err != nil {
		h.logger.Debug("join rejected",
			zap.String("player_id", playerID),
			zap.String("game_id", gameID),
			zap.Error(err),
		)
		h.send(outbox, protocol.ErrorEvent(protocol.ReasonJoinGameFailed))
		return
	}

	h.send(outbox, protocol.GameJoinedEvent(sess.ID(), sess.PlayerNames()))

	p := h.registry.Player(playerID)
	if p != nil {
		sess.Broadcast(protocol.PlayerJoinedEvent(sess.ID(), p.Name), playerID)
	}

	if sess.CanStart() {
		sess.Start()
	}
}

// handleChat relays a chat line to every member of the game, sender
// included, so all clients render the conversation identically.
func (h *GameHandler) handleChat(playerID, gameID, text string) {
	sess := h.registry.Session(gameID)
	p := h.registry.Player(playerID)
	if sess == nil || p == nil {
		return
	}
	sess.Broadcast(protocol.ChatMessageEvent(gameID, p.Name, text), "")
}

// reject answers a parse failure. Malformed CREATE_GAME and JOIN_GAME get
// explicit error replies because the client blocks on their acks; every
// other bad line is dropped.
func (h *GameHandler) reject(outbox *lobby.Outbox, cmd protocol.Command, err error) {
	if errors.Is(err, protocol.ErrMalformedPayload) {
		switch cmd.Kind {
		case protocol.KindCreateGame:
			h.send(outbox, protocol.ErrorEvent(protocol.ReasonCreateGameFailed))
			return
		case protocol.KindJoinGame:
			h.send(outbox, protocol.ErrorEvent(protocol.ReasonJoinGameFailed))
			return
		case protocol.KindGuess:
			h.send(outbox, protocol.ErrorEvent(protocol.ReasonInvalidGuess))
			return
		}
	}
	h.logger.Debug("dropping unparseable line", zap.Error(err))
}

// send enqueues one event line for this connection.
func (h *GameHandler) send(outbox *lobby.Outbox, line string) {
	if err := outbox.Send(line); err != nil {
		h.logger.Warn("dropping outbound line", zap.Error(err))
	}
}
