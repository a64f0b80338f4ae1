package lobby

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pegboard/mastermind/internal/game/score"
	"github.com/pegboard/mastermind/internal/protocol"
)

// Registry is the lobby: the directory of connected players and live
// sessions. One instance is created at startup and shared by every
// connection handler.
//
// Lock order: registry lock before any session lock, never the reverse.
// Registry methods therefore never call session methods while holding
// the registry lock; they snapshot what they need and release first.
type Registry struct {
	logger      *zap.Logger
	evaluator   *score.Evaluator
	generator   *score.Generator
	maxGuesses  int
	broadcaster *Broadcaster

	mu            sync.Mutex
	players       map[string]*Player
	sessions      map[string]*Session
	playerSession map[string]string
	sessionOrder  []string
}

// NewRegistry creates an empty Registry.
//
// Precondition: logger, evaluator, and generator must be non-nil, and
// maxGuesses must be > 0.
func NewRegistry(logger *zap.Logger, evaluator *score.Evaluator, generator *score.Generator, maxGuesses int) *Registry {
	return &Registry{
		logger:        logger,
		evaluator:     evaluator,
		generator:     generator,
		maxGuesses:    maxGuesses,
		broadcaster:   NewBroadcaster(logger),
		players:       make(map[string]*Player),
		sessions:      make(map[string]*Session),
		playerSession: make(map[string]string),
	}
}

// RegisterPlayer adds a connected player to the directory.
//
// Postcondition: The player is visible to broadcasts and joinable into
// sessions. Re-registering an id replaces the previous entry.
func (r *Registry) RegisterPlayer(id, name string, sink Sink) *Player {
	p := NewPlayer(id, name, sink)

	r.mu.Lock()
	r.players[id] = p
	total := len(r.players)
	r.mu.Unlock()

	r.logger.Info("player registered",
		zap.String("player_id", id),
		zap.String("name", name),
		zap.Int("connected", total),
	)
	return p
}

// UnregisterPlayer removes a player from the directory and from any session
// they are in, announcing the departure to remaining session members.
//
// Postcondition: The player id is absent from every registry map. If the
// player's session became empty it has been torn down.
func (r *Registry) UnregisterPlayer(playerID string) {
	r.mu.Lock()
	p, connected := r.players[playerID]
	delete(r.players, playerID)
	sessionID, inSession := r.playerSession[playerID]
	delete(r.playerSession, playerID)
	var sess *Session
	if inSession {
		sess = r.sessions[sessionID]
	}
	total := len(r.players)
	r.mu.Unlock()

	if !connected {
		return
	}
	if sess != nil {
		sess.RemovePlayer(playerID)
		sess.Broadcast(protocol.PlayerLeftEvent(sessionID, p.Name), playerID)
	}
	r.logger.Info("player unregistered",
		zap.String("player_id", playerID),
		zap.Int("connected", total),
	)
}

// CreateSession creates a new waiting session.
//
// Postcondition: The session is listed in creation order in snapshots. The
// creator is NOT auto-joined; a separate JOIN_GAME is required, matching
// the client flow.
func (r *Registry) CreateSession(name string, requiredPlayers int) *Session {
	id := "g" + uuid.NewString()[:8]
	sess := newSession(id, name, requiredPlayers, r)

	r.mu.Lock()
	r.sessions[id] = sess
	r.sessionOrder = append(r.sessionOrder, id)
	r.mu.Unlock()

	r.logger.Info("session created",
		zap.String("game_id", id),
		zap.String("name", name),
		zap.Int("required_players", requiredPlayers),
	)
	return sess
}

// JoinSession places a registered player into a session.
//
// Postcondition: On success the player is rostered and mapped to exactly
// this session. Fails if the session or player is unknown, the player is
// already in a session, or the session refused the add (started or full).
func (r *Registry) JoinSession(sessionID, playerID string) (*Session, error) {
	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("unknown session %s", sessionID)
	}
	p, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("unknown player %s", playerID)
	}
	if current, busy := r.playerSession[playerID]; busy {
		r.mu.Unlock()
		return nil, fmt.Errorf("player %s already in session %s", playerID, current)
	}
	r.mu.Unlock()

	if !sess.AddPlayer(p) {
		return nil, fmt.Errorf("session %s not accepting players", sessionID)
	}

	r.mu.Lock()
	r.playerSession[playerID] = sessionID
	r.mu.Unlock()
	return sess, nil
}

// LeaveSession removes a player from their session without disconnecting
// them, announcing the departure to the remaining members. A session left
// empty or already finished is torn down.
func (r *Registry) LeaveSession(sessionID, playerID string) {
	r.mu.Lock()
	sess := r.sessions[sessionID]
	p := r.players[playerID]
	if r.playerSession[playerID] == sessionID {
		delete(r.playerSession, playerID)
	}
	r.mu.Unlock()

	if sess == nil || p == nil {
		return
	}
	sess.RemovePlayer(playerID)
	sess.Broadcast(protocol.PlayerLeftEvent(sessionID, p.Name), playerID)
	if sess.Finished() {
		r.RemoveSession(sessionID)
	}
}

// RemoveSession tears a session down. Idempotent; called by sessions that
// empty out and by handlers cleaning up finished games.
//
// Postcondition: The session is absent from the directory and from every
// player mapping, and the lobby game list has been rebroadcast once.
func (r *Registry) RemoveSession(sessionID string) {
	r.mu.Lock()
	_, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, sessionID)
	for pid, sid := range r.playerSession {
		if sid == sessionID {
			delete(r.playerSession, pid)
		}
	}
	for i, id := range r.sessionOrder {
		if id == sessionID {
			r.sessionOrder = append(r.sessionOrder[:i], r.sessionOrder[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.logger.Info("session removed", zap.String("game_id", sessionID))
	r.BroadcastGameList()
}

// Session returns the session with the given id, or nil.
func (r *Registry) Session(sessionID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[sessionID]
}

// Player returns the registered player with the given id, or nil.
func (r *Registry) Player(playerID string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.players[playerID]
}

// SessionFor returns the session the player is currently in, or nil.
func (r *Registry) SessionFor(playerID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sid, ok := r.playerSession[playerID]; ok {
		return r.sessions[sid]
	}
	return nil
}

// Snapshot returns the current game list in session creation order.
func (r *Registry) Snapshot() []protocol.SessionInfo {
	r.mu.Lock()
	ordered := make([]*Session, 0, len(r.sessionOrder))
	for _, id := range r.sessionOrder {
		if sess, ok := r.sessions[id]; ok {
			ordered = append(ordered, sess)
		}
	}
	r.mu.Unlock()

	infos := make([]protocol.SessionInfo, 0, len(ordered))
	for _, sess := range ordered {
		infos = append(infos, sess.info())
	}
	return infos
}

// GameListJSON returns the game list snapshot as its wire JSON payload.
func (r *Registry) GameListJSON() string {
	return protocol.MarshalGameList(r.Snapshot())
}

// BroadcastToAll delivers line to every connected player.
func (r *Registry) BroadcastToAll(line string) {
	r.mu.Lock()
	members := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		members = append(members, p)
	}
	r.mu.Unlock()

	r.broadcaster.Deliver(members, line, "")
}

// BroadcastGameList pushes a fresh GAME_LIST event to every connected
// player. Called after any change to the visible lobby state.
func (r *Registry) BroadcastGameList() {
	r.BroadcastToAll(protocol.GameListEvent(r.GameListJSON()))
}
