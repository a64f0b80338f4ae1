package lobby

import (
	"sync"

	"go.uber.org/zap"

	"github.com/pegboard/mastermind/internal/game/score"
	"github.com/pegboard/mastermind/internal/protocol"
)

// State is a session's lifecycle state. Transitions only move forward, from
// Waiting through InProgress to Finished.
type State int

const (
	// StateWaiting means the session is gathering players.
	StateWaiting State = iota
	// StateInProgress means the secret code is set and turns are running.
	StateInProgress
	// StateFinished is terminal; no further mutation except removal.
	StateFinished
)

// String returns the wire status label used in GAME_LIST snapshots.
func (s State) String() string {
	switch s {
	case StateWaiting:
		return "Waiting"
	case StateInProgress:
		return "In Progress"
	case StateFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// OutcomeKind classifies how a session ended.
type OutcomeKind int

const (
	// OutcomeNone means the session has not finished.
	OutcomeNone OutcomeKind = iota
	// OutcomeWon means a player guessed the code.
	OutcomeWon
	// OutcomeDraw means every player exhausted their guesses.
	OutcomeDraw
)

// Outcome records how a finished session ended.
type Outcome struct {
	Kind OutcomeKind
	// WinnerID is the winning player's id (OutcomeWon only).
	WinnerID string
	// GuessCount is the winner's guess count (OutcomeWon only).
	GuessCount int
}

// Session is one game instance: roster, turn order, guess counters, and the
// secret code. All mutating operations serialize on one mutex; sessions are
// independent of each other, so cross-game concurrency is unaffected.
//
// Lock order: a session may call into the registry while holding its own
// lock only for operations that touch registry maps alone; the game-list
// broadcast (which reads other sessions) always runs after the session lock
// is released.
type Session struct {
	id       string
	name     string
	required int

	lobby       *Registry
	evaluator   *score.Evaluator
	generator   *score.Generator
	maxGuesses  int
	broadcaster *Broadcaster
	logger      *zap.Logger

	mu               sync.Mutex
	players          map[string]*Player
	guessCount       map[string]int
	turnOrder        []string
	currentTurnIndex int
	state            State
	secretCode       string
	outcome          Outcome
}

func newSession(id, name string, required int, reg *Registry) *Session {
	return &Session{
		id:          id,
		name:        name,
		required:    required,
		lobby:       reg,
		evaluator:   reg.evaluator,
		generator:   reg.generator,
		maxGuesses:  reg.maxGuesses,
		broadcaster: reg.broadcaster,
		logger:      reg.logger.With(zap.String("game_id", id)),
		players:     make(map[string]*Player),
		guessCount:  make(map[string]int),
		state:       StateWaiting,
	}
}

// AddPlayer adds a player to the roster and turn order.
//
// Postcondition: Returns false without mutation if the id is already
// present, the session has started, or the roster is full. On success the
// player is appended to the turn order with a zero guess counter and the
// lobby game list is rebroadcast.
func (s *Session) AddPlayer(p *Player) bool {
	ok := s.addPlayerLocked(p)
	if ok {
		s.lobby.BroadcastGameList()
	}
	return ok
}

func (s *Session) addPlayerLocked(p *Player) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[p.ID]; exists {
		return false
	}
	if s.state != StateWaiting || len(s.players) >= s.required {
		return false
	}

	s.players[p.ID] = p
	s.guessCount[p.ID] = 0
	s.turnOrder = append(s.turnOrder, p.ID)
	return true
}

// RemovePlayer removes a player from the roster, guess counters, and turn
// order in one atomic step.
//
// Postcondition: If the roster becomes empty the session asks the registry
// to tear it down (which rebroadcasts the game list once); otherwise the
// turn index is clamped to 0 if it fell out of range and the game list is
// rebroadcast.
func (s *Session) RemovePlayer(playerID string) {
	s.mu.Lock()
	delete(s.players, playerID)
	delete(s.guessCount, playerID)
	for i, id := range s.turnOrder {
		if id == playerID {
			s.turnOrder = append(s.turnOrder[:i], s.turnOrder[i+1:]...)
			break
		}
	}
	empty := len(s.players) == 0
	if !empty && s.state != StateWaiting && s.currentTurnIndex >= len(s.turnOrder) {
		s.currentTurnIndex = 0
	}
	s.mu.Unlock()

	if empty {
		s.lobby.RemoveSession(s.id)
		return
	}
	s.lobby.BroadcastGameList()
}

// CanStart reports whether the session has exactly the required number of
// players and has not started.
func (s *Session) CanStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateWaiting && len(s.players) == s.required
}

// Start generates the secret code, moves the session to InProgress, and
// announces the game start and the first turn. Calling Start on a session
// that already left Waiting is a no-op.
//
// Postcondition: The secret code is set exactly once and never changes
// afterward. The lobby game list is rebroadcast.
func (s *Session) Start() {
	s.mu.Lock()
	if s.state != StateWaiting {
		s.mu.Unlock()
		return
	}
	s.state = StateInProgress
	s.secretCode = s.generator.Generate()

	if len(s.turnOrder) > 0 {
		first := s.turnOrder[0]
		s.deliverLocked(protocol.GameStartedEvent(s.id, first), "")
		s.deliverLocked(protocol.TurnUpdateEvent(s.id, first), "")
	}
	s.logger.Info("game started",
		zap.Int("players", len(s.players)),
	)
	s.mu.Unlock()

	s.lobby.BroadcastGameList()
}

// ProcessGuess scores one guess by playerID.
//
// Out-of-order, pre-start, and malformed guesses are reported to the
// requester alone and leave all state untouched. A scored guess increments
// the player's counter and broadcasts the result; an all-black result wins
// and finishes the session; a player hitting the guess cap triggers the
// turn advance and then the draw scan, so a fully exhausted roster finishes
// the session with a single GAME_OVER and no trailing TURN_UPDATE.
func (s *Session) ProcessGuess(playerID, guess string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok || len(s.turnOrder) == 0 {
		return
	}

	if s.state != StateInProgress {
		s.sendTo(p, protocol.ErrorEvent(protocol.ReasonGameNotStarted))
		return
	}
	if s.turnOrder[s.currentTurnIndex] != playerID {
		s.sendTo(p, protocol.ErrorEvent(protocol.ReasonNotYourTurn))
		return
	}

	res, err := s.evaluator.Evaluate(s.secretCode, guess)
	if err != nil {
		s.sendTo(p, protocol.ErrorEvent(protocol.ReasonInvalidGuess))
		return
	}

	s.guessCount[playerID]++
	n := s.guessCount[playerID]

	s.deliverLocked(protocol.GuessResultEvent(s.id, p.Name, n, res.Black, res.White), "")

	if res.Black == s.evaluator.Length() {
		s.outcome = Outcome{Kind: OutcomeWon, WinnerID: playerID, GuessCount: n}
		s.state = StateFinished
		s.deliverLocked(protocol.GameWonEvent(s.id, p.Name, n, s.secretCode), "")
		s.logger.Info("game won",
			zap.String("winner_id", playerID),
			zap.Int("guesses", n),
		)
		return
	}

	if n >= s.maxGuesses {
		s.advanceTurnLocked()
		if s.allExhaustedLocked() {
			s.outcome = Outcome{Kind: OutcomeDraw}
			s.state = StateFinished
			s.deliverLocked(protocol.GameOverEvent(s.id, s.secretCode), "")
			s.logger.Info("game drawn")
		}
		return
	}

	s.advanceTurnLocked()
}

// advanceTurnLocked walks forward through the turn order from the next slot,
// skipping exhausted players, and announces the first eligible one. A full
// lap without an eligible player emits nothing; the caller's exhaustion scan
// ends the game in that case.
//
// Precondition: s.mu must be held.
func (s *Session) advanceTurnLocked() {
	if len(s.turnOrder) == 0 {
		return
	}
	for i := 0; i < len(s.turnOrder); i++ {
		s.currentTurnIndex = (s.currentTurnIndex + 1) % len(s.turnOrder)
		next := s.turnOrder[s.currentTurnIndex]
		if s.guessCount[next] < s.maxGuesses {
			s.deliverLocked(protocol.TurnUpdateEvent(s.id, next), "")
			return
		}
	}
}

// allExhaustedLocked reports whether every rostered player has reached the
// guess cap.
//
// Precondition: s.mu must be held.
func (s *Session) allExhaustedLocked() bool {
	for id := range s.players {
		if s.guessCount[id] < s.maxGuesses {
			return false
		}
	}
	return true
}

// Broadcast delivers line to every rostered player except excludeID (empty
// excludes nobody).
func (s *Session) Broadcast(line string, excludeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliverLocked(line, excludeID)
}

// deliverLocked fans line out to the current roster. Delivery is an Outbox
// enqueue, so holding the lock here is safe and keeps the critical section
// short.
//
// Precondition: s.mu must be held.
func (s *Session) deliverLocked(line string, excludeID string) {
	members := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		members = append(members, p)
	}
	s.broadcaster.Deliver(members, line, excludeID)
}

// sendTo delivers a line to a single player, logging a failed enqueue.
func (s *Session) sendTo(p *Player, line string) {
	if err := p.Send(line); err != nil {
		s.logger.Warn("dropping reply",
			zap.String("player_id", p.ID),
			zap.Error(err),
		)
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Name returns the session display name.
func (s *Session) Name() string { return s.name }

// RequiredPlayers returns the roster size needed to start.
func (s *Session) RequiredPlayers() int { return s.required }

// PlayerCount returns the current roster size.
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// PlayerNames returns display names in join order.
func (s *Session) PlayerNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.turnOrder))
	for _, id := range s.turnOrder {
		if p, ok := s.players[id]; ok {
			names = append(names, p.Name)
		}
	}
	return names
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Outcome returns how the session ended (Kind is OutcomeNone until it has).
func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Finished reports whether the session reached its terminal state.
func (s *Session) Finished() bool {
	return s.State() == StateFinished
}

// IsEmpty reports whether the roster is empty.
func (s *Session) IsEmpty() bool {
	return s.PlayerCount() == 0
}

// info snapshots the session for the game list.
func (s *Session) info() protocol.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return protocol.SessionInfo{
		ID:         s.id,
		Name:       s.name,
		Players:    len(s.players),
		MaxPlayers: s.required,
		Status:     s.state.String(),
	}
}
