// Package protocol defines the Mastermind wire protocol: client command
// decoding and the server event catalog. One message per line, formatted as
// COMMAND:payload; commands split only on the first delimiter.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a client command. The set is closed so that dispatch can
// switch exhaustively instead of routing on raw strings.
type Kind int

const (
	// KindUnknown marks a line whose command name is not in the protocol.
	KindUnknown Kind = iota
	// KindHello is a version handshake; the server echoes it.
	KindHello
	// KindConnect registers the player under a display name.
	KindConnect
	// KindGetGames requests the current game list snapshot.
	KindGetGames
	// KindCreateGame creates a new game room.
	KindCreateGame
	// KindJoinGame joins an existing game room.
	KindJoinGame
	// KindLeaveGame leaves a game room.
	KindLeaveGame
	// KindGuess submits a code guess for a game.
	KindGuess
	// KindChat sends a chat line to a game.
	KindChat
	// KindDisconnect ends the connection cleanly.
	KindDisconnect
)

// String returns the wire name of the command kind.
func (k Kind) String() string {
	switch k {
	case KindHello:
		return "HELLO"
	case KindConnect:
		return "CONNECT"
	case KindGetGames:
		return "GET_GAMES"
	case KindCreateGame:
		return "CREATE_GAME"
	case KindJoinGame:
		return "JOIN_GAME"
	case KindLeaveGame:
		return "LEAVE_GAME"
	case KindGuess:
		return "GUESS"
	case KindChat:
		return "CHAT"
	case KindDisconnect:
		return "DISCONNECT"
	default:
		return "UNKNOWN"
	}
}

// Command is one decoded client command. Only the fields relevant to Kind
// are populated.
type Command struct {
	Kind Kind

	// Version is the client protocol version (KindHello).
	Version string
	// PlayerName is the requested display name (KindConnect).
	PlayerName string
	// GameName is the room display name (KindCreateGame).
	GameName string
	// RequiredPlayers is the player count needed to start (KindCreateGame).
	RequiredPlayers int
	// GameID targets a game room (KindJoinGame, KindLeaveGame, KindGuess, KindChat).
	GameID string
	// Guess is the submitted code guess (KindGuess).
	Guess string
	// Text is the chat message body (KindChat).
	Text string
}

// ErrUnknownCommand is returned for a line whose command name is not in the
// protocol.
var ErrUnknownCommand = errors.New("unknown command")

// ErrMalformedPayload is returned when a known command's payload cannot be
// decoded. The returned Command still carries the Kind so callers can decide
// between a wire ERROR reply and a silent drop.
var ErrMalformedPayload = errors.New("malformed payload")

// Parse decodes one protocol line into a Command.
//
// The line splits on the first ':' into command name and raw payload; a line
// without a delimiter has an empty payload. Payload fields are trimmed of
// surrounding whitespace.
//
// Postcondition: Returns (cmd, nil) for a well-formed line; (Command{Kind: KindUnknown},
// ErrUnknownCommand) for an unrecognized name; (cmd with Kind set, error wrapping
// ErrMalformedPayload) for a known command with an undecodable payload.
func Parse(line string) (Command, error) {
	name := line
	payload := ""
	if idx := strings.IndexByte(line, ':'); idx >= 0 {
		name = line[:idx]
		payload = line[idx+1:]
	}

	switch name {
	case "HELLO":
		return Command{Kind: KindHello, Version: payload}, nil

	case "CONNECT":
		playerName := strings.TrimSpace(payload)
		if playerName == "" {
			playerName = "Player"
		}
		return Command{Kind: KindConnect, PlayerName: playerName}, nil

	case "GET_GAMES":
		return Command{Kind: KindGetGames}, nil

	case "CREATE_GAME":
		return parseCreateGame(payload)

	case "JOIN_GAME":
		gameID := strings.TrimSpace(payload)
		if gameID == "" {
			return Command{Kind: KindJoinGame}, fmt.Errorf("%w: missing game id", ErrMalformedPayload)
		}
		return Command{Kind: KindJoinGame, GameID: gameID}, nil

	case "LEAVE_GAME":
		gameID := strings.TrimSpace(payload)
		if gameID == "" {
			return Command{Kind: KindLeaveGame}, fmt.Errorf("%w: missing game id", ErrMalformedPayload)
		}
		return Command{Kind: KindLeaveGame, GameID: gameID}, nil

	case "GUESS":
		gameID, guess, ok := splitPair(payload)
		if !ok {
			return Command{Kind: KindGuess}, fmt.Errorf("%w: want gameId:guess", ErrMalformedPayload)
		}
		return Command{Kind: KindGuess, GameID: gameID, Guess: guess}, nil

	case "CHAT":
		gameID, text, ok := splitPair(payload)
		if !ok {
			return Command{Kind: KindChat}, fmt.Errorf("%w: want gameId:text", ErrMalformedPayload)
		}
		return Command{Kind: KindChat, GameID: gameID, Text: text}, nil

	case "DISCONNECT":
		return Command{Kind: KindDisconnect}, nil

	default:
		return Command{Kind: KindUnknown}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

// parseCreateGame decodes a "name:requiredPlayers" payload.
func parseCreateGame(payload string) (Command, error) {
	name, countStr, ok := splitPair(payload)
	if !ok {
		return Command{Kind: KindCreateGame}, fmt.Errorf("%w: want name:requiredPlayers", ErrMalformedPayload)
	}
	count, err := strconv.Atoi(countStr)
	if err != nil {
		return Command{Kind: KindCreateGame}, fmt.Errorf("%w: required players %q: %v", ErrMalformedPayload, countStr, err)
	}
	if count < 1 {
		return Command{Kind: KindCreateGame}, fmt.Errorf("%w: required players must be >= 1, got %d", ErrMalformedPayload, count)
	}
	return Command{Kind: KindCreateGame, GameName: name, RequiredPlayers: count}, nil
}

// splitPair splits a payload on its first ':' into two trimmed, non-empty
// parts.
func splitPair(payload string) (string, string, bool) {
	idx := strings.IndexByte(payload, ':')
	if idx < 0 {
		return "", "", false
	}
	first := strings.TrimSpace(payload[:idx])
	second := strings.TrimSpace(payload[idx+1:])
	if first == "" || second == "" {
		return "", "", false
	}
	return first, second, true
}
