package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error reasons carried by ErrorEvent. The wording is part of the wire
// protocol; existing clients match on it.
const (
	ReasonGameNotStarted   = "Game not started"
	ReasonNotYourTurn      = "Not your turn"
	ReasonInvalidGuess     = "Invalid guess"
	ReasonCreateGameFailed = "Failed to create game"
	ReasonJoinGameFailed   = "Failed to join game"
)

// SessionInfo is one entry of the GAME_LIST snapshot.
type SessionInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Status     string `json:"status"`
}

// MarshalGameList serializes a session list snapshot to the GAME_LIST JSON
// array. An empty snapshot yields "[]".
//
// Postcondition: Returns a JSON array with objects in snapshot order.
func MarshalGameList(infos []SessionInfo) string {
	if infos == nil {
		infos = []SessionInfo{}
	}
	data, err := json.Marshal(infos)
	if err != nil {
		// SessionInfo contains only strings and ints; Marshal cannot fail.
		panic("protocol: marshalling game list: " + err.Error())
	}
	return string(data)
}

// HelloEvent echoes the client's version handshake.
func HelloEvent(version string) string {
	return "HELLO:" + version
}

// ConnectedEvent acknowledges CONNECT with the assigned player id.
func ConnectedEvent(playerID string) string {
	return "CONNECTED:" + playerID
}

// GameListEvent carries a GAME_LIST JSON snapshot.
func GameListEvent(listJSON string) string {
	return "GAME_LIST:" + listJSON
}

// GameCreatedEvent acknowledges CREATE_GAME with the new game id.
func GameCreatedEvent(gameID string) string {
	return "GAME_CREATED:" + gameID
}

// GameJoinedEvent acknowledges JOIN_GAME, listing current member names as
// "[Alice, Bob]".
func GameJoinedEvent(gameID string, names []string) string {
	return fmt.Sprintf("GAME_JOINED:%s:[%s]", gameID, strings.Join(names, ", "))
}

// PlayerJoinedEvent announces a new member to a game.
func PlayerJoinedEvent(gameID, playerName string) string {
	return fmt.Sprintf("PLAYER_JOINED:%s:%s", gameID, playerName)
}

// PlayerLeftEvent announces a departed member to a game.
func PlayerLeftEvent(gameID, playerName string) string {
	return fmt.Sprintf("PLAYER_LEFT:%s:%s", gameID, playerName)
}

// GameStartedEvent announces the start of a game and its first player.
func GameStartedEvent(gameID, firstPlayerID string) string {
	return fmt.Sprintf("GAME_STARTED:%s:%s", gameID, firstPlayerID)
}

// TurnUpdateEvent names the player whose turn it now is.
func TurnUpdateEvent(gameID, playerID string) string {
	return fmt.Sprintf("TURN_UPDATE:%s:%s", gameID, playerID)
}

// GuessResultEvent carries the scoring of one guess: the guesser's display
// name, their 1-based guess number, and the black/white peg counts.
func GuessResultEvent(gameID, playerName string, guessNumber, black, white int) string {
	return fmt.Sprintf("GUESS_RESULT:%s:%s:%d:%d:%d", gameID, playerName, guessNumber, black, white)
}

// GameWonEvent announces a win with the winner, their guess count, and the
// revealed secret code.
func GameWonEvent(gameID, winnerName string, guessCount int, secretCode string) string {
	return fmt.Sprintf("GAME_WON:%s:%s:%d:%s", gameID, winnerName, guessCount, secretCode)
}

// GameOverEvent announces a draw, revealing the secret code.
func GameOverEvent(gameID, secretCode string) string {
	return fmt.Sprintf("GAME_OVER:%s:%s", gameID, secretCode)
}

// ChatMessageEvent relays a chat line to a game.
func ChatMessageEvent(gameID, senderName, text string) string {
	return fmt.Sprintf("CHAT_MESSAGE:%s:%s:%s", gameID, senderName, text)
}

// ErrorEvent reports a validation or structural failure to one client.
func ErrorEvent(reason string) string {
	return "ERROR:" + reason
}
