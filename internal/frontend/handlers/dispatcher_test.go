package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pegboard/mastermind/internal/config"
	"github.com/pegboard/mastermind/internal/frontend/tcp"
	"github.com/pegboard/mastermind/internal/game/lobby"
	"github.com/pegboard/mastermind/internal/game/score"
	"github.com/pegboard/mastermind/internal/testutil"
)

const readTimeout = 2 * time.Second

// fixedSource replays symbol indices so the secret code is known to tests.
type fixedSource struct {
	values []int
	next   int
}

func (f *fixedSource) Intn(n int) int {
	v := f.values[f.next%len(f.values)] % n
	f.next++
	return v
}

// startTestServer runs a full server whose games always use secretCode.
// Returns the listen address.
func startTestServer(t *testing.T, secretCode string, maxGuesses int) string {
	t.Helper()
	logger := zaptest.NewLogger(t)

	const alphabet = "BGRPYO"
	evaluator, err := score.NewEvaluator(alphabet, len(secretCode))
	require.NoError(t, err)

	values := make([]int, len(secretCode))
	for i := 0; i < len(secretCode); i++ {
		values[i] = strings.IndexByte(alphabet, secretCode[i])
		require.GreaterOrEqual(t, values[i], 0)
	}
	generator := score.NewGenerator(alphabet, len(secretCode), &fixedSource{values: values})

	registry := lobby.NewRegistry(logger, evaluator, generator, maxGuesses)
	gameCfg := config.GameConfig{
		CodeLength:   len(secretCode),
		Colors:       alphabet,
		MaxGuesses:   maxGuesses,
		OutboxBuffer: 64,
	}
	handler := NewGameHandler(registry, gameCfg, logger)

	acc := tcp.NewAcceptor(config.ListenConfig{
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
	}, handler, logger)

	go func() {
		_ = acc.ListenAndServe()
	}()
	t.Cleanup(acc.Stop)

	deadline := time.After(2 * time.Second)
	for {
		if acc.IsRunning() && acc.Addr() != "" {
			return acc.Addr()
		}
		select {
		case <-deadline:
			t.Fatal("server did not start in time")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// connect performs the CONNECT handshake and returns the assigned player id.
func connect(t *testing.T, c *testutil.LineClient, name string) string {
	t.Helper()
	c.Send("CONNECT:" + name)
	line := c.ReadUntilPrefix("CONNECTED:", readTimeout)
	return strings.TrimPrefix(line, "CONNECTED:")
}

func TestHelloEchoesVersion(t *testing.T) {
	addr := startTestServer(t, "BGRP", 10)
	c := testutil.NewLineClient(t, addr)

	c.Send("HELLO:1.0")
	assert.Equal(t, "HELLO:1.0", c.ReadLine(readTimeout))
}

func TestConnectAssignsPlayerID(t *testing.T) {
	addr := startTestServer(t, "BGRP", 10)
	c := testutil.NewLineClient(t, addr)

	id := connect(t, c, "Alice")
	assert.True(t, strings.HasPrefix(id, "p"), "player id %q must carry the p prefix", id)
	assert.Len(t, id, 9)
}

func TestDuplicateConnectIsIgnored(t *testing.T) {
	addr := startTestServer(t, "BGRP", 10)
	c := testutil.NewLineClient(t, addr)

	first := connect(t, c, "Alice")

	// A second CONNECT produces no CONNECTED reply; the next answer on the
	// wire is the GET_GAMES response.
	c.Send("CONNECT:Alice2")
	c.Send("GET_GAMES")
	line := c.ReadLine(readTimeout)
	assert.True(t, strings.HasPrefix(line, "GAME_LIST:"), "got %q", line)
	assert.NotContains(t, line, first)
}

func TestGetGamesBeforeConnect(t *testing.T) {
	addr := startTestServer(t, "BGRP", 10)
	c := testutil.NewLineClient(t, addr)

	c.Send("GET_GAMES")
	assert.Equal(t, "GAME_LIST:[]", c.ReadLine(readTimeout))
}

func TestCreateGameListsIt(t *testing.T) {
	addr := startTestServer(t, "BGRP", 10)
	c := testutil.NewLineClient(t, addr)
	connect(t, c, "Alice")

	c.Send("CREATE_GAME:Duel:2")
	created := c.ReadUntilPrefix("GAME_CREATED:", readTimeout)
	gameID := strings.TrimPrefix(created, "GAME_CREATED:")

	c.Send("GET_GAMES")
	list := c.ReadUntilPrefix("GAME_LIST:", readTimeout)
	assert.Contains(t, list, gameID)
	assert.Contains(t, list, `"name":"Duel"`)
	assert.Contains(t, list, `"status":"Waiting"`)
}

func TestMalformedCreateGameIsRejected(t *testing.T) {
	addr := startTestServer(t, "BGRP", 10)
	c := testutil.NewLineClient(t, addr)
	connect(t, c, "Alice")

	c.Send("CREATE_GAME:NoCount")
	assert.Equal(t, "ERROR:Failed to create game", c.ReadLine(readTimeout))
}

func TestJoinUnknownGameIsRejected(t *testing.T) {
	addr := startTestServer(t, "BGRP", 10)
	c := testutil.NewLineClient(t, addr)
	connect(t, c, "Alice")

	c.Send("JOIN_GAME:g-nope")
	assert.Equal(t, "ERROR:Failed to join game", c.ReadUntilPrefix("ERROR:", readTimeout))
}

func TestGuessOnUnknownGameIsRejected(t *testing.T) {
	addr := startTestServer(t, "BGRP", 10)
	c := testutil.NewLineClient(t, addr)
	connect(t, c, "Alice")

	c.Send("GUESS:g-nope:BGRP")
	assert.Equal(t, "ERROR:Game not started", c.ReadUntilPrefix("ERROR:", readTimeout))
}

// TestTwoPlayerGameToWin drives a full game over the wire: handshake,
// create, join, auto-start, a miss, and the winning guess.
func TestTwoPlayerGameToWin(t *testing.T) {
	addr := startTestServer(t, "BGRP", 10)

	alice := testutil.NewLineClient(t, addr)
	bob := testutil.NewLineClient(t, addr)
	aliceID := connect(t, alice, "Alice")
	connect(t, bob, "Bob")

	alice.Send("CREATE_GAME:Duel:2")
	created := alice.ReadUntilPrefix("GAME_CREATED:", readTimeout)
	gameID := strings.TrimPrefix(created, "GAME_CREATED:")

	alice.Send("JOIN_GAME:" + gameID)
	joined := alice.ReadUntilPrefix("GAME_JOINED:", readTimeout)
	assert.Equal(t, "GAME_JOINED:"+gameID+":[Alice]", joined)

	bob.Send("JOIN_GAME:" + gameID)
	joined = bob.ReadUntilPrefix("GAME_JOINED:", readTimeout)
	assert.Equal(t, "GAME_JOINED:"+gameID+":[Alice, Bob]", joined)

	assert.Contains(t, alice.ReadUntilPrefix("PLAYER_JOINED:", readTimeout), "Bob")

	// The roster is complete, so the game starts on its own with Alice first.
	for _, c := range []*testutil.LineClient{alice, bob} {
		assert.Equal(t, "GAME_STARTED:"+gameID+":"+aliceID, c.ReadUntilPrefix("GAME_STARTED:", readTimeout))
		assert.Equal(t, "TURN_UPDATE:"+gameID+":"+aliceID, c.ReadUntilPrefix("TURN_UPDATE:", readTimeout))
	}

	alice.Send("GUESS:" + gameID + ":GGGG")
	result := bob.ReadUntilPrefix("GUESS_RESULT:", readTimeout)
	assert.Equal(t, "GUESS_RESULT:"+gameID+":Alice:1:1:0", result)

	bob.Send("GUESS:" + gameID + ":BGRP")
	assert.Equal(t, "GUESS_RESULT:"+gameID+":Bob:1:4:0", bob.ReadUntilPrefix("GUESS_RESULT:", readTimeout))
	won := "GAME_WON:" + gameID + ":Bob:1:BGRP"
	assert.Equal(t, won, bob.ReadUntilPrefix("GAME_WON:", readTimeout))
	assert.Equal(t, won, alice.ReadUntilPrefix("GAME_WON:", readTimeout))
}

func TestChatRelaysToAllMembers(t *testing.T) {
	addr := startTestServer(t, "BGRP", 10)

	alice := testutil.NewLineClient(t, addr)
	bob := testutil.NewLineClient(t, addr)
	connect(t, alice, "Alice")
	connect(t, bob, "Bob")

	alice.Send("CREATE_GAME:Chatty:2")
	gameID := strings.TrimPrefix(alice.ReadUntilPrefix("GAME_CREATED:", readTimeout), "GAME_CREATED:")
	alice.Send("JOIN_GAME:" + gameID)
	alice.ReadUntilPrefix("GAME_JOINED:", readTimeout)
	bob.Send("JOIN_GAME:" + gameID)
	bob.ReadUntilPrefix("GAME_JOINED:", readTimeout)

	alice.Send("CHAT:" + gameID + ":good luck: you will need it")
	want := "CHAT_MESSAGE:" + gameID + ":Alice:good luck: you will need it"
	assert.Equal(t, want, bob.ReadUntilPrefix("CHAT_MESSAGE:", readTimeout))
	assert.Equal(t, want, alice.ReadUntilPrefix("CHAT_MESSAGE:", readTimeout))
}

func TestDisconnectAnnouncesDeparture(t *testing.T) {
	addr := startTestServer(t, "BGRP", 10)

	alice := testutil.NewLineClient(t, addr)
	bob := testutil.NewLineClient(t, addr)
	connect(t, alice, "Alice")
	connect(t, bob, "Bob")

	alice.Send("CREATE_GAME:Flaky:3")
	gameID := strings.TrimPrefix(alice.ReadUntilPrefix("GAME_CREATED:", readTimeout), "GAME_CREATED:")
	alice.Send("JOIN_GAME:" + gameID)
	alice.ReadUntilPrefix("GAME_JOINED:", readTimeout)
	bob.Send("JOIN_GAME:" + gameID)
	bob.ReadUntilPrefix("GAME_JOINED:", readTimeout)

	alice.Send("DISCONNECT")
	assert.Equal(t, "PLAYER_LEFT:"+gameID+":Alice", bob.ReadUntilPrefix("PLAYER_LEFT:", readTimeout))
}

func TestLeaveGameKeepsConnection(t *testing.T) {
	addr := startTestServer(t, "BGRP", 10)

	c := testutil.NewLineClient(t, addr)
	connect(t, c, "Alice")

	c.Send("CREATE_GAME:Solo:2")
	gameID := strings.TrimPrefix(c.ReadUntilPrefix("GAME_CREATED:", readTimeout), "GAME_CREATED:")
	c.Send("JOIN_GAME:" + gameID)
	c.ReadUntilPrefix("GAME_JOINED:", readTimeout)

	// Leaving empties the game, which tears it down.
	c.Send("LEAVE_GAME:" + gameID)
	c.Send("GET_GAMES")
	assert.Equal(t, "GAME_LIST:[]", c.ReadUntilPrefix("GAME_LIST:[]", readTimeout))
}
