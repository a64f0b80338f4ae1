package lobby

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pegboard/mastermind/internal/game/score"
)

const testAlphabet = "BGRPYO"

// fakeSink records delivered lines in order and can be told to fail.
type fakeSink struct {
	mu    sync.Mutex
	lines []string
	fail  bool
}

func (f *fakeSink) Send(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("sink failure")
	}
	f.lines = append(f.lines, line)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.lines))
	copy(out, f.lines)
	return out
}

func (f *fakeSink) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = nil
}

// fixedSource replays the symbol indices of a known code so tests control
// the secret exactly.
type fixedSource struct {
	values []int
	next   int
}

func (f *fixedSource) Intn(n int) int {
	v := f.values[f.next%len(f.values)] % n
	f.next++
	return v
}

func sourceForCode(t *testing.T, code string) *fixedSource {
	t.Helper()
	values := make([]int, len(code))
	for i := 0; i < len(code); i++ {
		idx := strings.IndexByte(testAlphabet, code[i])
		require.GreaterOrEqual(t, idx, 0, "code symbol %q not in test alphabet", code[i])
		values[i] = idx
	}
	return &fixedSource{values: values}
}

// newTestRegistry builds a registry whose sessions always use code as the
// secret and cap guesses at maxGuesses.
func newTestRegistry(t *testing.T, code string, maxGuesses int) *Registry {
	t.Helper()
	evaluator, err := score.NewEvaluator(testAlphabet, len(code))
	require.NoError(t, err)
	generator := score.NewGenerator(testAlphabet, len(code), sourceForCode(t, code))
	return NewRegistry(zap.NewNop(), evaluator, generator, maxGuesses)
}

// joinTwo registers Alice and Bob, creates a two-player session, and joins
// both. Returns the session and each player's sink.
func joinTwo(t *testing.T, reg *Registry) (*Session, *fakeSink, *fakeSink) {
	t.Helper()
	aliceSink := &fakeSink{}
	bobSink := &fakeSink{}
	reg.RegisterPlayer("p-alice", "Alice", aliceSink)
	reg.RegisterPlayer("p-bob", "Bob", bobSink)

	sess := reg.CreateSession("Test Game", 2)
	_, err := reg.JoinSession(sess.ID(), "p-alice")
	require.NoError(t, err)
	_, err = reg.JoinSession(sess.ID(), "p-bob")
	require.NoError(t, err)
	return sess, aliceSink, bobSink
}

// linesOfPrefix filters delivered lines to those starting with prefix.
func linesOfPrefix(lines []string, prefix string) []string {
	var out []string
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			out = append(out, l)
		}
	}
	return out
}
