// Package score implements Mastermind guess evaluation and secret code
// generation.
package score

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidGuess is returned when a guess has the wrong length or contains
// a symbol outside the configured alphabet.
var ErrInvalidGuess = errors.New("invalid guess")

// Result holds the outcome of scoring one guess against a secret code.
type Result struct {
	// Black is the number of symbols matching the code at the same position.
	Black int
	// White is the number of symbols present in the code at a different
	// position, counted with duplicate-safe frequency matching.
	White int
}

// Evaluator scores guesses against secret codes over a fixed symbol alphabet.
// Evaluator is stateless and safe for concurrent use.
type Evaluator struct {
	alphabet string
	length   int
}

// NewEvaluator creates an Evaluator for codes of the given length drawn from
// the given alphabet.
//
// Precondition: alphabet must be non-empty with distinct symbols; length must be >= 1.
// Postcondition: Returns an Evaluator or a non-nil error.
func NewEvaluator(alphabet string, length int) (*Evaluator, error) {
	if len(alphabet) == 0 {
		return nil, errors.New("alphabet must not be empty")
	}
	if length < 1 {
		return nil, fmt.Errorf("code length must be >= 1, got %d", length)
	}
	for i := 0; i < len(alphabet); i++ {
		if strings.IndexByte(alphabet[i+1:], alphabet[i]) >= 0 {
			return nil, fmt.Errorf("alphabet %q repeats symbol %q", alphabet, alphabet[i])
		}
	}
	return &Evaluator{alphabet: alphabet, length: length}, nil
}

// Alphabet returns the evaluator's symbol alphabet.
func (e *Evaluator) Alphabet() string { return e.alphabet }

// Length returns the expected code and guess length.
func (e *Evaluator) Length() int { return e.length }

// Validate checks that guess has the configured length and draws only from
// the alphabet.
//
// Postcondition: Returns nil for a well-formed guess, or an error wrapping ErrInvalidGuess.
func (e *Evaluator) Validate(guess string) error {
	if len(guess) != e.length {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidGuess, len(guess), e.length)
	}
	for i := 0; i < len(guess); i++ {
		if strings.IndexByte(e.alphabet, guess[i]) < 0 {
			return fmt.Errorf("%w: symbol %q not in alphabet %q", ErrInvalidGuess, guess[i], e.alphabet)
		}
	}
	return nil
}

// Evaluate scores guess against code.
//
// Pass one counts exact position matches as black pegs and consumes both
// positions. Pass two counts white pegs as the per-symbol minimum of the
// unconsumed frequency counts on each side, so duplicates on either side are
// never counted twice.
//
// Precondition: code must satisfy Validate (generated codes always do).
// Postcondition: result.Black + result.White <= Length();
// Evaluate(code, code) yields (Length(), 0).
func (e *Evaluator) Evaluate(code, guess string) (Result, error) {
	if err := e.Validate(guess); err != nil {
		return Result{}, err
	}
	if len(code) != e.length {
		return Result{}, fmt.Errorf("code length %d, want %d", len(code), e.length)
	}

	var res Result
	var codeFreq, guessFreq [256]int

	for i := 0; i < e.length; i++ {
		if code[i] == guess[i] {
			res.Black++
			continue
		}
		codeFreq[code[i]]++
		guessFreq[guess[i]]++
	}

	for i := 0; i < len(e.alphabet); i++ {
		sym := e.alphabet[i]
		res.White += min(codeFreq[sym], guessFreq[sym])
	}

	return res, nil
}
