// apps/go-server/internal/game/engine.go
//
// Guess evaluation for room rounds.
// Responsibilities:
//   - Validate guesses (length, alphabetic, accepted list).
//   - Colour guesses using the classic two‑pass Wordle algorithm.
//
// Notes:
//   - Evaluation is a pure function of (secret, guess); no state is kept here.
//   - The accepted list is an external collaborator passed in as a Dictionary.
package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/words"
)

// ErrInvalidGuess is returned for malformed or unrecognized words.
var ErrInvalidGuess = errors.New("invalid guess")

// Normalize lowercases and trims a submitted word.
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// Validate checks that guess is a normalized five-letter word known to dict.
// A nil dict skips the dictionary lookup.
func Validate(guess string, dict Dictionary) error {
	if len(guess) != words.WordLength || !words.IsAlpha(guess) {
		return fmt.Errorf("%w: must be exactly %d letters a–z", ErrInvalidGuess, words.WordLength)
	}
	if dict != nil && !dict.IsAllowed(guess) {
		return fmt.Errorf("%w: %q is not in the word list", ErrInvalidGuess, guess)
	}
	return nil
}

// Evaluate validates guess and colours it against secret.
func Evaluate(secret, guess string, dict Dictionary) ([]LetterResult, error) {
	secret, guess = Normalize(secret), Normalize(guess)
	if err := Validate(guess, dict); err != nil {
		return nil, err
	}
	if len(secret) != len(guess) {
		return nil, fmt.Errorf("%w: secret has %d letters", ErrInvalidGuess, len(secret))
	}

	marks := mark(secret, guess)
	out := make([]LetterResult, len(marks))
	for i, m := range marks {
		out[i] = LetterResult{Letter: guess[i : i+1], Status: m}
	}
	return out, nil
}

// mark implements the standard Wordle two‑pass algorithm.
//
// Pass 1:
//   - Count every secret letter.
//   - Mark exact matches CORRECT and consume one count each.
//
// Pass 2:
//   - Left to right over non-CORRECT tiles: PRESENT while the letter still
//     has remaining count (consuming it), otherwise ABSENT.
//
// Exact matches therefore always win over earlier misplaced duplicates.
func mark(secret, guess string) []Status {
	n := len(guess)
	res := make([]Status, n)

	var counts [26]int
	for i := 0; i < n; i++ {
		counts[idx(secret[i])]++
		res[i] = StatusAbsent
	}

	for i := 0; i < n; i++ {
		if guess[i] == secret[i] {
			res[i] = StatusCorrect
			counts[idx(guess[i])]--
		}
	}

	for i := 0; i < n; i++ {
		if res[i] == StatusCorrect {
			continue
		}
		j := idx(guess[i])
		if counts[j] > 0 {
			res[i] = StatusPresent
			counts[j]--
		}
	}
	return res
}

// idx maps a lowercase ASCII letter to 0..25.
// Inputs are validated to a–z before reaching here.
func idx(b byte) int { return int(b - 'a') }

// AllCorrect reports whether every tile is CORRECT.
func AllCorrect(r []LetterResult) bool {
	if len(r) == 0 {
		return false
	}
	for _, x := range r {
		if x.Status != StatusCorrect {
			return false
		}
	}
	return true
}
