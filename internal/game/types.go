// apps/go-server/internal/game/types.go
//
// Core type definitions for guess evaluation.
// Defines:
//   - Status: per-letter result of a guess (correct/present/absent).
//   - LetterResult: a guessed letter paired with its Status.
//   - Dictionary: accepted-word lookup used to reject unknown guesses.

package game

// Status represents the evaluation result for a single letter in a guess.
// Possible values:
//   - "CORRECT": letter is in the secret at the same position.
//   - "PRESENT": letter occurs in the secret at another, unconsumed position.
//   - "ABSENT":  letter is not in the secret, or all its occurrences were consumed.
type Status string

const (
	StatusCorrect Status = "CORRECT"
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
)

// LetterResult is one tile of an evaluated guess.
type LetterResult struct {
	Letter string `json:"letter"`
	Status Status `json:"status"`
}

// Dictionary reports whether a word is an accepted guess.
// *words.Lexicon satisfies it.
type Dictionary interface {
	IsAllowed(word string) bool
}
