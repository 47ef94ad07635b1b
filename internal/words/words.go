// apps/go-server/internal/words/words.go
//
// Word list management for rooms.
//
// Responsibilities:
//   - Load answer and accepted-guess lists from environment-provided files or fall back to embedded assets.
//   - Maintain sets for quick lookups (answers only, answers∪guesses).
//   - Pick distinct secret words for a room's rounds.
//
// Word Lists:
//   - "answers": canonical solutions (exactly 5 lowercase letters).
//   - "allowed": valid guesses (always includes answers).
//
// Loading behavior (Load):
//  1. If WORDS_ANSWERS_FILE and WORDS_ALLOWED_FILE are both set,
//     load answers from the first and allowed guesses from the second.
//  2. If only WORDS_ALLOWED_FILE is set,
//     load that file and use it for both answers and allowed guesses.
//  3. If neither is set, use the lists embedded in the assets package.
//
// Constraints:
//   - Words must be 5 alphabetic letters (a–z).
//   - Lists are normalized to lowercase and de-duplicated.
package words

import (
	"bufio"
	"crypto/rand"
	"errors"
	"math/big"
	"os"
	"strings"

	"github.com/robalobadob/wordlecup/apps/go-server/assets"
)

// WordLength is the only word length the game supports.
const WordLength = 5

// ErrEmptyAnswers is returned when no usable answer word was loaded.
var ErrEmptyAnswers = errors.New("words: answers list is empty")

// Lexicon holds an immutable answer list and accepted-guess set.
// It is safe for concurrent use.
type Lexicon struct {
	answers    []string            // canonical answers, load order
	answersSet map[string]struct{} // answers only
	allowedSet map[string]struct{} // answers ∪ guesses
}

// New builds a Lexicon from raw lists. Invalid entries are dropped and
// every answer is implicitly accepted as a guess.
func New(answerList, allowedList []string) *Lexicon {
	ans := normalize(answerList)
	lx := &Lexicon{
		answers:    ans,
		answersSet: toSet(ans),
		allowedSet: toSet(ans),
	}
	for _, w := range normalize(allowedList) {
		lx.allowedSet[w] = struct{}{}
	}
	return lx
}

// Load reads the lists according to the environment (see package doc).
func Load() (*Lexicon, error) {
	var ansList, allowList []string

	answersPath := os.Getenv("WORDS_ANSWERS_FILE")
	allowedPath := os.Getenv("WORDS_ALLOWED_FILE")

	var err error
	switch {
	case answersPath != "" && allowedPath != "":
		if ansList, err = readWordFile(answersPath); err != nil {
			return nil, err
		}
		if allowList, err = readWordFile(allowedPath); err != nil {
			return nil, err
		}

	case answersPath == "" && allowedPath != "":
		if allowList, err = readWordFile(allowedPath); err != nil {
			return nil, err
		}
		ansList = allowList

	default:
		if ansList, err = assets.AnswersList(); err != nil {
			return nil, err
		}
		if allowList, err = assets.AllowedList(); err != nil {
			return nil, err
		}
	}

	lx := New(ansList, allowList)
	if len(lx.answers) == 0 {
		return nil, ErrEmptyAnswers
	}
	return lx, nil
}

// readWordFile loads one word per line from a file.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out, sc.Err()
}

// normalize lowercases, trims, filters to valid words and drops duplicates
// while keeping the first occurrence order.
func normalize(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, line := range list {
		w := strings.TrimSpace(strings.ToLower(line))
		if len(w) != WordLength || !IsAlpha(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// toSet converts a list of strings into a lookup set.
func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, w := range list {
		m[w] = struct{}{}
	}
	return m
}

// IsAlpha reports whether s is all lowercase ASCII letters.
func IsAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// RandomAnswers returns n answers chosen with crypto/rand. Words are distinct
// while the list is large enough; after that the list is reused.
func (lx *Lexicon) RandomAnswers(n int) []string {
	if n <= 0 || len(lx.answers) == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for len(out) < n {
		// Partial Fisher–Yates; one pass per exhaustion of the list.
		pool := append([]string(nil), lx.answers...)
		for i := 0; i < len(pool) && len(out) < n; i++ {
			j := i + randIntn(len(pool)-i)
			pool[i], pool[j] = pool[j], pool[i]
			out = append(out, pool[i])
		}
	}
	return out
}

func randIntn(n int) int {
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(nBig.Int64())
}

// IsAllowed reports whether w is a valid guess (answers ∪ guesses).
func (lx *Lexicon) IsAllowed(w string) bool {
	_, ok := lx.allowedSet[strings.ToLower(w)]
	return ok
}

// IsAnswer reports whether w is an answer word.
func (lx *Lexicon) IsAnswer(w string) bool {
	_, ok := lx.answersSet[strings.ToLower(w)]
	return ok
}

// Stats returns counts of loaded words: (answers, allowed).
func (lx *Lexicon) Stats() (answersCount int, allowedCount int) {
	return len(lx.answers), len(lx.allowedSet)
}
