package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/words"
)

func statuses(r []LetterResult) []Status {
	out := make([]Status, len(r))
	for i, x := range r {
		out[i] = x.Status
	}
	return out
}

const (
	C = StatusCorrect
	P = StatusPresent
	A = StatusAbsent
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name   string
		secret string
		guess  string
		want   []Status
	}{
		{"exact", "crane", "crane", []Status{C, C, C, C, C}},
		{"rotation", "abcde", "eabcd", []Status{P, P, P, P, P}},
		{"nothing shared", "crane", "pizzy", []Status{A, A, A, A, A}},
		// counts {a:2,b:3}; matches at 0 and 3 leave {a:1,b:2};
		// pass two credits b@1 and a@2, a@4 finds no a left.
		{"duplicates in both", "aabbb", "ababa", []Status{C, P, P, C, A}},
		{"correct beats earlier duplicate", "abbey", "babes", []Status{P, P, C, C, A}},
		{"single secret letter guessed twice", "pizza", "ppppp", []Status{C, A, A, A, A}},
		{"later exact match consumes only copy", "later", "eeeer", []Status{A, A, A, C, C}},
		{"case and spaces", "CRANE", " Crate ", []Status{C, C, C, A, C}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Evaluate(tc.secret, tc.guess, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, statuses(got))
		})
	}
}

func TestEvaluateLetters(t *testing.T) {
	got, err := Evaluate("crane", "TRACE", nil)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "t", got[0].Letter)
	assert.Equal(t, "e", got[4].Letter)
}

func TestEvaluateIsPure(t *testing.T) {
	first, err := Evaluate("aabbb", "ababa", nil)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := Evaluate("aabbb", "ababa", nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEvaluateRejects(t *testing.T) {
	dict := words.New([]string{"crane"}, []string{"slate"})

	for _, guess := range []string{"", "cran", "cranes", "cr4ne", "cr ne", "ñandu"} {
		_, err := Evaluate("crane", guess, dict)
		assert.ErrorIs(t, err, ErrInvalidGuess, guess)
	}

	_, err := Evaluate("crane", "zzzzz", dict)
	assert.ErrorIs(t, err, ErrInvalidGuess)

	_, err = Evaluate("crane", "slate", dict)
	assert.NoError(t, err)
}

func TestAllCorrect(t *testing.T) {
	r, _ := Evaluate("crane", "crane", nil)
	assert.True(t, AllCorrect(r))
	r, _ = Evaluate("crane", "crate", nil)
	assert.False(t, AllCorrect(r))
	assert.False(t, AllCorrect(nil))
}
