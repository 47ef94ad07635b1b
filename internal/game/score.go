package game

// Round score curve. A win earns a base that shrinks with every extra guess
// plus a bonus that shrinks linearly with elapsed time.
const (
	MaxRoundScore = 1000

	baseFloor  = 100 // win on the last allowed attempt
	baseRange  = 500 // extra base for each attempt saved
	timeBonus  = 400 // full bonus at zero elapsed time
	minAttempt = 1
)

// Score returns the points for one participant's round. Losses score 0.
// The result never exceeds MaxRoundScore, is non-increasing in guessCount
// and non-increasing in timeTakenMillis.
func Score(guessCount, attemptsAllowed int, timeTakenMillis, timeLimitMillis int64, win bool) int {
	if !win || guessCount < minAttempt || attemptsAllowed < minAttempt {
		return 0
	}
	if guessCount > attemptsAllowed {
		guessCount = attemptsAllowed
	}

	base := baseFloor + baseRange*(attemptsAllowed-guessCount)/attemptsAllowed

	bonus := 0
	if timeLimitMillis > 0 {
		elapsed := timeTakenMillis
		if elapsed < 0 {
			elapsed = 0
		}
		if elapsed > timeLimitMillis {
			elapsed = timeLimitMillis
		}
		bonus = int(int64(timeBonus) * (timeLimitMillis - elapsed) / timeLimitMillis)
	}

	total := base + bonus
	if total > MaxRoundScore {
		total = MaxRoundScore
	}
	if total < 0 {
		total = 0
	}
	return total
}
