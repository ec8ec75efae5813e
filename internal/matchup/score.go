package matchup

// Score turns one GameOutcome into a game score and its weighted point
// contribution. Grounded on original_source/benchmark_arena.py's
// _calculate_score: a win pays 1.0 plus an efficiency bonus for finishing
// well inside the tick cap, a draw pays a flat 0.5, anything else pays 0.
func ScoreOutcome(outcome GameOutcome, tickCap int, weight float64) Score {
	game := gameScore(outcome, tickCap)
	return Score{
		GameScore:      game,
		WeightedPoints: game * weight,
	}
}

func gameScore(outcome GameOutcome, tickCap int) float64 {
	switch outcome.Result {
	case ResultWin:
		score := 1.0
		if tickCap > 0 {
			frac := float64(outcome.Ticks) / float64(tickCap)
			switch {
			case frac < 0.5:
				score += 0.2
			case frac < 0.75:
				score += 0.1
			}
		}
		return score
	case ResultDraw:
		return 0.5
	default: // loss, timeout, crash
		return 0.0
	}
}

// GradeBand converts a 0-100 benchmark score into a letter grade.
func GradeBand(score float64) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}

// RunLadder plays outcomes (already computed by the caller, one per ladder
// opponent, in ladder order) into an AgentEntry under single-elimination
// rules: the agent stops at its first non-win against the next opponent.
// gamesPerMatchup>1 outcomes for the same opponent are averaged into one
// OpponentRecord and the opponent counts as "won" only on majority win.
func RunLadder(displayName, architecture string, ladder []Opponent, tickCap int, outcomesByOpponent map[string][]GameOutcome) AgentEntry {
	entry := AgentEntry{
		DisplayName:       displayName,
		AgentArchitecture: architecture,
		Opponents:         map[string]OpponentRecord{},
	}

	var total float64
	eliminated := ""
	for _, opp := range ladder {
		outcomes, ok := outcomesByOpponent[opp.Name]
		if !ok || len(outcomes) == 0 {
			break
		}

		rec := OpponentRecord{}
		var sumScore, sumWeighted float64
		wins := 0
		for _, o := range outcomes {
			s := ScoreOutcome(o, tickCap, opp.Weight)
			sumScore += s.GameScore
			sumWeighted += s.WeightedPoints
			switch o.Result {
			case ResultWin:
				rec.Wins++
				wins++
			case ResultDraw:
				rec.Draws++
			default:
				rec.Losses++
			}
		}
		n := len(outcomes)
		rec.AvgGameScore = sumScore / float64(n)
		rec.WeightedPoints = sumWeighted / float64(n)
		entry.Opponents[opp.Name] = rec
		total += rec.WeightedPoints

		majorityWin := wins*2 > n
		if !majorityWin {
			eliminated = opp.Name
			break
		}
	}

	entry.Score = total
	entry.Grade = GradeBand(total)
	if eliminated == "" {
		entry.EliminatedAt = "cleared all"
	} else {
		entry.EliminatedAt = eliminated
	}
	return entry
}
