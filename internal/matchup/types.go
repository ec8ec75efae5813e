// Package matchup holds the data model shared by the tournament
// orchestrator (internal/arena) and the leaderboard consolidator
// (internal/leaderboard): the plan for one game, its recorded outcome, its
// derived score, and the run-level bundle that gets persisted to disk.
package matchup

import "time"

// Result is the terminal state of one game.
type Result string

const (
	ResultWin     Result = "win"
	ResultDraw    Result = "draw"
	ResultLoss    Result = "loss"
	ResultTimeout Result = "timeout"
	ResultCrash   Result = "crash"
)

// Opponent describes one rung of the elimination ladder: a fixed reference
// bot, its point weight, and a human-readable difficulty tier. The default
// ladder mirrors the six-opponent v2.0 tournament.
type Opponent struct {
	Name       string  `yaml:"name" json:"name"`
	Class      string  `yaml:"class" json:"class"`
	Weight     float64 `yaml:"weight" json:"weight"`
	Difficulty string  `yaml:"difficulty" json:"difficulty"`
}

// DefaultLadder is the reference opponent ordering used when a config does
// not declare its own, grounded on original_source/tournament/run_tournament.py.
func DefaultLadder() []Opponent {
	return []Opponent{
		{Name: "RandomBiasedAI", Class: "ai.RandomBiasedAI", Weight: 10, Difficulty: "easy"},
		{Name: "HeavyRush", Class: "ai.abstraction.HeavyRush", Weight: 20, Difficulty: "medium-hard"},
		{Name: "LightRush", Class: "ai.abstraction.LightRush", Weight: 15, Difficulty: "medium"},
		{Name: "WorkerRush", Class: "ai.abstraction.WorkerRush", Weight: 15, Difficulty: "medium"},
		{Name: "Tiamat", Class: "ai.Tiamat", Weight: 20, Difficulty: "hard"},
		{Name: "CoacAI", Class: "ai.CoacAI", Weight: 20, Difficulty: "hard"},
	}
}

// Matchup is a single planned game. Immutable once the orchestrator has
// scheduled it.
type Matchup struct {
	AgentName    string `json:"agent_name"`
	Opponent     Opponent `json:"opponent"`
	Map          string `json:"map"`
	TickCap      int    `json:"tick_cap"`
	BudgetSecs   int    `json:"budget_secs"`
	GameIndex    int    `json:"game_index"`
	OpponentRank int    `json:"opponent_rank"`
}

// ID is a stable identifier for logs and resumability keys.
func (m Matchup) ID() string {
	return m.AgentName + "__" + m.Opponent.Name + "__g" + itoa(m.GameIndex)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// GameOutcome is what a matchup's child process reported.
type GameOutcome struct {
	Result      Result `json:"result"`
	Ticks       int    `json:"ticks"`
	WinnerSide  int    `json:"winner_side,omitempty"`
	CrashReason string `json:"crash_reason,omitempty"`
}

// Score is the derived point value of one matchup.
type Score struct {
	GameScore      float64 `json:"game_score"`
	WeightedPoints float64 `json:"weighted_points"`
}

// OpponentRecord tallies one agent's results against one ladder opponent.
type OpponentRecord struct {
	Wins           int     `json:"wins"`
	Draws          int     `json:"draws"`
	Losses         int     `json:"losses"`
	AvgGameScore   float64 `json:"avg_game_score"`
	WeightedPoints float64 `json:"weighted_points"`
}

// HeadToHeadResult records one supplementary bracket game between two
// contestant agents; excluded from elimination scoring.
type HeadToHeadResult struct {
	AgentA  string `json:"agent_a"`
	AgentB  string `json:"agent_b"`
	Outcome GameOutcome `json:"outcome"`
}

// AgentEntry is one row of a BenchmarkRun: everything known about a single
// agent's pass through the ladder.
type AgentEntry struct {
	DisplayName        string                    `json:"display_name"`
	AgentArchitecture  string                    `json:"agent_architecture"`
	Opponents          map[string]OpponentRecord `json:"opponents"`
	Score              float64                   `json:"score"`
	Grade              string                    `json:"grade"`
	EliminatedAt       string                    `json:"eliminated_at"`
}

// BenchmarkRun is the full persisted result of one tournament invocation.
type BenchmarkRun struct {
	ArenaVersion     string             `json:"arena_version"`
	Format           string             `json:"format"`
	Generated        time.Time          `json:"generated"`
	Map              string             `json:"map"`
	TickCap          int                `json:"tick_cap"`
	GamesPerMatchup  int                `json:"games_per_matchup"`
	Entries          []AgentEntry       `json:"entries"`
	HeadToHead       []HeadToHeadResult `json:"head_to_head,omitempty"`
}
