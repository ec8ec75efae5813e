// Package config loads the YAML plan that drives an arena run: which
// agents to benchmark, the opponent ladder, maps, tick caps, and the LLM
// backend each agent talks to. Kept in a fail-fast, load-then-validate
// shape: Load reads, unmarshals, applies defaults, then validates.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root of an arena.yaml plan.
type Config struct {
	Agents          []Agent    `yaml:"agents"`
	Opponents       []Opponent `yaml:"opponents"`
	Map             string     `yaml:"map"`
	Image           string     `yaml:"image"`
	TickCap         int        `yaml:"tick_cap"`
	BudgetSeconds   int        `yaml:"budget_seconds"`
	GamesPerMatchup int        `yaml:"games_per_matchup"`
	Parallel        int        `yaml:"parallel"`
	LLM             LLM        `yaml:"llm"`
	Results         Results    `yaml:"results"`
}

// Agent is one benchmarked contestant: a name, an architecture tag
// ("mcts", "hybrid", or any external/reference string), and optional
// per-agent LLM overrides.
type Agent struct {
	Name         string `yaml:"name"`
	Architecture string `yaml:"architecture"`
	Class        string `yaml:"class"`
	ModelName    string `yaml:"model_name"`
	ModelHost    string `yaml:"model_host"`
}

// Opponent mirrors matchup.Opponent in YAML form so a plan can override the
// default ladder.
type Opponent struct {
	Name       string  `yaml:"name"`
	Class      string  `yaml:"class"`
	Weight     float64 `yaml:"weight"`
	Difficulty string  `yaml:"difficulty"`
}

// LLM holds plan-wide LLM backend settings, defaulted and validated by Load.
// The orchestrator does not read them: each matchup child receives only its
// own agent's model name and model host.
type LLM struct {
	Backend          string `yaml:"backend"` // "local" or "proxy"
	Host             string `yaml:"host"`
	Model            string `yaml:"model"`
	ProxyProvider    string `yaml:"proxy_provider"` // "deepseek", "openai", "openrouter"
	MaxFailures      int    `yaml:"max_failures"`
	PriorCacheTicks  int    `yaml:"prior_cache_ticks"`
	GoalCacheTicks   int    `yaml:"goal_cache_ticks"`
	HybridIntervalTk int    `yaml:"hybrid_interval_ticks"`
}

// Results configures where run artifacts are written.
type Results struct {
	Dir string `yaml:"dir"`
}

// Load reads and validates an arena plan from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.TickCap == 0 {
		cfg.TickCap = 3000
	}
	if cfg.BudgetSeconds == 0 {
		cfg.BudgetSeconds = 600
	}
	if cfg.GamesPerMatchup == 0 {
		cfg.GamesPerMatchup = 1
	}
	if cfg.Parallel == 0 {
		cfg.Parallel = 1
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "arena_results"
	}
	if cfg.Image == "" {
		cfg.Image = "arena/game-runner:latest"
	}
	if cfg.LLM.Backend == "" {
		cfg.LLM.Backend = "local"
	}
	if cfg.LLM.Host == "" {
		cfg.LLM.Host = "http://localhost:11434"
	}
	if cfg.LLM.MaxFailures == 0 {
		cfg.LLM.MaxFailures = 3
	}
	if cfg.LLM.PriorCacheTicks == 0 {
		cfg.LLM.PriorCacheTicks = 300
	}
	if cfg.LLM.GoalCacheTicks == 0 {
		cfg.LLM.GoalCacheTicks = 500
	}
	if cfg.LLM.HybridIntervalTk == 0 {
		cfg.LLM.HybridIntervalTk = 200
	}
}

func validate(cfg *Config) error {
	if len(cfg.Agents) == 0 {
		return fmt.Errorf("no agents defined")
	}
	for i, a := range cfg.Agents {
		if a.Name == "" {
			return fmt.Errorf("agent %d: name is required", i)
		}
		if a.Architecture == "" {
			return fmt.Errorf("agent %q: architecture is required", a.Name)
		}
	}
	if cfg.Map == "" {
		return fmt.Errorf("map is required")
	}
	if cfg.TickCap < 1 {
		return fmt.Errorf("tick_cap must be at least 1")
	}
	if cfg.GamesPerMatchup < 1 {
		return fmt.Errorf("games_per_matchup must be at least 1")
	}
	if cfg.LLM.Backend != "local" && cfg.LLM.Backend != "proxy" {
		return fmt.Errorf("llm.backend must be \"local\" or \"proxy\", got %q", cfg.LLM.Backend)
	}
	return nil
}
