// Package containerrunner spawns one isolated child process per matchup
// using Docker containers for process isolation: create, start, wait,
// kill-on-timeout, tail logs. The child here runs one RTS game and reports
// its outcome via a RESULT line on stdout rather than producing a git diff.
package containerrunner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"
	"github.com/rs/zerolog"

	"github.com/signalnine/arena/internal/arenaerr"
	"github.com/signalnine/arena/internal/matchup"
)

// GameRunOpts describes one matchup's child-process invocation.
type GameRunOpts struct {
	Image        string
	MatchupID    string
	AgentClass   string
	OpponentClass string
	Map          string
	TickCap      int
	ModelHost    string
	ModelName    string
	ModelNameP2  string
	Timeout      time.Duration
	GraceWindow  time.Duration
}

// resultLinePrefix is the fixed marker a well-behaved child prints on
// stdout exactly once, on success.
const resultLinePrefix = "RESULT "

// RunGame launches one containerized game-runner process, waits for it to
// finish (or be killed on timeout), and parses the RESULT line from its
// captured stdout.
func RunGame(ctx context.Context, opts *GameRunOpts, log zerolog.Logger) (matchup.GameOutcome, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return matchup.GameOutcome{}, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	env := []string{
		"AGENT_CLASS=" + opts.AgentClass,
		"OPPONENT_CLASS=" + opts.OpponentClass,
		"MAP=" + opts.Map,
		"TICK_CAP=" + strconv.Itoa(opts.TickCap),
		"MODEL_HOST=" + opts.ModelHost,
		"MODEL_NAME=" + opts.ModelName,
	}
	if opts.ModelNameP2 != "" {
		env = append(env, "MODEL_NAME_P2="+opts.ModelNameP2)
	}

	containerCfg := &container.Config{
		Image:  opts.Image,
		Env:    env,
		Labels: map[string]string{"arena": "true", "matchup": opts.MatchupID},
	}
	hostCfg := &container.HostConfig{}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return matchup.GameOutcome{}, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	start := time.Now()
	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return matchup.GameOutcome{}, fmt.Errorf("starting container: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	waitResult := cli.ContainerWait(timeoutCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})

	for {
		select {
		case err := <-waitResult.Error:
			if err != nil {
				killGraceful(cli, containerID, opts.GraceWindow, log)
				return matchup.GameOutcome{}, &arenaerr.ChildTimeoutError{
					MatchupID: opts.MatchupID,
					BudgetS:   int(opts.Timeout.Seconds()),
				}
			}
		case status := <-waitResult.Result:
			logData := captureLogs(cli, containerID)
			outcome, parseErr := parseResultLine(logData, status.StatusCode)
			if parseErr != nil {
				log.Warn().Str("matchup", opts.MatchupID).Err(parseErr).Msg("child produced no RESULT line")
				return matchup.GameOutcome{}, &arenaerr.ChildCrashError{
					MatchupID: opts.MatchupID,
					ExitCode:  int(status.StatusCode),
					Stderr:    logData,
				}
			}
			log.Debug().Str("matchup", opts.MatchupID).Dur("elapsed", time.Since(start)).Msg("matchup finished")
			return outcome, nil
		}
	}
}

// killGraceful escalates from a graceful SIGTERM to a forced SIGKILL after
// the configured grace window: send the signal, wait, then force-kill.
func killGraceful(cli *client.Client, containerID string, grace time.Duration, log zerolog.Logger) {
	if grace <= 0 {
		grace = 2 * time.Second
	}
	if _, err := cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGTERM"}); err != nil {
		log.Debug().Str("container", containerID).Err(err).Msg("graceful signal failed, forcing kill")
	}
	time.Sleep(grace)
	if _, err := cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"}); err != nil {
		log.Warn().Str("container", containerID).Err(err).Msg("force kill failed")
	}
}

func captureLogs(cli *client.Client, containerID string) string {
	logReader, err := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil || logReader == nil {
		return ""
	}
	defer logReader.Close()
	data, _ := io.ReadAll(logReader)
	return string(data)
}

// parseResultLine scans captured stdout for the RESULT marker and decodes
// it into a GameOutcome. A non-zero exit code with no marker is a crash.
func parseResultLine(output string, exitCode int64) (matchup.GameOutcome, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, resultLinePrefix) {
			continue
		}
		return decodeResultLine(line)
	}
	if exitCode != 0 {
		return matchup.GameOutcome{}, fmt.Errorf("exit code %d with no RESULT line", exitCode)
	}
	return matchup.GameOutcome{}, fmt.Errorf("no RESULT line found in output")
}

// decodeResultLine parses "RESULT winner=<0|1|draw> ticks=<N> agent_side=<0|1>".
func decodeResultLine(line string) (matchup.GameOutcome, error) {
	fields := strings.Fields(strings.TrimPrefix(line, resultLinePrefix))
	kv := map[string]string{}
	for _, f := range fields {
		parts := strings.SplitN(f, "=", 2)
		if len(parts) != 2 {
			continue
		}
		kv[parts[0]] = parts[1]
	}

	ticks, err := strconv.Atoi(kv["ticks"])
	if err != nil {
		return matchup.GameOutcome{}, fmt.Errorf("parsing ticks from %q: %w", line, err)
	}
	agentSide, err := strconv.Atoi(kv["agent_side"])
	if err != nil {
		return matchup.GameOutcome{}, fmt.Errorf("parsing agent_side from %q: %w", line, err)
	}

	winner, ok := kv["winner"]
	if !ok {
		return matchup.GameOutcome{}, fmt.Errorf("missing winner field in %q", line)
	}

	outcome := matchup.GameOutcome{Ticks: ticks}
	switch winner {
	case "draw":
		outcome.Result = matchup.ResultDraw
	case strconv.Itoa(agentSide):
		outcome.Result = matchup.ResultWin
		outcome.WinnerSide = agentSide
	default:
		outcome.Result = matchup.ResultLoss
		w, _ := strconv.Atoi(winner)
		outcome.WinnerSide = w
	}
	return outcome, nil
}
