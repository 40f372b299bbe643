// Command hyperplay-agent runs one HyperPlay agent against the
// "guess the coin" reference Rules Engine (internal/testgame).
//
// Normal operation drives the agent over a line protocol on stdin/stdout
// (grounded on the teacher's UCI scanner loop):
//
//	START <playClockMs> <startClockMs>
//	PLAY <priorMove> <percept...>
//	STOP <priorMove> <percept...>
//	QUIT
//
// priorMove is "-" for no prior move (the first PLAY of a match);
// percept is zero or more whitespace-separated tokens. Each PLAY prints
// the chosen move on its own stdout line.
//
// -selftest runs a fixed number of self-play matches in-process instead,
// with a random Hider/Nature opponent standing in for the controller,
// useful for exercising the agent without wiring up a real game master.
package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/hailam/hyperplay/internal/agent"
	"github.com/hailam/hyperplay/internal/config"
	"github.com/hailam/hyperplay/internal/rules"
	"github.com/hailam/hyperplay/internal/telemetry"
	"github.com/hailam/hyperplay/internal/testgame"
)

func main() {
	configPath := pflag.String("config", "", "per-agent config file (key:value lines); defaults are used if empty")
	logPath := pflag.String("log", "hyperplay-agent.csv", "output log CSV path")
	logMaxMB := pflag.Int("log-max-mb", 10, "rotate the output log after this many megabytes")
	seed := pflag.Int64("seed", time.Now().UnixNano(), "random seed")
	playerName := pflag.String("player-name", "hyperplay-agent", "player_name column in the output log")
	matchID := pflag.String("match-id", "match-1", "match_id column in the output log")
	selftest := pflag.Bool("selftest", false, "run self-play matches in-process instead of reading the line protocol")
	selftestMatches := pflag.Int("selftest-matches", 10, "number of self-play matches to run under -selftest")
	playClockMs := pflag.Int("play-clock-ms", 1000, "play clock, in milliseconds, for -selftest matches")
	pflag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			// Config errors are non-fatal (spec §7): log and keep whatever
			// defaults Load already populated.
			fmt.Fprintf(os.Stderr, "config: %v (using defaults)\n", err)
		}
		cfg = loaded
	}

	out := telemetry.NewWriter(*logPath, *logMaxMB)
	defer out.Close()
	zlog := telemetry.NewLogger(*logPath+".log", *logMaxMB, os.Stderr)

	if *selftest {
		runSelftest(cfg, *seed, *matchID, *playerName, *playClockMs, *selftestMatches, out, &zlog)
		return
	}
	runProtocol(cfg, *seed, *matchID, *playerName, out, &zlog)
}

// csvLogger adapts internal/agent.Logger to the output log plus a
// structured zerolog event per turn (spec §6).
type csvLogger struct {
	out          *telemetry.Writer
	zlog         *zerolog.Logger
	matchID      string
	gameName     string
	role         string
	playerName   string
	samples      func() uint64
	rolloutDepth func() int
	updateMS     func() int64
	selectMS     func() int64
	wasIllegal   func() bool
}

func (l *csvLogger) TurnStarted(step int, populationSize int) {
	l.zlog.Debug().Int("step", step).Int("population_size", populationSize).Msg("turn started")
}

func (l *csvLogger) TurnFinished(step int, chosenMove rules.Move, populationSize int, forwardCalls int) {
	move := ""
	if chosenMove != nil {
		move = chosenMove.String()
	}
	rec := telemetry.TurnRecord{
		MatchID:        l.matchID,
		GameName:       l.gameName,
		Step:           step,
		Role:           l.role,
		PlayerName:     l.playerName,
		PopulationSize: populationSize,
		ChosenMove:     move,
		ForwardCalls:   forwardCalls,
	}
	if l.samples != nil {
		rec.SimulationsRun = int(l.samples())
	}
	if l.rolloutDepth != nil {
		rec.RolloutDepth = l.rolloutDepth()
	}
	if l.updateMS != nil {
		rec.UpdateMS = l.updateMS()
	}
	if l.selectMS != nil {
		rec.SelectMS = l.selectMS()
	}
	if l.wasIllegal != nil {
		rec.WasIllegalLastTurn = l.wasIllegal()
	}
	if err := l.out.Append(rec); err != nil {
		fmt.Fprintf(os.Stderr, "output log: %v\n", err)
	}
	telemetry.LogTurn(l.zlog, rec)
}

// runProtocol drives one Agent over stdin/stdout until QUIT or EOF.
func runProtocol(cfg config.Config, seed int64, matchID, playerName string, out *telemetry.Writer, zlog *zerolog.Logger) {
	eng := testgame.New(seed)
	var a *agent.Agent
	var log *csvLogger

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "QUIT":
			return
		case "START":
			playClock := parseMillis(fields, 1, 1000)
			startClock := parseMillis(fields, 2, 0)
			log = &csvLogger{out: out, zlog: zlog, matchID: matchID, gameName: "guess-the-coin", role: string(testgame.Guesser), playerName: playerName}
			a = agent.NewAgent(cfg, eng, testgame.Guesser, seed, log)
			log.samples = a.Samples
			log.rolloutDepth = a.RolloutDepth
			log.updateMS = a.UpdateMS
			log.selectMS = a.SelectMS
			log.wasIllegal = a.WasIllegalLastTurn
			a.GameStart(eng, testgame.Guesser, playClock, startClock)
		case "PLAY":
			if a == nil {
				fmt.Fprintln(os.Stderr, "PLAY before START, ignoring")
				continue
			}
			priorMove, percept := parsePlayArgs(fields[1:])
			move := a.GamePlay(percept, priorMove)
			fmt.Println(moveString(move))
		case "STOP":
			if a == nil {
				continue
			}
			priorMove, percept := parsePlayArgs(fields[1:])
			a.GameStop(percept, priorMove)
			a = nil
		default:
			fmt.Fprintf(os.Stderr, "unrecognised command %q\n", fields[0])
		}
	}
}

func parseMillis(fields []string, idx int, def int) time.Duration {
	if idx >= len(fields) {
		return time.Duration(def) * time.Millisecond
	}
	n, err := strconv.Atoi(fields[idx])
	if err != nil {
		return time.Duration(def) * time.Millisecond
	}
	return time.Duration(n) * time.Millisecond
}

func parsePlayArgs(fields []string) (rules.Move, rules.Percept) {
	if len(fields) == 0 {
		return nil, nil
	}
	var priorMove rules.Move
	if fields[0] != "-" {
		priorMove = testgame.Move(fields[0])
	}
	var percept rules.Percept
	for _, tok := range fields[1:] {
		percept = append(percept, tok)
	}
	return priorMove, percept
}

func moveString(m rules.Move) string {
	if m == nil {
		return "-"
	}
	return m.String()
}

// runSelftest plays n full matches against a random Hider/Nature
// opponent, driving the Agent directly rather than through the line
// protocol (internal/testgame's own doc comment calls this mode out).
func runSelftest(cfg config.Config, seed int64, matchID, playerName string, playClockMs, n int, out *telemetry.Writer, zlog *zerolog.Logger) {
	playClock := time.Duration(playClockMs) * time.Millisecond
	opponent := rand.New(rand.NewSource(seed ^ 0x5a5a5a5a))

	wins := 0
	for i := 0; i < n; i++ {
		eng := testgame.New(seed + int64(i))
		log := &csvLogger{out: out, zlog: zlog, matchID: fmt.Sprintf("%s-%d", matchID, i), gameName: "guess-the-coin", role: string(testgame.Guesser), playerName: playerName}
		a := agent.NewAgent(cfg, eng, testgame.Guesser, seed+int64(i), log)
		log.samples = a.Samples
		log.rolloutDepth = a.RolloutDepth
		log.updateMS = a.UpdateMS
		log.selectMS = a.SelectMS
		log.wasIllegal = a.WasIllegalLastTurn
		a.GameStart(eng, testgame.Guesser, playClock, playClock)

		st := eng.InitialState()
		percept := eng.SeesTerms(st, testgame.Guesser, nil)
		move := a.GamePlay(percept, nil)

		hiderMoves := []testgame.Move{testgame.Heads, testgame.Tails}
		natureMoves := []testgame.Move{testgame.RollLow, testgame.RollHigh}
		deal := testgame.JointMove(hiderMoves[opponent.Intn(2)], natureMoves[opponent.Intn(2)])
		st = eng.Successor(st, deal)
		percept = eng.SeesTerms(st, testgame.Guesser, deal)

		guess := a.GamePlay(percept, move)
		final := eng.Successor(st, testgame.GuessJointMove(guess.(testgame.Move)))
		a.GameStop(eng.SeesTerms(final, testgame.Guesser, testgame.GuessJointMove(guess.(testgame.Move))), guess)

		if eng.GoalValue(final, testgame.Guesser) > 0 {
			wins++
		}
	}
	fmt.Printf("selftest: %d/%d matches won\n", wins, n)
}
