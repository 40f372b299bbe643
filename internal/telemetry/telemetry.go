// Package telemetry implements the per-move output log and structured
// logging setup (spec §6): one append-only CSV row per move, and a
// parallel zerolog event carrying the same fields for live observation.
package telemetry

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TurnRecord is one row of the output log, matching spec §6's column
// list exactly.
type TurnRecord struct {
	MatchID            string
	GameName           string
	Step               int
	Role               string
	PlayerName         string
	PopulationSize     int
	RolloutDepth       int
	UpdateMS           int64
	SelectMS           int64
	ChosenMove         string
	WasIllegalLastTurn bool
	SimulationsRun     int
	ForwardCalls       int
}

func (r TurnRecord) columns() []string {
	return []string{
		r.MatchID,
		r.GameName,
		strconv.Itoa(r.Step),
		r.Role,
		r.PlayerName,
		strconv.Itoa(r.PopulationSize),
		strconv.Itoa(r.RolloutDepth),
		strconv.FormatInt(r.UpdateMS, 10),
		strconv.FormatInt(r.SelectMS, 10),
		r.ChosenMove,
		strconv.FormatBool(r.WasIllegalLastTurn),
		strconv.Itoa(r.SimulationsRun),
		strconv.Itoa(r.ForwardCalls),
	}
}

var header = []string{
	"match_id", "game_name", "step", "role", "player_name",
	"population_size", "rollout_depth", "update_ms", "select_ms",
	"chosen_move", "was_illegal_last_turn", "simulations_run", "forward_calls",
}

// Writer appends TurnRecords to a rotated CSV file.
type Writer struct {
	rotator *lumberjack.Logger
	csv     *csv.Writer
	wrote   bool
}

// NewWriter opens (creating if necessary) the CSV log at path, rotated
// by lumberjack once it exceeds maxSizeMB.
func NewWriter(path string, maxSizeMB int) *Writer {
	rotator := &lumberjack.Logger{
		Filename: path,
		MaxSize:  maxSizeMB,
		Compress: true,
	}
	return &Writer{rotator: rotator, csv: csv.NewWriter(rotator)}
}

// Append writes one row, flushing immediately so a crash doesn't lose
// the turn that already completed.
func (w *Writer) Append(r TurnRecord) error {
	if !w.wrote {
		if err := w.csv.Write(header); err != nil {
			return err
		}
		w.wrote = true
	}
	if err := w.csv.Write(r.columns()); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

// Close releases the underlying rotated file.
func (w *Writer) Close() error {
	return w.rotator.Close()
}

// NewLogger builds a zerolog.Logger that writes structured per-turn
// events to a lumberjack-rotated file at path and to every writer in
// extra (cmd/hyperplay-agent passes stderr for interactive use).
func NewLogger(path string, maxSizeMB int, extra ...io.Writer) zerolog.Logger {
	rotator := &lumberjack.Logger{
		Filename: path,
		MaxSize:  maxSizeMB,
		Compress: true,
	}
	writers := append([]io.Writer{rotator}, extra...)
	return zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
}

// LogTurn emits r as a structured zerolog event, mirroring the CSV row
// for live tailing (spec §6's output log plus the ambient structured
// logging every component otherwise uses).
func LogTurn(log *zerolog.Logger, r TurnRecord) {
	log.Info().
		Str("match_id", r.MatchID).
		Str("game_name", r.GameName).
		Int("step", r.Step).
		Str("role", r.Role).
		Str("player_name", r.PlayerName).
		Int("population_size", r.PopulationSize).
		Int("rollout_depth", r.RolloutDepth).
		Int64("update_ms", r.UpdateMS).
		Int64("select_ms", r.SelectMS).
		Str("chosen_move", r.ChosenMove).
		Bool("was_illegal_last_turn", r.WasIllegalLastTurn).
		Int("simulations_run", r.SimulationsRun).
		Int("forward_calls", r.ForwardCalls).
		Msg("turn")
}
