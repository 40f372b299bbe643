package telemetry

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func TestWriterAppendsHeaderThenRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.csv")
	w := NewWriter(path, 10)
	defer w.Close()

	rec := TurnRecord{
		MatchID:        "m1",
		GameName:       "guess-the-coin",
		Step:           1,
		Role:           "guesser",
		PlayerName:     "test",
		PopulationSize: 4,
		RolloutDepth:   3,
		UpdateMS:       12,
		SelectMS:       34,
		ChosenMove:     "guess_heads",
		SimulationsRun: 100,
		ForwardCalls:   6,
	}
	if err := w.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if rows[0][0] != "match_id" {
		t.Errorf("header[0] = %q, want match_id", rows[0][0])
	}
	if rows[1][0] != "m1" || rows[1][9] != "guess_heads" {
		t.Errorf("unexpected row contents: %v", rows[1])
	}
}
