package config

import (
	"strings"
	"testing"
)

func TestParseIntoOverridesDefaults(t *testing.T) {
	input := `
# a comment line
numHyperGames: 32
likelihoodPowerFactor: 2.5
shouldBranch: true
includeZeroPosterior: true
`
	cfg := Default()
	if err := parseInto(&cfg, strings.NewReader(input)); err != nil {
		t.Fatalf("parseInto: %v", err)
	}
	if cfg.NumHyperGames != 32 {
		t.Errorf("NumHyperGames = %d, want 32", cfg.NumHyperGames)
	}
	if cfg.LikelihoodPowerFactor != 2.5 {
		t.Errorf("LikelihoodPowerFactor = %f, want 2.5", cfg.LikelihoodPowerFactor)
	}
	if !cfg.ShouldBranch {
		t.Errorf("ShouldBranch = false, want true")
	}
	if !cfg.IncludeZeroPosterior {
		t.Errorf("IncludeZeroPosterior = false, want true")
	}
	// Untouched keys keep their defaults.
	if cfg.NumOPProbes != 8 {
		t.Errorf("NumOPProbes = %d, want unchanged default 8", cfg.NumOPProbes)
	}
}

func TestParseIntoReportsFirstErrorButKeepsGoing(t *testing.T) {
	input := "numHyperGames: not-a-number\nnumOPProbes: 4\n"
	cfg := Default()
	err := parseInto(&cfg, strings.NewReader(input))
	if err == nil {
		t.Fatalf("expected an error for the malformed line")
	}
	if cfg.NumOPProbes != 4 {
		t.Errorf("NumOPProbes = %d, want 4 (later valid lines still applied)", cfg.NumOPProbes)
	}
}
