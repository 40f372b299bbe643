// Package config loads a per-agent configuration file (spec §6): a flat
// list of `key:value` lines. The format is deliberately not a
// structured one (YAML/JSON/TOML), so it is parsed directly rather than
// through a structured-config library.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Config holds the nine recognised keys: eight with spec-mandated
// defaults, plus includeZeroPosterior, the flag for spec §9's open
// question on zero-posterior hypergames.
type Config struct {
	NumHyperGames         int     // population cap
	NumHyperBranches      int     // clones per surviving model per turn
	MaxNumProbes          int     // outer rollout-depth cap
	NumOPProbes           int     // rollouts per joint move for opponent-likelihood expansion
	BacktrackingDepth     int     // max steps a sampler may recede before giving up
	LikelihoodPowerFactor float64 // exponent applied to posterior weight in the Evaluator
	ShouldBranch          bool    // enable clone-branching after first update
	InvPlaytimeFactor     int     // fraction (1/x) of play clock available to state update

	// IncludeZeroPosterior resolves spec §9's open question on whether a
	// zero-posterior hypergame may still contribute to Evaluator
	// rollouts. Defaults to false (excluded), the spec's own recommended
	// default.
	IncludeZeroPosterior bool
}

// Default returns the config with every key at its spec-mandated
// default.
func Default() Config {
	return Config{
		NumHyperGames:         16,
		NumHyperBranches:      16,
		MaxNumProbes:          16,
		NumOPProbes:           8,
		BacktrackingDepth:     1,
		LikelihoodPowerFactor: 1.0,
		ShouldBranch:          false,
		InvPlaytimeFactor:     10,
		IncludeZeroPosterior:  false,
	}
}

// Load reads a key:value config file from path. A missing or malformed
// file is a Config-class error (spec §7): logged by the caller, not
// fatal, and Load always returns usable defaults for any key it could
// not parse.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return cfg, parseInto(&cfg, f)
}

func parseInto(cfg *Config, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	var firstErr error
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("config: line %d: missing ':': %q", lineNo, line)
			}
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if err := setField(cfg, key, value); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("config: line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return firstErr
}

func setField(cfg *Config, key, value string) error {
	switch key {
	case "numHyperGames":
		return setInt(&cfg.NumHyperGames, value)
	case "numHyperBranches":
		return setInt(&cfg.NumHyperBranches, value)
	case "maxNumProbes":
		return setInt(&cfg.MaxNumProbes, value)
	case "numOPProbes":
		return setInt(&cfg.NumOPProbes, value)
	case "backtrackingDepth":
		return setInt(&cfg.BacktrackingDepth, value)
	case "likelihoodPowerFactor":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		cfg.LikelihoodPowerFactor = f
		return nil
	case "shouldBranch":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		cfg.ShouldBranch = b
		return nil
	case "invPlaytimeFactor":
		return setInt(&cfg.InvPlaytimeFactor, value)
	case "includeZeroPosterior":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		cfg.IncludeZeroPosterior = b
		return nil
	default:
		return fmt.Errorf("unrecognised key %q", key)
	}
}

func setInt(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}
