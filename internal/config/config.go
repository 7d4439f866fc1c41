// Package config holds the engine's tunable options and the UCI
// setoption dispatch that mutates them. It mirrors the switch the
// teacher's UCI handler used inline, pulled out so the option set and
// its validation rules live in one place and can be unit tested without
// a UCI loop.
package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config holds every UCI-tunable engine option, plus the per-technique
// selective-search toggles the specification asks to be independently
// controllable.
type Config struct {
	HashMB       int
	MultiPV      int
	MoveOverhead int // milliseconds
	Contempt     int // centipawns
	OwnBook      bool
	BookPath     string

	NullMove          bool
	LateMoveReduction bool
	FutilityPruning   bool
	Aspiration        bool

	DebugLogging bool
}

// Default returns the configuration matching the engine's shipped
// defaults.
func Default() *Config {
	return &Config{
		HashMB:            64,
		MultiPV:           1,
		MoveOverhead:      30,
		Contempt:          0,
		OwnBook:           false,
		NullMove:          true,
		LateMoveReduction: true,
		FutilityPruning:   true,
		Aspiration:        true,
	}
}

// ApplyOption validates and applies a single UCI "setoption" name/value
// pair. name is matched case-insensitively, following UCI convention.
func (c *Config) ApplyOption(name, value string) error {
	switch strings.ToLower(name) {
	case "hash":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("hash: %w", err)
		}
		if n < 1 || n > 1024 {
			return fmt.Errorf("hash: %d out of range [1,1024]", n)
		}
		c.HashMB = n
	case "multipv":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("multipv: %w", err)
		}
		if n < 1 {
			return fmt.Errorf("multipv: %d must be >= 1", n)
		}
		c.MultiPV = n
	case "move overhead":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("move overhead: %w", err)
		}
		if n < 0 {
			return fmt.Errorf("move overhead: %d must be >= 0", n)
		}
		c.MoveOverhead = n
	case "contempt":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("contempt: %w", err)
		}
		c.Contempt = n
	case "ownbook":
		c.OwnBook = strings.EqualFold(value, "true")
	case "bookfile":
		c.BookPath = value
	case "nullmove":
		c.NullMove = strings.EqualFold(value, "true")
	case "latemovereduction", "lmr":
		c.LateMoveReduction = strings.EqualFold(value, "true")
	case "futilitypruning":
		c.FutilityPruning = strings.EqualFold(value, "true")
	case "aspirationwindows":
		c.Aspiration = strings.EqualFold(value, "true")
	case "debug":
		c.DebugLogging = strings.EqualFold(value, "true")
	default:
		return fmt.Errorf("unknown option %q", name)
	}
	return nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.HashMB < 1 || c.HashMB > 1024 {
		return fmt.Errorf("hash size %d out of range [1,1024]", c.HashMB)
	}
	if c.MultiPV < 1 {
		return fmt.Errorf("multipv %d must be >= 1", c.MultiPV)
	}
	if c.MoveOverhead < 0 {
		return fmt.Errorf("move overhead %d must be >= 0", c.MoveOverhead)
	}
	return nil
}

// Options lists every option in UCI "option name ... type ..." form, in
// the order handleUCI should print them.
func (c *Config) Options() []string {
	return []string{
		"option name Hash type spin default 64 min 1 max 1024",
		"option name MultiPV type spin default 1 min 1 max 256",
		"option name Move Overhead type spin default 30 min 0 max 5000",
		"option name Contempt type spin default 0 min -100 max 100",
		"option name OwnBook type check default false",
		"option name BookFile type string default <empty>",
		"option name NullMove type check default true",
		"option name LateMoveReduction type check default true",
		"option name FutilityPruning type check default true",
		"option name AspirationWindows type check default true",
		"option name Debug type check default false",
	}
}
