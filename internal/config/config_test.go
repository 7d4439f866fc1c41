package config

import "testing"

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestApplyOptionHash(t *testing.T) {
	c := Default()

	if err := c.ApplyOption("Hash", "128"); err != nil {
		t.Fatalf("ApplyOption(Hash, 128): %v", err)
	}
	if c.HashMB != 128 {
		t.Errorf("HashMB = %d, want 128", c.HashMB)
	}

	if err := c.ApplyOption("Hash", "0"); err == nil {
		t.Error("expected error for Hash below range")
	}
	if err := c.ApplyOption("Hash", "2048"); err == nil {
		t.Error("expected error for Hash above range")
	}
	if err := c.ApplyOption("Hash", "not-a-number"); err == nil {
		t.Error("expected error for non-numeric Hash value")
	}
}

func TestApplyOptionMultiPV(t *testing.T) {
	c := Default()
	if err := c.ApplyOption("MultiPV", "3"); err != nil {
		t.Fatalf("ApplyOption(MultiPV, 3): %v", err)
	}
	if c.MultiPV != 3 {
		t.Errorf("MultiPV = %d, want 3", c.MultiPV)
	}
	if err := c.ApplyOption("MultiPV", "0"); err == nil {
		t.Error("expected error for MultiPV < 1")
	}
}

func TestApplyOptionMoveOverhead(t *testing.T) {
	c := Default()
	if err := c.ApplyOption("Move Overhead", "50"); err != nil {
		t.Fatalf("ApplyOption(Move Overhead, 50): %v", err)
	}
	if c.MoveOverhead != 50 {
		t.Errorf("MoveOverhead = %d, want 50", c.MoveOverhead)
	}
	if err := c.ApplyOption("Move Overhead", "-1"); err == nil {
		t.Error("expected error for negative move overhead")
	}
}

func TestApplyOptionBooleansAndBookPath(t *testing.T) {
	c := Default()

	if err := c.ApplyOption("OwnBook", "true"); err != nil {
		t.Fatalf("ApplyOption(OwnBook, true): %v", err)
	}
	if !c.OwnBook {
		t.Error("expected OwnBook true")
	}

	if err := c.ApplyOption("BookFile", "/tmp/book.bin"); err != nil {
		t.Fatalf("ApplyOption(BookFile, ...): %v", err)
	}
	if c.BookPath != "/tmp/book.bin" {
		t.Errorf("BookPath = %q, want /tmp/book.bin", c.BookPath)
	}

	if err := c.ApplyOption("NullMove", "false"); err != nil {
		t.Fatalf("ApplyOption(NullMove, false): %v", err)
	}
	if c.NullMove {
		t.Error("expected NullMove false")
	}

	if err := c.ApplyOption("LMR", "false"); err != nil {
		t.Fatalf("ApplyOption(LMR, false): %v", err)
	}
	if c.LateMoveReduction {
		t.Error("expected LateMoveReduction false via lmr alias")
	}
}

func TestApplyOptionUnknown(t *testing.T) {
	c := Default()
	if err := c.ApplyOption("NotARealOption", "1"); err == nil {
		t.Error("expected error for unknown option name")
	}
}

func TestApplyOptionCaseInsensitive(t *testing.T) {
	c := Default()
	if err := c.ApplyOption("hAsH", "32"); err != nil {
		t.Fatalf("ApplyOption is case-insensitive: %v", err)
	}
	if c.HashMB != 32 {
		t.Errorf("HashMB = %d, want 32", c.HashMB)
	}
}

func TestOptionsListing(t *testing.T) {
	c := Default()
	opts := c.Options()
	if len(opts) == 0 {
		t.Fatal("expected a non-empty option listing")
	}
	for _, o := range opts {
		if len(o) == 0 || o[:len("option name")] != "option name" {
			t.Errorf("option line %q does not start with 'option name'", o)
		}
	}
}
