package knowledge

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/kestrel/kestrel/internal/board"
	"github.com/kestrel/kestrel/internal/book"
)

func TestProbeNoSourceWithNothingLoaded(t *testing.T) {
	k := New(nil)
	pos := board.NewPosition()

	move, src := k.Probe(pos)
	if src != NoSource {
		t.Errorf("expected NoSource, got %v", src)
	}
	if move != board.NoMove {
		t.Errorf("expected NoMove, got %s", move.String())
	}
}

func TestProbeEndgameBeforeBook(t *testing.T) {
	// A recognized KR-vs-K position, with a book also loaded and enabled.
	// The endgame recognizer must win regardless of book contents.
	pos, err := board.ParseFEN("8/8/8/4k3/8/8/8/R3K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	b := book.New()
	k := New(b)
	k.SetBookEnabled(true)

	move, src := k.Probe(pos)
	if src != EndgameSource {
		t.Errorf("expected EndgameSource, got %v", src)
	}
	if move == board.NoMove {
		t.Error("expected a suggested move")
	}
}

func TestProbeBookWhenEnabled(t *testing.T) {
	pos := board.NewPosition()
	key := pos.PolyglotHash()

	// e2e4 encoded Polyglot-style, matching internal/book's own tests.
	e2e4 := uint16(4 | (3 << 3) | (4 << 6) | (1 << 9))

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, key)
	binary.Write(&buf, binary.BigEndian, e2e4)
	binary.Write(&buf, binary.BigEndian, uint16(100))
	binary.Write(&buf, binary.BigEndian, uint32(0))

	b, err := book.LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatalf("LoadPolyglotReader: %v", err)
	}

	k := New(b)

	// Disabled by default: no book move even though one is loaded.
	if move, src := k.Probe(pos); src != NoSource || move != board.NoMove {
		t.Errorf("expected no source while disabled, got src=%v move=%s", src, move.String())
	}

	k.SetBookEnabled(true)
	move, src := k.Probe(pos)
	if src != BookSource {
		t.Errorf("expected BookSource, got %v", src)
	}
	if move.From() != board.E2 || move.To() != board.E4 {
		t.Errorf("expected e2e4, got %s", move.String())
	}
}

func TestHasBook(t *testing.T) {
	k := New(nil)
	if k.HasBook() {
		t.Error("expected HasBook false with no book loaded")
	}

	b := book.New()
	k.SetBook(b)
	if k.HasBook() {
		t.Error("expected HasBook false for an empty book")
	}
}
