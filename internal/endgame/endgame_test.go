package endgame

import (
	"testing"

	"github.com/kestrel/kestrel/internal/board"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want Signature
		side board.Color
	}{
		{"KR vs K", "8/8/8/4k3/8/8/8/R3K3 w - - 0 1", KingRookVsKing, board.White},
		{"KQ vs K", "8/8/8/4k3/8/8/8/Q3K3 w - - 0 1", KingQueenVsKing, board.White},
		{"KP vs K", "8/8/8/4k3/8/4P3/8/4K3 w - - 0 1", KingPawnVsKing, board.White},
		{"KR vs K, black strong", "4r3/8/8/4k3/8/8/8/4K3 b - - 0 1", KingRookVsKing, board.Black},
		{"not recognized: strong side has rook and bishop", "8/8/8/4k3/8/8/8/R3KB2 w - - 0 1", None, board.NoColor},
		{"not recognized: starting position", board.StartFEN, None, board.NoColor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := board.ParseFEN(tt.fen)
			if err != nil {
				t.Fatalf("ParseFEN: %v", err)
			}
			sig, side, ok := Classify(pos)
			if tt.want == None {
				if ok {
					t.Fatalf("expected unrecognized, got sig=%v side=%v", sig, side)
				}
				return
			}
			if !ok {
				t.Fatal("expected recognized signature")
			}
			if sig != tt.want {
				t.Errorf("signature = %v, want %v", sig, tt.want)
			}
			if side != tt.side {
				t.Errorf("strong side = %v, want %v", side, tt.side)
			}
		})
	}
}

func TestSuggestKRvK(t *testing.T) {
	pos, err := board.ParseFEN("8/8/8/4k3/8/8/8/R3K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	r := NewRecognizer()
	move, ok := r.Suggest(pos)
	if !ok {
		t.Fatal("expected a suggested move in a recognized KR-vs-K position")
	}
	if move == board.NoMove {
		t.Fatal("expected non-null move")
	}

	legal := pos.GenerateLegalMoves()
	found := false
	for i := 0; i < legal.Len(); i++ {
		if legal.Get(i) == move {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("suggested move %s is not in the legal move list", move.String())
	}
}

func TestSuggestDeclinesWhenWeakSideToMove(t *testing.T) {
	// Black (the lone king) to move: the recognizer defers to search.
	pos, err := board.ParseFEN("8/8/8/4k3/8/8/8/R3K3 b - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	r := NewRecognizer()
	if _, ok := r.Suggest(pos); ok {
		t.Error("expected no suggestion when the weak side is to move")
	}
}

func TestSuggestDeclinesOnUnrecognizedPosition(t *testing.T) {
	pos := board.NewPosition()
	r := NewRecognizer()
	if _, ok := r.Suggest(pos); ok {
		t.Error("expected no suggestion on a non-endgame position")
	}
}
