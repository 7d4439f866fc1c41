// Package endgame recognizes a handful of elementary mating patterns that
// the search would otherwise need significant depth to work out on its
// own: lone king versus rook, queen, or a single pawn. It is rule-based,
// not a tablebase: positions outside the recognized signatures are left
// to the search.
package endgame

import (
	"github.com/kestrel/kestrel/internal/board"
)

// Signature identifies a recognized material pattern, independent of
// which side holds the extra material.
type Signature int

const (
	None Signature = iota
	KingRookVsKing
	KingQueenVsKing
	KingPawnVsKing
)

// Recognizer suggests moves for a small set of elementary endgames using
// the standard driving-to-the-edge and king-escort techniques, rather
// than searching them out.
type Recognizer struct{}

// NewRecognizer constructs a stateless endgame Recognizer.
func NewRecognizer() *Recognizer {
	return &Recognizer{}
}

// Classify identifies the material signature of pos and, if recognized,
// which color holds the winning material. ok is false for any position
// outside the recognized set.
func Classify(pos *board.Position) (sig Signature, strongSide board.Color, ok bool) {
	for _, side := range [2]board.Color{board.White, board.Black} {
		weak := side.Other()
		if !isLoneKing(pos, weak) {
			continue
		}
		switch {
		case onlyPiece(pos, side, board.Rook, 1) && noOtherMaterial(pos, side, board.Rook):
			return KingRookVsKing, side, true
		case onlyPiece(pos, side, board.Queen, 1) && noOtherMaterial(pos, side, board.Queen):
			return KingQueenVsKing, side, true
		case onlyPiece(pos, side, board.Pawn, 1) && noOtherMaterial(pos, side, board.Pawn):
			return KingPawnVsKing, side, true
		}
	}
	return None, board.NoColor, false
}

func isLoneKing(pos *board.Position, c board.Color) bool {
	for pt := board.Pawn; pt < board.King; pt++ {
		if pos.Pieces[c][pt] != 0 {
			return false
		}
	}
	return true
}

func onlyPiece(pos *board.Position, c board.Color, pt board.PieceType, count int) bool {
	return pos.Pieces[c][pt].PopCount() == count
}

func noOtherMaterial(pos *board.Position, c board.Color, except board.PieceType) bool {
	for pt := board.Pawn; pt < board.King; pt++ {
		if pt == except {
			continue
		}
		if pos.Pieces[c][pt] != 0 {
			return false
		}
	}
	return true
}

// Suggest returns a recommended move for the strong side in a recognized
// endgame, or (NoMove, false) if pos is unrecognized or it is the weak
// side to move (the search handles defense on its own).
func (r *Recognizer) Suggest(pos *board.Position) (board.Move, bool) {
	sig, strongSide, ok := Classify(pos)
	if !ok || pos.SideToMove != strongSide {
		return board.NoMove, false
	}

	moves := pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		return board.NoMove, false
	}

	weakKing := pos.KingSquare[strongSide.Other()]
	strongKing := pos.KingSquare[strongSide]

	var best board.Move
	bestScore := -1 << 30
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		score := scoreMove(pos, m, sig, strongSide, weakKing, strongKing)
		if score > bestScore {
			bestScore = score
			best = m
		}
	}
	if best == board.NoMove {
		return board.NoMove, false
	}
	return best, true
}

// scoreMove ranks candidate moves using the standard technique for each
// pattern: shrink the box confining the weak king while keeping the
// strong king in escort range, or for KP vs K, advance the pawn, with a
// bonus when its own king stands next to it. Every pawn advance is
// rewarded, escorted or not.
func scoreMove(pos *board.Position, m board.Move, sig Signature, strongSide board.Color, weakKing, strongKing board.Square) int {
	undo := pos.MakeMove(m)
	defer pos.UnmakeMove(m, undo)
	if !undo.Valid {
		return -1 << 30
	}

	newWeakKing := pos.KingSquare[strongSide.Other()]
	newStrongKing := pos.KingSquare[strongSide]

	score := 0

	if pos.InCheck() && pos.SideToMove == strongSide.Other() {
		// This move gives check; checkmate is scored far above
		// everything else, and a tightening check is still a good sign.
		if pos.IsCheckmate() {
			return 1 << 20
		}
		score += 50
	}

	score += 10 * (14 - chebyshev(newStrongKing, newWeakKing))

	switch sig {
	case KingRookVsKing, KingQueenVsKing:
		score += 20 * (7 - boxSize(newWeakKing))
	case KingPawnVsKing:
		pawnSq := lonePawnSquare(pos, strongSide)
		if pawnSq != board.NoSquare {
			promoRank := 7
			if strongSide == board.Black {
				promoRank = 0
			}
			distToPromotion := abs(promoRank - pawnSq.Rank())
			score += 30 * (6 - distToPromotion)
			if chebyshev(newStrongKing, pawnSq) <= 1 {
				score += 15
			}
		}
	}

	return score
}

func lonePawnSquare(pos *board.Position, strongSide board.Color) board.Square {
	bb := pos.Pieces[strongSide][board.Pawn]
	if bb == 0 {
		return board.NoSquare
	}
	return bb.LSB()
}

// boxSize estimates the size of the box the weak king is confined to,
// using distance from the board edge: a king pinned to a corner or edge
// scores small, a king with room in the center scores large.
func boxSize(k board.Square) int {
	f, r := k.File(), k.Rank()
	distToEdgeFile := min(f, 7-f)
	distToEdgeRank := min(r, 7-r)
	return distToEdgeFile + distToEdgeRank
}

func chebyshev(a, b board.Square) int {
	df := abs(a.File() - b.File())
	dr := abs(a.Rank() - b.Rank())
	if df > dr {
		return df
	}
	return dr
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
