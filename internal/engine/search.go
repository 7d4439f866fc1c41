package engine

import (
	"math"
	"sync/atomic"

	"github.com/kestrel/kestrel/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// lmrReductions is a precomputed logarithmic late-move-reduction table,
// following the Stockfish-style formula 21.46*ln(depth)*ln(moveIndex)/1024.
var lmrReductions [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrReductions[d][m] = int(21.46 * math.Log(float64(d)) * math.Log(float64(m)) / 1024.0)
		}
	}
}

// PVTable stores the principal variation found at each ply.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// SearchConfig gathers the selective-search toggles the specification
// expects to be individually controllable rather than baked in.
type SearchConfig struct {
	NullMove          bool
	LateMoveReduction bool
	FutilityPruning   bool
	UseAspiration     bool
	Contempt          int // centipawns, applied to the draw score
}

// DefaultSearchConfig matches the teacher's shipped defaults: every
// technique enabled, zero contempt.
func DefaultSearchConfig() *SearchConfig {
	return &SearchConfig{
		NullMove:          true,
		LateMoveReduction: true,
		FutilityPruning:   true,
		UseAspiration:     true,
	}
}

// Aspiration reports whether the iterative deepener should use
// aspiration windows rather than a full-width search at every depth.
func (c *SearchConfig) Aspiration() bool {
	return c != nil && c.UseAspiration
}

// Searcher performs a single-threaded negamax/alpha-beta search with the
// selective techniques named in the specification: null-move pruning, late
// move reductions, futility pruning, check extensions, and mate-distance
// pruning. One Searcher exists per engine instance; it borrows the
// transposition table, pawn hash table, and correction history by
// reference rather than owning them.
type Searcher struct {
	pos     *board.Position
	tt      *TranspositionTable
	orderer *MoveOrderer
	pawns   *PawnTable
	corr    *CorrectionHistory
	config  *SearchConfig

	nodes    uint64
	seldepth int
	stopFlag atomic.Bool

	pv PVTable

	undoStack  [MaxPly]board.UndoInfo
	moveStack  [MaxPly]board.Move
	evalStack  [MaxPly]int
	excluded   []board.Move
	historyBuf [MaxPly + 1024]uint64
	historyLen int
}

// NewSearcher creates a searcher sharing the given transposition table,
// pawn hash table, and correction history.
func NewSearcher(tt *TranspositionTable, pawns *PawnTable, corr *CorrectionHistory, cfg *SearchConfig) *Searcher {
	if cfg == nil {
		cfg = DefaultSearchConfig()
	}
	return &Searcher{
		tt:      tt,
		orderer: NewMoveOrderer(),
		pawns:   pawns,
		corr:    corr,
		config:  cfg,
	}
}

// Stop signals the search to abort at its next node-count check.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// SetTT swaps in a different transposition table, e.g. after a UCI Hash
// resize. The previous table's contents are discarded.
func (s *Searcher) SetTT(tt *TranspositionTable) {
	s.tt = tt
}

// IsStopped reports whether the search has been signaled to stop.
func (s *Searcher) IsStopped() bool {
	return s.stopFlag.Load()
}

// Reset prepares the searcher for a new root search, clearing per-search
// node/seldepth counters. Killer/history/countermove tables persist
// across calls and are aged separately by ClearHeuristics.
func (s *Searcher) Reset() {
	s.stopFlag.Store(false)
	s.nodes = 0
	s.seldepth = 0
	s.excluded = nil
}

// ClearHeuristics ages the killer/history/countermove tables and clears
// correction history. Called on ucinewgame, not between moves of a game.
func (s *Searcher) ClearHeuristics() {
	s.orderer.Clear()
	if s.corr != nil {
		s.corr.Clear()
	}
}

// Nodes returns the number of nodes visited by the most recent search.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// SelDepth returns the maximum ply reached during the most recent search,
// including quiescence extensions.
func (s *Searcher) SelDepth() int {
	return s.seldepth
}

// SetRootHistory records the hashes of positions reached earlier in the
// game, used for repetition detection inside the search tree.
func (s *Searcher) SetRootHistory(hashes []uint64) {
	s.historyLen = 0
	for _, h := range hashes {
		if s.historyLen >= len(s.historyBuf) {
			break
		}
		s.historyBuf[s.historyLen] = h
		s.historyLen++
	}
}

// SetExcludedMoves excludes root moves from consideration, used by
// Multi-PV search to find the second-, third-, ... best root move.
func (s *Searcher) SetExcludedMoves(moves []board.Move) {
	s.excluded = moves
}

func (s *Searcher) isExcludedRoot(m board.Move) bool {
	for _, e := range s.excluded {
		if e == m {
			return true
		}
	}
	return false
}

// Search runs negamax at the root with a full window and returns the best
// move and its score. Kept for callers that do not drive their own
// aspiration window.
func (s *Searcher) Search(pos *board.Position, depth int) (board.Move, int) {
	return s.SearchRoot(pos, depth, -Infinity, Infinity)
}

// SearchRoot runs negamax at the root with the given aspiration window,
// returning the best move and its score.
func (s *Searcher) SearchRoot(pos *board.Position, depth, alpha, beta int) (board.Move, int) {
	s.pos = pos
	baseLen := s.historyLen
	s.historyBuf[s.historyLen] = pos.Hash
	s.historyLen++

	score := s.negamax(depth, 0, alpha, beta)

	s.historyLen = baseLen

	var bestMove board.Move
	if s.pv.length[0] > 0 {
		bestMove = s.pv.moves[0][0]
	}
	return bestMove, score
}

// GetPV returns the principal variation found by the last root search.
func (s *Searcher) GetPV() []board.Move {
	pv := make([]board.Move, s.pv.length[0])
	copy(pv, s.pv.moves[0][:s.pv.length[0]])
	return pv
}

// negamax implements the alpha-beta step order from the specification:
// draw check, mate-distance pruning, TT probe, leaf dispatch to
// quiescence, null-move pruning, futility pruning, move generation and
// ordering, the main move loop with check extensions and LMR, and TT
// store on a beta cutoff and at the end of the move loop. Earlier
// returns (draw, mate-distance, TT hit, null-move cutoff, stop,
// quiescence) store nothing.
func (s *Searcher) negamax(depth, ply int, alpha, beta int) int {
	if ply > s.seldepth {
		s.seldepth = ply
	}
	if s.nodes&4095 == 0 && s.stopFlag.Load() {
		return 0
	}
	s.nodes++
	s.pv.length[ply] = ply

	isRoot := ply == 0

	if !isRoot && s.isDraw() {
		return s.contemptScore()
	}

	if !isRoot {
		matingValue := MateScore - ply
		if matingValue < beta {
			beta = matingValue
			if alpha >= beta {
				return beta
			}
		}
		matedValue := -MateScore + ply
		if matedValue > alpha {
			alpha = matedValue
			if alpha >= beta {
				return alpha
			}
		}
	}

	var ttMove board.Move
	probe := s.tt.ProbeAt(s.pos.Hash, depth, alpha, beta, ply)
	switch probe.Kind {
	case ExactHit:
		if !isRoot || !s.isExcludedRoot(probe.Move) {
			if isRoot && probe.Move != board.NoMove {
				s.pv.moves[0][0] = probe.Move
				if s.pv.length[0] < 1 {
					s.pv.length[0] = 1
				}
			}
			return probe.Score
		}
	case CutoffLower, CutoffUpper:
		if !isRoot {
			return probe.Score
		}
		ttMove = probe.Move
	case MoveOnly:
		ttMove = probe.Move
	}

	if depth <= 0 {
		return s.quiescence(ply, alpha, beta)
	}

	inCheck := s.pos.InCheck()

	staticEval := 0
	if !inCheck {
		staticEval = s.evaluate()
		if s.corr != nil {
			staticEval += s.corr.Get(s.pos)
		}
	}
	s.evalStack[ply] = staticEval

	improving := !inCheck && ply >= 2 && staticEval > s.evalStack[ply-2]

	// Null-move pruning: skip a move and search shallower; if the
	// opponent still cannot avoid a beta cutoff even with a free move,
	// the real position is assumed to also fail high.
	if s.config.NullMove && !isRoot && !inCheck && depth >= 3 && beta < MateScore-MaxPly &&
		s.pos.HasNonPawnMaterial() && staticEval >= beta {
		R := 2
		if depth >= 6 {
			R = 3
		}
		reduced := depth - 1 - R
		if reduced < 0 {
			reduced = 0
		}
		undo := s.pos.MakeNullMove()
		nullScore := -s.negamax(reduced, ply+1, -beta, -beta+1)
		s.pos.UnmakeNullMove(undo)
		if s.stopFlag.Load() {
			return 0
		}
		if nullScore >= beta {
			return beta
		}
	}

	// Futility pruning: at shallow depth, if even the static eval plus a
	// margin cannot reach alpha, quiet moves other than the first are
	// hopeless and can be skipped.
	pruneQuiet := false
	if s.config.FutilityPruning && !isRoot && !inCheck && depth <= 2 {
		futilityMargin := [3]int{0, 200, 300}
		if staticEval+futilityMargin[depth] <= alpha {
			pruneQuiet = true
		}
	}

	moves := s.pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return s.contemptScore()
	}

	var prevMove board.Move
	if ply > 0 {
		prevMove = s.moveStack[ply-1]
	}
	scores := s.orderer.ScoreMovesWithCounter(s.pos, moves, ply, ttMove, prevMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := TTUpperBound
	searched := 0

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if isRoot && s.isExcludedRoot(move) {
			continue
		}

		isCapture := move.IsCapture(s.pos)
		isPromotion := move.IsPromotion()
		isQuiet := !isCapture && !isPromotion

		if pruneQuiet && isQuiet && bestMove != board.NoMove {
			continue
		}

		undo := s.pos.MakeMove(move)
		if !undo.Valid {
			s.pos.UnmakeMove(move, undo)
			continue
		}
		s.undoStack[ply] = undo
		s.moveStack[ply] = move
		s.historyBuf[s.historyLen] = s.pos.Hash
		s.historyLen++
		searched++

		givesCheck := s.pos.InCheck()
		newDepth := depth - 1
		if givesCheck && ply < MaxPly-2 {
			newDepth++ // check extension
		}

		var score int
		switch {
		case s.config.LateMoveReduction && searched > 4 && depth >= 3 && !inCheck && isQuiet:
			d, m := depth, searched
			if d > 63 {
				d = 63
			}
			if m > 63 {
				m = 63
			}
			reduction := lmrReductions[d][m]
			if !improving {
				reduction++
			}
			if reduction < 0 {
				reduction = 0
			}
			reducedDepth := newDepth - reduction
			if reducedDepth < 1 {
				reducedDepth = 1
			}
			score = -s.negamax(reducedDepth, ply+1, -alpha-1, -alpha)
			if score > alpha && reducedDepth < newDepth {
				score = -s.negamax(newDepth, ply+1, -alpha-1, -alpha)
			}
			if score > alpha && score < beta {
				score = -s.negamax(newDepth, ply+1, -beta, -alpha)
			}
		case searched > 1:
			score = -s.negamax(newDepth, ply+1, -alpha-1, -alpha)
			if score > alpha && score < beta {
				score = -s.negamax(newDepth, ply+1, -beta, -alpha)
			}
		default:
			score = -s.negamax(newDepth, ply+1, -beta, -alpha)
		}

		s.pos.UnmakeMove(move, undo)
		s.historyLen--

		if s.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move

			if score > alpha {
				alpha = score
				flag = TTExact

				s.pv.moves[ply][ply] = move
				for j := ply + 1; j < s.pv.length[ply+1]; j++ {
					s.pv.moves[ply][j] = s.pv.moves[ply+1][j]
				}
				s.pv.length[ply] = s.pv.length[ply+1]
			}
		}

		if score >= beta {
			s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(score, ply), TTLowerBound, bestMove)
			if isQuiet {
				s.orderer.UpdateKillers(move, ply)
				s.orderer.UpdateHistory(move, depth, true)
				if prevMove != board.NoMove {
					s.orderer.UpdateCounterMove(prevMove, move, s.pos)
				}
			} else {
				victim := s.captureVictimType(move, undo)
				s.orderer.UpdateCaptureHistory(s.pos.PieceAt(move.From()), move.To(), victim, depth, true)
			}
			return score
		}
	}

	s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)
	if s.corr != nil && !inCheck && flag == TTExact {
		s.corr.Update(s.pos, bestScore, staticEval, depth)
	}
	return bestScore
}

// captureVictimType recovers the captured piece type for capture-history
// bookkeeping after the move has already been made (and the victim has
// been removed from the board).
func (s *Searcher) captureVictimType(move board.Move, undo board.UndoInfo) board.PieceType {
	if move.IsEnPassant() {
		return board.Pawn
	}
	if undo.CapturedPiece == board.NoPiece {
		return board.Pawn
	}
	return undo.CapturedPiece.Type()
}

// quiescence extends the search through captures, promotions, and (while
// in check) full evasions, to avoid the horizon effect.
func (s *Searcher) quiescence(ply, alpha, beta int) int {
	if ply > s.seldepth {
		s.seldepth = ply
	}
	const maxQuiescencePly = MaxPly + 16
	if ply >= maxQuiescencePly {
		return s.evaluate()
	}
	if s.nodes&4095 == 0 && s.stopFlag.Load() {
		return 0
	}
	s.nodes++

	inCheck := s.pos.InCheck()

	var standPat int
	if !inCheck {
		standPat = s.evaluate()
		if standPat >= beta {
			return beta
		}
		if standPat > alpha {
			alpha = standPat
		}
		if standPat+QueenValue < alpha {
			return alpha
		}
	}

	var moves *board.MoveList
	if inCheck {
		moves = s.pos.GenerateLegalMoves()
		if moves.Len() == 0 {
			return -MateScore + ply
		}
	} else {
		moves = s.pos.GenerateCaptures()
	}

	scores := s.orderer.ScoreMoves(s.pos, moves, ply, board.NoMove)

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if !inCheck {
			if SEE(s.pos, move) < 0 {
				continue
			}
			captureValue := s.captureValue(move)
			if standPat+captureValue+200 < alpha {
				continue
			}
		}

		undo := s.pos.MakeMove(move)
		if !undo.Valid {
			s.pos.UnmakeMove(move, undo)
			continue
		}

		score := -s.quiescence(ply+1, -beta, -alpha)
		s.pos.UnmakeMove(move, undo)

		if s.stopFlag.Load() {
			return 0
		}

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}

	return alpha
}

func (s *Searcher) captureValue(move board.Move) int {
	if move.IsEnPassant() {
		return PawnValue
	}
	captured := s.pos.PieceAt(move.To())
	value := 0
	if captured != board.NoPiece {
		value = pieceValues[captured.Type()]
	}
	if move.IsPromotion() {
		value += QueenValue - PawnValue
	}
	return value
}

func (s *Searcher) evaluate() int {
	if s.pawns != nil {
		return EvaluateWithPawnTable(s.pos, s.pawns)
	}
	return Evaluate(s.pos)
}

// contemptScore returns the draw score from the side-to-move's
// perspective, adjusted by the configured contempt factor.
func (s *Searcher) contemptScore() int {
	if s.config == nil {
		return 0
	}
	return s.config.Contempt
}

// isDraw reports whether the current position is drawn by the 50-move
// rule, insufficient material, or repetition against the recorded
// position history (root history plus moves made during this search).
func (s *Searcher) isDraw() bool {
	if s.pos.HalfMoveClock >= 100 {
		return true
	}
	if s.pos.IsInsufficientMaterial() {
		return true
	}

	limit := s.historyLen
	lookback := s.pos.HalfMoveClock
	if lookback > limit {
		lookback = limit
	}
	for i := limit - 2; i >= limit-lookback && i >= 0; i -= 2 {
		if s.historyBuf[i] == s.pos.Hash {
			return true
		}
	}
	return false
}
