package engine

import (
	"time"

	"github.com/kestrel/kestrel/internal/board"
	"github.com/kestrel/kestrel/internal/book"
	"github.com/kestrel/kestrel/internal/knowledge"
)

// SearchInfo contains information about the current search, reported
// incrementally through the Engine's OnInfo callback.
type SearchInfo struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// SearchLimits specifies constraints on the search.
type SearchLimits struct {
	Depth    int           // Maximum depth (0 = no limit)
	Nodes    uint64        // Maximum nodes (0 = no limit)
	MoveTime time.Duration // Time for this move (0 = no limit)
	Infinite bool          // Search until stopped
	MultiPV  int           // Number of principal variations to find (0 or 1 = single best move)
}

// SearchResult contains the result of a single PV search.
type SearchResult struct {
	Move  board.Move
	Score int
	PV    []board.Move
	Depth int
}

// Difficulty represents a preset search strength.
type Difficulty int

const (
	Easy   Difficulty = iota // depth 3, 500ms
	Medium                   // depth 7, 1s
	Hard                     // depth 40, 3s
)

// DifficultySettings maps difficulty to search limits.
var DifficultySettings = map[Difficulty]SearchLimits{
	Easy:   {Depth: 3, MoveTime: 500 * time.Millisecond},
	Medium: {Depth: 7, MoveTime: 1 * time.Second},
	Hard:   {Depth: 40, MoveTime: 3 * time.Second},
}

// Engine drives a single-threaded iterative-deepening search, consulting
// the knowledge base (endgame patterns, opening book) before falling
// back to the searcher.
type Engine struct {
	tt        *TranspositionTable
	pawnTable *PawnTable
	corr      *CorrectionHistory
	searcher  *Searcher

	knowledge  *knowledge.Base
	difficulty Difficulty

	rootPosHashes []uint64

	config *SearchConfig

	OnInfo func(SearchInfo)
}

// NewEngine creates a chess engine with the given transposition table
// size in MB.
func NewEngine(ttSizeMB int) *Engine {
	tt := NewTranspositionTable(ttSizeMB)
	pawnTable := NewPawnTable(4)
	corr := NewCorrectionHistory()
	cfg := DefaultSearchConfig()

	return &Engine{
		tt:         tt,
		pawnTable:  pawnTable,
		corr:       corr,
		searcher:   NewSearcher(tt, pawnTable, corr, cfg),
		knowledge:  knowledge.New(nil),
		difficulty: Medium,
		config:     cfg,
	}
}

// SetDifficulty sets the engine difficulty preset.
func (e *Engine) SetDifficulty(d Difficulty) {
	e.difficulty = d
}

// Config returns the search configuration toggles (null move, LMR,
// futility pruning, contempt) so callers (the UCI option handler) can
// adjust them at runtime.
func (e *Engine) Config() *SearchConfig {
	return e.config
}

// SetHashSizeMB reallocates the transposition table at the given size
// in megabytes, discarding its previous contents.
func (e *Engine) SetHashSizeMB(mb int) {
	e.tt = NewTranspositionTable(mb)
	e.searcher.SetTT(e.tt)
}

// SetBookEnabled toggles whether the knowledge base consults the
// opening book, mirroring the UCI OwnBook option.
func (e *Engine) SetBookEnabled(enabled bool) {
	e.knowledge.SetBookEnabled(enabled)
}

// LoadBook loads an opening book from a Polyglot file.
func (e *Engine) LoadBook(filename string) error {
	b, err := book.LoadPolyglot(filename)
	if err != nil {
		return err
	}
	e.knowledge.SetBook(b)
	return nil
}

// SetBook sets the opening book directly.
func (e *Engine) SetBook(b *book.Book) {
	e.knowledge.SetBook(b)
}

// HasBook reports whether an opening book is loaded.
func (e *Engine) HasBook() bool {
	return e.knowledge.HasBook()
}

// SetPositionHistory sets the position history for repetition detection.
// Call this before Search with hashes from the game's move history.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.rootPosHashes = make([]uint64, len(hashes))
	copy(e.rootPosHashes, hashes)
	e.searcher.SetRootHistory(hashes)
}

// Search finds the best move for pos using the current difficulty preset.
func (e *Engine) Search(pos *board.Position) board.Move {
	limits := DifficultySettings[e.difficulty]
	return e.SearchWithLimits(pos, limits)
}

// SearchWithLimits finds the best move under depth/node/time limits,
// driven by iterative deepening with aspiration windows.
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) board.Move {
	if move, _ := e.knowledge.Probe(pos); move != board.NoMove {
		return move
	}

	e.searcher.Reset()
	e.searcher.SetRootHistory(e.rootPosHashes)
	e.tt.NewSearch()

	startTime := time.Now()
	var deadline time.Time
	if limits.MoveTime > 0 {
		deadline = startTime.Add(limits.MoveTime)
	}

	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	bestMove, bestScore, _ := e.iterativeDeepen(pos, maxDepth, limits.Nodes, func() bool {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return true
		}
		return false
	}, startTime)

	_ = bestScore
	return bestMove
}

// SearchWithUCILimits finds the best move using UCI time controls
// (wtime/btime/winc/binc and friends), via the TimeManager.
func (e *Engine) SearchWithUCILimits(pos *board.Position, limits UCILimits, ply int) board.Move {
	if move, _ := e.knowledge.Probe(pos); move != board.NoMove {
		return move
	}

	tm := NewTimeManager()
	tm.Init(limits, pos.SideToMove, ply)

	e.searcher.Reset()
	e.searcher.SetRootHistory(e.rootPosHashes)
	e.tt.NewSearch()

	startTime := time.Now()
	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	var lastMove board.Move
	var stability, instability int

	bestMove, _, _ := e.iterativeDeepenWithCallback(pos, maxDepth, limits.Nodes, startTime,
		func(depth int, move board.Move) bool {
			if move == lastMove {
				stability++
				instability = 0
			} else {
				instability++
				stability = 0
			}
			lastMove = move

			if instability > 0 {
				tm.AdjustForInstability(instability)
			}
			if stability > 0 {
				tm.AdjustForStability(stability)
			}

			if tm.PastOptimum() && stability >= 4 {
				return true
			}
			return tm.ShouldStop()
		})

	return bestMove
}

// iterativeDeepen runs the aspiration-window iterative deepener without
// UCI time-control stability tracking, used by SearchWithLimits.
func (e *Engine) iterativeDeepen(pos *board.Position, maxDepth int, nodeLimit uint64, stop func() bool, startTime time.Time) (board.Move, int, []board.Move) {
	return e.iterativeDeepenWithCallback(pos, maxDepth, nodeLimit, startTime, func(depth int, move board.Move) bool {
		return stop()
	})
}

// iterativeDeepenWithCallback drives the core iterative-deepening loop:
// search depth 1..maxDepth with a narrowing aspiration window seeded
// from the previous iteration's score, reporting SearchInfo after every
// completed depth and stopping when shouldStop returns true.
func (e *Engine) iterativeDeepenWithCallback(pos *board.Position, maxDepth int, nodeLimit uint64, startTime time.Time, shouldStop func(depth int, move board.Move) bool) (board.Move, int, []board.Move) {
	var bestMove board.Move
	var bestScore int
	var bestPV []board.Move
	prevScore := 0

	for depth := 1; depth <= maxDepth; depth++ {
		var move board.Move
		var score int

		if e.config.Aspiration() && depth >= 5 {
			window := 25
			alpha := prevScore - window
			beta := prevScore + window
			for {
				move, score = e.searcher.SearchRoot(pos, depth, alpha, beta)
				if e.searcher.IsStopped() {
					break
				}
				if score <= alpha {
					alpha -= window
					window *= 2
				} else if score >= beta {
					beta += window
					window *= 2
				} else {
					break
				}
				if alpha <= -Infinity && beta >= Infinity {
					move, score = e.searcher.SearchRoot(pos, depth, -Infinity, Infinity)
					break
				}
			}
		} else {
			move, score = e.searcher.SearchRoot(pos, depth, -Infinity, Infinity)
		}

		if e.searcher.IsStopped() {
			break
		}

		if move != board.NoMove {
			bestMove = move
			bestScore = score
			bestPV = e.searcher.GetPV()
			prevScore = score

			if e.OnInfo != nil {
				e.OnInfo(SearchInfo{
					Depth:    depth,
					SelDepth: e.searcher.SelDepth(),
					Score:    bestScore,
					Nodes:    e.searcher.Nodes(),
					Time:     time.Since(startTime),
					PV:       bestPV,
					HashFull: e.tt.HashFull(),
				})
			}

			if bestScore > MateScore-100 || bestScore < -MateScore+100 {
				break
			}
		}

		if nodeLimit > 0 && e.searcher.Nodes() >= nodeLimit {
			break
		}
		if shouldStop(depth, bestMove) {
			break
		}
	}

	e.searcher.Stop()
	return bestMove, bestScore, bestPV
}

// SearchMultiPV finds multiple best root moves for analysis, via
// successive root-move-exclusion searches.
func (e *Engine) SearchMultiPV(pos *board.Position, limits SearchLimits) []SearchResult {
	numPV := limits.MultiPV
	if numPV <= 0 {
		numPV = 1
	}

	results := make([]SearchResult, 0, numPV)
	excluded := make([]board.Move, 0, numPV)

	for i := 0; i < numPV; i++ {
		move, score, pv, depth := e.searchWithExclusions(pos, limits, excluded)
		if move == board.NoMove {
			break
		}
		results = append(results, SearchResult{Move: move, Score: score, PV: pv, Depth: depth})
		excluded = append(excluded, move)
	}

	for i := 0; i < len(results)-1; i++ {
		maxIdx := i
		for j := i + 1; j < len(results); j++ {
			if results[j].Score > results[maxIdx].Score {
				maxIdx = j
			}
		}
		if maxIdx != i {
			results[i], results[maxIdx] = results[maxIdx], results[i]
		}
	}

	return results
}

func (e *Engine) searchWithExclusions(pos *board.Position, limits SearchLimits, excluded []board.Move) (board.Move, int, []board.Move, int) {
	e.searcher.Reset()
	e.searcher.SetRootHistory(e.rootPosHashes)
	e.searcher.SetExcludedMoves(excluded)
	e.tt.NewSearch()

	startTime := time.Now()
	var bestMove board.Move
	var bestScore int
	var bestDepth int

	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	var deadline time.Time
	if limits.MoveTime > 0 {
		deadline = startTime.Add(limits.MoveTime)
	}

	for depth := 1; depth <= maxDepth; depth++ {
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}

		move, score := e.searcher.SearchRoot(pos, depth, -Infinity, Infinity)
		if e.searcher.IsStopped() {
			break
		}

		if move != board.NoMove {
			bestMove = move
			bestScore = score
			bestDepth = depth
		}

		if score > MateScore-100 || score < -MateScore+100 {
			break
		}
	}

	pv := e.searcher.GetPV()
	e.searcher.SetExcludedMoves(nil)

	return bestMove, bestScore, pv, bestDepth
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// Clear clears the transposition table, pawn table, and search heuristics.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.pawnTable.Clear()
	e.searcher.ClearHeuristics()
}

// Perft counts leaf nodes at the given depth, for move generator testing.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		undo := pos.MakeMove(move)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(move, undo)
	}

	return nodes
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos *board.Position) int {
	return Evaluate(pos)
}

// ScoreToString converts a centipawn score to a human-readable string,
// or a mate distance if the score indicates forced mate.
func ScoreToString(score int) string {
	if score > MateScore-100 {
		mateIn := (MateScore - score + 1) / 2
		return "Mate in " + itoa(mateIn)
	}
	if score < -MateScore+100 {
		mateIn := (MateScore + score + 1) / 2
		return "Mated in " + itoa(mateIn)
	}

	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	pawns := score / 100
	centipawns := score % 100

	return sign + itoa(pawns) + "." + itoa(centipawns)
}

// itoa avoids pulling in fmt for plain integer formatting.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	s := ""
	for n > 0 {
		s = string('0'+byte(n%10)) + s
		n /= 10
	}
	return s
}
