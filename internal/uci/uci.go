package uci

import (
	"bufio"
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kestrel/kestrel/internal/board"
	"github.com/kestrel/kestrel/internal/config"
	"github.com/kestrel/kestrel/internal/engine"
	"github.com/kestrel/kestrel/internal/logging"
	"github.com/kestrel/kestrel/internal/storage"
)

// UCI implements the Universal Chess Interface protocol: a line-based
// stdin/stdout loop. Only protocol lines are ever written to stdout;
// diagnostics go through the logger, which defaults to stderr.
type UCI struct {
	engine   *engine.Engine
	position *board.Position
	cfg      *config.Config
	log      *logging.Logger
	store    *storage.Storage

	// Position history for repetition detection.
	positionHashes []uint64

	searching     bool
	searchDone    chan struct{}
	stopRequested atomic.Bool

	profileFile *os.File
}

// New creates a UCI protocol handler around an already-constructed
// engine and configuration. store may be nil if persistent storage is
// unavailable; the book cache is then simply not updated.
func New(eng *engine.Engine, cfg *config.Config, log *logging.Logger, store *storage.Storage) *UCI {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logging.New(logging.Silent)
	}
	return &UCI{
		engine:   eng,
		position: board.NewPosition(),
		cfg:      cfg,
		log:      log,
		store:    store,
	}
}

// Run starts the UCI main loop, reading commands from stdin until EOF
// or "quit".
func (u *UCI) Run() {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			fmt.Println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.log.Debug("position %s", strings.Join(args, " "))
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleQuit()
		case "setoption":
			u.handleSetOption(args)
		case "d":
			u.handleDebugPosition()
		case "perft":
			u.handlePerft(args)
		}
	}
}

// handleUCI responds to the "uci" command with engine identity and the
// full option list.
func (u *UCI) handleUCI() {
	fmt.Println("id name Kestrel")
	fmt.Println("id author Kestrel Contributors")
	fmt.Println()
	for _, opt := range u.cfg.Options() {
		fmt.Println(opt)
	}
	fmt.Println("uciok")
}

// handleNewGame resets all engine state for a new game.
func (u *UCI) handleNewGame() {
	u.engine.Clear()
	u.position = board.NewPosition()
	u.positionHashes = []uint64{u.position.Hash}
}

// handlePosition parses and sets up a position.
//
//	position startpos
//	position startpos moves e2e4 e7e5
//	position fen <fen>
//	position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	u.positionHashes = nil
	var moveStart int

	switch args[0] {
	case "startpos":
		u.position = board.NewPosition()
		moveStart = len(args)
		for i, arg := range args {
			if arg == "moves" {
				moveStart = i + 1
				break
			}
		}
	case "fen":
		fenEnd := len(args)
		for i, arg := range args[1:] {
			if arg == "moves" {
				fenEnd = i + 1
				break
			}
		}

		fenStr := strings.Join(args[1:fenEnd], " ")
		pos, err := board.ParseFEN(fenStr)
		if err != nil {
			u.log.Info("invalid FEN %q: %v", fenStr, err)
			return
		}
		u.position = pos

		moveStart = len(args)
		for i, arg := range args {
			if arg == "moves" {
				moveStart = i + 1
				break
			}
		}
	default:
		return
	}

	u.positionHashes = append(u.positionHashes, u.position.Hash)

	if moveStart < len(args) {
		for _, moveStr := range args[moveStart:] {
			move := u.parseMove(moveStr)
			if move == board.NoMove {
				u.log.Info("invalid move %q in position command", moveStr)
				return
			}
			u.position.MakeMove(move)
			u.position.UpdateCheckers()
			u.positionHashes = append(u.positionHashes, u.position.Hash)
		}
	}

	u.log.Debug("position set up, hash=%016x inCheck=%v", u.position.Hash, u.position.InCheck())
}

// parseMove converts a UCI long-algebraic move string to a board.Move,
// verified against the current position's legal moves.
func (u *UCI) parseMove(moveStr string) board.Move {
	if len(moveStr) < 4 {
		return board.NoMove
	}

	fromFile := int(moveStr[0] - 'a')
	fromRank := int(moveStr[1] - '1')
	toFile := int(moveStr[2] - 'a')
	toRank := int(moveStr[3] - '1')

	if fromFile < 0 || fromFile > 7 || fromRank < 0 || fromRank > 7 ||
		toFile < 0 || toFile > 7 || toRank < 0 || toRank > 7 {
		return board.NoMove
	}

	from := board.NewSquare(fromFile, fromRank)
	to := board.NewSquare(toFile, toRank)

	var promo board.PieceType
	if len(moveStr) == 5 {
		switch moveStr[4] {
		case 'q':
			promo = board.Queen
		case 'r':
			promo = board.Rook
		case 'b':
			promo = board.Bishop
		case 'n':
			promo = board.Knight
		}
	}

	moves := u.position.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.From() == from && m.To() == to {
			if promo != 0 {
				if m.IsPromotion() && m.Promotion() == promo {
					return m
				}
			} else if !m.IsPromotion() {
				return m
			}
		}
	}

	return board.NoMove
}

// GoOptions holds parsed "go" command arguments.
type GoOptions struct {
	Depth     int
	Nodes     uint64
	MoveTime  time.Duration
	Infinite  bool
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
}

// handleGo parses the "go" command and starts a search in the
// background, printing "bestmove" when it completes.
func (u *UCI) handleGo(args []string) {
	opts := u.parseGoOptions(args)

	u.engine.SetPositionHistory(u.positionHashes)
	u.engine.OnInfo = func(info engine.SearchInfo) {
		u.sendInfo(info)
	}

	limits := u.uciLimits(opts)
	ply := len(u.positionHashes)

	u.searching = true
	u.stopRequested.Store(false)
	u.searchDone = make(chan struct{})

	pos := u.position.Copy()

	go func() {
		defer close(u.searchDone)

		bestMove := u.engine.SearchWithUCILimits(pos, limits, ply)
		u.searching = false

		validationPos := u.position.Copy()
		if bestMove != board.NoMove && u.isLegalIn(validationPos, bestMove) {
			fmt.Printf("bestmove %s\n", bestMove.String())
			return
		}

		if bestMove != board.NoMove {
			u.log.Info("search returned illegal move %s, falling back", bestMove.String())
		}

		legal := validationPos.GenerateLegalMoves()
		if legal.Len() > 0 {
			fmt.Printf("bestmove %s\n", legal.Get(0).String())
		} else {
			fmt.Println("bestmove 0000")
		}
	}()
}

func (u *UCI) isLegalIn(pos *board.Position, move board.Move) bool {
	legal := pos.GenerateLegalMoves()
	for i := 0; i < legal.Len(); i++ {
		if legal.Get(i) == move {
			return true
		}
	}
	return false
}

// parseGoOptions parses "go" command arguments into GoOptions.
func (u *UCI) parseGoOptions(args []string) GoOptions {
	opts := GoOptions{}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				opts.Depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "nodes":
			if i+1 < len(args) {
				n, _ := strconv.ParseUint(args[i+1], 10, 64)
				opts.Nodes = n
				i++
			}
		case "movetime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.MoveTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "infinite":
			opts.Infinite = true
		case "wtime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.WTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "btime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.BTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "winc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.WInc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "binc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.BInc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "movestogo":
			if i+1 < len(args) {
				opts.MovesToGo, _ = strconv.Atoi(args[i+1])
				i++
			}
		}
	}

	return opts
}

// uciLimits converts GoOptions plus the configured move overhead into
// engine.UCILimits for the time manager.
func (u *UCI) uciLimits(opts GoOptions) engine.UCILimits {
	limits := engine.UCILimits{
		MovesToGo: opts.MovesToGo,
		MoveTime:  opts.MoveTime,
		Depth:     opts.Depth,
		Nodes:     opts.Nodes,
		Infinite:  opts.Infinite,
	}
	limits.Time[board.White] = opts.WTime
	limits.Time[board.Black] = opts.BTime
	limits.Inc[board.White] = opts.WInc
	limits.Inc[board.Black] = opts.BInc

	if u.cfg.MoveOverhead > 0 && limits.MoveTime > 0 {
		overhead := time.Duration(u.cfg.MoveOverhead) * time.Millisecond
		if limits.MoveTime > overhead {
			limits.MoveTime -= overhead
		}
	}

	return limits
}

// sendInfo writes one "info" protocol line for a completed depth.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	var parts []string

	parts = append(parts, fmt.Sprintf("depth %d", info.Depth))
	if info.SelDepth > 0 {
		parts = append(parts, fmt.Sprintf("seldepth %d", info.SelDepth))
	}

	switch {
	case info.Score > engine.MateScore-100:
		mateIn := (engine.MateScore - info.Score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	case info.Score < -engine.MateScore+100:
		mateIn := -(engine.MateScore + info.Score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	default:
		parts = append(parts, fmt.Sprintf("score cp %d", info.Score))
	}

	parts = append(parts, fmt.Sprintf("nodes %d", info.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", info.Time.Milliseconds()))

	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}

	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}

	if len(info.PV) > 0 {
		validPV := make([]string, 0, len(info.PV))
		testPos := u.position.Copy()
		for _, move := range info.PV {
			if !u.isLegalIn(testPos, move) {
				break
			}
			validPV = append(validPV, move.String())
			testPos.MakeMove(move)
		}
		if len(validPV) > 0 {
			parts = append(parts, "pv "+strings.Join(validPV, " "))
		}
	}

	fmt.Printf("info %s\n", strings.Join(parts, " "))
}

// handleStop stops the in-progress search and waits for it to finish.
func (u *UCI) handleStop() {
	if u.searching {
		u.stopRequested.Store(true)
		u.engine.Stop()
		<-u.searchDone
	}
}

// handleQuit stops any search, closes an active profile, and exits.
func (u *UCI) handleQuit() {
	u.handleStop()
	if u.profileFile != nil {
		pprof.StopCPUProfile()
		u.profileFile.Close()
		u.log.Info("CPU profile saved")
	}
	os.Exit(0)
}

// handleSetOption processes "setoption name <name> value <value>".
func (u *UCI) handleSetOption(args []string) {
	var name, value string
	readingName, readingValue := false, false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName, readingValue = true, false
		case "value":
			readingName, readingValue = false, true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	lname := strings.ToLower(name)

	if lname == "cpuprofile" {
		u.handleCPUProfile(value)
		return
	}

	if err := u.cfg.ApplyOption(name, value); err != nil {
		u.log.Info("setoption %s: %v", name, err)
		return
	}

	switch lname {
	case "hash":
		u.engine.SetHashSizeMB(u.cfg.HashMB)
	case "ownbook":
		u.engine.SetBookEnabled(u.cfg.OwnBook)
	case "bookfile":
		if u.cfg.BookPath != "" {
			if err := u.engine.LoadBook(u.cfg.BookPath); err != nil {
				u.log.Info("failed to load book %q: %v", u.cfg.BookPath, err)
			} else if u.store != nil {
				if data, err := os.ReadFile(u.cfg.BookPath); err != nil {
					u.log.Info("failed to cache book %q: %v", u.cfg.BookPath, err)
				} else if err := u.store.SaveBook(u.cfg.BookPath, data); err != nil {
					u.log.Info("failed to cache book %q: %v", u.cfg.BookPath, err)
				}
			}
		}
	case "nullmove":
		u.engine.Config().NullMove = u.cfg.NullMove
	case "latemovereduction", "lmr":
		u.engine.Config().LateMoveReduction = u.cfg.LateMoveReduction
	case "futilitypruning":
		u.engine.Config().FutilityPruning = u.cfg.FutilityPruning
	case "aspirationwindows":
		u.engine.Config().UseAspiration = u.cfg.Aspiration
	case "contempt":
		u.engine.Config().Contempt = u.cfg.Contempt
	case "debug":
		if u.cfg.DebugLogging {
			u.log.SetLevel(logging.Debug)
		} else {
			u.log.SetLevel(logging.Info)
		}
	}
}

func (u *UCI) handleCPUProfile(value string) {
	if u.profileFile != nil {
		pprof.StopCPUProfile()
		u.profileFile.Close()
		u.profileFile = nil
		u.log.Info("CPU profile stopped")
	}
	if value == "" || value == "stop" {
		return
	}
	f, err := os.Create(value)
	if err != nil {
		u.log.Info("failed to create profile: %v", err)
		return
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		u.log.Info("failed to start profile: %v", err)
		return
	}
	u.profileFile = f
	u.log.Info("CPU profiling to %s", value)
}

// handleDebugPosition prints the board plus its legal moves in SAN, for
// human inspection via the non-standard "d" command.
func (u *UCI) handleDebugPosition() {
	fmt.Println(u.position.String())

	moves := u.position.GenerateLegalMoves()
	moveList := make([]board.Move, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		moveList[i] = moves.Get(i)
	}
	san := board.MovesToSAN(u.position, moveList)
	fmt.Printf("Legal moves (%d): %s\n", len(san), strings.Join(san, " "))
}

// handlePerft runs a perft test from the current position.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}

	start := time.Now()
	nodes := u.engine.Perft(u.position, depth)
	elapsed := time.Since(start)

	fmt.Printf("Nodes: %d\n", nodes)
	fmt.Printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		nps := float64(nodes) / elapsed.Seconds()
		fmt.Printf("NPS: %.0f\n", nps)
	}
}
