// Package knowledge composes the engine's non-search move sources: the
// endgame pattern recognizer and the opening book. Both are consulted
// before the search runs, in that priority order, so a recognized
// elementary endgame is never second-guessed by the book and a book hit
// never shadows a position the recognizer already understands better.
package knowledge

import (
	"github.com/kestrel/kestrel/internal/book"
	"github.com/kestrel/kestrel/internal/board"
	"github.com/kestrel/kestrel/internal/endgame"
)

// Source names which knowledge component, if any, produced a move.
type Source int

const (
	NoSource Source = iota
	EndgameSource
	BookSource
)

// Base composes an opening book with an endgame pattern recognizer.
type Base struct {
	book        *book.Book
	bookEnabled bool
	recognize   *endgame.Recognizer
}

// New constructs a Base. book may be nil if no opening book is loaded.
// The book starts disabled; enable it explicitly via SetBookEnabled once
// a book is loaded (mirrors the UCI OwnBook option).
func New(b *book.Book) *Base {
	return &Base{
		book:      b,
		recognize: endgame.NewRecognizer(),
	}
}

// SetBook replaces the opening book, or clears it if b is nil.
func (k *Base) SetBook(b *book.Book) {
	k.book = b
}

// SetBookEnabled toggles whether Probe consults the opening book,
// mirroring the UCI OwnBook option.
func (k *Base) SetBookEnabled(enabled bool) {
	k.bookEnabled = enabled
}

// HasBook reports whether an opening book is currently loaded.
func (k *Base) HasBook() bool {
	return k.book != nil && k.book.Size() > 0
}

// Probe consults the endgame recognizer first, then (if enabled) the
// opening book, returning the first move either produces.
func (k *Base) Probe(pos *board.Position) (board.Move, Source) {
	if move, ok := k.recognize.Suggest(pos); ok {
		return move, EndgameSource
	}
	if k.bookEnabled && k.book != nil {
		if move, ok := k.book.Probe(pos); ok {
			return move, BookSource
		}
	}
	return board.NoMove, NoSource
}
