// Package apexctx carries the small, non-owning context value every
// core constructor takes instead of a Services* back-pointer: a
// logger and the event loop. Higher-level composition
// (BacktestService) owns the object graph; nothing below it points
// back up.
package apexctx

import (
	"log/slog"

	"github.com/automatedalgo/apex/internal/engine"
)

// Context is passed by value to every constructor that previously
// would have held a Services* pointer. The event loop's own Now()
// serves as the clock source; the core path never reads the wall
// clock directly.
type Context struct {
	Logger *slog.Logger
	Loop   engine.EventLoop
}

// New builds a Context from its components.
func New(logger *slog.Logger, loop engine.EventLoop) Context {
	return Context{Logger: logger, Loop: loop}
}
