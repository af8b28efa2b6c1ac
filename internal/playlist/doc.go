// Package playlist drives the lines of playlist files through an evaluator.
//
// A [Driver] processes one playlist object at a time. It opens the file,
// reads it with a [LineReader] and hands each non-blank line to an
// [Evaluator] together with a [Scope] naming the playlist being processed.
// The file is closed and the scope unbound on every exit path.
//
// Lifecycle:
//
//	Idle -> Opening -> Draining -> Closing -> Idle
//	                       |
//	                       +-> Failed -> Closing -> Idle
//
// Processing a playlist from inside an evaluator fails with [ErrRecursion]
// instead of deadlocking; use [InSession] to detect that situation early.
// Cancelling the context stops the drain before the next read and returns
// [ErrShutdownRequested].
//
// [Parser] is the built-in evaluator. It understands M3U/M3U8 (#EXTINF
// titles) and PLS (FileN/TitleN) and writes one playlist entry per resolved
// line into the playlist's containers.
package playlist
