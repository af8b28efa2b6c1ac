package playlist

import (
	"context"
	"os"

	"media-catalog/internal/database"
)

// Scope is what an Evaluator sees of the playlist being processed. It is
// bound for one Process call and unbound when the session closes.
type Scope struct {
	// Item is the playlist object.
	Item *database.Object
	// Line is the physical line number of the line being evaluated.
	Line int

	values map[any]any
}

// Value returns session-local state stored under key.
func (s *Scope) Value(key any) any {
	return s.values[key]
}

// SetValue stores session-local state. It is dropped when the session closes.
func (s *Scope) SetValue(key, value any) {
	if s.values == nil {
		s.values = make(map[any]any)
	}
	s.values[key] = value
}

// Bound reports whether the scope still belongs to an open session.
func (s *Scope) Bound() bool {
	return s != nil && s.Item != nil
}

func (s *Scope) unbind() {
	s.Item = nil
	s.Line = 0
	s.values = nil
}

// session owns the open playlist file and its reader. Both are set by
// openSession and cleared together by close.
type session struct {
	path   string
	file   *os.File
	reader *LineReader
	scope  *Scope
}

func newSession(item *database.Object, f *os.File) *session {
	return &session{
		path:   item.Path,
		file:   f,
		reader: NewLineReader(f),
		scope:  &Scope{Item: item},
	}
}

// close releases the file and unbinds the scope. Calling it again is a no-op.
func (s *session) close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.reader = nil
	s.scope.unbind()
	return err
}

type sessionKey struct{}

func withSession(ctx context.Context, s *session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// InSession reports whether ctx belongs to a running playlist session, i.e.
// the caller is being invoked from an Evaluator.
func InSession(ctx context.Context) bool {
	_, ok := ctx.Value(sessionKey{}).(*session)
	return ok
}
