package typedis

import (
	"errors"
	"fmt"
)

// ClientError marks failures raised on this side of the wire, as opposed to
// Error values returned by the server. The two kinds are disjoint: a
// ClientError never carries a server message and an Error is never a
// ClientError.
type ClientError interface {
	error
	clientError()
}

// IsClientError reports whether err (or anything it wraps) was raised
// locally rather than returned by the server.
func IsClientError(err error) bool {
	var ce ClientError
	return errors.As(err, &ce)
}

// ErrConnClosed is returned when a command is submitted on a connection that
// has already been closed.
var ErrConnClosed error = connClosedError{}

type connClosedError struct{}

func (connClosedError) Error() string { return "typedis: connection closed" }

func (connClosedError) clientError() {}

// ConversionError reports that a wire value could not be converted into the
// requested native type, either because its shape cannot represent the type
// or because its content does not parse. Target names the attempted type and
// Data keeps the offending value for bug reports.
type ConversionError struct {
	Target string
	Data   Data
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("typedis: cannot convert %s to %s", dataName(e.Data), e.Target)
}

func (*ConversionError) clientError() {}

// ProtocolError reports that a reply violated a protocol-level invariant:
// a malformed wire frame, or a reply whose shape breaks a command's
// contract. It is not retried by this layer; callers should surface it with
// the surrounding context instead of recovering silently.
type ProtocolError struct {
	msg string
}

func protocolErrorf(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{msg: fmt.Sprintf(format, args...)}
}

func (e *ProtocolError) Error() string {
	return "typedis: protocol error: " + e.msg
}

func (*ProtocolError) clientError() {}

// ModeError reports that a command was submitted while the connection is in
// subscribed mode. Only the subscribe, unsubscribe, ping and quit families
// may travel on a subscribed connection; everything else is rejected before
// any byte reaches the wire.
type ModeError struct {
	Keyword string
}

func (e *ModeError) Error() string {
	return fmt.Sprintf("typedis: %s is not allowed while the connection is subscribed", e.Keyword)
}

func (*ModeError) clientError() {}

// ErrTxAborted is returned by Transaction.Exec when the server discarded the
// queued commands (a watched key changed before EXEC).
var ErrTxAborted = errors.New("typedis: transaction aborted")

// canReuse reports whether an exchange that failed with err left the
// connection stream in a known state. Server errors and conversion failures
// arrive after a complete reply was consumed, and a mode rejection happens
// before anything reaches the wire; anything else may have left unread bytes
// behind, so the connection must not go back to the pool.
func canReuse(err error) bool {
	switch err.(type) {
	case Error:
		return true
	case *ConversionError:
		return true
	case *ModeError:
		return true
	}
	return false
}
