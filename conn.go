package typedis

import (
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ConnMode is the Pub/Sub state of a connection.
type ConnMode int

const (
	// ModeNormal accepts every command.
	ModeNormal ConnMode = iota
	// ModeSubscribed restricts the connection to the subscribe, unsubscribe,
	// ping and quit families until every subscription is gone.
	ModeSubscribed
)

// Conn represents a connection to a redis server.
//
// Send buffers the outgoing frame; Flush pushes buffered frames to the
// wire. Receive flushes pending writes first, so a plain request/response
// exchange needs no explicit Flush. A Conn supports one receiver at a time;
// senders may be concurrent.
type Conn interface {
	Send(ctx context.Context, data Data) error
	Flush(ctx context.Context) error
	Receive(ctx context.Context) (Data, error)
	Close(ctx context.Context) error
	Mode() ConnMode
}

// modeSetter is implemented by connections whose subscription count can be
// driven by a PubSub session.
type modeSetter interface {
	setSubscriptions(n int)
}

type conn struct {
	nc net.Conn
	br *bufio.Reader
	bw *bufio.Writer

	mu            sync.Mutex
	closed        bool
	subscriptions int
}

func newConn(nconn net.Conn) Conn {
	return &conn{
		nc: nconn,
		br: bufio.NewReader(nconn),
		bw: bufio.NewWriter(nconn),
	}
}

// subscribedAllowed is the set of keywords a subscribed connection still
// accepts.
var subscribedAllowed = map[string]struct{}{
	"SUBSCRIBE":    {},
	"UNSUBSCRIBE":  {},
	"PSUBSCRIBE":   {},
	"PUNSUBSCRIBE": {},
	"PING":         {},
	"QUIT":         {},
	"RESET":        {},
}

// commandKeyword extracts the uppercase command name from an outgoing
// request array, or "" when the frame is not command-shaped.
func commandKeyword(data Data) string {
	arr, ok := data.(Array)
	if !ok || len(arr) == 0 {
		return ""
	}
	switch t := arr[0].(type) {
	case BulkString:
		return strings.ToUpper(string(t))
	case SimpleString:
		return strings.ToUpper(string(t))
	}
	return ""
}

// Send frames data onto the write buffer. The subscribed-mode gate runs
// under the same lock as the write, so a command can never slip onto the
// wire between a mode check and a concurrent mode transition.
func (c *conn) Send(ctx context.Context, data Data) error {
	if data == nil {
		return protocolErrorf("cannot send nil data")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}

	if c.subscriptions > 0 {
		if kw := commandKeyword(data); kw != "" {
			if _, ok := subscribedAllowed[kw]; !ok {
				return &ModeError{Keyword: kw}
			}
		}
	}

	if err := c.setWriteDeadline(ctx); err != nil {
		return err
	}
	return writeData(c.bw, data)
}

func (c *conn) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}

	if err := c.setWriteDeadline(ctx); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *conn) Receive(ctx context.Context) (Data, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnClosed
	}
	if err := c.setWriteDeadline(ctx); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if err := c.bw.Flush(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	if d, ok := ctx.Deadline(); ok {
		if err := c.nc.SetReadDeadline(d); err != nil {
			return nil, err
		}
	} else if err := c.nc.SetReadDeadline(time.Time{}); err != nil {
		return nil, err
	}

	return readData(c.br)
}

func (c *conn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.nc.Close()
}

func (c *conn) Mode() ConnMode {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscriptions > 0 {
		return ModeSubscribed
	}
	return ModeNormal
}

func (c *conn) setSubscriptions(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions = n
}

func (c *conn) setWriteDeadline(ctx context.Context) error {
	if d, ok := ctx.Deadline(); ok {
		return c.nc.SetWriteDeadline(d)
	}
	return c.nc.SetWriteDeadline(time.Time{})
}

// writeData frames one wire value. Null bulk strings and null arrays use the
// -1 length markers.
func writeData(w *bufio.Writer, data Data) error {
	switch t := data.(type) {
	case SimpleString:
		return writeLine(w, '+', string(t))
	case Error:
		return writeLine(w, '-', string(t))
	case Integer:
		return writeLine(w, ':', strconv.FormatInt(int64(t), 10))
	case BulkString:
		if t == nil {
			return writeLine(w, '$', "-1")
		}
		if err := writeLine(w, '$', strconv.Itoa(len(t))); err != nil {
			return err
		}
		if _, err := w.Write(t); err != nil {
			return err
		}
		return writeCRLF(w)
	case Array:
		if t == nil {
			return writeLine(w, '*', "-1")
		}
		if err := writeLine(w, '*', strconv.Itoa(len(t))); err != nil {
			return err
		}
		for _, d := range t {
			if d == nil {
				return protocolErrorf("cannot send nil data")
			}
			if err := writeData(w, d); err != nil {
				return err
			}
		}
		return nil
	default:
		return protocolErrorf("cannot send %s", dataName(data))
	}
}

func writeLine(w *bufio.Writer, prefix byte, s string) error {
	if err := w.WriteByte(prefix); err != nil {
		return err
	}
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	return writeCRLF(w)
}

func writeCRLF(w *bufio.Writer) error {
	_, err := w.WriteString("\r\n")
	return err
}

// readData parses one wire value. Malformed frames surface as
// ProtocolError; transport failures pass through.
func readData(r *bufio.Reader) (Data, error) {
	prefix, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch prefix {
	case '+':
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		return SimpleString(line), nil
	case '-':
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		return Error(line), nil
	case ':':
		n, err := readInt(r)
		if err != nil {
			return nil, err
		}
		return Integer(n), nil
	case '$':
		n, err := readInt(r)
		if err != nil {
			return nil, err
		}
		if n == -1 {
			return BulkString(nil), nil
		}
		if n < 0 {
			return nil, protocolErrorf("invalid bulk string length %d", n)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		if err := readCRLF(r); err != nil {
			return nil, err
		}
		return BulkString(buf), nil
	case '*':
		n, err := readInt(r)
		if err != nil {
			return nil, err
		}
		if n == -1 {
			return Array(nil), nil
		}
		if n < 0 {
			return nil, protocolErrorf("invalid array length %d", n)
		}
		arr := make(Array, n)
		for i := range arr {
			d, err := readData(r)
			if err != nil {
				return nil, err
			}
			arr[i] = d
		}
		return arr, nil
	default:
		return nil, protocolErrorf("unknown type prefix %q", prefix)
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return "", protocolErrorf("line without CRLF terminator")
	}
	return line[:len(line)-2], nil
}

func readInt(r *bufio.Reader) (int64, error) {
	line, err := readLine(r)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return 0, protocolErrorf("invalid integer %q", line)
	}
	return n, nil
}

func readCRLF(r *bufio.Reader) error {
	var crlf [2]byte
	if _, err := io.ReadFull(r, crlf[:]); err != nil {
		return err
	}
	if crlf[0] != '\r' || crlf[1] != '\n' {
		return protocolErrorf("bulk string without CRLF terminator")
	}
	return nil
}
