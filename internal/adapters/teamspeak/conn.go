package teamspeak

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

var errConnClosed = errors.New("query connection closed")

type response struct {
	lines []string
	err   error
}

// queryConn is one ServerQuery connection. Commands are serialized; notifications
// are routed to onNotify from the read goroutine.
type queryConn struct {
	rwc     io.ReadWriteCloser
	reader  *bufio.Reader
	limiter *rate.Limiter

	onNotify func(name string, rec record)
	onClose  func(reason string)

	execMu    sync.Mutex
	stale     int
	responses chan response

	done       chan struct{}
	closeOnce  sync.Once
	stateMu    sync.Mutex
	deliberate bool
	lastStatus error
	closeErr   error
}

func newQueryConn(rwc io.ReadWriteCloser, limiter *rate.Limiter) *queryConn {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &queryConn{
		rwc:       rwc,
		reader:    bufio.NewReader(rwc),
		limiter:   limiter,
		responses: make(chan response, 1),
		done:      make(chan struct{}),
		onNotify:  func(string, record) {},
		onClose:   func(string) {},
	}
}

// handshake consumes the greeting banner. A status line before the welcome text
// (for example a ban notice) is returned as an error.
func (c *queryConn) handshake(ctx context.Context) error {
	type result struct{ err error }
	resCh := make(chan result, 1)

	go func() {
		for {
			line, err := c.readLine()
			if err != nil {
				resCh <- result{fmt.Errorf("reading banner: %w", err)}
				return
			}
			switch {
			case isStatusLine(line):
				if status := parseStatus(line); status != nil {
					resCh <- result{status}
					return
				}
			case strings.HasPrefix(line, "Welcome"):
				resCh <- result{}
				return
			}
		}
	}()

	select {
	case res := <-resCh:
		return res.err
	case <-ctx.Done():
		_ = c.rwc.Close()
		return ctx.Err()
	}
}

func (c *queryConn) readLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.Trim(line, "\r\n"), nil
}

func (c *queryConn) start() {
	go c.readLoop()
}

func (c *queryConn) readLoop() {
	var lines []string
	for {
		line, err := c.readLine()
		if err != nil {
			c.shutdown(err)
			return
		}

		switch {
		case line == "":
		case strings.HasPrefix(line, "notify"):
			name, payload := splitNotification(line)
			c.onNotify(name, parseRecord(payload))
		case isStatusLine(line):
			status := parseStatus(line)
			if status != nil {
				c.stateMu.Lock()
				c.lastStatus = status
				c.stateMu.Unlock()
			}
			select {
			case c.responses <- response{lines: lines, err: status}:
			case <-c.done:
				return
			}
			lines = nil
		default:
			lines = append(lines, line)
		}
	}
}

// exec sends one command and waits for its status line.
func (c *queryConn) exec(ctx context.Context, cmd string) ([]record, error) {
	c.execMu.Lock()
	defer c.execMu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	for c.stale > 0 {
		select {
		case <-c.responses:
			c.stale--
		case <-c.done:
			return nil, c.closedError()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if _, err := io.WriteString(c.rwc, cmd+"\n"); err != nil {
		return nil, fmt.Errorf("writing command: %w", err)
	}

	select {
	case resp := <-c.responses:
		if resp.err != nil {
			return nil, resp.err
		}
		var out []record
		for _, line := range resp.lines {
			out = append(out, parseRecords(line)...)
		}
		return out, nil
	case <-c.done:
		return nil, c.closedError()
	case <-ctx.Done():
		c.stale++
		return nil, ctx.Err()
	}
}

func (c *queryConn) shutdown(err error) {
	first := false
	c.closeOnce.Do(func() {
		first = true
		_ = c.rwc.Close()

		c.stateMu.Lock()
		c.closeErr = err
		c.stateMu.Unlock()

		close(c.done)
	})
	if !first {
		return
	}

	c.stateMu.Lock()
	deliberate := c.deliberate
	c.stateMu.Unlock()
	if !deliberate {
		c.onClose(c.closedError().Error())
	}
}

// close shuts the connection down without reporting it through onClose.
func (c *queryConn) close() {
	c.stateMu.Lock()
	c.deliberate = true
	c.stateMu.Unlock()
	c.shutdown(errConnClosed)
}

func (c *queryConn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// closedError describes why the connection ended, including the last server status
// so that ban hints survive into the reconnect logic.
func (c *queryConn) closedError() error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	err := c.closeErr
	if err == nil {
		err = errConnClosed
	}
	if errors.Is(err, io.EOF) {
		err = fmt.Errorf("%w: %w", errConnClosed, err)
	}
	if c.lastStatus != nil {
		return fmt.Errorf("%w (last status: %w)", err, c.lastStatus)
	}
	return err
}
