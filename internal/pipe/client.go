package pipe

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/vdtime/vdtime/internal/models"
	"github.com/vdtime/vdtime/internal/protocol"
	"github.com/vdtime/vdtime/pkg/desktop"
)

const replyTimeout = 5 * time.Second

// ReplyError is an error reported by the server
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string {
	return e.Message
}

// Client sends commands over one connection. It is safe for concurrent use;
// commands are serialized.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to the socket at path
func Dial(ctx context.Context, path string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s", path)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Send writes one command line and returns the raw reply line. Structured
// error replies are returned as *ReplyError.
func (c *Client) Send(line string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetDeadline(time.Now().Add(replyTimeout)); err != nil {
		return "", errors.Wrap(err, "set deadline")
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return "", errors.Wrap(err, "send command")
	}
	reply, err := c.r.ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "read reply")
	}
	reply = strings.TrimPrefix(reply, "\uFEFF")
	reply = strings.TrimRight(reply, "\r\n")

	if msg, ok := protocol.DecodeError(reply); ok {
		return "", &ReplyError{Message: msg}
	}
	return reply, nil
}

// Do sends req and returns the raw reply
func (c *Client) Do(req protocol.Request) (string, error) {
	return c.Send(req.String())
}

func (c *Client) decode(req protocol.Request, v any) error {
	reply, err := c.Do(req)
	if err != nil {
		return err
	}
	return errors.Wrapf(json.Unmarshal([]byte(reply), v), "decode %s reply", req.Verb)
}

func (c *Client) Desktops() ([]desktop.Desktop, error) {
	var desktops []desktop.Desktop
	err := c.decode(protocol.Request{Verb: protocol.GetDesktops}, &desktops)
	return desktops, err
}

func (c *Client) CurrentDesktop() (models.DesktopAndTime, error) {
	var current models.DesktopAndTime
	err := c.decode(protocol.Request{Verb: protocol.CurrDesktop}, &current)
	return current, err
}

func (c *Client) TimeOn(name, guid string) (uint64, error) {
	reply, err := c.Do(protocol.Request{Verb: protocol.TimeOn, Name: name, GUID: guid})
	if err != nil {
		return 0, err
	}
	secs, err := strconv.ParseUint(reply, 10, 64)
	return secs, errors.Wrap(err, "decode time_on reply")
}

func (c *Client) TimeAll() ([]models.DesktopAndTime, error) {
	var times []models.DesktopAndTime
	err := c.decode(protocol.Request{Verb: protocol.TimeAll}, &times)
	return times, err
}

func (c *Client) Reset() error {
	reply, err := c.Do(protocol.Request{Verb: protocol.Reset})
	if err != nil {
		return err
	}
	if reply != protocol.Ack {
		return errors.Errorf("unexpected reset reply %q", reply)
	}
	return nil
}

// Close ends the session with an empty line and closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.Write([]byte("\n"))
	return c.conn.Close()
}
