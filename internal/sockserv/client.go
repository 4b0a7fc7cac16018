package sockserv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/etoilefixes/ubuntu-error-log-tool/internal/model"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/protocol"
)

// Client speaks the daemon protocol on behalf of a collaborator (the CLI, or
// tests). One client carries exactly one request.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

// Dial connects to the daemon socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("sockserv: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	return &Client{conn: conn, scanner: scanner}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Analyze sends an analyze request and waits for the single report.
func (c *Client) Analyze(cfg model.Config) (*model.AnalyzeResponse, error) {
	cfg.Mode = model.ModeAnalyze
	if err := protocol.WriteLine(c.conn, cfg); err != nil {
		return nil, fmt.Errorf("sockserv: send request: %w", err)
	}

	line, err := c.readLine()
	if err != nil {
		return nil, err
	}

	var failure model.ErrorResponse
	if err := json.Unmarshal(line, &failure); err == nil && failure.Error != "" {
		return nil, fmt.Errorf("sockserv: daemon error: %s", failure.Error)
	}

	var resp model.AnalyzeResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("sockserv: unmarshal response: %w", err)
	}
	return &resp, nil
}

// Stream sends a stream request and calls handle for every relayed line until
// the daemon's terminal done marker. A done marker carrying an error, or an
// error returned by handle, ends the stream with that error.
func (c *Client) Stream(cfg model.Config, handle func(line string) error) error {
	cfg.Mode = model.ModeStream
	if err := protocol.WriteLine(c.conn, cfg); err != nil {
		return fmt.Errorf("sockserv: send request: %w", err)
	}

	for {
		line, err := c.readLine()
		if err != nil {
			return err
		}

		var msg model.StreamLine
		if err := json.Unmarshal(line, &msg); err != nil {
			return fmt.Errorf("sockserv: unmarshal stream line: %w", err)
		}
		if msg.Error != "" {
			return fmt.Errorf("sockserv: daemon error: %s", msg.Error)
		}
		if msg.Done {
			return nil
		}
		if err := handle(msg.Line); err != nil {
			return err
		}
	}
}

func (c *Client) readLine() ([]byte, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return nil, fmt.Errorf("sockserv: read: %w", err)
		}
		return nil, errors.New("sockserv: connection closed before response")
	}
	return c.scanner.Bytes(), nil
}
