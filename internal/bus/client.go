package bus

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/paperwavelabs/paperwave-core/internal/config"
	"github.com/paperwavelabs/paperwave-core/internal/protocol"
)

// Client wraps a NATS connection used for best-effort progress broadcasting.
// A nil *Client is valid and drops all publishes, so callers need no
// enabled-check at every site.
type Client struct {
	conn *nats.Conn
	log  *slog.Logger
}

func Connect(cfg config.BusConfig, log *slog.Logger) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}

	options := []nats.Option{
		nats.Name("paperwave-runtime"),
		nats.Timeout(time.Duration(cfg.ConnectTimeout) * time.Millisecond),
	}

	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	if cfg.TLSInsecure {
		options = append(options, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}

	url := strings.Join(cfg.Servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info("connected to NATS", slog.String("servers", url))

	return &Client{
		conn: conn,
		log:  log,
	}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	c.log.Info("closing NATS connection")
	c.conn.Drain()
	c.conn.Close()
}

func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}

// PublishProgress broadcasts a stage transition. Failures are logged and
// dropped; the polling store remains the source of truth.
func (c *Client) PublishProgress(evt protocol.TaskProgress) {
	if c == nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		c.log.Warn("failed to marshal progress event", slog.String("error", err.Error()))
		return
	}
	if err := c.conn.Publish(protocol.SubjectTaskProgress(evt.TaskID), data); err != nil {
		c.log.Warn("failed to publish progress event",
			slog.String("task_id", evt.TaskID), slog.String("error", err.Error()))
	}
}
