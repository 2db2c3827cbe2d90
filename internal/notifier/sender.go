package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/luxemarket/storefront/pkg/httpclient"
)

// Sender delivers a text message to a phone number through some channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, phone, message string) error
}

// GatewayConfig configures the WhatsApp HTTP gateway.
type GatewayConfig struct {
	URL    string
	APIKey string
}

// WhatsAppGateway sends messages through a CallMeBot-style HTTP gateway:
// GET <url>?phone=...&text=...&apikey=...
type WhatsAppGateway struct {
	client *httpclient.CircuitBreakerClient
	cfg    GatewayConfig
	logger *slog.Logger
}

// NewWhatsAppGateway creates a gateway sender over client.
func NewWhatsAppGateway(client *httpclient.CircuitBreakerClient, cfg GatewayConfig, logger *slog.Logger) *WhatsAppGateway {
	return &WhatsAppGateway{client: client, cfg: cfg, logger: logger}
}

// Name returns the channel name.
func (g *WhatsAppGateway) Name() string {
	return "whatsapp-gateway"
}

// Send issues the gateway request. Any non-2xx status is an error. Errors
// never contain the API key.
func (g *WhatsAppGateway) Send(ctx context.Context, phone, message string) error {
	q := url.Values{}
	q.Set("phone", gatewayPhone(phone))
	q.Set("text", message)
	q.Set("apikey", g.cfg.APIKey)

	target := g.cfg.URL
	if strings.Contains(target, "?") {
		target += "&" + encodeQuery(q)
	} else {
		target += "?" + encodeQuery(q)
	}

	resp, err := g.client.Get(ctx, target)
	if errors.Is(err, httpclient.ErrCircuitOpen) {
		return fmt.Errorf("whatsapp gateway unavailable: %w", err)
	}
	if err != nil {
		return g.redact(fmt.Errorf("whatsapp gateway request: %w", unwrapURLError(err)))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return g.redact(httpclient.ParseResponseError(resp, "whatsapp gateway"))
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()

	g.logger.DebugContext(ctx, "whatsapp gateway accepted message", slog.Int("status", resp.StatusCode))
	return nil
}

// unwrapURLError drops the *url.Error wrapper, whose message carries the full
// request URL including the API key.
func unwrapURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}

func (g *WhatsAppGateway) redact(err error) error {
	if err == nil || g.cfg.APIKey == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, g.cfg.APIKey) && !strings.Contains(msg, url.QueryEscape(g.cfg.APIKey)) {
		return err
	}
	msg = strings.ReplaceAll(msg, g.cfg.APIKey, "[redacted]")
	msg = strings.ReplaceAll(msg, url.QueryEscape(g.cfg.APIKey), "[redacted]")
	return errors.New(msg)
}
