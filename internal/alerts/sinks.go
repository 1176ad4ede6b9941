package alerts

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mbd888/chainrisk/internal/realtime"
	"github.com/mbd888/chainrisk/internal/upstream"
)

// Headers set on webhook deliveries.
const (
	HeaderEvent     = "X-Chainrisk-Event"
	HeaderTimestamp = "X-Chainrisk-Timestamp"
	HeaderSignature = "X-Chainrisk-Signature"

	eventHighRisk = "alert.high_risk"
)

// WebhookSink posts the alert as JSON. When a secret is set the body is
// signed with HMAC-SHA256 and the hex digest sent in HeaderSignature.
type WebhookSink struct {
	url    string
	secret string
	client *http.Client
}

func NewWebhookSink(url, secret string, client *http.Client) *WebhookSink {
	return &WebhookSink{url: url, secret: secret, client: client}
}

func (w *WebhookSink) Name() string { return "webhook" }

func (w *WebhookSink) Deliver(ctx context.Context, a *Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	headers := map[string]string{
		HeaderEvent:     eventHighRisk,
		HeaderTimestamp: strconv.FormatInt(a.Timestamp.Unix(), 10),
	}
	if w.secret != "" {
		headers[HeaderSignature] = Sign(payload, w.secret)
	}
	_, err = upstream.Do(ctx, w.client, upstream.Request{
		Method:  http.MethodPost,
		URL:     w.url,
		Headers: headers,
		Body:    json.RawMessage(payload),
	})
	return err
}

// Sign returns the hex HMAC-SHA256 of payload.
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// DiscordSink posts the alert as a Discord webhook embed.
type DiscordSink struct {
	url    string
	client *http.Client
}

func NewDiscordSink(url string, client *http.Client) *DiscordSink {
	return &DiscordSink{url: url, client: client}
}

func (d *DiscordSink) Name() string { return "discord" }

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Timestamp   string         `json:"timestamp"`
}

type discordMessage struct {
	Content string         `json:"content"`
	Embeds  []discordEmbed `json:"embeds"`
}

var severityColor = map[string]int{
	"critical": 0xE53935,
	"high":     0xFB8C00,
	"medium":   0xFDD835,
	"low":      0x43A047,
}

func (d *DiscordSink) Deliver(ctx context.Context, a *Alert) error {
	msg := discordMessage{
		Content: fmt.Sprintf("**%s risk** address on %s", a.Severity, a.Blockchain),
		Embeds: []discordEmbed{{
			Title:       "High-risk address: " + a.Address,
			Description: a.Message,
			Color:       severityColor[a.Severity],
			Fields: []discordField{
				{Name: "Risk Score", Value: strconv.Itoa(a.RiskScore) + "/100", Inline: true},
				{Name: "Type", Value: string(a.Type), Inline: true},
				{Name: "Blockchain", Value: a.Blockchain, Inline: true},
			},
			Timestamp: a.Timestamp.Format(time.RFC3339),
		}},
	}
	_, err := upstream.Do(ctx, d.client, upstream.Request{Method: http.MethodPost, URL: d.url, Body: msg})
	return err
}

// HubSink publishes alerts to the live alert feed.
type HubSink struct {
	hub *realtime.Hub
}

func NewHubSink(hub *realtime.Hub) *HubSink {
	return &HubSink{hub: hub}
}

func (h *HubSink) Name() string { return "feed" }

func (h *HubSink) Deliver(_ context.Context, a *Alert) error {
	ok := h.hub.Publish(&realtime.Event{
		Type:      realtime.EventAlert,
		Severity:  a.Severity,
		Address:   a.Address,
		Timestamp: a.Timestamp,
		Data:      a,
	})
	if !ok {
		return fmt.Errorf("alert feed queue full")
	}
	return nil
}
