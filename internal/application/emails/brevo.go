package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// Message is one outbound notification email.
type Message struct {
	To      string
	CC      []string
	BCC     []string
	Subject string
	HTML    string
}

// Sender delivers notification emails. The engine treats a returned error
// as a soft failure: the sent-marker stays unset and the send retries on
// the next cycle.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoAddress   `json:"sender"`
	To          []BrevoAddress `json:"to"`
	CC          []BrevoAddress `json:"cc,omitempty"`
	BCC         []BrevoAddress `json:"bcc,omitempty"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

type BrevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// BrevoClient sends emails via the Brevo API. An empty APIKey disables
// outbound mail (sends report failure so markers are never written).
type BrevoClient struct {
	APIKey   string
	MailFrom string
	FromName string
	Client   *http.Client
}

func (c *BrevoClient) from() BrevoAddress {
	addr := c.MailFrom
	if addr == "" {
		addr = "noreply@localhost"
	}
	name := c.FromName
	if name == "" {
		name = "Wicked Billing"
	}
	return BrevoAddress{Email: addr, Name: name}
}

// Send sends one email via the Brevo API.
func (c *BrevoClient) Send(ctx context.Context, msg Message) error {
	if c.APIKey == "" {
		return fmt.Errorf("brevo: no api key configured")
	}
	body := BrevoSendRequest{
		Sender:      c.from(),
		To:          []BrevoAddress{{Email: msg.To}},
		Subject:     msg.Subject,
		HTMLContent: Layout(msg.HTML),
	}
	for _, cc := range msg.CC {
		body.CC = append(body.CC, BrevoAddress{Email: cc})
	}
	for _, bcc := range msg.BCC {
		body.BCC = append(body.BCC, BrevoAddress{Email: bcc})
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPI, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}
