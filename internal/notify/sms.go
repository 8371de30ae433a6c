package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"ms-reservations/internal/config"
)

// HTTPSMSSender posts messages to a Twilio-compatible REST endpoint.
type HTTPSMSSender struct {
	cfg    config.SMSConfig
	client *http.Client
}

func NewHTTPSMSSender(cfg config.SMSConfig, client *http.Client) *HTTPSMSSender {
	return &HTTPSMSSender{cfg: cfg, client: client}
}

func (s *HTTPSMSSender) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.cfg.FromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create SMS request: %w", err)
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms provider error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms provider rejected message: status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
