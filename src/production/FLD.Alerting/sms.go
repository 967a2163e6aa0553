package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	config "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Config"
	auth_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/auth"
)

// SMSChannel sends alerts through the Notify.lk HTTP gateway
type SMSChannel struct {
	endpoint    string
	userID      string
	apiKey      string
	senderID    string
	countryCode string
	client      *http.Client
}

// SMSOption configures the SMS channel
type SMSOption func(*SMSChannel)

// WithSMSHTTPClient overrides the HTTP client
func WithSMSHTTPClient(client *http.Client) SMSOption {
	return func(c *SMSChannel) {
		if client != nil {
			c.client = client
		}
	}
}

func NewSMSChannel(cfg config.SMSConfig, opts ...SMSOption) *SMSChannel {
	c := &SMSChannel{
		endpoint:    cfg.URL,
		userID:      cfg.UserID,
		apiKey:      cfg.APIKey,
		senderID:    cfg.SenderID,
		countryCode: cfg.CountryCode,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Recipient(user *auth_models.User) (string, bool) {
	phone := NormalizePhone(user.Phone(), c.countryCode)
	return phone, phone != ""
}

type notifyResponse struct {
	Status string `json:"status"`
	Data   string `json:"data"`
}

func (c *SMSChannel) Send(ctx context.Context, to, message string) error {
	params := url.Values{}
	params.Set("user_id", c.userID)
	params.Set("api_key", c.apiKey)
	params.Set("sender_id", c.senderID)
	params.Set("to", to)
	params.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway: non-2xx response %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out notifyResponse
	if err := json.Unmarshal(body, &out); err == nil && out.Status != "" && out.Status != "success" {
		return fmt.Errorf("sms gateway: status %q", out.Status)
	}
	return nil
}

// NormalizePhone converts a local number to international form by
// dropping leading zeros and prefixing the country code. Numbers that
// already start with "+" are returned unchanged.
func NormalizePhone(phone, countryCode string) string {
	phone = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	local := strings.TrimLeft(phone, "0")
	if local == "" {
		return ""
	}
	return countryCode + local
}
