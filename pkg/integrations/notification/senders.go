package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dukex/flowrun/pkg/protocol"
)

const (
	DefaultSlackAPIURL  = "https://slack.com/api/chat.postMessage"
	DefaultTwilioAPIURL = "https://api.twilio.com/2010-04-01"
	DefaultEmailSubject = "Notification"
)

// SlackSender posts with a bot token to chat.postMessage. The recipient is
// the channel id.
type SlackSender struct {
	Client protocol.HTTPDoer
	Token  string
	APIURL string
}

func (s *SlackSender) Send(ctx context.Context, recipient, message string) error {
	apiURL := s.APIURL
	if apiURL == "" {
		apiURL = DefaultSlackAPIURL
	}

	payload, err := json.Marshal(map[string]string{"channel": recipient, "text": message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+s.Token)

	body, err := do(s.Client, req, protocol.ChannelSlack)
	if err != nil {
		return err
	}

	var reply struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}

	if err := json.Unmarshal(body, &reply); err != nil {
		return &protocol.NotificationDeliveryError{Channel: protocol.ChannelSlack, Err: fmt.Errorf("invalid response: %w", err)}
	}

	if !reply.OK {
		return &protocol.NotificationDeliveryError{Channel: protocol.ChannelSlack, Err: errors.New(reply.Error)}
	}

	return nil
}

// TeamsSender posts to an incoming webhook. The recipient is ignored; the
// webhook decides where the message lands.
type TeamsSender struct {
	Client     protocol.HTTPDoer
	WebhookURL string
}

func (s *TeamsSender) Send(ctx context.Context, _ string, message string) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("%w: teams webhook url", protocol.ErrMissingConfig)
	}

	payload, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	_, err = do(s.Client, req, protocol.ChannelTeams)

	return err
}

// TwilioSender sends SMS through the Twilio Messages API. The recipient is
// the destination phone number.
type TwilioSender struct {
	Client     protocol.HTTPDoer
	AccountSID string
	AuthToken  string
	From       string
	APIURL     string
}

func (s *TwilioSender) Send(ctx context.Context, recipient, message string) error {
	apiURL := s.APIURL
	if apiURL == "" {
		apiURL = DefaultTwilioAPIURL
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", strings.TrimRight(apiURL, "/"), url.PathEscape(s.AccountSID))

	form := url.Values{}
	form.Set("To", recipient)
	form.Set("From", s.From)
	form.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.AccountSID, s.AuthToken)

	_, err = do(s.Client, req, protocol.ChannelSMS)

	return err
}

// EmailSender queues the message as an email with a fixed subject.
type EmailSender struct {
	Queue   protocol.EmailQueue
	Subject string
}

func (s *EmailSender) Send(ctx context.Context, recipient, message string) error {
	subject := s.Subject
	if subject == "" {
		subject = DefaultEmailSubject
	}

	if _, err := s.Queue.Enqueue(ctx, recipient, subject, message); err != nil {
		return &protocol.NotificationDeliveryError{Channel: protocol.ChannelEmail, Err: err}
	}

	return nil
}

func do(client protocol.HTTPDoer, req *http.Request, channel string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &protocol.NotificationDeliveryError{Channel: channel, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &protocol.NotificationDeliveryError{Channel: channel, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &protocol.NotificationDeliveryError{
			Channel:    channel,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}

	return body, nil
}
