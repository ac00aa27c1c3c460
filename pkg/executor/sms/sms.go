// Package sms sends text messages with the Twilio messages API.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/common-fate/flow/pkg/executor"
	"github.com/common-fate/flow/pkg/node"
	"github.com/pkg/errors"
)

const DefaultBaseURL = "https://api.twilio.com"

type Config struct {
	AccountSID string
	AuthToken  string
	// BaseURL is DefaultBaseURL if not provided.
	BaseURL string
}

// ConfigFromEnv reads the Twilio credentials from FLOW_TWILIO_* variables.
func ConfigFromEnv() Config {
	return Config{
		AccountSID: os.Getenv("FLOW_TWILIO_ACCOUNT_SID"),
		AuthToken:  os.Getenv("FLOW_TWILIO_AUTH_TOKEN"),
		BaseURL:    os.Getenv("FLOW_TWILIO_BASE_URL"),
	}
}

// Result is the output of an SMS step.
type Result struct {
	SID      string `mapstructure:"sid"`
	Status   string `mapstructure:"status"`
	To       string `mapstructure:"to"`
	Segments int    `mapstructure:"segments"`
}

type Sender struct {
	Config Config
	HTTP   *http.Client
}

type message struct {
	SID         string `json:"sid"`
	Status      string `json:"status"`
	To          string `json:"to"`
	NumSegments string `json:"num_segments"`
	Message     string `json:"message"`
}

func (s *Sender) Execute(ctx context.Context, data node.Data) (executor.Output, error) {
	d, ok := data.(node.SMSData)
	if !ok {
		return nil, fmt.Errorf("sms: can't execute %s steps", data.Kind())
	}
	if d.To == "" {
		return nil, &executor.Error{Message: "an SMS needs a recipient", Permanent: true}
	}
	if s.Config.AccountSID == "" {
		return nil, &executor.Error{Message: "no Twilio account is configured", Permanent: true}
	}

	base := s.Config.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimSuffix(base, "/"), s.Config.AccountSID)

	form := url.Values{}
	form.Set("To", d.To)
	form.Set("From", d.From)
	form.Set("Body", d.Message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.Config.AccountSID, s.Config.AuthToken)

	client := s.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sending SMS")
	}
	defer res.Body.Close()

	var m message
	if err := json.NewDecoder(res.Body).Decode(&m); err != nil {
		return nil, errors.Wrap(err, "decoding Twilio response")
	}
	if res.StatusCode >= 400 {
		msg := m.Message
		if msg == "" {
			msg = res.Status
		}
		return nil, &executor.Error{
			Message:   fmt.Sprintf("SMS was rejected: %s", msg),
			Permanent: res.StatusCode < 500,
		}
	}

	segments, _ := strconv.Atoi(m.NumSegments)
	return executor.ToOutput(Result{SID: m.SID, Status: m.Status, To: m.To, Segments: segments}), nil
}

// Segments estimates how many 160 character segments a message needs.
func Segments(message string) int {
	n := len([]rune(message))
	if n == 0 {
		return 1
	}
	return (n + 159) / 160
}
