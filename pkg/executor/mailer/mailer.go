// Package mailer sends the emails of email steps over SMTP.
package mailer

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/common-fate/flow/pkg/executor"
	"github.com/common-fate/flow/pkg/node"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"
)

const DefaultPort = 587

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the sender address of every email.
	From string
}

// ConfigFromEnv reads the SMTP configuration from FLOW_SMTP_* variables.
func ConfigFromEnv() Config {
	c := Config{
		Host:     os.Getenv("FLOW_SMTP_HOST"),
		Username: os.Getenv("FLOW_SMTP_USERNAME"),
		Password: os.Getenv("FLOW_SMTP_PASSWORD"),
		From:     os.Getenv("FLOW_SMTP_FROM"),
		Port:     DefaultPort,
	}
	if p, err := strconv.Atoi(os.Getenv("FLOW_SMTP_PORT")); err == nil {
		c.Port = p
	}
	return c
}

// Result is the output of an email step.
type Result struct {
	MessageID string   `mapstructure:"messageId"`
	Accepted  []string `mapstructure:"accepted"`
	Rejected  []string `mapstructure:"rejected"`
}

type Mailer struct {
	Config Config
	// send delivers a message. It is replaced in tests.
	send func(ctx context.Context, m *mail.Msg) error
}

func New(cfg Config) *Mailer {
	m := &Mailer{Config: cfg}
	m.send = m.dialAndSend
	return m
}

func (m *Mailer) Execute(ctx context.Context, data node.Data) (executor.Output, error) {
	d, ok := data.(node.EmailData)
	if !ok {
		return nil, fmt.Errorf("mailer: can't execute %s steps", data.Kind())
	}
	if len(d.To) == 0 {
		return nil, &executor.Error{Message: "an email needs at least one recipient", Permanent: true}
	}

	msg, id, err := m.build(d)
	if err != nil {
		return nil, &executor.Error{Message: err.Error(), Permanent: true}
	}
	if err := m.send(ctx, msg); err != nil {
		return nil, errors.Wrap(err, "sending email")
	}

	accepted := append(append([]string{}, d.To...), d.Cc...)
	return executor.ToOutput(Result{MessageID: id, Accepted: accepted, Rejected: []string{}}), nil
}

func (m *Mailer) build(d node.EmailData) (*mail.Msg, string, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.Config.From); err != nil {
		return nil, "", errors.Wrapf(err, "invalid sender %q", m.Config.From)
	}
	if err := msg.To(d.To...); err != nil {
		return nil, "", errors.Wrap(err, "invalid recipient")
	}
	if len(d.Cc) > 0 {
		if err := msg.Cc(d.Cc...); err != nil {
			return nil, "", errors.Wrap(err, "invalid cc recipient")
		}
	}
	msg.Subject(d.Subject)
	msg.SetBodyString(mail.TypeTextPlain, d.Body)

	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), m.Config.Host)
	msg.SetGenHeader(mail.HeaderMessageID, id)
	return msg, id, nil
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	if m.Config.Host == "" {
		return errors.New("no SMTP host is configured")
	}
	port := m.Config.Port
	if port == 0 {
		port = DefaultPort
	}
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if m.Config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.Config.Username),
			mail.WithPassword(m.Config.Password),
		)
	}
	client, err := mail.NewClient(m.Config.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
