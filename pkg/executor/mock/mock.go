// Package mock provides executors which simulate side effects,
// for previewing a workflow without calling external services.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/common-fate/flow/pkg/executor"
	"github.com/common-fate/flow/pkg/executor/delay"
	"github.com/common-fate/flow/pkg/executor/httpcall"
	"github.com/common-fate/flow/pkg/executor/mailer"
	"github.com/common-fate/flow/pkg/executor/sms"
	"github.com/common-fate/flow/pkg/node"
	"github.com/google/uuid"
)

// DelayCap is the longest a delay step will wait in a preview.
const DelayCap = 2 * time.Second

// Registry returns executors for every side-effecting kind.
func Registry() executor.Registry {
	return executor.Registry{
		node.WebhookTrigger: executor.Func(webhook),
		node.HTTPRequest:    executor.Func(http),
		node.Email:          executor.Func(email),
		node.SMS:            executor.Func(text),
		node.Delay:          delay.Executor{Cap: DelayCap},
	}
}

func http(_ context.Context, data node.Data) (executor.Output, error) {
	d, ok := data.(node.HTTPRequestData)
	if !ok {
		return nil, fmt.Errorf("mock: expected %s data, got %s", node.HTTPRequest, data.Kind())
	}
	return response(d.URL, d.Method), nil
}

func webhook(_ context.Context, data node.Data) (executor.Output, error) {
	d, ok := data.(node.WebhookTriggerData)
	if !ok {
		return nil, fmt.Errorf("mock: expected %s data, got %s", node.WebhookTrigger, data.Kind())
	}
	return response(d.URL, d.Method), nil
}

func response(url, method string) executor.Output {
	if method == "" {
		method = "GET"
	}
	return executor.ToOutput(httpcall.Result{
		Status:  200,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body: map[string]any{
			"mock":   true,
			"method": method,
			"url":    url,
		},
		URL: url,
	})
}

func email(_ context.Context, data node.Data) (executor.Output, error) {
	d, ok := data.(node.EmailData)
	if !ok {
		return nil, fmt.Errorf("mock: expected %s data, got %s", node.Email, data.Kind())
	}
	return executor.ToOutput(mailer.Result{
		MessageID: fmt.Sprintf("<mock-%s@flow.local>", uuid.NewString()),
		Accepted:  append(append([]string{}, d.To...), d.Cc...),
		Rejected:  []string{},
	}), nil
}

func text(_ context.Context, data node.Data) (executor.Output, error) {
	d, ok := data.(node.SMSData)
	if !ok {
		return nil, fmt.Errorf("mock: expected %s data, got %s", node.SMS, data.Kind())
	}
	return executor.ToOutput(sms.Result{
		SID:      "SM" + uuid.NewString(),
		Status:   "queued",
		To:       d.To,
		Segments: sms.Segments(d.Message),
	}), nil
}
