package flow

import (
	"github.com/common-fate/flow/pkg/expr"
	"github.com/common-fate/flow/pkg/node"
)

// resolveData substitutes {{ }} placeholders in the string fields
// of a payload which is about to be sent to an executor.
// The payload in the plan is not modified.
func resolveData(d node.Data, s expr.Scope) node.Data {
	str := func(v string) string { return expr.Resolve(v, s) }

	switch d := d.(type) {
	case node.HTTPRequestData:
		d.URL = str(d.URL)
		d.Method = str(d.Method)
		d.Headers = resolveMap(d.Headers, s)
		d.Body = str(d.Body)
		d.Auth.Username = str(d.Auth.Username)
		d.Auth.Password = str(d.Auth.Password)
		d.Auth.Token = str(d.Auth.Token)
		return d
	case node.WebhookTriggerData:
		d.URL = str(d.URL)
		d.Method = str(d.Method)
		d.Headers = resolveMap(d.Headers, s)
		d.Body = str(d.Body)
		return d
	case node.EmailData:
		d.To = resolveList(d.To, s)
		d.Cc = resolveList(d.Cc, s)
		d.Subject = str(d.Subject)
		d.Body = str(d.Body)
		return d
	case node.SMSData:
		d.From = str(d.From)
		d.To = str(d.To)
		d.Message = str(d.Message)
		return d
	}
	return d
}

func resolveMap(m map[string]string, s expr.Scope) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = expr.Resolve(v, s)
	}
	return out
}

func resolveList(l []string, s expr.Scope) []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l))
	for i, v := range l {
		out[i] = expr.Resolve(v, s)
	}
	return out
}
