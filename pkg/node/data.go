package node

import "github.com/common-fate/flow/pkg/condition"

// Data is the kind-specific payload of a node.
// Each Kind has exactly one Data variant. Variants embed Meta,
// which carries the unexported marker method.
type Data interface {
	Kind() Kind
	Common() Meta
	data()
}

// Meta holds the fields shared by every payload.
type Meta struct {
	Label       string `mapstructure:"label,omitempty"`
	Description string `mapstructure:"description,omitempty"`
}

func (m Meta) Common() Meta { return m }
func (Meta) data()          {}

type ManualTriggerData struct {
	Meta `mapstructure:",squash"`
	// Payload is merged into the trigger's output, so that
	// downstream steps have sample data to work with.
	Payload map[string]any `mapstructure:"payload,omitempty"`
}

func (ManualTriggerData) Kind() Kind { return ManualTrigger }

// WebhookTriggerData calls out to a webhook endpoint to
// fetch the data which starts the workflow.
type WebhookTriggerData struct {
	Meta    `mapstructure:",squash"`
	Method  string            `mapstructure:"method,omitempty"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers,omitempty"`
	Body    string            `mapstructure:"body,omitempty"`
}

func (WebhookTriggerData) Kind() Kind { return WebhookTrigger }

// Auth for outbound HTTP calls.
type Auth struct {
	// Type is one of "none", "basic" or "bearer".
	Type     string `mapstructure:"type,omitempty"`
	Username string `mapstructure:"username,omitempty"`
	Password string `mapstructure:"password,omitempty"`
	Token    string `mapstructure:"token,omitempty"`
}

type HTTPRequestData struct {
	Meta    `mapstructure:",squash"`
	Method  string            `mapstructure:"method,omitempty"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers,omitempty"`
	Auth    Auth              `mapstructure:"auth,omitempty"`
	Body    string            `mapstructure:"body,omitempty"`
	// TimeoutSeconds is enforced by the HTTP executor.
	// 0 uses the executor's default.
	TimeoutSeconds float64 `mapstructure:"timeout,omitempty"`
}

func (HTTPRequestData) Kind() Kind { return HTTPRequest }

type EmailData struct {
	Meta    `mapstructure:",squash"`
	To      []string `mapstructure:"to"`
	Cc      []string `mapstructure:"cc,omitempty"`
	Subject string   `mapstructure:"subject"`
	Body    string   `mapstructure:"body"`
}

func (EmailData) Kind() Kind { return Email }

type SMSData struct {
	Meta    `mapstructure:",squash"`
	From    string `mapstructure:"from"`
	To      string `mapstructure:"to"`
	Message string `mapstructure:"message"`
}

func (SMSData) Kind() Kind { return SMS }

// IfElseData routes execution down its "true" or "false" output.
type IfElseData struct {
	Meta       `mapstructure:",squash"`
	Conditions []condition.Condition `mapstructure:"conditions"`
	// Expression is an optional CEL expression. When set, it is
	// used instead of Conditions to decide the branch.
	Expression string `mapstructure:"expression,omitempty"`
}

func (IfElseData) Kind() Kind { return IfElse }

type DelayData struct {
	Meta  `mapstructure:",squash"`
	Value float64 `mapstructure:"value"`
	// Unit is one of "ms", "seconds", "minutes" or "hours".
	Unit string `mapstructure:"unit"`
}

func (DelayData) Kind() Kind { return Delay }

// Mapping types for a transform step.
const (
	MappingPath   = "path"
	MappingStatic = "static"
)

// Mapping extracts a value into a named workflow variable.
type Mapping struct {
	VariableName string `mapstructure:"variableName"`
	// Type is either MappingPath or MappingStatic.
	Type string `mapstructure:"type"`
	// Value is a path into the upstream output for MappingPath,
	// or the literal value for MappingStatic.
	Value any `mapstructure:"value"`
}

type TransformData struct {
	Meta     `mapstructure:",squash"`
	Mappings []Mapping `mapstructure:"mappings"`
}

func (TransformData) Kind() Kind { return Transform }
