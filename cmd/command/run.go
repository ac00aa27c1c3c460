package command

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"

	"github.com/common-fate/clio"
	"github.com/common-fate/flow"
	"github.com/common-fate/flow/pkg/executor"
	"github.com/common-fate/flow/pkg/executor/delay"
	"github.com/common-fate/flow/pkg/executor/httpcall"
	"github.com/common-fate/flow/pkg/executor/mailer"
	"github.com/common-fate/flow/pkg/executor/sms"
	"github.com/common-fate/flow/pkg/node"
	"github.com/common-fate/flow/pkg/runctx"
	"github.com/urfave/cli/v2"
)

var Run = cli.Command{
	Name:  "run",
	Usage: "execute a workflow",
	Flags: []cli.Flag{
		&cli.PathFlag{Name: fileFlag, Aliases: []string{"f"}, Usage: "the workflow snapshot, in YAML or JSON format", Required: true},
		&cli.StringFlag{Name: "start", Usage: "the node to start the run from"},
		&cli.BoolFlag{Name: "mock", Usage: "simulate HTTP, email, SMS and delay steps instead of calling out"},
		&cli.DurationFlag{Name: "timeout", Usage: "the longest a single step may run", Value: flow.DefaultNodeTimeout},
		&cli.IntFlag{Name: "retries", Usage: "how many times a failing step is retried"},
		&cli.BoolFlag{Name: "dot", Usage: "print the graph, shaded by node status, after the run"},
	},
	Action: func(c *cli.Context) error {
		g, err := load(c.Path(fileFlag))
		if err != nil {
			return err
		}

		compiler := flow.Compiler{Graph: g}
		plan, err := compiler.Compile()
		if err != nil {
			clio.Error("compile err")
			return err
		}

		engine := flow.NewEngine(plan, registry())

		ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
		defer cancel()

		res, err := engine.Run(ctx, flow.Options{
			StartNodeID: c.String("start"),
			MockMode:    c.Bool("mock"),
			NodeTimeout: c.Duration("timeout"),
			MaxRetries:  c.Int("retries"),
			OnStatus: func(id string, status runctx.Status) {
				clio.Debugf("%s: %s", id, status)
			},
		})
		if err != nil {
			return err
		}

		for _, e := range res.Context.Errors() {
			clio.Errorf("%s failed: %s", e.NodeID, e.Message)
		}

		switch {
		case res.Stopped:
			clio.Warnf("run %s was stopped: %s", res.ID, res.Summary())
		case res.Halted:
			clio.Errorf("run %s halted at %s: %s", res.ID, res.HaltedBy, res.Summary())
		default:
			clio.Successf("run %s completed: %s", res.ID, res.Summary())
		}

		ids := make([]string, 0, len(res.Statuses))
		for id := range res.Statuses {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			clio.Infof("%s: %s", id, res.Statuses[id])
		}

		if c.Bool("dot") {
			err = flow.DOT(plan.G, os.Stdout, res.Statuses)
			if err != nil {
				return err
			}
		}

		if !res.Succeeded() {
			return fmt.Errorf("run %s did not succeed", res.ID)
		}
		return nil
	},
}

// registry wires up the executors which call out to real services.
// SMTP and Twilio credentials are read from the environment.
func registry() executor.Registry {
	client := &httpcall.Client{HTTP: http.DefaultClient}
	return executor.Registry{
		node.WebhookTrigger: client,
		node.HTTPRequest:    client,
		node.Email:          mailer.New(mailer.ConfigFromEnv()),
		node.SMS:            &sms.Sender{Config: sms.ConfigFromEnv(), HTTP: http.DefaultClient},
		node.Delay:          delay.Executor{},
	}
}
