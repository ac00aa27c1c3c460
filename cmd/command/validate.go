package command

import (
	"github.com/common-fate/clio"
	"github.com/common-fate/flow"
	"github.com/common-fate/flow/pkg/port"
	"github.com/urfave/cli/v2"
)

var Validate = cli.Command{
	Name:  "validate",
	Usage: "check a workflow for cycles, type mismatches and unconnected outputs",
	Flags: []cli.Flag{
		&cli.PathFlag{Name: fileFlag, Aliases: []string{"f"}, Usage: "the workflow snapshot, in YAML or JSON format", Required: true},
	},
	Action: func(c *cli.Context) error {
		g, err := load(c.Path(fileFlag))
		if err != nil {
			return err
		}

		res := flow.Validate(g, port.Default)
		for _, issue := range res.Errors {
			clio.Errorf("[%s] %s", issue.Type, issue.Message)
		}
		for _, issue := range res.Warnings {
			clio.Warnf("[%s] %s", issue.Type, issue.Message)
		}

		if !res.Valid {
			return flow.ErrGraphInvalid
		}
		clio.Successf("workflow is valid (%d nodes, %d edges, %d warnings)", g.NodeCount(), g.EdgeCount(), len(res.Warnings))
		return nil
	},
}
