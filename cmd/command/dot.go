package command

import (
	"os"

	"github.com/common-fate/flow"
	"github.com/urfave/cli/v2"
)

var Dot = cli.Command{
	Name:  "dot",
	Usage: "print a workflow in Graphviz DOT format",
	Flags: []cli.Flag{
		&cli.PathFlag{Name: fileFlag, Aliases: []string{"f"}, Usage: "the workflow snapshot, in YAML or JSON format", Required: true},
	},
	Action: func(c *cli.Context) error {
		g, err := load(c.Path(fileFlag))
		if err != nil {
			return err
		}
		return flow.DOT(g, os.Stdout, nil)
	},
}
