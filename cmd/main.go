package main

import (
	"log"
	"os"

	"github.com/common-fate/flow/cmd/command"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "flow",
		Usage: "validate and run workflow graphs",
		Commands: []*cli.Command{
			&command.Validate,
			&command.Run,
			&command.Dot,
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
