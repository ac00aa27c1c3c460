package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/common-fate/clio"
	"github.com/common-fate/flow"
	"github.com/common-fate/flow/pkg/node"
	"github.com/common-fate/flow/pkg/runctx"
	"github.com/goccy/go-graphviz"
)

func main() {
	err := run()
	if err != nil {
		log.Fatal(err)
	}
}

func run() error {
	exampleFolder := "docs/examples"
	outputFolder := "docs/img"

	folders, err := os.ReadDir(exampleFolder)
	if err != nil {
		return err
	}

	for _, folder := range folders {
		if !folder.IsDir() {
			clio.Infof("skipping %s: not a folder", folder.Name())
			continue
		}

		workflowfile := filepath.Join(exampleFolder, folder.Name(), "workflow.yml")

		workflow, err := os.ReadFile(workflowfile)
		if err != nil {
			return err
		}

		g, err := flow.Unmarshal(workflow)
		if err != nil {
			return err
		}

		var statuses map[string]runctx.Status

		// might or might not have this
		inputFile := filepath.Join(exampleFolder, folder.Name(), "input.json")

		inputBytes, err := os.ReadFile(inputFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err == nil {
			var input map[string]any
			err = json.Unmarshal(inputBytes, &input)
			if err != nil {
				return err
			}

			// if we have input.json, preview a run with it as the trigger payload
			statuses, err = preview(g, input)
			if err != nil {
				return err
			}
		}

		var buf bytes.Buffer

		err = flow.DOT(g, &buf, statuses)
		if err != nil {
			return err
		}

		graph, err := graphviz.ParseBytes(buf.Bytes())
		if err != nil {
			return err
		}
		gv := graphviz.New()

		outfile := filepath.Join(outputFolder, folder.Name()+".svg")
		err = gv.RenderFilename(graph, graphviz.SVG, outfile)
		if err != nil {
			return err
		}
		clio.Successf("rendered %s", outfile)
	}
	return nil
}

// preview runs the workflow in mock mode, with input as the
// payload of every manual trigger.
func preview(g *flow.Graph, input map[string]any) (map[string]runctx.Status, error) {
	for _, n := range g.Nodes() {
		d, ok := n.Data.(node.ManualTriggerData)
		if !ok {
			continue
		}
		d.Payload = input
		n.Data = d
		if err := g.SetNode(n); err != nil {
			return nil, err
		}
	}

	compiler := flow.Compiler{Graph: g}
	plan, err := compiler.Compile()
	if err != nil {
		return nil, err
	}

	res, err := flow.NewEngine(plan, nil).Run(context.Background(), flow.Options{MockMode: true})
	if err != nil {
		return nil, err
	}
	return res.Statuses, nil
}
