package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/common-fate/clio"
	"github.com/common-fate/flow"
	"github.com/common-fate/flow/pkg/noderr"
)

var fileFlag = "file"

// load a workflow snapshot, printing the offending region
// of the file if a node or edge can't be decoded.
func load(f string) (*flow.Graph, error) {
	data, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}

	g, err := flow.Unmarshal(data)

	var ne noderr.NodeError
	if errors.As(err, &ne) {
		clio.Infof("node error at: %s", ne.Path)
		source, printErr := ne.PrettyPrint(data)
		if printErr != nil {
			clio.Errorf("error pretty printing YAML path: %s", printErr)
		}
		fmt.Fprintf(os.Stderr, "%s\n", source)
	}

	if err != nil {
		return nil, err
	}
	return g, nil
}
