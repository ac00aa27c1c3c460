// Package noderr contains an error definition for
// errors tied to a location in a workflow snapshot.
package noderr

import (
	"errors"

	"github.com/goccy/go-yaml"
)

type NodeError struct {
	// Path is the YAML path of the offending element,
	// e.g. '$.nodes[2].data'.
	Path string
	Err  error
}

// PrettyPrint the error along with the offending region of the snapshot.
func (ne NodeError) PrettyPrint(yml []byte) (string, error) {
	path, err := yaml.PathString(ne.Path)
	if err != nil {
		return "", err
	}
	source, err := path.AnnotateSource(yml, true)
	if err != nil {
		return "", err
	}
	return string(source), nil
}

func (ne NodeError) Error() string {
	return ne.Err.Error()
}

func (ne NodeError) Unwrap() error {
	return ne.Err
}

// Wrap an error with the path it occurred at.
// Errors which already carry a path are returned as is,
// so that the innermost path wins.
func Wrap(err error, path string) error {
	if err == nil {
		return nil
	}
	var ne NodeError
	if errors.As(err, &ne) {
		return err
	}
	return NodeError{Err: err, Path: path}
}
