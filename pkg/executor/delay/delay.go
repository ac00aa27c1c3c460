// Package delay pauses a workflow run.
package delay

import (
	"context"
	"fmt"
	"time"

	"github.com/common-fate/flow/pkg/executor"
	"github.com/common-fate/flow/pkg/node"
)

// Duration converts a delay step's value and unit into a duration.
func Duration(d node.DelayData) (time.Duration, error) {
	if d.Value < 0 {
		return 0, fmt.Errorf("delay must not be negative (got %v)", d.Value)
	}
	var unit time.Duration
	switch d.Unit {
	case "ms", "milliseconds":
		unit = time.Millisecond
	case "", "s", "seconds":
		unit = time.Second
	case "m", "minutes":
		unit = time.Minute
	case "h", "hours":
		unit = time.Hour
	default:
		return 0, fmt.Errorf("unknown delay unit %q", d.Unit)
	}
	return time.Duration(d.Value * float64(unit)), nil
}

type Result struct {
	RequestedMS int64 `mapstructure:"requestedMs"`
	WaitedMS    int64 `mapstructure:"waitedMs"`
	Capped      bool  `mapstructure:"capped"`
}

// Executor waits for the requested duration.
type Executor struct {
	// Cap limits how long a delay can wait, for previews.
	// Zero means no limit.
	Cap time.Duration
}

func (e Executor) Execute(ctx context.Context, data node.Data) (executor.Output, error) {
	d, ok := data.(node.DelayData)
	if !ok {
		return nil, fmt.Errorf("delay: can't execute %s steps", data.Kind())
	}
	want, err := Duration(d)
	if err != nil {
		return nil, &executor.Error{Message: err.Error(), Permanent: true}
	}
	wait := want
	capped := false
	if e.Cap > 0 && wait > e.Cap {
		wait, capped = e.Cap, true
	}

	start := time.Now()
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
	}

	return executor.ToOutput(Result{
		RequestedMS: want.Milliseconds(),
		WaitedMS:    time.Since(start).Milliseconds(),
		Capped:      capped,
	}), nil
}
