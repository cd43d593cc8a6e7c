package async

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the number of concurrent calls Map makes when given a limit < 1.
const DefaultLimit = 5

// Map calls f for every input with at most limit calls in flight, waits for all of them, and returns the outputs in
// input order. Each call writes only its own slot of the output slice. f cannot fail; it should fold any error into
// its output.
func Map[In any, Out any](ctx context.Context, limit int, inputs []In, f func(context.Context, In) Out) []Out {
	if limit < 1 {
		limit = DefaultLimit
	}
	outputs := make([]Out, len(inputs))
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range inputs {
		i := i
		g.Go(func() error {
			outputs[i] = f(ctx, inputs[i])
			return nil
		})
	}
	_ = g.Wait()
	return outputs
}
