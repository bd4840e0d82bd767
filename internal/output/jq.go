package output

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
)

// writeJQ runs the configured jq expression over v and writes each result
// as indented JSON, one value per document.
func (w *Writer) writeJQ(v any) error {
	results, err := RunJQ(w.opts.JQ, v)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := w.writeJSON(r); err != nil {
			return err
		}
	}
	return nil
}

// RunJQ evaluates expr against the JSON form of v.
func RunJQ(expr string, v any) ([]any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, ErrUsageHint(fmt.Sprintf("Invalid --jq expression: %v", err), "See https://jqlang.org/manual/ for syntax")
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, ErrUsage(fmt.Sprintf("Invalid --jq expression: %v", err))
	}

	input, err := toJQValue(v)
	if err != nil {
		return nil, ErrInternal(err)
	}

	var results []any
	iter := code.Run(input)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := out.(error); isErr {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return nil, ErrUsage(fmt.Sprintf("--jq: %v", err))
		}
		results = append(results, out)
	}
	return results, nil
}

// toJQValue converts v to the plain map/slice form gojq operates on.
func toJQValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding jq input: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decoding jq input: %w", err)
	}
	return out, nil
}
