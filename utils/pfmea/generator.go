package pfmea

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kris-hansen/pfmea/utils/config"
	"github.com/kris-hansen/pfmea/utils/models"
	"github.com/kris-hansen/pfmea/utils/table"
)

// Generator turns a Request into a PFMEA table by prompting a model and
// extracting the table from its reply
type Generator struct {
	Provider  models.Provider
	Model     string
	Columns   []string     // defaults to Columns()
	Examples  *table.Table // optional few-shot rows
	MinRows   int
	Separator table.SeparatorRule
}

// Result is a generated table plus what produced it
type Result struct {
	Table       *table.Table
	Adjustments []table.RowAdjustment
	Model       string
	Prompt      string
	Response    string
	Elapsed     time.Duration
}

// GenerationError wraps a failure after the model answered, keeping the raw
// response for diagnostics
type GenerationError struct {
	Model    string
	Response string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("could not read PFMEA table from %s response: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsExtractionError reports whether err came from a malformed model reply
func IsExtractionError(err error) bool {
	return errors.Is(err, table.ErrMissingTable) || errors.Is(err, table.ErrMissingSeparator)
}

// Generate validates req, prompts the model once and extracts the table
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if g.Provider == nil {
		return nil, fmt.Errorf("generator has no provider")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cols := g.Columns
	if len(cols) == 0 {
		cols = Columns()
	}

	prompt := BuildPrompt(req, cols, g.Examples, g.MinRows)
	config.DebugLog("[PFMEA] Prompt length %d, model %s, examples %d", len(prompt), g.Model, g.Examples.Len())

	start := time.Now()
	response, err := g.Provider.SendPrompt(ctx, g.Model, prompt)
	if err != nil {
		return nil, fmt.Errorf("LLM execution failed for model '%s': %w", g.Model, err)
	}
	elapsed := time.Since(start)
	config.VerboseLog("Model %s answered in %s (%d characters)", g.Model, elapsed.Round(time.Millisecond), len(response))

	extracted, err := table.Extract(response, cols, table.Options{Separator: g.Separator})
	if err != nil {
		return nil, &GenerationError{Model: g.Model, Response: response, Err: err}
	}

	if n := extracted.Table.Len(); n < g.MinRows {
		config.VerboseLog("Model returned %d rows, fewer than the %d requested", n, g.MinRows)
	}
	if len(extracted.Adjustments) > 0 {
		config.VerboseLog("Normalized %d row(s) to %d columns", len(extracted.Adjustments), len(cols))
	}

	return &Result{
		Table:       extracted.Table,
		Adjustments: extracted.Adjustments,
		Model:       g.Model,
		Prompt:      prompt,
		Response:    response,
		Elapsed:     elapsed,
	}, nil
}
