package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// EvalCase is one labeled message for classification evaluation.
type EvalCase struct {
	Input            string `json:"input"`
	ExpectedCategory string `json:"expected_category"`
}

// EvalReport summarizes category accuracy over a case set.
type EvalReport struct {
	Total   int
	Correct int
}

func (r EvalReport) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// LoadEvalCases reads a JSON array of cases from path.
func LoadEvalCases(path string) ([]EvalCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read eval cases: %w", err)
	}

	var cases []EvalCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse eval cases: %w", err)
	}
	return cases, nil
}

// Evaluate runs every case through the orchestrator and counts correct
// category predictions.
func (o *Orchestrator) Evaluate(ctx context.Context, sessionID string, cases []EvalCase) EvalReport {
	report := EvalReport{Total: len(cases)}
	for _, c := range cases {
		result := o.HandleMessage(ctx, c.Input, sessionID, "")
		if result.Category == c.ExpectedCategory {
			report.Correct++
		}
	}
	return report
}
