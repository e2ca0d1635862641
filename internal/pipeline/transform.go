package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
)

// Evaluator answers a parsed query. *risk.Classifier implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, q domain.Query) (domain.Result, error)
}

// RiskTransformer implements Transformer by parsing the query message and
// handing it to an Evaluator.
type RiskTransformer struct {
	evaluator Evaluator
	logger    *slog.Logger
}

// NewTransformer creates a RiskTransformer.
func NewTransformer(evaluator Evaluator, logger *slog.Logger) *RiskTransformer {
	return &RiskTransformer{
		evaluator: evaluator,
		logger:    logger,
	}
}

func (t *RiskTransformer) Transform(ctx context.Context, raw domain.RawMessage) (domain.Result, error) {
	q, err := domain.ParseQuery(raw)
	if err != nil {
		return domain.Result{}, err
	}

	res, err := t.evaluator.Evaluate(ctx, q)
	if err != nil {
		return domain.Result{}, err
	}

	t.logger.Debug("query evaluated",
		"query_id", q.ID,
		"operation", q.Operation,
		"region", q.Region.Name,
		"status", res.Status,
	)
	return res, nil
}
