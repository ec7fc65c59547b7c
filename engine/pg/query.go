package pg

import (
	"context"

	"github.com/jvollmer/go-flow/engine"
)

type query struct {
	e *pgEngine

	options engine.QueryOptions
}

func (q *query) QueryActivities(ctx context.Context, criteria engine.ActivityCriteria) ([]engine.ActivityInstance, error) {
	w, cancel := q.e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return nil, err
	}

	results, err := pgCtx.Activities().Query(criteria, q.options)
	return results, w.release(pgCtx, err)
}

func (q *query) QueryEvents(ctx context.Context, criteria engine.EventCriteria) ([]engine.ProcessEvent, error) {
	w, cancel := q.e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return nil, err
	}

	results, err := pgCtx.Events().Query(criteria, q.options)
	return results, w.release(pgCtx, err)
}

func (q *query) QueryProcesses(ctx context.Context, criteria engine.ProcessCriteria) ([]engine.Process, error) {
	w, cancel := q.e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return nil, err
	}

	results, err := pgCtx.Processes().Query(criteria, q.options)
	return results, w.release(pgCtx, err)
}

func (q *query) QueryProcessInstances(ctx context.Context, criteria engine.ProcessInstanceCriteria) ([]engine.ProcessInstance, error) {
	w, cancel := q.e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return nil, err
	}

	results, err := pgCtx.ProcessInstances().Query(criteria, q.options)
	return results, w.release(pgCtx, err)
}

func (q *query) QueryTasks(ctx context.Context, criteria engine.TaskCriteria) ([]engine.Task, error) {
	w, cancel := q.e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return nil, err
	}

	results, err := pgCtx.Tasks().Query(criteria, q.options)
	return results, w.release(pgCtx, err)
}

func (q *query) QueryTokens(ctx context.Context, criteria engine.TokenCriteria) ([]engine.Token, error) {
	w, cancel := q.e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return nil, err
	}

	results, err := pgCtx.Tokens().Query(criteria, q.options)
	return results, w.release(pgCtx, err)
}

func (q *query) SetOptions(options engine.QueryOptions) {
	if options.Limit <= 0 {
		options.Limit = q.e.defaultQueryLimit
	}
	q.options = options
}
