package mem

import (
	"context"

	"github.com/jvollmer/go-flow/engine"
)

type query struct {
	e *memEngine

	options engine.QueryOptions
}

func (q *query) QueryActivities(_ context.Context, criteria engine.ActivityCriteria) ([]engine.ActivityInstance, error) {
	defer q.e.unlock()
	return q.e.rlock().Activities().Query(criteria, q.options)
}

func (q *query) QueryEvents(_ context.Context, criteria engine.EventCriteria) ([]engine.ProcessEvent, error) {
	defer q.e.unlock()
	return q.e.rlock().Events().Query(criteria, q.options)
}

func (q *query) QueryProcesses(_ context.Context, criteria engine.ProcessCriteria) ([]engine.Process, error) {
	defer q.e.unlock()
	return q.e.rlock().Processes().Query(criteria, q.options)
}

func (q *query) QueryProcessInstances(_ context.Context, criteria engine.ProcessInstanceCriteria) ([]engine.ProcessInstance, error) {
	defer q.e.unlock()
	return q.e.rlock().ProcessInstances().Query(criteria, q.options)
}

func (q *query) QueryTasks(_ context.Context, criteria engine.TaskCriteria) ([]engine.Task, error) {
	defer q.e.unlock()
	return q.e.rlock().Tasks().Query(criteria, q.options)
}

func (q *query) QueryTokens(_ context.Context, criteria engine.TokenCriteria) ([]engine.Token, error) {
	defer q.e.unlock()
	return q.e.rlock().Tokens().Query(criteria, q.options)
}

func (q *query) SetOptions(options engine.QueryOptions) {
	if options.Limit <= 0 {
		options.Limit = q.e.defaultQueryLimit
	}
	q.options = options
}
