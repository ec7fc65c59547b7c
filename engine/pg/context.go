package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
	"github.com/jvollmer/go-flow/expr"
)

type pgContext struct {
	options Options

	evaluator *expr.Evaluator

	time time.Time

	tx    pgx.Tx
	txCtx context.Context

	processCache *internal.ProcessCache
}

func (c *pgContext) Options() engine.Options {
	return c.options.Common
}

func (c *pgContext) Evaluator() *expr.Evaluator {
	return c.evaluator
}

func (c *pgContext) Time() time.Time {
	return c.time
}

func (c *pgContext) Activities() internal.ActivityRepository {
	return activityRepository{tx: c.tx, txCtx: c.txCtx}
}

func (c *pgContext) Events() internal.EventRepository {
	return eventRepository{tx: c.tx, txCtx: c.txCtx}
}

func (c *pgContext) Processes() internal.ProcessRepository {
	return processRepository{tx: c.tx, txCtx: c.txCtx}
}

func (c *pgContext) ProcessCache() *internal.ProcessCache {
	return c.processCache
}

func (c *pgContext) ProcessInstances() internal.ProcessInstanceRepository {
	return processInstanceRepository{tx: c.tx, txCtx: c.txCtx}
}

func (c *pgContext) Tasks() internal.TaskRepository {
	return taskRepository{tx: c.tx, txCtx: c.txCtx}
}

func (c *pgContext) Tokens() internal.TokenRepository {
	return tokenRepository{tx: c.tx, txCtx: c.txCtx}
}
