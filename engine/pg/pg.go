package pg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
	"github.com/jvollmer/go-flow/expr"
)

func New(databaseUrl string, customizers ...func(*Options)) (engine.Engine, error) {
	if databaseUrl == "" {
		return nil, errors.New("database URL is empty")
	}

	options := NewOptions()
	for _, customizer := range customizers {
		customizer(&options)
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	pgPoolConfig, err := pgxpool.ParseConfig(databaseUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %v", err)
	}

	if _, ok := pgPoolConfig.ConnConfig.RuntimeParams["application_name"]; !ok {
		pgPoolConfig.ConnConfig.RuntimeParams["application_name"] = options.Common.EngineId
	}

	pgPoolCtx, pgPoolCancel := context.WithTimeout(context.Background(), options.Timeout)
	defer pgPoolCancel()

	pgPool, err := pgxpool.NewWithConfig(pgPoolCtx, pgPoolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %v", err)
	}

	pgCtxPoolSize := int(pgPoolConfig.MaxConns)
	pgCtxPool := make(chan *pgContext, pgCtxPoolSize)

	evaluator := expr.New()
	processCache := internal.NewProcessCache()

	for i := 0; i < pgCtxPoolSize; i++ {
		pgCtxPool <- &pgContext{options: options, evaluator: evaluator, processCache: processCache}
	}

	requireCtx, requireCancel := context.WithCancel(context.Background())

	pgEngine := pgEngine{
		requireCtx:    requireCtx,
		requireCancel: requireCancel,

		defaultQueryLimit: options.Common.DefaultQueryLimit,

		pgCtxPool: pgCtxPool,
		pgPool:    pgPool,
		txTimeout: options.Timeout,
	}

	if err := pgEngine.migrateDatabase(); err != nil {
		pgEngine.Shutdown()
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	if options.Common.ProcessExecutorEnabled {
		pgEngine.processExecutor = internal.NewProcessExecutor(&pgEngine, options.Common)
		pgEngine.processExecutor.Execute()
	}

	return &pgEngine, nil
}

func NewOptions() Options {
	return Options{
		Common: engine.Options{
			DefaultQueryLimit:       1000,
			EngineId:                engine.DefaultEngineId,
			ProcessExecutorEnabled:  true,
			ProcessExecutorInterval: 60 * time.Second,
			ProcessExecutorLimit:    10,
		},

		Timeout: 30 * time.Second,
	}
}

type Options struct {
	Common engine.Options // Common engine options.

	Timeout time.Duration // Time limit for database transactions.
}

func (o Options) Validate() error {
	return o.Common.Validate()
}

type pgEngine struct {
	requireCtx    context.Context    // used to prevent the requiring of a context, when the engine is shut down
	requireCancel context.CancelFunc // invoked when a shutdown is initiated
	shutdownOnce  sync.Once          // used to prevent more than one shutdown

	defaultQueryLimit int

	pgCtxPool chan *pgContext
	pgPool    *pgxpool.Pool
	txTimeout time.Duration

	processExecutor *internal.ProcessExecutor
}

func (e *pgEngine) migrateDatabase() error {
	w, cancel := e.withContext(context.Background())
	defer cancel()

	ctx, err := w.require()
	if err != nil {
		return err
	}

	return w.release(ctx, migrateDatabase(ctx))
}

// withContext wraps the engine using a transaction context that is derived
// from the given context, limited by the configured timeout.
func (e *pgEngine) withContext(ctx context.Context) (*pgEngineWithContext, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}

	txCtx, cancel := context.WithTimeout(ctx, e.txTimeout)
	return &pgEngineWithContext{e: e, ctx: txCtx}, cancel
}

// pgEngineWithContext executes each engine call within one database
// transaction. Row locks, acquired when a process instance is selected for
// execution, serialize concurrent executions of the same instance.
type pgEngineWithContext struct {
	e   *pgEngine
	ctx context.Context
}

func (e *pgEngineWithContext) require() (*pgContext, error) {
	now := time.Now()

	pgEngine := e.e

	select {
	case <-pgEngine.requireCtx.Done():
		return nil, pgEngine.requireCtx.Err()
	case pgCtx := <-pgEngine.pgCtxPool:
		tx, err := pgEngine.pgPool.Begin(e.ctx)
		if err != nil {
			pgEngine.pgCtxPool <- pgCtx
			return nil, err
		}

		// must be UTC and truncated to millis, since TIMESTAMP(3) is used
		pgCtx.time = now.UTC().Truncate(time.Millisecond)

		pgCtx.tx = tx
		pgCtx.txCtx = e.ctx

		return pgCtx, nil
	}
}

func (e *pgEngineWithContext) release(pgCtx *pgContext, err error) error {
	if err != nil {
		_ = pgCtx.tx.Rollback(pgCtx.txCtx)
	} else {
		err = pgCtx.tx.Commit(pgCtx.txCtx)
	}

	pgCtx.tx = nil
	pgCtx.txCtx = nil

	e.e.pgCtxPool <- pgCtx
	return err
}

func (e *pgEngine) CompleteTask(ctx context.Context, cmd engine.CompleteTaskCmd) (engine.Task, error) {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return engine.Task{}, err
	}

	task, err := internal.CompleteTask(pgCtx, cmd)
	if err == nil {
		// continue the reactivated token
		err = internal.ExecuteProcess(pgCtx, engine.ExecuteProcessCmd{ProcessInstanceId: task.ProcessInstanceId})
	}

	return task, w.release(pgCtx, err)
}

func (e *pgEngine) CreateProcessInstance(ctx context.Context, cmd engine.CreateProcessInstanceCmd) (engine.ProcessInstance, error) {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return engine.ProcessInstance{}, err
	}

	processInstance, err := internal.CreateProcessInstance(pgCtx, cmd)
	if err == nil {
		err = internal.ExecuteProcess(pgCtx, engine.ExecuteProcessCmd{ProcessInstanceId: processInstance.Id})
	}

	if err == nil {
		var executed *internal.ProcessInstanceEntity
		if executed, err = pgCtx.ProcessInstances().Select(processInstance.Id); err == nil {
			processInstance = executed.ProcessInstance()
		}
	}

	return processInstance, w.release(pgCtx, err)
}

func (e *pgEngine) CreateQuery() engine.Query {
	return &query{
		e: e,

		options: engine.QueryOptions{Limit: e.defaultQueryLimit},
	}
}

func (e *pgEngine) DeleteProcessInstance(ctx context.Context, cmd engine.DeleteProcessInstanceCmd) error {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return err
	}

	return w.release(pgCtx, internal.DeleteProcessInstance(pgCtx, cmd))
}

func (e *pgEngine) DeployProcess(ctx context.Context, cmd engine.DeployProcessCmd) (engine.Process, error) {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return engine.Process{}, err
	}

	process, err := internal.DeployProcess(pgCtx, cmd)
	return process, w.release(pgCtx, err)
}

func (e *pgEngine) ExecuteProcess(ctx context.Context, cmd engine.ExecuteProcessCmd) error {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return err
	}

	return w.release(pgCtx, internal.ExecuteProcess(pgCtx, cmd))
}

func (e *pgEngine) GetExecutionTrace(ctx context.Context, cmd engine.GetExecutionTraceCmd) (engine.ExecutionTrace, error) {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return engine.ExecutionTrace{}, err
	}

	trace, err := internal.GetExecutionTrace(pgCtx, cmd)
	return trace, w.release(pgCtx, err)
}

func (e *pgEngine) GetProcessModel(ctx context.Context, cmd engine.GetProcessModelCmd) (string, error) {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return "", err
	}

	model, err := internal.GetProcessModel(pgCtx, cmd)
	return model, w.release(pgCtx, err)
}

func (e *pgEngine) GetProcessVariables(ctx context.Context, cmd engine.GetProcessVariablesCmd) (map[string]any, error) {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return nil, err
	}

	variables, err := internal.GetProcessVariables(pgCtx, cmd)
	return variables, w.release(pgCtx, err)
}

func (e *pgEngine) GetStats(ctx context.Context) (engine.Stats, error) {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return engine.Stats{}, err
	}

	stats, err := internal.GetStats(pgCtx)
	return stats, w.release(pgCtx, err)
}

func (e *pgEngine) LockTasks(ctx context.Context, cmd engine.LockTasksCmd) ([]engine.Task, error) {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return nil, err
	}

	tasks, err := internal.LockTasks(pgCtx, cmd)
	return tasks, w.release(pgCtx, err)
}

func (e *pgEngine) ResumeProcessInstance(ctx context.Context, cmd engine.ResumeProcessInstanceCmd) error {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return err
	}

	return w.release(pgCtx, internal.ResumeProcessInstance(pgCtx, cmd))
}

func (e *pgEngine) SetProcessEnabled(ctx context.Context, cmd engine.SetProcessEnabledCmd) error {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return err
	}

	return w.release(pgCtx, internal.SetProcessEnabled(pgCtx, cmd))
}

func (e *pgEngine) SetProcessVariables(ctx context.Context, cmd engine.SetProcessVariablesCmd) error {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return err
	}

	return w.release(pgCtx, internal.SetProcessVariables(pgCtx, cmd))
}

func (e *pgEngine) SuspendProcessInstance(ctx context.Context, cmd engine.SuspendProcessInstanceCmd) error {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return err
	}

	return w.release(pgCtx, internal.SuspendProcessInstance(pgCtx, cmd))
}

func (e *pgEngine) TerminateProcessInstance(ctx context.Context, cmd engine.TerminateProcessInstanceCmd) error {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return err
	}

	return w.release(pgCtx, internal.TerminateProcessInstance(pgCtx, cmd))
}

func (e *pgEngine) UnlockTasks(ctx context.Context, cmd engine.UnlockTasksCmd) (int, error) {
	w, cancel := e.withContext(ctx)
	defer cancel()

	pgCtx, err := w.require()
	if err != nil {
		return 0, err
	}

	count, err := internal.UnlockTasks(pgCtx, cmd)
	return count, w.release(pgCtx, err)
}

func (e *pgEngine) Shutdown() {
	e.shutdownOnce.Do(func() {
		if e.processExecutor != nil {
			e.processExecutor.Stop()
		}

		e.requireCancel()
		e.pgPool.Close()
	})
}
