package mem

import (
	"context"
	"sync"
	"time"

	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
)

func New(customizers ...func(*Options)) (engine.Engine, error) {
	options := NewOptions()
	for _, customizer := range customizers {
		customizer(&options)
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	ctx := newMemContext(options)

	memEngine := memEngine{ctx: ctx, defaultQueryLimit: options.Common.DefaultQueryLimit}

	if options.Common.ProcessExecutorEnabled {
		memEngine.processExecutor = internal.NewProcessExecutor(&memEngine, options.Common)
		memEngine.processExecutor.Execute()
	}

	return &memEngine, nil
}

func NewOptions() Options {
	return Options{
		Common: engine.Options{
			DefaultQueryLimit:       1000,
			EngineId:                engine.DefaultEngineId,
			ProcessExecutorEnabled:  false,
			ProcessExecutorInterval: 60 * time.Second,
			ProcessExecutorLimit:    10,
		},
	}
}

type Options struct {
	Common engine.Options // Common options
}

func (o Options) Validate() error {
	return o.Common.Validate()
}

type memEngine struct {
	ctxMutex   sync.RWMutex
	ctx        *memContext
	isReadLock bool

	defaultQueryLimit int

	processExecutor *internal.ProcessExecutor
}

func (e *memEngine) CompleteTask(_ context.Context, cmd engine.CompleteTaskCmd) (engine.Task, error) {
	defer e.unlock()
	ctx := e.wlock()

	task, err := internal.CompleteTask(ctx, cmd)
	if err != nil {
		return engine.Task{}, err
	}

	// continue the reactivated token
	if err := internal.ExecuteProcess(ctx, engine.ExecuteProcessCmd{ProcessInstanceId: task.ProcessInstanceId}); err != nil {
		return task, err
	}

	return task, nil
}

func (e *memEngine) CreateProcessInstance(_ context.Context, cmd engine.CreateProcessInstanceCmd) (engine.ProcessInstance, error) {
	defer e.unlock()
	ctx := e.wlock()

	processInstance, err := internal.CreateProcessInstance(ctx, cmd)
	if err != nil {
		return engine.ProcessInstance{}, err
	}

	if err := internal.ExecuteProcess(ctx, engine.ExecuteProcessCmd{ProcessInstanceId: processInstance.Id}); err != nil {
		return processInstance, err
	}

	executed, err := ctx.ProcessInstances().Select(processInstance.Id)
	if err != nil {
		return processInstance, err
	}

	return executed.ProcessInstance(), nil
}

func (e *memEngine) CreateQuery() engine.Query {
	return &query{
		e: e,

		options: engine.QueryOptions{Limit: e.defaultQueryLimit},
	}
}

func (e *memEngine) DeleteProcessInstance(_ context.Context, cmd engine.DeleteProcessInstanceCmd) error {
	defer e.unlock()
	return internal.DeleteProcessInstance(e.wlock(), cmd)
}

func (e *memEngine) DeployProcess(_ context.Context, cmd engine.DeployProcessCmd) (engine.Process, error) {
	defer e.unlock()
	return internal.DeployProcess(e.wlock(), cmd)
}

func (e *memEngine) ExecuteProcess(_ context.Context, cmd engine.ExecuteProcessCmd) error {
	defer e.unlock()
	return internal.ExecuteProcess(e.wlock(), cmd)
}

func (e *memEngine) GetExecutionTrace(_ context.Context, cmd engine.GetExecutionTraceCmd) (engine.ExecutionTrace, error) {
	defer e.unlock()
	return internal.GetExecutionTrace(e.rlock(), cmd)
}

func (e *memEngine) GetProcessModel(_ context.Context, cmd engine.GetProcessModelCmd) (string, error) {
	defer e.unlock()
	return internal.GetProcessModel(e.rlock(), cmd)
}

func (e *memEngine) GetProcessVariables(_ context.Context, cmd engine.GetProcessVariablesCmd) (map[string]any, error) {
	defer e.unlock()
	return internal.GetProcessVariables(e.rlock(), cmd)
}

func (e *memEngine) GetStats(_ context.Context) (engine.Stats, error) {
	defer e.unlock()
	return internal.GetStats(e.rlock())
}

func (e *memEngine) LockTasks(_ context.Context, cmd engine.LockTasksCmd) ([]engine.Task, error) {
	defer e.unlock()
	return internal.LockTasks(e.wlock(), cmd)
}

func (e *memEngine) ResumeProcessInstance(_ context.Context, cmd engine.ResumeProcessInstanceCmd) error {
	defer e.unlock()
	return internal.ResumeProcessInstance(e.wlock(), cmd)
}

func (e *memEngine) SetProcessEnabled(_ context.Context, cmd engine.SetProcessEnabledCmd) error {
	defer e.unlock()
	return internal.SetProcessEnabled(e.wlock(), cmd)
}

func (e *memEngine) SetProcessVariables(_ context.Context, cmd engine.SetProcessVariablesCmd) error {
	defer e.unlock()
	return internal.SetProcessVariables(e.wlock(), cmd)
}

func (e *memEngine) SuspendProcessInstance(_ context.Context, cmd engine.SuspendProcessInstanceCmd) error {
	defer e.unlock()
	return internal.SuspendProcessInstance(e.wlock(), cmd)
}

func (e *memEngine) TerminateProcessInstance(_ context.Context, cmd engine.TerminateProcessInstanceCmd) error {
	defer e.unlock()
	return internal.TerminateProcessInstance(e.wlock(), cmd)
}

func (e *memEngine) UnlockTasks(_ context.Context, cmd engine.UnlockTasksCmd) (int, error) {
	defer e.unlock()
	return internal.UnlockTasks(e.wlock(), cmd)
}

func (e *memEngine) Shutdown() {
	if e.processExecutor != nil {
		e.processExecutor.Stop()
	}

	e.ctx.clear()
}

func (e *memEngine) rlock() *memContext {
	now := time.Now()

	e.ctxMutex.RLock()
	e.isReadLock = true

	e.ctx.time = now.UTC().Truncate(time.Millisecond)

	return e.ctx
}

func (e *memEngine) wlock() *memContext {
	now := time.Now()

	e.ctxMutex.Lock()
	e.isReadLock = false

	e.ctx.time = now.UTC().Truncate(time.Millisecond)

	return e.ctx
}

func (e *memEngine) unlock() {
	if e.isReadLock {
		e.ctxMutex.RUnlock()
	} else {
		e.ctxMutex.Unlock()
	}
}
