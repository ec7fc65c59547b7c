package worker

import (
	"context"
	"time"

	"github.com/jvollmer/go-flow/engine"
)

func newTaskExecutor(w *Worker) *taskExecutor {
	tickerCtx, tickerCancel := context.WithCancel(context.Background())

	return &taskExecutor{
		w: w,

		tickerCtx:    tickerCtx,
		tickerCancel: tickerCancel,
		ticker:       time.NewTicker(w.options.TaskExecutorInterval),
	}
}

// TaskMux maps node IDs to task handlers.
type TaskMux map[string]func(TaskContext) error

// Execute registers a handler function for tasks created at the given node.
func (m TaskMux) Execute(nodeId string, handler func(tc TaskContext) error) {
	m[nodeId] = handler
}

type TaskContext struct {
	Task            engine.Task
	Process         engine.Process
	ProcessInstance engine.ProcessInstance

	w   *Worker
	ctx context.Context

	variables map[string]any
	result    map[string]any
}

func (tc TaskContext) Context() context.Context {
	return tc.ctx
}

func (tc TaskContext) Engine() engine.Engine {
	return tc.w.e
}

func (tc TaskContext) ProcessVariables(names ...string) (map[string]any, error) {
	return tc.w.e.GetProcessVariables(tc.ctx, engine.GetProcessVariablesCmd{
		ProcessInstanceId: tc.Task.ProcessInstanceId,

		Names: names,
	})
}

// SetVariable stages a process variable, merged into the process instance
// variables when the task is completed. A nil value deletes the variable.
func (tc TaskContext) SetVariable(name string, value any) {
	tc.variables[name] = value
}

// SetResult stages result data, appended to the related activity instance
// when the task is completed.
func (tc TaskContext) SetResult(name string, value any) {
	tc.result[name] = value
}

type taskExecutor struct {
	w *Worker

	tickerCtx    context.Context
	tickerCancel context.CancelFunc
	ticker       *time.Ticker
}

func (e *taskExecutor) execute() {
	go func(w *Worker) {
		lockTasksCmd := engine.LockTasksCmd{
			Limit:    w.options.TaskExecutorLimit,
			WorkerId: w.id,
		}

		onFailure := w.options.OnTaskExecutionFailure

		for {
			select {
			case <-e.ticker.C:
				lockedTasks, err := w.e.LockTasks(context.Background(), lockTasksCmd)
				if err != nil {
					break
				}

				for i := range lockedTasks {
					_, err := w.ExecuteTask(context.Background(), lockedTasks[i])
					if err != nil && onFailure != nil {
						onFailure(lockedTasks[i], err)
					}
				}
			case <-e.tickerCtx.Done():
				return
			}
		}
	}(e.w)
}

func (e *taskExecutor) stop() {
	e.ticker.Stop()
	e.tickerCancel()
}
