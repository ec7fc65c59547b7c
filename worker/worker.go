package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jvollmer/go-flow/engine"
)

// DefaultWorkerId is used when no specific ID is provided via [Options].
const DefaultWorkerId = "default-worker"

func New(e engine.Engine, customizers ...func(*Options)) (*Worker, error) {
	if e == nil {
		return nil, errors.New("engine is nil")
	}

	options := NewOptions()
	for _, customizer := range customizers {
		customizer(&options)
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	worker := Worker{
		e:              e,
		id:             options.WorkerId,
		options:        options,
		processHandles: make(map[string]ProcessHandle),
	}

	return &worker, nil
}

func NewOptions() Options {
	return Options{
		TaskExecutorInterval: 60 * time.Second,
		TaskExecutorLimit:    10,
		WorkerId:             DefaultWorkerId,
	}
}

// Handler must be implemented to automate a [engine.Process].
type Handler interface {
	DeployProcessCmd() (engine.DeployProcessCmd, error)
	Handle(TaskMux) error
}

type Options struct {
	TaskExecutorInterval time.Duration // Interval between executions of due tasks.
	TaskExecutorLimit    int           // Maximum number of tasks to lock and execute at once by the worker.
	WorkerId             string        // Worker ID.

	OnTaskExecutionFailure func(engine.Task, error) // Called when the worker failed to execute a locked task.
}

func (o Options) Validate() error {
	if o.TaskExecutorLimit < 1 {
		return errors.New("task executor limit must be positive")
	}
	if strings.TrimSpace(o.WorkerId) == "" {
		return errors.New("worker ID must not be empty or blank")
	}

	return nil
}

type ProcessHandle struct {
	Process engine.Process

	handler Handler
	mux     TaskMux
	w       *Worker
}

func (h ProcessHandle) CreateProcessInstanceCmd() engine.CreateProcessInstanceCmd {
	return engine.CreateProcessInstanceCmd{
		DefinitionId: h.Process.DefinitionId,
		Version:      h.Process.Version,
		WorkerId:     h.w.id,
	}
}

func (h ProcessHandle) CreateProcessInstance(ctx context.Context, variables map[string]any) (engine.ProcessInstance, error) {
	return h.w.e.CreateProcessInstance(ctx, engine.CreateProcessInstanceCmd{
		DefinitionId: h.Process.DefinitionId,
		Version:      h.Process.Version,
		Variables:    variables,
		WorkerId:     h.w.id,
	})
}

type Worker struct {
	e              engine.Engine
	id             string
	options        Options
	processHandles map[string]ProcessHandle
	taskExecutor   *taskExecutor
}

// ExecuteTask runs the registered task handler for a locked task and
// completes the task with the handler's variables and result. When the
// handler fails, the task remains locked and the error is returned, so
// that the caller can decide to unlock or retry.
func (w *Worker) ExecuteTask(ctx context.Context, task engine.Task) (engine.Task, error) {
	processInstances, err := w.e.CreateQuery().QueryProcessInstances(ctx, engine.ProcessInstanceCriteria{Id: task.ProcessInstanceId})
	if err != nil {
		return engine.Task{}, fmt.Errorf("failed to query process instance %d: %v", task.ProcessInstanceId, err)
	}
	if len(processInstances) == 0 {
		return engine.Task{}, fmt.Errorf("process instance %d could not be found", task.ProcessInstanceId)
	}

	processHandle, ok := w.processHandles[processInstances[0].DefinitionId]
	if !ok {
		return engine.Task{}, fmt.Errorf("no handler registered for process definition %s", processInstances[0].DefinitionId)
	}

	tc := TaskContext{
		Task:            task,
		Process:         processHandle.Process,
		ProcessInstance: processInstances[0],

		w:   w,
		ctx: ctx,

		variables: map[string]any{},
		result:    map[string]any{},
	}

	taskHandler := processHandle.mux[task.NodeId]
	if taskHandler == nil {
		return engine.Task{}, fmt.Errorf("no task handler registered for process %s and node %s", tc.Process, task.NodeId)
	}

	if err := taskHandler(tc); err != nil {
		return engine.Task{}, err
	}

	return w.e.CompleteTask(ctx, engine.CompleteTaskCmd{
		Id: task.Id,

		Result:    tc.result,
		Variables: tc.variables,
		WorkerId:  w.id,
	})
}

// Register deploys the handler's process and registers its task handlers.
func (w *Worker) Register(handler Handler) (ProcessHandle, error) {
	deployProcessCmd, err := handler.DeployProcessCmd()
	if err != nil {
		return ProcessHandle{}, fmt.Errorf("failed to create deploy process command: %v", err)
	}

	deployProcessCmd.WorkerId = w.id

	process, err := w.e.DeployProcess(context.Background(), deployProcessCmd)
	if err != nil {
		return ProcessHandle{}, fmt.Errorf("failed to deploy process: %v", err)
	}

	if _, ok := w.processHandles[process.DefinitionId]; ok {
		return ProcessHandle{}, fmt.Errorf("handler for process %s:%s is already registered", process.DefinitionId, process.Version)
	}

	mux := make(TaskMux)
	if err := handler.Handle(mux); err != nil {
		return ProcessHandle{}, fmt.Errorf("failed to register task handlers: %v", err)
	}

	processHandle := ProcessHandle{
		Process: process,

		handler: handler,
		mux:     mux,
		w:       w,
	}

	w.processHandles[process.DefinitionId] = processHandle

	return processHandle, nil
}

func (w *Worker) Start() {
	w.taskExecutor = newTaskExecutor(w)
	w.taskExecutor.execute()
}

func (w *Worker) Stop() {
	if w.taskExecutor != nil {
		w.taskExecutor.stop()
		w.taskExecutor = nil
	}
}
