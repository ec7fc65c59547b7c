package worker

import (
	"context"
	"testing"
	"time"

	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModel = `{
	"id": "order",
	"version": "1",
	"enabled": true,
	"nodes": [
		{"id": "orderPlaced", "type": "START"},
		{"id": "shipOrder", "type": "TASK"},
		{"id": "orderShipped", "type": "END"}
	],
	"edges": [
		{"source": "orderPlaced", "target": "shipOrder"},
		{"source": "shipOrder", "target": "orderShipped"}
	]
}`

type testHandler struct {
	executed int
}

func (h *testHandler) DeployProcessCmd() (engine.DeployProcessCmd, error) {
	return engine.DeployProcessCmd{
		DefinitionId: "order",
		Model:        testModel,
		Version:      "1",
	}, nil
}

func (h *testHandler) Handle(mux TaskMux) error {
	mux.Execute("shipOrder", func(tc TaskContext) error {
		h.executed++
		tc.SetVariable("shipped", true)
		tc.SetResult("carrier", "dhl")
		return nil
	})
	return nil
}

func TestRegister(t *testing.T) {
	assert := assert.New(t)

	// given
	e, err := mem.New()
	require.NoError(t, err)

	defer e.Shutdown()

	w, _ := New(e)

	// when
	processHandle, err := w.Register(&testHandler{})

	// then
	require.NoError(t, err)
	assert.Equal("order", processHandle.Process.DefinitionId)
	assert.Equal("1", processHandle.Process.Version)

	t.Run("returns error when already registered", func(t *testing.T) {
		_, err := w.Register(&testHandler{})
		assert.Error(err)
		assert.Contains(err.Error(), "order:1")
	})
}

func TestExecuteTask(t *testing.T) {
	assert := assert.New(t)

	// given
	e, err := mem.New()
	require.NoError(t, err)

	defer e.Shutdown()

	handler := &testHandler{}

	w, _ := New(e)

	processHandle, err := w.Register(handler)
	require.NoError(t, err)

	processInstance, err := processHandle.CreateProcessInstance(context.Background(), map[string]any{"orderId": "o-1"})
	require.NoError(t, err)

	lockedTasks, err := e.LockTasks(context.Background(), engine.LockTasksCmd{WorkerId: w.id})
	require.NoError(t, err)
	require.Len(t, lockedTasks, 1)

	// when
	completedTask, err := w.ExecuteTask(context.Background(), lockedTasks[0])

	// then
	require.NoError(t, err)
	assert.Equal(engine.TaskCompleted, completedTask.State)
	assert.Equal(1, handler.executed)

	variables, err := e.GetProcessVariables(context.Background(), engine.GetProcessVariablesCmd{
		ProcessInstanceId: processInstance.Id,
	})
	require.NoError(t, err)
	assert.Equal(true, variables["shipped"])

	processInstances, err := e.CreateQuery().QueryProcessInstances(context.Background(), engine.ProcessInstanceCriteria{
		Id: processInstance.Id,
	})
	require.NoError(t, err)
	require.Len(t, processInstances, 1)
	assert.Equal(engine.InstanceCompleted, processInstances[0].State)
}

func TestWorkerStartAndStop(t *testing.T) {
	assert := assert.New(t)

	// given
	e, err := mem.New()
	require.NoError(t, err)

	defer e.Shutdown()

	handler := &testHandler{}

	w, _ := New(e, func(o *Options) {
		o.TaskExecutorInterval = time.Millisecond * 50
	})

	processHandle, err := w.Register(handler)
	require.NoError(t, err)

	_, err = processHandle.CreateProcessInstance(context.Background(), nil)
	require.NoError(t, err)

	// when
	w.Start()
	time.Sleep(time.Millisecond * 300)
	w.Stop()

	// then
	assert.Equal(1, handler.executed)
}
