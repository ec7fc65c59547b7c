package mem

import (
	"context"
	"testing"

	"github.com/jvollmer/go-flow/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModel = `{
	"id": "order",
	"version": "1",
	"enabled": true,
	"nodes": [
		{"id": "orderPlaced", "type": "START"},
		{"id": "shipOrder", "type": "TASK", "name": "Ship order"},
		{"id": "orderShipped", "type": "END"}
	],
	"edges": [
		{"source": "orderPlaced", "target": "shipOrder"},
		{"source": "shipOrder", "target": "orderShipped"}
	]
}`

func TestNew(t *testing.T) {
	assert := assert.New(t)

	e, err := New()
	require.NoError(t, err)
	defer e.Shutdown()

	assert.NotNil(e.CreateQuery())

	_, err = New(func(o *Options) {
		o.Common.EngineId = ""
	})
	assert.Error(err)

	_, err = New(func(o *Options) {
		o.Common.ProcessExecutorLimit = 0
	})
	assert.Error(err)
}

const startEndModel = `{
	"id": "startEnd",
	"version": "1",
	"enabled": true,
	"nodes": [
		{"id": "started", "type": "START"},
		{"id": "ended", "type": "END"}
	],
	"edges": [
		{"source": "started", "target": "ended"}
	]
}`

// Deleting a process instance must not free its ID for reuse.
func TestProcessInstanceIdAfterDelete(t *testing.T) {
	assert := assert.New(t)

	e, err := New()
	require.NoError(t, err)
	defer e.Shutdown()

	_, err = e.DeployProcess(context.Background(), engine.DeployProcessCmd{
		DefinitionId: "startEnd",
		Model:        startEndModel,
		Version:      "1",
		WorkerId:     "test-worker",
	})
	require.NoError(t, err)

	createProcessInstance := func() engine.ProcessInstance {
		processInstance, err := e.CreateProcessInstance(context.Background(), engine.CreateProcessInstanceCmd{
			DefinitionId: "startEnd",
			WorkerId:     "test-worker",
		})
		require.NoError(t, err)
		return processInstance
	}

	first := createProcessInstance()
	second := createProcessInstance()

	err = e.DeleteProcessInstance(context.Background(), engine.DeleteProcessInstanceCmd{Id: first.Id})
	require.NoError(t, err)

	third := createProcessInstance()
	assert.NotEqual(second.Id, third.Id)
	assert.Greater(third.Id, second.Id)
}

func TestEventBus(t *testing.T) {
	assert := assert.New(t)

	eventBus := engine.NewEventBus()

	var eventTypes []string
	cancel := eventBus.Subscribe("", func(event engine.Event) {
		eventTypes = append(eventTypes, event.Type)
	})
	defer cancel()

	e, err := New(func(o *Options) {
		o.Common.EventBus = eventBus
	})
	require.NoError(t, err)
	defer e.Shutdown()

	process, err := e.DeployProcess(context.Background(), engine.DeployProcessCmd{
		DefinitionId: "order",
		Model:        testModel,
		Version:      "1",
		WorkerId:     "test-worker",
	})
	require.NoError(t, err)

	processInstance, err := e.CreateProcessInstance(context.Background(), engine.CreateProcessInstanceCmd{
		DefinitionId: process.DefinitionId,
		Version:      process.Version,
		WorkerId:     "test-worker",
	})
	require.NoError(t, err)

	assert.Contains(eventTypes, engine.EventProcessStarted)
	assert.Contains(eventTypes, engine.EventTokenCreated)
	assert.Contains(eventTypes, engine.EventTokenMoved)
	assert.Contains(eventTypes, engine.EventTaskCreated)

	lockedTasks, err := e.LockTasks(context.Background(), engine.LockTasksCmd{
		ProcessInstanceId: processInstance.Id,
		WorkerId:          "test-worker",
	})
	require.NoError(t, err)
	require.Len(t, lockedTasks, 1)

	_, err = e.CompleteTask(context.Background(), engine.CompleteTaskCmd{
		Id:       lockedTasks[0].Id,
		WorkerId: "test-worker",
	})
	require.NoError(t, err)

	assert.Contains(eventTypes, engine.EventTaskCompleted)
	assert.Contains(eventTypes, engine.EventProcessCompleted)
}
