package test

import (
	"context"
	"testing"

	"github.com/jvollmer/go-flow/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessInstance(t *testing.T) {
	engines, engineTypes := mustCreateEngines(t)
	for _, e := range engines {
		defer e.Shutdown()
	}

	t.Run("suspend and resume", func(t *testing.T) {
		for i, e := range engines {
			processInstanceTest := newProcessInstanceTest(t, e)

			t.Run(engineTypes[i]+"suspend and resume", processInstanceTest.suspendResume)
			t.Run(engineTypes[i]+"fails to resume a running instance is a no-op", processInstanceTest.resumeRunning)
		}
	})

	t.Run("terminate", func(t *testing.T) {
		for i, e := range engines {
			processInstanceTest := newProcessInstanceTest(t, e)

			t.Run(engineTypes[i]+"terminate", processInstanceTest.terminate)
			t.Run(engineTypes[i]+"terminate cascades to subprocess instances", processInstanceTest.terminateCascade)
			t.Run(engineTypes[i]+"fails to terminate an ended instance", processInstanceTest.errorTerminateEnded)
		}
	})

	t.Run("delete", func(t *testing.T) {
		for i, e := range engines {
			processInstanceTest := newProcessInstanceTest(t, e)

			t.Run(engineTypes[i]+"delete", processInstanceTest.delete)
			t.Run(engineTypes[i]+"fails to delete a running instance", processInstanceTest.errorDeleteRunning)
		}
	})

	t.Run("variables", func(t *testing.T) {
		for i, e := range engines {
			processInstanceTest := newProcessInstanceTest(t, e)

			t.Run(engineTypes[i]+"get and set variables", processInstanceTest.variables)
		}
	})

	t.Run("execution trace", func(t *testing.T) {
		for i, e := range engines {
			processInstanceTest := newProcessInstanceTest(t, e)

			t.Run(engineTypes[i]+"trace", processInstanceTest.trace)
		}
	})

	t.Run("query", func(t *testing.T) {
		for i, e := range engines {
			processInstanceTest := newProcessInstanceTest(t, e)

			t.Run(engineTypes[i]+"query by business key", processInstanceTest.queryByBusinessKey)
		}
	})
}

func newProcessInstanceTest(t *testing.T, e engine.Engine) processInstanceTest {
	return processInstanceTest{
		e: e,

		pickingTest:    mustDeployProcess(t, e, "picking.json", "pickingTest"),
		subprocessTest: mustDeployProcess(t, e, "subprocess.json", "subprocessTest"),
		taskTest:       mustDeployProcess(t, e, "task.json", "taskTest"),
	}
}

type processInstanceTest struct {
	e engine.Engine

	pickingTest    engine.Process
	subprocessTest engine.Process
	taskTest       engine.Process
}

func (x processInstanceTest) suspendResume(t *testing.T) {
	assert := assert.New(t)

	piAssert := mustCreateProcessInstance(t, x.e, x.taskTest)
	piAssert.IsWaitingAt("review")

	processInstance := piAssert.ProcessInstance()

	err := x.e.SuspendProcessInstance(context.Background(), engine.SuspendProcessInstanceCmd{
		Id:       processInstance.Id,
		WorkerId: testWorkerId,
	})
	require.NoError(t, err)

	piAssert.HasState(engine.InstanceSuspended)
	piAssert.Event(engine.EventProcessSuspended)

	// tasks of a suspended instance must not be lockable
	task := piAssert.Task()
	assert.Equal(engine.TaskSuspended, task.State)

	lockedTasks, err := x.e.LockTasks(context.Background(), engine.LockTasksCmd{
		ProcessInstanceId: processInstance.Id,
		WorkerId:          testWorkerId,
	})
	require.NoError(t, err)
	assert.Empty(lockedTasks)

	// suspending a suspended instance is a no-op
	err = x.e.SuspendProcessInstance(context.Background(), engine.SuspendProcessInstanceCmd{
		Id:       processInstance.Id,
		WorkerId: testWorkerId,
	})
	require.NoError(t, err)

	err = x.e.ResumeProcessInstance(context.Background(), engine.ResumeProcessInstanceCmd{
		Id:       processInstance.Id,
		WorkerId: testWorkerId,
	})
	require.NoError(t, err)

	piAssert.HasState(engine.InstanceRunning)
	piAssert.Event(engine.EventProcessResumed)

	piAssert.IsWaitingAt("review")
	piAssert.CompleteTask()
	piAssert.IsCompleted()
}

func (x processInstanceTest) resumeRunning(t *testing.T) {
	piAssert := mustCreateProcessInstance(t, x.e, x.taskTest)

	processInstance := piAssert.ProcessInstance()

	err := x.e.ResumeProcessInstance(context.Background(), engine.ResumeProcessInstanceCmd{
		Id:       processInstance.Id,
		WorkerId: testWorkerId,
	})
	require.NoError(t, err)

	piAssert.HasState(engine.InstanceRunning)
}

func (x processInstanceTest) terminate(t *testing.T) {
	assert := assert.New(t)

	piAssert := mustCreateProcessInstance(t, x.e, x.taskTest)
	piAssert.IsWaitingAt("review")

	processInstance := piAssert.ProcessInstance()

	err := x.e.TerminateProcessInstance(context.Background(), engine.TerminateProcessInstanceCmd{
		Id:       processInstance.Id,
		Reason:   "canceled by customer",
		WorkerId: testWorkerId,
	})
	require.NoError(t, err)

	piAssert.IsTerminated()

	event := piAssert.Event(engine.EventProcessTerminated)
	assert.Equal("canceled by customer", event.Data["reason"])

	for _, token := range piAssert.Tokens() {
		assert.True(token.IsEnded())
	}

	tasks, err := x.e.CreateQuery().QueryTasks(context.Background(), engine.TaskCriteria{ProcessInstanceId: processInstance.Id})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(engine.TaskCanceled, tasks[0].State)

	activities := piAssert.Activities(engine.ActivityCriteria{NodeId: "review"})
	require.Len(t, activities, 1)
	assert.Equal(engine.ActivitySkipped, activities[0].State)
}

func (x processInstanceTest) terminateCascade(t *testing.T) {
	assert := assert.New(t)

	piAssert := mustCreateProcessInstance(t, x.e, x.subprocessTest)
	piAssert.IsWaitingAt("picking")

	processInstance := piAssert.ProcessInstance()

	err := x.e.TerminateProcessInstance(context.Background(), engine.TerminateProcessInstanceCmd{
		Id:       processInstance.Id,
		WorkerId: testWorkerId,
	})
	require.NoError(t, err)

	piAssert.IsTerminated()

	children, err := x.e.CreateQuery().QueryProcessInstances(context.Background(), engine.ProcessInstanceCriteria{
		ParentId: processInstance.Id,
	})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(engine.InstanceTerminated, children[0].State)
}

func (x processInstanceTest) errorTerminateEnded(t *testing.T) {
	piAssert := mustCreateProcessInstance(t, x.e, x.taskTest)
	piAssert.IsWaitingAt("review")
	piAssert.CompleteTask()
	piAssert.IsCompleted()

	err := x.e.TerminateProcessInstance(context.Background(), engine.TerminateProcessInstanceCmd{
		Id:       piAssert.ProcessInstance().Id,
		WorkerId: testWorkerId,
	})
	require.Error(t, err)

	engineErr, ok := err.(engine.Error)
	require.True(t, ok)
	assert.Equal(t, engine.ErrorConflict, engineErr.Type)
}

func (x processInstanceTest) delete(t *testing.T) {
	piAssert := mustCreateProcessInstance(t, x.e, x.subprocessTest)
	piAssert.IsWaitingAt("picking")

	processInstance := piAssert.ProcessInstance()

	err := x.e.TerminateProcessInstance(context.Background(), engine.TerminateProcessInstanceCmd{
		Id:       processInstance.Id,
		WorkerId: testWorkerId,
	})
	require.NoError(t, err)

	err = x.e.DeleteProcessInstance(context.Background(), engine.DeleteProcessInstanceCmd{Id: processInstance.Id})
	require.NoError(t, err)

	results, err := x.e.CreateQuery().QueryProcessInstances(context.Background(), engine.ProcessInstanceCriteria{Id: processInstance.Id})
	require.NoError(t, err)
	assert.Empty(t, results)

	// subprocess instances are deleted as well
	children, err := x.e.CreateQuery().QueryProcessInstances(context.Background(), engine.ProcessInstanceCriteria{ParentId: processInstance.Id})
	require.NoError(t, err)
	assert.Empty(t, children)
}

func (x processInstanceTest) errorDeleteRunning(t *testing.T) {
	piAssert := mustCreateProcessInstance(t, x.e, x.taskTest)
	piAssert.IsWaitingAt("review")

	err := x.e.DeleteProcessInstance(context.Background(), engine.DeleteProcessInstanceCmd{
		Id: piAssert.ProcessInstance().Id,
	})
	require.Error(t, err)

	engineErr, ok := err.(engine.Error)
	require.True(t, ok)
	assert.Equal(t, engine.ErrorConflict, engineErr.Type)
}

func (x processInstanceTest) variables(t *testing.T) {
	assert := assert.New(t)

	piAssert := mustCreateProcessInstance(t, x.e, x.taskTest, map[string]any{"priority": 7, "customer": "acme"})

	processInstance := piAssert.ProcessInstance()

	err := x.e.SetProcessVariables(context.Background(), engine.SetProcessVariablesCmd{
		ProcessInstanceId: processInstance.Id,
		Variables:         map[string]any{"priority": 9, "customer": nil, "shipped": false},
		WorkerId:          testWorkerId,
	})
	require.NoError(t, err)

	variables, err := x.e.GetProcessVariables(context.Background(), engine.GetProcessVariablesCmd{
		ProcessInstanceId: processInstance.Id,
	})
	require.NoError(t, err)

	// a nil value deletes the variable
	assert.NotContains(variables, "customer")
	assert.Equal(float64(9), variables["priority"])
	assert.Equal(false, variables["shipped"])

	named, err := x.e.GetProcessVariables(context.Background(), engine.GetProcessVariablesCmd{
		ProcessInstanceId: processInstance.Id,
		Names:             []string{"priority"},
	})
	require.NoError(t, err)
	assert.Len(named, 1)

	piAssert.Event(engine.EventVariablesSet)
}

func (x processInstanceTest) trace(t *testing.T) {
	assert := assert.New(t)

	piAssert := mustCreateProcessInstance(t, x.e, x.taskTest)
	piAssert.IsWaitingAt("review")
	piAssert.CompleteTask()
	piAssert.IsCompleted()

	trace, err := x.e.GetExecutionTrace(context.Background(), engine.GetExecutionTraceCmd{
		ProcessInstanceId: piAssert.ProcessInstance().Id,
	})
	require.NoError(t, err)

	assert.Equal(engine.InstanceCompleted, trace.ProcessInstance.State)
	assert.NotEmpty(trace.Events)
	assert.NotEmpty(trace.Activities)
	assert.NotEmpty(trace.Tokens)

	assert.Equal(engine.EventProcessStarted, trace.Events[0].Type)
	assert.Equal(engine.EventProcessCompleted, trace.Events[len(trace.Events)-1].Type)
}

func (x processInstanceTest) queryByBusinessKey(t *testing.T) {
	processInstance, err := x.e.CreateProcessInstance(context.Background(), engine.CreateProcessInstanceCmd{
		DefinitionId: x.taskTest.DefinitionId,
		Version:      x.taskTest.Version,
		BusinessKey:  "o-83",
		WorkerId:     testWorkerId,
	})
	require.NoError(t, err)

	results, err := x.e.CreateQuery().QueryProcessInstances(context.Background(), engine.ProcessInstanceCriteria{BusinessKey: "o-83"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, processInstance.Id, results[0].Id)
}
