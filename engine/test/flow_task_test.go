package test

import (
	"context"
	"testing"

	"github.com/jvollmer/go-flow/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTaskTest(t *testing.T, e engine.Engine) taskTest {
	return taskTest{
		e: e,

		taskTest: mustDeployProcess(t, e, "task.json", "taskTest"),
	}
}

type taskTest struct {
	e engine.Engine

	taskTest engine.Process
}

func (x taskTest) task(t *testing.T) {
	assert := assert.New(t)

	piAssert := mustCreateProcessInstance(t, x.e, x.taskTest)

	piAssert.IsNotCompleted()
	piAssert.IsWaitingAt("review")

	task := piAssert.Task()
	assert.Equal("review", task.NodeId)
	assert.Equal("Review request", task.Name)
	assert.Equal("jane", task.Assignee)
	assert.ElementsMatch([]string{"support", "backoffice"}, task.CandidateGroups)
	assert.Equal(engine.TaskCreated, task.State)
	assert.False(task.IsLocked())

	processInstance := piAssert.ProcessInstance()
	assert.Equal(engine.InstanceRunning, processInstance.State)
	assert.Contains(processInstance.CurrentNodes, "review")

	completedTask := piAssert.CompleteTask(engine.CompleteTaskCmd{
		Result:    map[string]any{"approved": true},
		Variables: map[string]any{"reviewed": true},
	})
	assert.Equal(engine.TaskCompleted, completedTask.State)
	assert.Equal(testWorkerId, completedTask.CompletedBy)

	piAssert.IsCompleted()
	piAssert.HasPassed("review")
	piAssert.HasProcessVariable("reviewed", true)

	activities := piAssert.Activities(engine.ActivityCriteria{NodeId: "review"})
	require.Len(t, activities, 1)
	assert.Equal(engine.ActivityCompleted, activities[0].State)
	assert.Equal(testWorkerId, activities[0].Executor)
	assert.Equal(true, activities[0].Result["approved"])
}

func (x taskTest) taskIdempotent(t *testing.T) {
	piAssert := mustCreateProcessInstance(t, x.e, x.taskTest)
	piAssert.IsWaitingAt("review")

	processInstance := piAssert.ProcessInstance()

	// a second execution must not create a second work item for the parked token
	err := x.e.ExecuteProcess(context.Background(), engine.ExecuteProcessCmd{ProcessInstanceId: processInstance.Id})
	require.NoError(t, err)

	tasks, err := x.e.CreateQuery().QueryTasks(context.Background(), engine.TaskCriteria{ProcessInstanceId: processInstance.Id})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func (x taskTest) lockUnlock(t *testing.T) {
	assert := assert.New(t)

	piAssert := mustCreateProcessInstance(t, x.e, x.taskTest)
	piAssert.IsWaitingAt("review")

	processInstance := piAssert.ProcessInstance()

	lockedTasks, err := x.e.LockTasks(context.Background(), engine.LockTasksCmd{
		ProcessInstanceId: processInstance.Id,
		WorkerId:          "worker-a",
	})
	require.NoError(t, err)
	require.Len(t, lockedTasks, 1)

	assert.Equal(engine.TaskLocked, lockedTasks[0].State)
	assert.Equal("worker-a", lockedTasks[0].LockedBy)
	assert.NotNil(lockedTasks[0].LockedAt)

	// a locked task must not be locked by a different worker
	lockedTasks, err = x.e.LockTasks(context.Background(), engine.LockTasksCmd{
		ProcessInstanceId: processInstance.Id,
		WorkerId:          "worker-b",
	})
	require.NoError(t, err)
	assert.Empty(lockedTasks)

	unlockedCount, err := x.e.UnlockTasks(context.Background(), engine.UnlockTasksCmd{
		ProcessInstanceId: processInstance.Id,
		WorkerId:          "worker-a",
	})
	require.NoError(t, err)
	assert.Equal(1, unlockedCount)

	lockedTasks, err = x.e.LockTasks(context.Background(), engine.LockTasksCmd{
		ProcessInstanceId: processInstance.Id,
		WorkerId:          "worker-b",
	})
	require.NoError(t, err)
	assert.Len(lockedTasks, 1)
}

func (x taskTest) lockByCandidateGroup(t *testing.T) {
	piAssert := mustCreateProcessInstance(t, x.e, x.taskTest)
	piAssert.IsWaitingAt("review")

	processInstance := piAssert.ProcessInstance()

	lockedTasks, err := x.e.LockTasks(context.Background(), engine.LockTasksCmd{
		ProcessInstanceId: processInstance.Id,
		CandidateGroup:    "unrelated",
		WorkerId:          "worker-a",
	})
	require.NoError(t, err)
	assert.Empty(t, lockedTasks)

	lockedTasks, err = x.e.LockTasks(context.Background(), engine.LockTasksCmd{
		ProcessInstanceId: processInstance.Id,
		CandidateGroup:    "support",
		WorkerId:          "worker-a",
	})
	require.NoError(t, err)
	assert.Len(t, lockedTasks, 1)
}

func (x taskTest) errorLockedByDifferentWorker(t *testing.T) {
	assert := assert.New(t)

	piAssert := mustCreateProcessInstance(t, x.e, x.taskTest)
	piAssert.IsWaitingAt("review")

	task := piAssert.Task()

	lockedTasks, err := x.e.LockTasks(context.Background(), engine.LockTasksCmd{
		Id:       task.Id,
		WorkerId: "worker-a",
	})
	require.NoError(t, err)
	require.Len(t, lockedTasks, 1)

	_, err = x.e.CompleteTask(context.Background(), engine.CompleteTaskCmd{
		Id:       task.Id,
		WorkerId: "worker-b",
	})
	require.Error(t, err)

	engineErr, ok := err.(engine.Error)
	require.True(t, ok)
	assert.Equal(engine.ErrorConflict, engineErr.Type)
}
