package cli

import (
	"context"
	"testing"

	"github.com/jvollmer/go-flow/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessInstanceLifecycle(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	mustDeployProcess(t, e)

	// when
	mustExecute(t, e, []string{
		"process-instance",
		"create",
		"--definition-id",
		"order",
		"--business-key",
		"o-47",
		"--variable",
		"priority=7",
	})

	// then
	processInstances, err := e.CreateQuery().QueryProcessInstances(context.Background(), engine.ProcessInstanceCriteria{BusinessKey: "o-47"})
	require.NoError(err, "failed to query process instances")
	require.Len(processInstances, 1, "no process instance queried")

	processInstance := processInstances[0]
	assert.Equal(engine.InstanceRunning, processInstance.State)

	events, err := e.CreateQuery().QueryEvents(context.Background(), engine.EventCriteria{ProcessInstanceId: processInstance.Id})
	require.NoError(err, "failed to query events")
	require.NotEmpty(events, "no events queried")

	assert.Equal("process:started", events[0].Type)

	t.Run("complete task", func(t *testing.T) {
		tasks, err := e.CreateQuery().QueryTasks(context.Background(), engine.TaskCriteria{ProcessInstanceId: processInstance.Id})
		require.NoError(err, "failed to query tasks")
		require.Len(tasks, 1, "no task queried")

		mustExecute(t, e, []string{
			"task",
			"complete",
			"--id",
			"1",
			"--variable",
			"shipped=true",
			"--result",
			`carrier="dhl"`,
		})

		processInstances, err := e.CreateQuery().QueryProcessInstances(context.Background(), engine.ProcessInstanceCriteria{Id: processInstance.Id})
		require.NoError(err, "failed to query process instances")
		require.Len(processInstances, 1, "no process instance queried")

		assert.Equal(engine.InstanceCompleted, processInstances[0].State)
	})

	t.Run("get variables", func(t *testing.T) {
		variables, err := e.GetProcessVariables(context.Background(), engine.GetProcessVariablesCmd{ProcessInstanceId: processInstance.Id})
		require.NoError(err, "failed to get process variables")

		assert.Equal(float64(7), variables["priority"])
		assert.Equal(true, variables["shipped"])
	})

	t.Run("delete", func(t *testing.T) {
		mustExecute(t, e, []string{
			"process-instance",
			"delete",
			"--id",
			"1",
		})

		processInstances, err := e.CreateQuery().QueryProcessInstances(context.Background(), engine.ProcessInstanceCriteria{Id: processInstance.Id})
		require.NoError(err, "failed to query process instances")
		assert.Empty(processInstances)
	})
}
