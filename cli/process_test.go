package cli

import (
	"context"
	"testing"

	"github.com/jvollmer/go-flow/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessDeploy(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	// when
	mustDeployProcess(t, e)

	// then
	results, err := e.CreateQuery().QueryProcesses(context.Background(), engine.ProcessCriteria{DefinitionId: "order"})
	require.NoError(err, "failed to query processes")
	require.Len(results, 1, "no process queried")

	assert.Equal("order", results[0].DefinitionId)
	assert.Equal("1", results[0].Version)
	assert.True(results[0].IsEnabled)
	assert.Equal(program, results[0].CreatedBy)
}

func TestProcessSetEnabled(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	mustDeployProcess(t, e)

	results, err := e.CreateQuery().QueryProcesses(context.Background(), engine.ProcessCriteria{DefinitionId: "order"})
	require.NoError(err, "failed to query processes")
	require.Len(results, 1, "no process queried")

	processId := results[0].Id

	// when
	mustExecute(t, e, []string{
		"process",
		"set-enabled",
		"--id",
		"1",
		"--disabled",
	})

	// then
	results, err = e.CreateQuery().QueryProcesses(context.Background(), engine.ProcessCriteria{Id: processId})
	require.NoError(err, "failed to query processes")
	require.Len(results, 1, "no process queried")

	assert.False(results[0].IsEnabled)

	_, err = e.CreateProcessInstance(context.Background(), engine.CreateProcessInstanceCmd{
		DefinitionId: "order",
		WorkerId:     "test",
	})
	assert.Error(err, "expected creation of disabled process instance to fail")
}
