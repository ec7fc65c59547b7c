package test

import (
	"context"
	"testing"

	"github.com/jvollmer/go-flow/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess(t *testing.T) {
	engines, engineTypes := mustCreateEngines(t)
	for _, e := range engines {
		defer e.Shutdown()
	}

	t.Run("deploy", func(t *testing.T) {
		for i, e := range engines {
			processTest := processTest{e: e}

			t.Run(engineTypes[i]+"deploy", processTest.deploy)
			t.Run(engineTypes[i]+"deploy is idempotent for an equal model", processTest.deployIdempotent)

			t.Run(engineTypes[i]+"fails to deploy a different model for an existing version", processTest.errorDeployDifferentModel)
			t.Run(engineTypes[i]+"fails to deploy an invalid model", processTest.errorDeployInvalidModel)
			t.Run(engineTypes[i]+"fails to deploy when definition ID differs", processTest.errorDeployDefinitionIdMismatch)
		}
	})

	t.Run("set enabled", func(t *testing.T) {
		for i, e := range engines {
			processTest := processTest{e: e}

			t.Run(engineTypes[i]+"disable and enable", processTest.setEnabled)
		}
	})
}

type processTest struct {
	e engine.Engine
}

func (x processTest) deploy(t *testing.T) {
	assert := assert.New(t)

	process := mustDeployProcess(t, x.e, "order.json", "order")

	assert.NotEmpty(process.Id)
	assert.Equal("order", process.DefinitionId)
	assert.Equal("Order fulfillment", process.Name)
	assert.Equal("1", process.Version)
	assert.True(process.IsEnabled)
	assert.False(process.CreatedAt.IsZero())
	assert.Equal(testWorkerId, process.CreatedBy)

	model, err := x.e.GetProcessModel(context.Background(), engine.GetProcessModelCmd{ProcessId: process.Id})
	require.NoError(t, err)
	assert.Equal(mustReadModelFile(t, "order.json"), model)

	results, err := x.e.CreateQuery().QueryProcesses(context.Background(), engine.ProcessCriteria{DefinitionId: "order"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(process.Id, results[0].Id)
}

func (x processTest) deployIdempotent(t *testing.T) {
	process := mustDeployProcess(t, x.e, "order.json", "order")
	deployedAgain := mustDeployProcess(t, x.e, "order.json", "order")

	assert.Equal(t, process.Id, deployedAgain.Id)
}

func (x processTest) errorDeployDifferentModel(t *testing.T) {
	mustDeployProcess(t, x.e, "order.json", "order")

	_, err := x.e.DeployProcess(context.Background(), engine.DeployProcessCmd{
		DefinitionId: "order",
		Model:        mustReadModelFile(t, "startEnd.json"),
		Version:      "1",
		WorkerId:     testWorkerId,
	})
	require.Error(t, err)

	engineErr, ok := err.(engine.Error)
	require.True(t, ok)

	// the model of startEnd.json carries a different definition ID
	assert.Equal(t, engine.ErrorProcessModel, engineErr.Type)

	model := mustReadModelFile(t, "order.json")
	_, err = x.e.DeployProcess(context.Background(), engine.DeployProcessCmd{
		DefinitionId: "order",
		Model:        model + "\n",
		Version:      "1",
		WorkerId:     testWorkerId,
	})
	require.Error(t, err)

	engineErr, ok = err.(engine.Error)
	require.True(t, ok)
	assert.Equal(t, engine.ErrorConflict, engineErr.Type)
}

func (x processTest) errorDeployInvalidModel(t *testing.T) {
	_, err := x.e.DeployProcess(context.Background(), engine.DeployProcessCmd{
		DefinitionId: "noStart",
		Model:        `{"id": "noStart", "version": "1", "enabled": true, "nodes": [{"id": "end", "type": "END"}], "edges": []}`,
		Version:      "1",
		WorkerId:     testWorkerId,
	})
	require.Error(t, err)

	engineErr, ok := err.(engine.Error)
	require.True(t, ok)
	assert.Equal(t, engine.ErrorProcessModel, engineErr.Type)
	assert.NotEmpty(t, engineErr.Causes)
}

func (x processTest) errorDeployDefinitionIdMismatch(t *testing.T) {
	_, err := x.e.DeployProcess(context.Background(), engine.DeployProcessCmd{
		DefinitionId: "somethingElse",
		Model:        mustReadModelFile(t, "order.json"),
		Version:      "1",
		WorkerId:     testWorkerId,
	})
	require.Error(t, err)

	engineErr, ok := err.(engine.Error)
	require.True(t, ok)
	assert.Equal(t, engine.ErrorProcessModel, engineErr.Type)
}

func (x processTest) setEnabled(t *testing.T) {
	assert := assert.New(t)

	process := mustDeployProcess(t, x.e, "order.json", "order")

	err := x.e.SetProcessEnabled(context.Background(), engine.SetProcessEnabledCmd{
		ProcessId: process.Id,
		Enabled:   false,
		WorkerId:  testWorkerId,
	})
	require.NoError(t, err)

	_, err = x.e.CreateProcessInstance(context.Background(), engine.CreateProcessInstanceCmd{
		DefinitionId: process.DefinitionId,
		Version:      process.Version,
		WorkerId:     testWorkerId,
	})
	require.Error(t, err)

	engineErr, ok := err.(engine.Error)
	require.True(t, ok)
	assert.Equal(engine.ErrorConflict, engineErr.Type)

	err = x.e.SetProcessEnabled(context.Background(), engine.SetProcessEnabledCmd{
		ProcessId: process.Id,
		Enabled:   true,
		WorkerId:  testWorkerId,
	})
	require.NoError(t, err)

	_, err = x.e.CreateProcessInstance(context.Background(), engine.CreateProcessInstanceCmd{
		DefinitionId: process.DefinitionId,
		Version:      process.Version,
		WorkerId:     testWorkerId,
	})
	assert.NoError(err)
}
