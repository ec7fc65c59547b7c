package test

import (
	"context"
	"testing"

	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExclusiveGatewayTest(t *testing.T, e engine.Engine) exclusiveGatewayTest {
	return exclusiveGatewayTest{
		e: e,

		exclusiveTest: mustDeployProcess(t, e, "exclusive.json", "exclusiveTest"),
	}
}

type exclusiveGatewayTest struct {
	e engine.Engine

	exclusiveTest engine.Process
}

func (x exclusiveGatewayTest) matchingEdge(t *testing.T) {
	piAssert := mustCreateProcessInstance(t, x.e, x.exclusiveTest, map[string]any{"amount": 250})

	piAssert.IsWaitingAt("review")
	piAssert.IsNotWaitingAt("accepted")
	piAssert.CompleteTask()

	piAssert.IsCompleted()
	piAssert.HasPassed("decide")
	piAssert.HasPassed("reviewed")
}

func (x exclusiveGatewayTest) defaultEdge(t *testing.T) {
	piAssert := mustCreateProcessInstance(t, x.e, x.exclusiveTest, map[string]any{"amount": 50})

	piAssert.IsCompleted()
	piAssert.HasPassed("decide")
	piAssert.HasPassed("accepted")
	piAssert.IsNotWaitingAt("review")
}

// TestExclusiveGatewayRoutingError verifies that a gateway without a matching
// edge and without a default edge puts the process instance into state ERROR.
// The mem engine is used, since the pg engine rolls the failed execution back.
func TestExclusiveGatewayRoutingError(t *testing.T) {
	assert := assert.New(t)

	e, err := mem.New()
	require.NoError(t, err)
	defer e.Shutdown()

	process := mustDeployProcess(t, e, "exclusiveNoDefault.json", "exclusiveNoDefaultTest")

	processInstance, err := e.CreateProcessInstance(context.Background(), engine.CreateProcessInstanceCmd{
		DefinitionId: process.DefinitionId,
		Version:      process.Version,
		Variables:    map[string]any{"amount": 50},
		WorkerId:     testWorkerId,
	})
	require.Error(t, err)

	engineErr, ok := err.(engine.Error)
	require.True(t, ok)
	assert.Equal(engine.ErrorProcessModel, engineErr.Type)

	results, err := e.CreateQuery().QueryProcessInstances(context.Background(), engine.ProcessInstanceCriteria{Id: processInstance.Id})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(engine.InstanceError, results[0].State)

	events, err := e.CreateQuery().QueryEvents(context.Background(), engine.EventCriteria{
		ProcessInstanceId: processInstance.Id,
		Type:              engine.EventRoutingError,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal("decide", events[0].Data["nodeId"])
}
