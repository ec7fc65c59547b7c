package test

import (
	"context"
	"testing"

	"github.com/jvollmer/go-flow/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubprocessTest(t *testing.T, e engine.Engine) subprocessTest {
	return subprocessTest{
		e: e,

		// the child definition must be deployed before an instance of the
		// parent is created
		pickingTest:    mustDeployProcess(t, e, "picking.json", "pickingTest"),
		subprocessTest: mustDeployProcess(t, e, "subprocess.json", "subprocessTest"),
	}
}

type subprocessTest struct {
	e engine.Engine

	pickingTest    engine.Process
	subprocessTest engine.Process
}

func (x subprocessTest) subprocess(t *testing.T) {
	assert := assert.New(t)

	piAssert := mustCreateProcessInstance(t, x.e, x.subprocessTest, map[string]any{"orderId": "o-31"})

	piAssert.IsNotCompleted()
	piAssert.IsWaitingAt("picking")

	processInstance := piAssert.ProcessInstance()

	children, err := x.e.CreateQuery().QueryProcessInstances(context.Background(), engine.ProcessInstanceCriteria{
		ParentId: processInstance.Id,
	})
	require.NoError(t, err)
	require.Len(t, children, 1)

	child := children[0]
	assert.Equal("pickingTest", child.DefinitionId)
	assert.Equal(processInstance.Id, child.ParentId)
	assert.Equal(processInstance.Id, child.RootId)
	assert.Equal(engine.InstanceRunning, child.State)

	// the starting variables of the child are copied from the parent
	childAssert := engine.Assert(t, x.e, child)
	childAssert.HasProcessVariable("orderId", "o-31")

	childAssert.IsWaitingAt("pickItems")
	childAssert.CompleteTask(engine.CompleteTaskCmd{
		Variables: map[string]any{"picked": true},
	})

	// completing the child resumes the parked token of the parent
	childAssert.IsCompleted()
	piAssert.IsCompleted()
	piAssert.HasPassed("picking")
	piAssert.HasPassed("end")

	// variables of the ended child are merged into the parent
	piAssert.HasProcessVariable("picked", true)
}
