package test

import (
	"testing"

	"github.com/jvollmer/go-flow/engine"
	"github.com/stretchr/testify/assert"
)

func newParallelGatewayTest(t *testing.T, e engine.Engine) parallelGatewayTest {
	return parallelGatewayTest{
		e: e,

		parallelTest: mustDeployProcess(t, e, "parallel.json", "parallelTest"),
	}
}

type parallelGatewayTest struct {
	e engine.Engine

	parallelTest engine.Process
}

func (x parallelGatewayTest) forkAndJoin(t *testing.T) {
	assert := assert.New(t)

	piAssert := mustCreateProcessInstance(t, x.e, x.parallelTest)

	piAssert.IsWaitingAt("pickItems")
	piAssert.IsWaitingAt("printLabel")

	piAssert.IsWaitingAt("pickItems")
	piAssert.CompleteTask()

	// the join must hold the first arriving token back
	piAssert.IsNotCompleted()
	piAssert.IsWaitingAt("join")

	piAssert.IsWaitingAt("printLabel")
	piAssert.CompleteTask()

	piAssert.IsCompleted()
	piAssert.HasPassed("fork")
	piAssert.HasPassed("join")
	piAssert.HasPassed("end")

	// every token is ended and the fork produced one child per outgoing edge
	var forked int
	for _, token := range piAssert.Tokens() {
		assert.True(token.IsEnded())
		if token.HasParent() {
			forked++
		}
	}
	assert.Equal(2, forked)
}
