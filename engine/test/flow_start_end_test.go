package test

import (
	"testing"

	"github.com/jvollmer/go-flow/engine"
	"github.com/stretchr/testify/assert"
)

func newStartEndTest(t *testing.T, e engine.Engine) startEndTest {
	return startEndTest{
		e: e,

		startEnd:    mustDeployProcess(t, e, "startEnd.json", "startEnd"),
		startFanOut: mustDeployProcess(t, e, "startFanOut.json", "startFanOutTest"),
	}
}

type startEndTest struct {
	e engine.Engine

	startEnd    engine.Process
	startFanOut engine.Process
}

func (x startEndTest) completesOnCreate(t *testing.T) {
	assert := assert.New(t)

	piAssert := mustCreateProcessInstance(t, x.e, x.startEnd)

	piAssert.IsCompleted()
	piAssert.HasPassed("start")
	piAssert.HasPassed("end")

	events := piAssert.Events()
	assert.NotEmpty(events)
	assert.Equal(engine.EventProcessStarted, events[0].Type)
	assert.Equal(engine.EventProcessCompleted, events[len(events)-1].Type)

	for _, token := range piAssert.Tokens() {
		assert.True(token.IsEnded())
	}

	processInstance := piAssert.ProcessInstance()
	assert.NotNil(processInstance.EndedAt)
	assert.Empty(processInstance.CurrentNodes)
}

// A start node with multiple outgoing edges forks one token per edge.
func (x startEndTest) fansOut(t *testing.T) {
	assert := assert.New(t)

	piAssert := mustCreateProcessInstance(t, x.e, x.startFanOut)

	piAssert.IsCompleted()
	piAssert.HasPassed("start")
	piAssert.HasPassed("endA")
	piAssert.HasPassed("endB")

	var forked int
	for _, token := range piAssert.Tokens() {
		assert.True(token.IsEnded())
		if token.HasParent() {
			forked++
		}
	}
	assert.Equal(2, forked)
}
