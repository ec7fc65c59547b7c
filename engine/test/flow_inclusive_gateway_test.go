package test

import (
	"testing"

	"github.com/jvollmer/go-flow/engine"
	"github.com/stretchr/testify/assert"
)

func newInclusiveGatewayTest(t *testing.T, e engine.Engine) inclusiveGatewayTest {
	return inclusiveGatewayTest{
		e: e,

		inclusiveTest: mustDeployProcess(t, e, "inclusive.json", "inclusiveTest"),
	}
}

type inclusiveGatewayTest struct {
	e engine.Engine

	inclusiveTest engine.Process
}

func (x inclusiveGatewayTest) allEdges(t *testing.T) {
	assert := assert.New(t)

	piAssert := mustCreateProcessInstance(t, x.e, x.inclusiveTest, map[string]any{"email": true, "sms": true})

	piAssert.IsWaitingAt("sendEmail")
	piAssert.CompleteTask()

	piAssert.IsWaitingAt("sendSms")
	piAssert.CompleteTask()

	piAssert.IsCompleted()
	piAssert.HasPassed("notify")
	piAssert.HasPassed("emailSent")
	piAssert.HasPassed("smsSent")

	// the forking token is completed, one child token per taken edge
	var forked int
	for _, token := range piAssert.Tokens() {
		assert.True(token.IsEnded())
		if token.HasParent() {
			forked++
		}
	}
	assert.Equal(2, forked)
}

func (x inclusiveGatewayTest) oneEdge(t *testing.T) {
	piAssert := mustCreateProcessInstance(t, x.e, x.inclusiveTest, map[string]any{"email": true})

	piAssert.IsWaitingAt("sendEmail")
	piAssert.IsNotWaitingAt("sendSms")
	piAssert.CompleteTask()

	piAssert.IsCompleted()
	piAssert.HasPassed("emailSent")

	// a single matching edge moves the token without a fork
	for _, token := range piAssert.Tokens() {
		assert.False(t, token.HasParent())
	}
}

func (x inclusiveGatewayTest) defaultEdge(t *testing.T) {
	piAssert := mustCreateProcessInstance(t, x.e, x.inclusiveTest)

	piAssert.IsCompleted()
	piAssert.HasPassed("notNotified")
	piAssert.IsNotWaitingAt("sendEmail")
	piAssert.IsNotWaitingAt("sendSms")
}
