package test

import (
	"testing"
)

func TestFlow(t *testing.T) {
	engines, engineTypes := mustCreateEngines(t)
	for _, e := range engines {
		defer e.Shutdown()
	}

	t.Run("start end", func(t *testing.T) {
		for i, e := range engines {
			startEndTest := newStartEndTest(t, e)

			t.Run(engineTypes[i]+"completesOnCreate", startEndTest.completesOnCreate)
			t.Run(engineTypes[i]+"fansOut", startEndTest.fansOut)
		}
	})

	t.Run("task", func(t *testing.T) {
		for i, e := range engines {
			taskTest := newTaskTest(t, e)

			t.Run(engineTypes[i]+"task", taskTest.task)
			t.Run(engineTypes[i]+"creates no second work item for a parked token", taskTest.taskIdempotent)
			t.Run(engineTypes[i]+"lock and unlock", taskTest.lockUnlock)
			t.Run(engineTypes[i]+"lock by candidate group", taskTest.lockByCandidateGroup)

			t.Run(engineTypes[i]+"fails to complete when locked by a different worker", taskTest.errorLockedByDifferentWorker)
		}
	})

	t.Run("exclusive gateway", func(t *testing.T) {
		for i, e := range engines {
			exclusiveGatewayTest := newExclusiveGatewayTest(t, e)

			t.Run(engineTypes[i]+"takes first matching edge", exclusiveGatewayTest.matchingEdge)
			t.Run(engineTypes[i]+"takes default edge", exclusiveGatewayTest.defaultEdge)
		}
	})

	t.Run("inclusive gateway", func(t *testing.T) {
		for i, e := range engines {
			inclusiveGatewayTest := newInclusiveGatewayTest(t, e)

			t.Run(engineTypes[i]+"takes all matching edges", inclusiveGatewayTest.allEdges)
			t.Run(engineTypes[i]+"takes one matching edge", inclusiveGatewayTest.oneEdge)
			t.Run(engineTypes[i]+"takes default edge", inclusiveGatewayTest.defaultEdge)
		}
	})

	t.Run("parallel gateway", func(t *testing.T) {
		for i, e := range engines {
			parallelGatewayTest := newParallelGatewayTest(t, e)

			t.Run(engineTypes[i]+"forks and joins", parallelGatewayTest.forkAndJoin)
		}
	})

	t.Run("subprocess", func(t *testing.T) {
		for i, e := range engines {
			subprocessTest := newSubprocessTest(t, e)

			t.Run(engineTypes[i]+"subprocess", subprocessTest.subprocess)
		}
	})
}
