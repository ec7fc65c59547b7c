package internal

import (
	"context"
	"log"
	"time"

	"github.com/jvollmer/go-flow/engine"
)

func NewProcessExecutor(e engine.Engine, options engine.Options) *ProcessExecutor {
	tickerCtx, tickerCancel := context.WithCancel(context.Background())

	return &ProcessExecutor{
		engine:             e,
		instanceLimit:      options.ProcessExecutorLimit,
		onExecutionFailure: options.OnExecutionFailure,

		tickerCtx:    tickerCtx,
		tickerCancel: tickerCancel,
		ticker:       time.NewTicker(options.ProcessExecutorInterval),
	}
}

// A ProcessExecutor periodically re-drives running process instances, so
// that parked tokens, reactivated outside of a task completion, continue.
type ProcessExecutor struct {
	engine             engine.Engine
	instanceLimit      int
	onExecutionFailure func(engine.ProcessInstance, error)

	tickerCtx    context.Context
	tickerCancel context.CancelFunc
	ticker       *time.Ticker
}

func (e *ProcessExecutor) Execute() {
	go func() {
		for {
			select {
			case <-e.ticker.C:
				e.executeProcessInstances()
			case <-e.tickerCtx.Done():
				return
			}
		}
	}()
}

func (e *ProcessExecutor) Stop() {
	e.ticker.Stop()
	e.tickerCancel()
}

func (e *ProcessExecutor) executeProcessInstances() {
	query := e.engine.CreateQuery()
	query.SetOptions(engine.QueryOptions{Limit: e.instanceLimit})

	processInstances, err := query.QueryProcessInstances(e.tickerCtx, engine.ProcessInstanceCriteria{
		States: []engine.InstanceState{engine.InstanceRunning},
	})
	if err != nil {
		log.Printf("failed to query running process instances: %v", err)
		return
	}

	for _, processInstance := range processInstances {
		err := e.engine.ExecuteProcess(e.tickerCtx, engine.ExecuteProcessCmd{ProcessInstanceId: processInstance.Id})
		if err == nil {
			continue
		}

		if e.onExecutionFailure != nil {
			e.onExecutionFailure(processInstance, err)
		} else {
			log.Printf("failed to execute process instance %s: %v", processInstance, err)
		}
	}
}
