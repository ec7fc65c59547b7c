package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/pg"
	"github.com/jvollmer/go-flow/worker"
)

func main() {
	databaseUrl := os.Getenv("GO_FLOW_PG_DATABASE_URL")
	if databaseUrl == "" {
		log.Fatalf("missing environment variable GO_FLOW_PG_DATABASE_URL")
	}

	e, err := pg.New(databaseUrl)
	if err != nil {
		log.Fatalf("failed to create pg engine: %v", err)
	}

	defer e.Shutdown()

	w, err := worker.New(e, func(o *worker.Options) {
		o.TaskExecutorInterval = time.Second * 5
		o.OnTaskExecutionFailure = func(task engine.Task, err error) {
			log.Printf("failed to execute task %d: %v", task.Id, err)
		}
	})
	if err != nil {
		log.Fatalf("failed to create worker: %v", err)
	}

	orderProcess, err := w.Register(orderHandler{})
	if err != nil {
		log.Fatalf("failed to register order handler: %v", err)
	}

	w.Start()

	tickerCtx, tickerCancel := context.WithCancel(context.Background())
	ticker := time.NewTicker(time.Second * 10)

	go func() {
		for {
			select {
			case <-ticker.C:
				processInstance, err := orderProcess.CreateProcessInstance(context.Background(), map[string]any{
					"express": time.Now().Unix()%2 == 0,
				})
				if err != nil {
					log.Printf("failed to create process instance: %v", err)
					continue
				}

				log.Printf("created process instance %s", processInstance)
			case <-tickerCtx.Done():
				return
			}
		}
	}()

	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGTERM)

	<-signalC

	ticker.Stop()
	tickerCancel()

	w.Stop()
}
