// Package worker provides a SDK to implement and automate processes.
/*
worker offers a handler interface, which must be implemented to automate the execution of tasks, created within an engine.

Create a Worker

A worker requires an engine.
The engine can be an embedded engine (pg, or mem for testing).

	w, err := worker.New(e, func(o *worker.Options) {
		o.OnTaskExecutionFailure = func(task engine.Task, err error) {
			log.Printf("failed to execute task %d: %v", task.Id, err)
		}
	})
	if err != nil {
		log.Fatalf("failed to create worker: %v", err)
	}

Implement a Process

A process automation must implement the [Handler] interface.

	type exampleHandler struct {}

	func (h exampleHandler) DeployProcessCmd() (engine.DeployProcessCmd, error) {
		modelFile, err := os.Open("./example.json")
		if err != nil {
			return engine.DeployProcessCmd{}, err
		}

		defer modelFile.Close()

		model, err := io.ReadAll(modelFile)
		if err != nil {
			return engine.DeployProcessCmd{}, err
		}

		return engine.DeployProcessCmd{
			DefinitionId: "example",
			Model:        string(model),
			Version:      "1",
		}, nil
	}

	func (h exampleHandler) Handle(mux worker.TaskMux) error {
		mux.Execute("shipOrder", h.executeShipOrder)
		return nil
	}

	func (h exampleHandler) executeShipOrder(tc worker.TaskContext) error {
		// ...
		return nil
	}

Run a Worker

Before a worker is started, implemented handlers must be registered.
Register deploys the handler's process, so that instances can be created afterwards.

	exampleProcess, err := w.Register(exampleHandler{})
	if err != nil {
		log.Fatalf("failed to register example handler: %v", err)
	}

	w.Start()

	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGTERM)

	<-signalC

	w.Stop()

Create a Process Instance

A process handle can be used to create a new process instance with starting variables.

	processInstance, err := exampleProcess.CreateProcessInstance(ctx, map[string]any{
		"orderId": "o-1",
	})
	if err != nil {
		log.Printf("failed to create process instance: %v", err)
	}
*/
package worker
