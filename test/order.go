package main

import (
	"io"
	"os"

	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/worker"
)

type orderHandler struct {
}

func (h orderHandler) DeployProcessCmd() (engine.DeployProcessCmd, error) {
	modelFile, err := os.Open("./models/order.json")
	if err != nil {
		return engine.DeployProcessCmd{}, err
	}

	defer modelFile.Close()

	model, err := io.ReadAll(modelFile)
	if err != nil {
		return engine.DeployProcessCmd{}, err
	}

	return engine.DeployProcessCmd{
		DefinitionId: "order",
		Model:        string(model),
		Version:      "1",
	}, nil
}

func (h orderHandler) Handle(mux worker.TaskMux) error {
	mux.Execute("shipOrder", h.executeShipOrder)
	mux.Execute("shipExpress", h.executeShipExpress)
	return nil
}

func (h orderHandler) executeShipOrder(tc worker.TaskContext) error {
	tc.SetVariable("carrier", "standard")
	return nil
}

func (h orderHandler) executeShipExpress(tc worker.TaskContext) error {
	tc.SetVariable("carrier", "express")
	return nil
}
