package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/mem"
)

const testModel = `{
	"id": "order",
	"version": "1",
	"enabled": true,
	"nodes": [
		{"id": "orderPlaced", "type": "START"},
		{"id": "shipOrder", "type": "TASK"},
		{"id": "orderShipped", "type": "END"}
	],
	"edges": [
		{"source": "orderPlaced", "target": "shipOrder"},
		{"source": "shipOrder", "target": "orderShipped"}
	]
}`

func mustCreateEngine(t *testing.T) engine.Engine {
	e, err := mem.New()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func mustExecute(t *testing.T, e engine.Engine, args []string) {
	rootCmd := newRootCmd(&Cli{e: e, workerId: program})
	rootCmd.PersistentPostRun = nil

	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("failed to execute %v: %v", args, err)
	}
}

func mustDeployProcess(t *testing.T, e engine.Engine) {
	modelFileName := filepath.Join(t.TempDir(), "order.json")
	if err := os.WriteFile(modelFileName, []byte(testModel), 0o600); err != nil {
		t.Fatalf("failed to write model file: %v", err)
	}

	mustExecute(t, e, []string{
		"process",
		"deploy",
		"--model-file",
		modelFileName,
		"--definition-id",
		"order",
		"--version",
		"1",
	})
}

func TestMapVariables(t *testing.T) {
	variables, err := mapVariables(map[string]string{
		"orderId":  `"o-1"`,
		"priority": "7",
		"express":  "true",
		"carrier":  "dhl", // not valid JSON, used as plain string
		"obsolete": "",
	})
	if err != nil {
		t.Fatalf("failed to map variables: %v", err)
	}

	if variables["orderId"] != "o-1" {
		t.Errorf("expected orderId o-1, got %v", variables["orderId"])
	}
	if variables["priority"] != float64(7) {
		t.Errorf("expected priority 7, got %v", variables["priority"])
	}
	if variables["express"] != true {
		t.Errorf("expected express true, got %v", variables["express"])
	}
	if variables["carrier"] != "dhl" {
		t.Errorf("expected carrier dhl, got %v", variables["carrier"])
	}
	if value, ok := variables["obsolete"]; !ok || value != nil {
		t.Errorf("expected obsolete nil, got %v", value)
	}
}
