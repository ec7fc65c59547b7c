package test

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/mem"
	"github.com/jvollmer/go-flow/engine/pg"
)

const testWorkerId = "test-worker"

var databaseSchema string

func mustCreateEngines(t *testing.T) ([]engine.Engine, []string) {
	var engines []engine.Engine
	var engineTypes []string

	// create mem engine
	memEngine, err := mem.New()
	if err != nil {
		t.Fatalf("failed to create mem engine: %v", err)
	}

	engines = append(engines, memEngine)
	engineTypes = append(engineTypes, "mem_")

	databaseUrl := lookUpDatabaseUrl()
	if testing.Short() || databaseUrl == "" {
		return engines, engineTypes
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, databaseUrl)
	if err != nil {
		t.Fatalf("failed to establish database connection: %v", err)
	}

	defer conn.Close(ctx)

	if databaseSchema == "" {
		databaseSchema = fmt.Sprintf("test_%s", strings.Replace(time.Now().Format("20060102150405.000"), ".", "", 1))
		_, err = conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", databaseSchema))
		if err != nil {
			t.Fatalf("failed to create database schema: %v", err)
		}
	} else {
		for _, table := range pg.Tables {
			_, err = conn.Exec(ctx, fmt.Sprintf("TRUNCATE %s.%s", databaseSchema, table))
			if err != nil {
				t.Fatalf("failed to truncate table %s: %v", table, err)
			}
		}
	}

	databaseUrl = fmt.Sprintf("%s?search_path=%s", databaseUrl, databaseSchema)

	// create pg engine
	pgEngine, err := pg.New(databaseUrl, func(o *pg.Options) {
		o.Common.ProcessExecutorEnabled = false
	})
	if err != nil {
		t.Fatalf("failed to create pg engine: %v", err)
	}

	engines = append(engines, pgEngine)
	engineTypes = append(engineTypes, "pg_")

	return engines, engineTypes
}

func mustDeployProcess(t *testing.T, e engine.Engine, fileName string, definitionId string) engine.Process {
	model := mustReadModelFile(t, fileName)

	process, err := e.DeployProcess(context.Background(), engine.DeployProcessCmd{
		DefinitionId: definitionId,
		Model:        model,
		Version:      "1",
		WorkerId:     testWorkerId,
	})
	if err != nil {
		t.Fatalf("failed to deploy process: %v", err)
	}

	return process
}

func mustCreateProcessInstance(t *testing.T, e engine.Engine, process engine.Process, variables ...map[string]any) *engine.ProcessInstanceAssert {
	var cmdVariables map[string]any
	if len(variables) != 0 {
		cmdVariables = variables[0]
	}

	processInstance, err := e.CreateProcessInstance(context.Background(), engine.CreateProcessInstanceCmd{
		DefinitionId: process.DefinitionId,
		Version:      process.Version,
		Variables:    cmdVariables,
		WorkerId:     process.CreatedBy,
	})
	if err != nil {
		t.Fatalf("failed to create process instance: %v", err)
	}

	return engine.Assert(t, e, processInstance)
}

func mustReadModelFile(t *testing.T, fileName string) string {
	modelFile, err := os.Open("../../test/models/" + fileName)
	if err != nil {
		t.Fatalf("failed to open model file: %v", err)
	}

	defer modelFile.Close()

	b, err := io.ReadAll(modelFile)
	if err != nil {
		t.Fatalf("failed to read model JSON: %v", err)
	}

	return string(b)
}

func lookUpDatabaseUrl() string {
	return os.Getenv("GO_FLOW_TEST_DATABASE_URL")
}
