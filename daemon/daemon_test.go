package daemon

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/jvollmer/go-flow/engine"
	"github.com/stretchr/testify/assert"
)

func TestConf(t *testing.T) {
	assert := assert.New(t)

	t.Run("get engine options", func(t *testing.T) {
		conf := newConf()
		conf.opts[optDefaultQueryLimit].defaultValue = "500"
		conf.opts[optEngineId].defaultValue = "engine-id"
		conf.opts[optProcessExecutorEnabled].defaultValue = "true"
		conf.opts[optProcessExecutorInterval].defaultValue = (30 * time.Second).String()
		conf.opts[optProcessExecutorLimit].defaultValue = "100"

		var options engine.Options
		conf.getEngineOptions(&options)

		assert.Equal(500, options.DefaultQueryLimit)
		assert.Equal("engine-id", options.EngineId)
		assert.True(options.ProcessExecutorEnabled)
		assert.Equal("30s", options.ProcessExecutorInterval.String())
		assert.Equal(100, options.ProcessExecutorLimit)

		assert.Equal(0, listConfErrors(conf))
	})

	t.Run("get engine options when values are invalid", func(t *testing.T) {
		conf := newConf()
		conf.opts[optDefaultQueryLimit].defaultValue = "invalid-default-query-limit"
		conf.opts[optEngineId].defaultValue = ""
		conf.opts[optProcessExecutorEnabled].defaultValue = "invalid-process-executor-enabled"
		conf.opts[optProcessExecutorInterval].defaultValue = "invalid-process-executor-interval"
		conf.opts[optProcessExecutorLimit].defaultValue = "invalid-process-executor-limit"

		conf.getEngineOptions(&engine.Options{})

		assert.NotNil(conf.opts[optDefaultQueryLimit].err)
		assert.NotNil(conf.opts[optEngineId].err)
		assert.NotNil(conf.opts[optProcessExecutorEnabled].err)
		assert.NotNil(conf.opts[optProcessExecutorInterval].err)
		assert.NotNil(conf.opts[optProcessExecutorLimit].err)

		buffer := bytes.NewBufferString("")
		log.SetOutput(buffer)

		assert.Equal(1, listConfErrors(conf))

		assert.Contains(buffer.String(), "GO_FLOW_DEFAULT_QUERY_LIMIT=invalid-default-query-limit: ")
		assert.Contains(buffer.String(), "GO_FLOW_ENGINE_ID: ")
		assert.Contains(buffer.String(), "GO_FLOW_PROCESS_EXECUTOR_ENABLED=invalid-process-executor-enabled: ")
		assert.Contains(buffer.String(), "GO_FLOW_PROCESS_EXECUTOR_INTERVAL=invalid-process-executor-interval: ")
		assert.Contains(buffer.String(), "GO_FLOW_PROCESS_EXECUTOR_LIMIT=invalid-process-executor-limit: ")
	})

	t.Run("env set", func(t *testing.T) {
		env := env{}
		assert.NoError(env.Set("GO_FLOW_ENGINE_ID=my-engine"))
		assert.Error(env.Set("invalid"))

		assert.Equal("my-engine", env["GO_FLOW_ENGINE_ID"])
	})
}
