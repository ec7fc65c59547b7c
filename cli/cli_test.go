package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelp(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	rootCmd := newRootCmd(&Cli{e: e})

	rootCmd.SetArgs([]string{})
	assert.NoError(rootCmd.Execute())

	rootCmd.SetArgs([]string{"event"})
	assert.NoError(rootCmd.Execute())
	rootCmd.SetArgs([]string{"process"})
	assert.NoError(rootCmd.Execute())
	rootCmd.SetArgs([]string{"process-instance"})
	assert.NoError(rootCmd.Execute())
	rootCmd.SetArgs([]string{"task"})
	assert.NoError(rootCmd.Execute())
	rootCmd.SetArgs([]string{"version"})
	assert.NoError(rootCmd.Execute())

	rootCmd.SetArgs([]string{"process", "deploy", "--help"})
	assert.NoError(rootCmd.Execute())
	rootCmd.SetArgs([]string{"process-instance", "create", "--help"})
	assert.NoError(rootCmd.Execute())
	rootCmd.SetArgs([]string{"task", "complete", "--help"})
	assert.NoError(rootCmd.Execute())
	rootCmd.SetArgs([]string{"stats", "--help"})
	assert.NoError(rootCmd.Execute())
}
