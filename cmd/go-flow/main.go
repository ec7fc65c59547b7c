/*
go-flow is a CLI for interacting with a PostgreSQL based process engine.

Usage:

	go-flow [flags]
	go-flow [command]

Available Commands:

	completion       Generate the autocompletion script for the specified shell
	event            Query process events
	help             Help about any command
	process          Manage and query processes
	process-instance Manage and query process instances
	stats            Show engine statistics
	task             Manage and query tasks
	version          Show version

Flags:

	    --database-url string   PostgreSQL URL (connection string)
	-h, --help                  help for go-flow
	    --timeout duration      Time limit for engine commands (default 30s)
	    --worker-id string      Worker ID (default "go-flow")

Use "go-flow [command] --help" for more information about a command.
*/
package main

import (
	"os"

	"github.com/jvollmer/go-flow/cli"
)

var (
	version = "unknown-version"
)

func main() {
	cli := cli.New(version)
	os.Exit(cli.Execute())
}
