package daemon

import (
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/pg"
)

// RunPg runs a PostgreSQL based process engine, configured through GO_FLOW_
// environment variables, until SIGINT or SIGTERM is received.
func RunPg(args []string) int {
	engineOptions := pg.NewOptions()

	conf := newConf()

	pgDatabaseUrl := conf.addOption("PG_DATABASE_URL", "format: postgres://<username>:<password>@<host>:<port>/<database>?search_path=<schema>")
	pgDatabaseUrl.required = true

	pgTimeout := conf.addOption("PG_TIMEOUT", "time limit for database transactions")
	pgTimeout.defaultValue = engineOptions.Timeout.String()

	conf.setEngineOptions(engineOptions.Common)

	flags := flag.NewFlagSet("go-flowd", flag.ContinueOnError)
	flags.SetOutput(log.Writer())

	flags.Var(&conf.envFile.env, "env", "set environment variables")
	flags.Var(&conf.envFile, "env-file", "read in a file of environment variables")

	var doListConfOpts bool
	flags.BoolVar(&doListConfOpts, "list-conf-opts", false, "list configuration options")
	var doListConf bool
	flags.BoolVar(&doListConf, "list-conf", false, "list configuration")
	var doVersion bool
	flags.BoolVar(&doVersion, "version", false, "show version")

	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		} else {
			return 1
		}
	}

	if doListConfOpts {
		return listConfOpts(conf)
	}
	if doListConf {
		return listConf(conf)
	}
	if doVersion {
		return showVersion()
	}

	conf.getEngineOptions(&engineOptions.Common)

	if pgDatabaseUrl.value() == "" {
		pgDatabaseUrl.err = errors.New("is empty")
	}

	timeout, err := time.ParseDuration(pgTimeout.value())
	if err != nil {
		pgTimeout.err = err
	} else {
		engineOptions.Timeout = timeout
	}

	if code := listConfErrors(conf); code != 0 {
		return code
	}

	engineStartTime := time.Now()

	e, err := pg.New(pgDatabaseUrl.value(), func(o *pg.Options) {
		*o = engineOptions

		o.Common.OnExecutionFailure = func(processInstance engine.ProcessInstance, err error) {
			log.Printf("failed to execute process instance %s: %v", processInstance, err)
		}
	})
	if err != nil {
		log.Printf("failed to create pg engine: %v", err)
		return 1
	}

	defer e.Shutdown()

	log.Printf("pg engine started in %dms", time.Since(engineStartTime).Milliseconds())

	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGTERM)

	<-signalC

	return 0
}
