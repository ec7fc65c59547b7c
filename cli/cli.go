package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/pg"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	envLookupAllowed = "envLookupAllowed" // flag level annotation that allows an environment variable lookup
	envPrefix        = "GO_FLOW_"
	noEngineRequired = "noEngineRequired" // annotation, indicating that no engine is required to run the command
	program          = "go-flow"

	envDatabaseUrl = envPrefix + "DATABASE_URL"
)

func New(version string) *Cli {
	cli := Cli{version: version}

	cli.rootCmd = newRootCmd(&cli)

	return &cli
}

type Cli struct {
	version string

	rootCmd *cobra.Command

	e        engine.Engine
	workerId string
}

func (c *Cli) Execute() int {
	if err := c.rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func (c *Cli) help(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

func newRootCmd(cli *Cli) *cobra.Command {
	var (
		databaseUrl string
		timeout     time.Duration
	)

	c := cobra.Command{
		Use:   program,
		Short: "A client for go-flow process engines",
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			c.SilenceUsage = true

			if _, ok := c.Annotations[noEngineRequired]; ok {
				return nil
			}

			if cli.e != nil {
				return nil // skip engine creation when testing
			}

			c.Flags().VisitAll(func(f *pflag.Flag) {
				if f.Changed {
					return
				}
				if _, ok := f.Annotations[envLookupAllowed]; !ok {
					return
				}

				// e.g. worker-id -> GO_FLOW_WORKER_ID
				key := envPrefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")

				if value, ok := os.LookupEnv(key); ok {
					f.Value.Set(value)
				}
			})

			if databaseUrl == "" {
				databaseUrl = os.Getenv(envDatabaseUrl)
			}
			if databaseUrl == "" {
				return fmt.Errorf("no database URL set.\n\nuse flag --database-url or environment variable %s\n ", envDatabaseUrl)
			}

			e, err := pg.New(databaseUrl, func(o *pg.Options) {
				o.Common.EngineId = cli.workerId
				o.Common.ProcessExecutorEnabled = false
				o.Timeout = timeout
			})
			if err != nil {
				return fmt.Errorf("failed to create pg engine: %v", err)
			}

			cli.e = e
			return nil
		},
		RunE: cli.help,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cli.e != nil {
				cli.e.Shutdown()
			}
		},
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.PersistentFlags().StringVar(&databaseUrl, "database-url", "", "PostgreSQL URL (connection string)")
	c.PersistentFlags().StringVar(&cli.workerId, "worker-id", program, "Worker ID")
	c.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Time limit for engine commands")

	c.PersistentFlags().SetAnnotation("database-url", envLookupAllowed, nil)
	c.PersistentFlags().SetAnnotation("worker-id", envLookupAllowed, nil)
	c.PersistentFlags().SetAnnotation("timeout", envLookupAllowed, nil)

	c.AddCommand(newEventCmd(cli))
	c.AddCommand(newProcessCmd(cli))
	c.AddCommand(newProcessInstanceCmd(cli))
	c.AddCommand(newTaskCmd(cli))
	c.AddCommand(newStatsCmd(cli))
	c.AddCommand(newVersionCmd(cli))

	return &c
}

func newStatsCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:   "stats",
		Short: "Show engine statistics",
		RunE: func(c *cobra.Command, _ []string) error {
			stats, err := cli.e.GetStats(context.Background())
			if err != nil {
				return err
			}

			table := newTable([]string{
				"PROCESSES",
				"RUNNING",
				"SUSPENDED",
				"COMPLETED",
				"TERMINATED",
				"ERROR",
				"MEAN DURATION",
			})

			table.addRow([]string{
				strconv.Itoa(stats.ProcessCount),
				strconv.Itoa(stats.RunningCount),
				strconv.Itoa(stats.SuspendedCount),
				strconv.Itoa(stats.CompletedCount),
				strconv.Itoa(stats.TerminatedCount),
				strconv.Itoa(stats.ErrorCount),
				stats.MeanDuration.String(),
			})

			c.Print(table.format())
			return nil
		},
	}

	return &c
}

func newVersionCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(c *cobra.Command, _ []string) {
			c.Println(cli.version)
		},
		Annotations: map[string]string{noEngineRequired: ""},
	}

	return &c
}
