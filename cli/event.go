package cli

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/jvollmer/go-flow/engine"
	"github.com/spf13/cobra"
)

func newEventCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "event",
		Short:       "Query process events",
		RunE:        cli.help,
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.AddCommand(newEventQueryCmd(cli))

	return &c
}

func newEventQueryCmd(cli *Cli) *cobra.Command {
	var (
		criteria engine.EventCriteria
		options  engine.QueryOptions
	)

	c := cobra.Command{
		Use:   "query",
		Short: "Query events",
		RunE: func(c *cobra.Command, _ []string) error {
			q := cli.e.CreateQuery()
			q.SetOptions(options)

			results, err := q.QueryEvents(context.Background(), criteria)
			if err != nil {
				return err
			}

			table := newTable([]string{
				"ID",
				"PROCESS INSTANCE ID",
				"TYPE",
				"CREATED AT",
				"DATA",
			})

			for _, result := range results {
				var data string
				if len(result.Data) != 0 {
					b, err := json.Marshal(result.Data)
					if err != nil {
						return err
					}
					data = string(b)
				}

				table.addRow([]string{
					strconv.Itoa(int(result.Id)),
					strconv.Itoa(int(result.ProcessInstanceId)),
					result.Type,
					formatTime(result.CreatedAt),
					data,
				})
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().Int32Var(&criteria.ProcessInstanceId, "process-instance-id", 0, "Process instance filter")
	c.Flags().StringVar(&criteria.Type, "type", "", "Event type filter")

	flagQueryOptions(&c, &options)

	return &c
}
