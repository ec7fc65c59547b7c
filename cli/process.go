package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jvollmer/go-flow/engine"
	"github.com/spf13/cobra"
)

func newProcessCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "process",
		Short:       "Manage and query processes",
		RunE:        cli.help,
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.AddCommand(newProcessDeployCmd(cli))
	c.AddCommand(newProcessGetModelCmd(cli))
	c.AddCommand(newProcessSetEnabledCmd(cli))
	c.AddCommand(newProcessQueryCmd(cli))

	return &c
}

func newProcessDeployCmd(cli *Cli) *cobra.Command {
	var (
		modelFileName string

		cmd engine.DeployProcessCmd
	)

	c := cobra.Command{
		Use:   "deploy",
		Short: "Deploy a process definition",
		RunE: func(c *cobra.Command, _ []string) error {
			modelFile, err := os.Open(modelFileName)
			if err != nil {
				return fmt.Errorf("failed to open model file %s: %v", modelFileName, err)
			}

			defer modelFile.Close()

			model, err := io.ReadAll(modelFile)
			if err != nil {
				return fmt.Errorf("failed to read model: %v", err)
			}

			cmd.Model = string(model)
			cmd.WorkerId = cli.workerId

			process, err := cli.e.DeployProcess(context.Background(), cmd)
			if err != nil {
				return err
			}

			c.Println(process.Id)
			return nil
		},
	}

	c.Flags().StringVar(&modelFileName, "model-file", "", "Path to a process model JSON file")

	c.Flags().StringVar(&cmd.DefinitionId, "definition-id", "", "ID of the process definition within the model")
	c.Flags().StringVar(&cmd.Version, "version", "", "Any process version")

	c.MarkFlagRequired("definition-id")
	c.MarkFlagRequired("model-file")
	c.MarkFlagRequired("version")

	c.MarkFlagFilename("model-file", ".json")

	return &c
}

func newProcessGetModelCmd(cli *Cli) *cobra.Command {
	var cmd engine.GetProcessModelCmd

	c := cobra.Command{
		Use:   "get-model",
		Short: "Get the JSON model of a deployed process",
		RunE: func(c *cobra.Command, _ []string) error {
			model, err := cli.e.GetProcessModel(context.Background(), cmd)
			if err != nil {
				return err
			}

			c.Print(model)
			return nil
		},
	}

	c.Flags().Int32Var(&cmd.ProcessId, "id", 0, "Process ID")

	c.MarkFlagRequired("id")

	return &c
}

func newProcessSetEnabledCmd(cli *Cli) *cobra.Command {
	var (
		disabled bool

		cmd engine.SetProcessEnabledCmd
	)

	c := cobra.Command{
		Use:   "set-enabled",
		Short: "Enable or disable a deployed process",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.Enabled = !disabled
			cmd.WorkerId = cli.workerId

			return cli.e.SetProcessEnabled(context.Background(), cmd)
		},
	}

	c.Flags().Int32Var(&cmd.ProcessId, "id", 0, "Process ID")
	c.Flags().BoolVar(&disabled, "disabled", false, "Disable the process instead")

	c.MarkFlagRequired("id")

	return &c
}

func newProcessQueryCmd(cli *Cli) *cobra.Command {
	var (
		criteria engine.ProcessCriteria
		options  engine.QueryOptions
	)

	c := cobra.Command{
		Use:   "query",
		Short: "Query processes",
		RunE: func(c *cobra.Command, _ []string) error {
			q := cli.e.CreateQuery()
			q.SetOptions(options)

			results, err := q.QueryProcesses(context.Background(), criteria)
			if err != nil {
				return err
			}

			table := newTable([]string{
				"ID",
				"DEFINITION ID",
				"VERSION",
				"ENABLED",
				"CREATED AT",
				"CREATED BY",
			})

			for _, result := range results {
				table.addRow([]string{
					strconv.Itoa(int(result.Id)),
					result.DefinitionId,
					result.Version,
					strconv.FormatBool(result.IsEnabled),
					formatTime(result.CreatedAt),
					result.CreatedBy,
				})
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().StringVar(&criteria.DefinitionId, "definition-id", "", "Definition ID filter")
	c.Flags().StringVar(&criteria.Version, "version", "", "Version filter")

	flagQueryOptions(&c, &options)

	return &c
}
