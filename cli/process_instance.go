package cli

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/jvollmer/go-flow/engine"
	"github.com/spf13/cobra"
)

func newProcessInstanceCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "process-instance",
		Short:       "Manage and query process instances",
		RunE:        cli.help,
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.AddCommand(newProcessInstanceCreateCmd(cli))
	c.AddCommand(newProcessInstanceSuspendCmd(cli))
	c.AddCommand(newProcessInstanceResumeCmd(cli))
	c.AddCommand(newProcessInstanceTerminateCmd(cli))
	c.AddCommand(newProcessInstanceDeleteCmd(cli))
	c.AddCommand(newProcessInstanceGetVariablesCmd(cli))
	c.AddCommand(newProcessInstanceSetVariablesCmd(cli))
	c.AddCommand(newProcessInstanceTraceCmd(cli))
	c.AddCommand(newProcessInstanceQueryCmd(cli))

	return &c
}

func newProcessInstanceCreateCmd(cli *Cli) *cobra.Command {
	var (
		variableV map[string]string

		cmd engine.CreateProcessInstanceCmd
	)

	c := cobra.Command{
		Use:   "create",
		Short: "Create a process instance",
		RunE: func(c *cobra.Command, _ []string) error {
			variables, err := mapVariables(variableV)
			if err != nil {
				return err
			}

			cmd.Variables = variables
			cmd.WorkerId = cli.workerId

			processInstance, err := cli.e.CreateProcessInstance(context.Background(), cmd)
			if err != nil {
				return err
			}

			c.Println(processInstance.Id)
			return nil
		},
	}

	c.Flags().StringVar(&cmd.DefinitionId, "definition-id", "", "Definition ID of a deployed process")
	c.Flags().StringVar(&cmd.Version, "version", "", "Process version - if empty, the latest deployed version is used")
	c.Flags().StringVar(&cmd.BusinessKey, "business-key", "", "Key, used to correlate the process instance with a business entity")
	c.Flags().StringToStringVar(&variableV, "variable", nil, "Starting variable, consisting of name and JSON value")

	c.MarkFlagRequired("definition-id")

	return &c
}

func newProcessInstanceSuspendCmd(cli *Cli) *cobra.Command {
	var cmd engine.SuspendProcessInstanceCmd

	c := cobra.Command{
		Use:   "suspend",
		Short: "Suspend a running process instance",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.WorkerId = cli.workerId

			return cli.e.SuspendProcessInstance(context.Background(), cmd)
		},
	}

	c.Flags().Int32Var(&cmd.Id, "id", 0, "Process instance ID")

	c.MarkFlagRequired("id")

	return &c
}

func newProcessInstanceResumeCmd(cli *Cli) *cobra.Command {
	var cmd engine.ResumeProcessInstanceCmd

	c := cobra.Command{
		Use:   "resume",
		Short: "Resume a suspended process instance",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.WorkerId = cli.workerId

			return cli.e.ResumeProcessInstance(context.Background(), cmd)
		},
	}

	c.Flags().Int32Var(&cmd.Id, "id", 0, "Process instance ID")

	c.MarkFlagRequired("id")

	return &c
}

func newProcessInstanceTerminateCmd(cli *Cli) *cobra.Command {
	var cmd engine.TerminateProcessInstanceCmd

	c := cobra.Command{
		Use:   "terminate",
		Short: "Terminate a non-ended process instance",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.WorkerId = cli.workerId

			return cli.e.TerminateProcessInstance(context.Background(), cmd)
		},
	}

	c.Flags().Int32Var(&cmd.Id, "id", 0, "Process instance ID")
	c.Flags().StringVar(&cmd.Reason, "reason", "", "Reason for the termination")

	c.MarkFlagRequired("id")

	return &c
}

func newProcessInstanceDeleteCmd(cli *Cli) *cobra.Command {
	var cmd engine.DeleteProcessInstanceCmd

	c := cobra.Command{
		Use:   "delete",
		Short: "Delete an ended process instance",
		RunE: func(c *cobra.Command, _ []string) error {
			return cli.e.DeleteProcessInstance(context.Background(), cmd)
		},
	}

	c.Flags().Int32Var(&cmd.Id, "id", 0, "Process instance ID")

	c.MarkFlagRequired("id")

	return &c
}

func newProcessInstanceGetVariablesCmd(cli *Cli) *cobra.Command {
	var cmd engine.GetProcessVariablesCmd

	c := cobra.Command{
		Use:   "get-variables",
		Short: "Get process instance variables",
		RunE: func(c *cobra.Command, _ []string) error {
			variables, err := cli.e.GetProcessVariables(context.Background(), cmd)
			if err != nil {
				return err
			}

			b, err := json.MarshalIndent(variables, "", "  ")
			if err != nil {
				return err
			}

			c.Println(string(b))
			return nil
		},
	}

	c.Flags().Int32Var(&cmd.ProcessInstanceId, "id", 0, "Process instance ID")
	c.Flags().StringArrayVar(&cmd.Names, "name", nil, "Name of a process variable to get")

	c.MarkFlagRequired("id")

	return &c
}

func newProcessInstanceSetVariablesCmd(cli *Cli) *cobra.Command {
	var (
		variableV map[string]string

		cmd engine.SetProcessVariablesCmd
	)

	c := cobra.Command{
		Use:   "set-variables",
		Short: "Set process instance variables",
		RunE: func(c *cobra.Command, _ []string) error {
			variables, err := mapVariables(variableV)
			if err != nil {
				return err
			}

			cmd.Variables = variables
			cmd.WorkerId = cli.workerId

			return cli.e.SetProcessVariables(context.Background(), cmd)
		},
	}

	c.Flags().Int32Var(&cmd.ProcessInstanceId, "id", 0, "Process instance ID")
	c.Flags().StringToStringVar(&variableV, "variable", nil, "Variable, consisting of name and JSON value - an empty value deletes the variable")

	c.MarkFlagRequired("id")
	c.MarkFlagRequired("variable")

	return &c
}

func newProcessInstanceTraceCmd(cli *Cli) *cobra.Command {
	var cmd engine.GetExecutionTraceCmd

	c := cobra.Command{
		Use:   "trace",
		Short: "Get the execution trace of a process instance",
		RunE: func(c *cobra.Command, _ []string) error {
			trace, err := cli.e.GetExecutionTrace(context.Background(), cmd)
			if err != nil {
				return err
			}

			b, err := json.MarshalIndent(trace, "", "  ")
			if err != nil {
				return err
			}

			c.Println(string(b))
			return nil
		},
	}

	c.Flags().Int32Var(&cmd.ProcessInstanceId, "id", 0, "Process instance ID")

	c.MarkFlagRequired("id")

	return &c
}

func newProcessInstanceQueryCmd(cli *Cli) *cobra.Command {
	var (
		states []string

		criteria engine.ProcessInstanceCriteria
		options  engine.QueryOptions
	)

	c := cobra.Command{
		Use:   "query",
		Short: "Query process instances",
		RunE: func(c *cobra.Command, _ []string) error {
			for _, state := range states {
				criteria.States = append(criteria.States, engine.MapInstanceState(state))
			}

			q := cli.e.CreateQuery()
			q.SetOptions(options)

			results, err := q.QueryProcessInstances(context.Background(), criteria)
			if err != nil {
				return err
			}

			table := newTable([]string{
				"ID",
				"PARENT ID",
				"DEFINITION ID",
				"VERSION",
				"BUSINESS KEY",
				"STATE",
				"CREATED AT",
				"ENDED AT",
			})

			for _, result := range results {
				table.addRow([]string{
					strconv.Itoa(int(result.Id)),
					strconv.Itoa(int(result.ParentId)),
					result.DefinitionId,
					result.Version,
					result.BusinessKey,
					result.State.String(),
					formatTime(result.CreatedAt),
					formatTimeOrNil(result.EndedAt),
				})
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().Int32Var(&criteria.Id, "id", 0, "Process instance filter")
	c.Flags().Int32Var(&criteria.ParentId, "parent-id", 0, "Parent instance filter")
	c.Flags().Int32Var(&criteria.ProcessId, "process-id", 0, "Process filter")
	c.Flags().StringVar(&criteria.BusinessKey, "business-key", "", "Business key filter")
	c.Flags().StringVar(&criteria.DefinitionId, "definition-id", "", "Definition ID filter")
	c.Flags().StringArrayVar(&states, "state", nil, "State filter")

	flagQueryOptions(&c, &options)

	return &c
}
