package cli

import (
	"context"
	"strconv"

	"github.com/jvollmer/go-flow/engine"
	"github.com/spf13/cobra"
)

func newTaskCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "task",
		Short:       "Manage and query tasks",
		RunE:        cli.help,
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.AddCommand(newTaskCompleteCmd(cli))
	c.AddCommand(newTaskLockCmd(cli))
	c.AddCommand(newTaskUnlockCmd(cli))
	c.AddCommand(newTaskQueryCmd(cli))

	return &c
}

func newTaskCompleteCmd(cli *Cli) *cobra.Command {
	var (
		resultV   map[string]string
		variableV map[string]string

		cmd engine.CompleteTaskCmd
	)

	c := cobra.Command{
		Use:   "complete",
		Short: "Complete a created or locked task",
		RunE: func(c *cobra.Command, _ []string) error {
			result, err := mapVariables(resultV)
			if err != nil {
				return err
			}

			variables, err := mapVariables(variableV)
			if err != nil {
				return err
			}

			cmd.Result = result
			cmd.Variables = variables
			cmd.WorkerId = cli.workerId

			task, err := cli.e.CompleteTask(context.Background(), cmd)
			if err != nil {
				return err
			}

			c.Println(task.Id)
			return nil
		},
	}

	c.Flags().Int32Var(&cmd.Id, "id", 0, "Task ID")
	c.Flags().StringToStringVar(&resultV, "result", nil, "Result data, consisting of name and JSON value")
	c.Flags().StringToStringVar(&variableV, "variable", nil, "Variable, consisting of name and JSON value, merged into the process instance variables")

	c.MarkFlagRequired("id")

	return &c
}

func newTaskLockCmd(cli *Cli) *cobra.Command {
	var cmd engine.LockTasksCmd

	c := cobra.Command{
		Use:   "lock",
		Short: "Lock due tasks",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.WorkerId = cli.workerId

			lockedTasks, err := cli.e.LockTasks(context.Background(), cmd)
			if err != nil {
				return err
			}

			for _, lockedTask := range lockedTasks {
				c.Println(lockedTask.Id)
			}
			return nil
		},
	}

	c.Flags().Int32Var(&cmd.Id, "id", 0, "Task condition")
	c.Flags().Int32Var(&cmd.ProcessInstanceId, "process-instance-id", 0, "Process instance condition")
	c.Flags().StringVar(&cmd.Assignee, "assignee", "", "Assignee condition")
	c.Flags().StringVar(&cmd.CandidateGroup, "candidate-group", "", "Candidate group condition")
	c.Flags().StringVar(&cmd.NodeId, "node-id", "", "Node condition")
	c.Flags().IntVar(&cmd.Limit, "limit", 1, "Maximum number of tasks to lock")

	return &c
}

func newTaskUnlockCmd(cli *Cli) *cobra.Command {
	var cmd engine.UnlockTasksCmd

	c := cobra.Command{
		Use:   "unlock",
		Short: "Unlock locked tasks",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.WorkerId = cli.workerId

			count, err := cli.e.UnlockTasks(context.Background(), cmd)
			if err != nil {
				return err
			}

			c.Println(count)
			return nil
		},
	}

	c.Flags().Int32Var(&cmd.ProcessInstanceId, "process-instance-id", 0, "Process instance condition")

	return &c
}

func newTaskQueryCmd(cli *Cli) *cobra.Command {
	var (
		states []string

		criteria engine.TaskCriteria
		options  engine.QueryOptions
	)

	c := cobra.Command{
		Use:   "query",
		Short: "Query tasks",
		RunE: func(c *cobra.Command, _ []string) error {
			for _, state := range states {
				criteria.States = append(criteria.States, engine.MapTaskState(state))
			}

			q := cli.e.CreateQuery()
			q.SetOptions(options)

			results, err := q.QueryTasks(context.Background(), criteria)
			if err != nil {
				return err
			}

			table := newTable([]string{
				"ID",
				"PROCESS INSTANCE ID",
				"NODE ID",
				"ASSIGNEE",
				"STATE",
				"DUE AT",
				"LOCKED BY",
				"COMPLETED AT",
			})

			for _, result := range results {
				table.addRow([]string{
					strconv.Itoa(int(result.Id)),
					strconv.Itoa(int(result.ProcessInstanceId)),
					result.NodeId,
					result.Assignee,
					result.State.String(),
					formatTime(result.DueAt),
					result.LockedBy,
					formatTimeOrNil(result.CompletedAt),
				})
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().Int32Var(&criteria.Id, "id", 0, "Task filter")
	c.Flags().Int32Var(&criteria.ProcessInstanceId, "process-instance-id", 0, "Process instance filter")
	c.Flags().StringVar(&criteria.Assignee, "assignee", "", "Assignee filter")
	c.Flags().StringVar(&criteria.CandidateGroup, "candidate-group", "", "Candidate group filter")
	c.Flags().StringVar(&criteria.NodeId, "node-id", "", "Node filter")
	c.Flags().StringArrayVar(&states, "state", nil, "State filter")

	flagQueryOptions(&c, &options)

	return &c
}
