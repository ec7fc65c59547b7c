package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"testing"

	"github.com/jvollmer/go-flow/definition"
)

// Assert creates an assert helper for a process instance, used to verify the
// progress of an execution within tests.
func Assert(t *testing.T, e Engine, processInstance ProcessInstance) *ProcessInstanceAssert {
	model, err := e.GetProcessModel(context.Background(), GetProcessModelCmd{
		ProcessId: processInstance.ProcessId,
	})
	if err != nil {
		t.Fatalf("failed to get process model: %v", err)
	}

	d, err := definition.New(strings.NewReader(model))
	if err != nil {
		t.Fatalf("failed to parse process model: %v", err)
	}

	return &ProcessInstanceAssert{
		t: t,
		e: e,

		definition: d,

		processInstanceId: processInstance.Id,
	}
}

type ProcessInstanceAssert struct {
	t *testing.T
	e Engine

	definition *definition.ProcessDefinition

	processInstanceId int32
	tokenId           int32
	nodeId            string
}

func (a *ProcessInstanceAssert) CompleteTask(completeTaskCmds ...CompleteTaskCmd) Task {
	task := a.Task()

	lockedTasks, err := a.e.LockTasks(context.Background(), LockTasksCmd{
		Id:       task.Id,
		WorkerId: "test-worker",
	})
	if err != nil {
		a.Fatalf("failed to lock task: %v", err)
	}

	if len(lockedTasks) == 0 {
		a.Fatalf("no task locked")
	}

	var completeTaskCmd CompleteTaskCmd
	if len(completeTaskCmds) != 0 {
		completeTaskCmd = completeTaskCmds[0]
	} else {
		completeTaskCmd = CompleteTaskCmd{}
	}

	completeTaskCmd.Id = lockedTasks[0].Id
	completeTaskCmd.WorkerId = "test-worker"

	completedTask, err := a.e.CompleteTask(context.Background(), completeTaskCmd)
	if err != nil {
		a.Fatalf("failed to complete task %s: %v", lockedTasks[0], err)
	}

	a.nodeId = ""
	a.tokenId = 0

	return completedTask
}

func (a *ProcessInstanceAssert) Event(eventType string) ProcessEvent {
	results := a.Events(EventCriteria{Type: eventType})
	if len(results) == 0 {
		a.Fatalf("expected process instance to have an event of type %s, but has not", eventType)
	}
	return results[0]
}

func (a *ProcessInstanceAssert) Events(criteria ...EventCriteria) []ProcessEvent {
	var c EventCriteria
	if len(criteria) != 0 {
		c = criteria[0]
	} else {
		c = EventCriteria{}
	}

	c.ProcessInstanceId = a.processInstanceId

	results, err := a.e.CreateQuery().QueryEvents(context.Background(), c)
	if err != nil {
		a.Fatalf("failed to query events: %v", err)
	}

	return results
}

func (a *ProcessInstanceAssert) Activities(criteria ...ActivityCriteria) []ActivityInstance {
	var c ActivityCriteria
	if len(criteria) != 0 {
		c = criteria[0]
	} else {
		c = ActivityCriteria{}
	}

	c.ProcessInstanceId = a.processInstanceId

	results, err := a.e.CreateQuery().QueryActivities(context.Background(), c)
	if err != nil {
		a.Fatalf("failed to query activity instances: %v", err)
	}

	return results
}

func (a *ProcessInstanceAssert) Fatalf(format string, args ...any) {
	data := map[string]string{
		"Error Trace": string(debug.Stack()),
		"Error":       fmt.Sprintf(format, args...),
		"Test":        a.t.Name(),
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("\n%s: %s", k, data[k]))
	}

	a.t.Fatal(sb.String())
}

func (a *ProcessInstanceAssert) HasPassed(nodeId string) {
	results := a.Activities(ActivityCriteria{States: []ActivityState{ActivityCompleted}})
	for _, result := range results {
		if result.NodeId == nodeId {
			return
		}
	}

	passed := make([]string, len(results))
	for i, result := range results {
		passed[i] = result.NodeId
	}

	a.Fatalf("expected process instance to have passed %s, but has not\npassed nodes: %s", nodeId, strings.Join(passed, ", "))
}

func (a *ProcessInstanceAssert) HasNoProcessVariable(name string) {
	variables, err := a.e.GetProcessVariables(context.Background(), GetProcessVariablesCmd{
		ProcessInstanceId: a.processInstanceId,
		Names:             []string{name},
	})
	if err != nil {
		a.Fatalf("failed to get process variable %s: %v", name, err)
	}

	if _, ok := variables[name]; ok {
		a.Fatalf("expected process instance to have no variable %s, but has", name)
	}
}

func (a *ProcessInstanceAssert) HasProcessVariable(name string, value any) {
	variables, err := a.e.GetProcessVariables(context.Background(), GetProcessVariablesCmd{
		ProcessInstanceId: a.processInstanceId,
		Names:             []string{name},
	})
	if err != nil {
		a.Fatalf("failed to get process variable %s: %v", name, err)
	}

	actual, ok := variables[name]
	if !ok {
		a.Fatalf("expected process instance to have variable %s, but has not", name)
	}
	if actual != value {
		a.Fatalf("expected process variable %s to be %v, but is %v", name, value, actual)
	}
}

func (a *ProcessInstanceAssert) HasState(state InstanceState) {
	if actual := a.ProcessInstance().State; actual != state {
		a.Fatalf("expected process instance to be %s, but is %s", state, actual)
	}
}

func (a *ProcessInstanceAssert) IsCompleted() {
	a.HasState(InstanceCompleted)
}

func (a *ProcessInstanceAssert) IsNotCompleted() {
	if a.ProcessInstance().State == InstanceCompleted {
		a.Fatalf("expected process instance not to be completed, but is")
	}
}

func (a *ProcessInstanceAssert) IsTerminated() {
	a.HasState(InstanceTerminated)
}

func (a *ProcessInstanceAssert) IsNotWaitingAt(nodeId string) {
	if a.definition.NodeById(nodeId) == nil {
		a.Fatalf("expected process instance not to be waiting at %s: process has no such node", nodeId)
	}

	results := a.Tokens(TokenCriteria{NodeId: nodeId, States: []TokenState{TokenActive, TokenWaiting}})
	if len(results) != 0 {
		a.Fatalf("expected process instance not to be waiting at %s: non-ended tokens found: %d", nodeId, len(results))
	}
}

func (a *ProcessInstanceAssert) IsWaitingAt(nodeId string) {
	if a.definition.NodeById(nodeId) == nil {
		a.Fatalf("expected process instance to be waiting at %s: process has no such node", nodeId)
	}

	results := a.Tokens(TokenCriteria{NodeId: nodeId, States: []TokenState{TokenActive, TokenWaiting}})
	if len(results) != 0 {
		a.nodeId = nodeId
		a.tokenId = results[0].Id
		return
	}

	a.Fatalf("expected process instance to be waiting at %s: no non-ended token found", nodeId)
}

func (a *ProcessInstanceAssert) ProcessInstance() ProcessInstance {
	results, err := a.e.CreateQuery().QueryProcessInstances(context.Background(), ProcessInstanceCriteria{
		Id: a.processInstanceId,
	})
	if err != nil {
		a.Fatalf("failed to query process instance: %v", err)
	}

	if len(results) != 1 {
		a.Fatalf("expected one process instance, but got %d", len(results))
	}

	return results[0]
}

func (a *ProcessInstanceAssert) Task() Task {
	if a.tokenId == 0 {
		a.Fatalf("call IsWaitingAt first")
	}

	results, err := a.e.CreateQuery().QueryTasks(context.Background(), TaskCriteria{
		ProcessInstanceId: a.processInstanceId,
		NodeId:            a.nodeId,
	})
	if err != nil {
		a.Fatalf("failed to query tasks: %v", err)
	}

	for _, result := range results {
		if !result.IsCompleted() {
			return result
		}
	}

	a.Fatalf("expected process instance to have an active task at %s", a.nodeId)
	return Task{}
}

func (a *ProcessInstanceAssert) Tokens(criteria ...TokenCriteria) []Token {
	var c TokenCriteria
	if len(criteria) != 0 {
		c = criteria[0]
	} else {
		c = TokenCriteria{}
	}

	c.ProcessInstanceId = a.processInstanceId

	results, err := a.e.CreateQuery().QueryTokens(context.Background(), c)
	if err != nil {
		a.Fatalf("failed to query tokens: %v", err)
	}

	return results
}
