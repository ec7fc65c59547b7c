package internal

import (
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jvollmer/go-flow/definition"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/expr"
)

// maxTokenMoves limits the number of token moves per execution, as a guard
// against condition-less gateway cycles.
const maxTokenMoves = 10000

// ExecuteProcess continues the active tokens of a process instance until
// every token is ended or parked at a task, a joining gateway or a running
// subprocess. When no non-ended token remains, the instance is completed.
//
// Executing a non-running process instance is a no-op.
func ExecuteProcess(ctx Context, cmd engine.ExecuteProcessCmd) error {
	processInstance, err := selectProcessInstance(ctx, cmd.ProcessInstanceId, "failed to execute process")
	if err != nil {
		return err
	}

	// climb up the parent chain when a subprocess instance completes, since
	// its completion reactivates the parked token of the parent instance
	for processInstance != nil && processInstance.State == engine.InstanceRunning {
		if err := executeProcessInstance(ctx, processInstance); err != nil {
			return err
		}

		if processInstance.State != engine.InstanceCompleted || !processInstance.ParentTokenId.Valid {
			return nil
		}

		parentToken, err := ctx.Tokens().Select(processInstance.ParentTokenId.Int32)
		if err != nil {
			return err
		}

		processInstance, err = ctx.ProcessInstances().Select(parentToken.ProcessInstanceId)
		if err != nil {
			return err
		}
	}

	return nil
}

func executeProcessInstance(ctx Context, processInstance *ProcessInstanceEntity) error {
	process, err := ctx.ProcessCache().GetOrCacheById(ctx, processInstance.ProcessId)
	if err != nil {
		return err
	}

	ec := executionContext{
		engineId:        ctx.Options().EngineId,
		process:         process,
		processInstance: processInstance,
	}

	return ec.run(ctx)
}

type executionContext struct {
	engineId        string
	process         *ProcessEntity
	processInstance *ProcessInstanceEntity

	moves int
}

func (ec *executionContext) run(ctx Context) error {
	progressed := true
	for progressed {
		progressed = false

		tokens, err := ctx.Tokens().SelectByProcessInstance(ec.processInstance.Id)
		if err != nil {
			return err
		}

		for _, token := range tokens {
			if token.State != engine.TokenActive {
				continue
			}

			moved, err := ec.continueToken(ctx, token)
			if err != nil {
				return err
			}

			if moved {
				progressed = true

				ec.moves++
				if ec.moves > maxTokenMoves {
					return engine.Error{
						Type:   engine.ErrorBug,
						Title:  "failed to execute process",
						Detail: fmt.Sprintf("token move limit exceeded: process instance %d", ec.processInstance.Id),
					}
				}
			}
		}
	}

	return ec.finalize(ctx)
}

// continueToken executes the node the token occupies.
// It reports if the token moved or changed its state.
func (ec *executionContext) continueToken(ctx Context, token *TokenEntity) (bool, error) {
	node := ec.process.graph.nodeById(token.NodeId)
	if node == nil {
		return false, engine.Error{
			Type:   engine.ErrorBug,
			Title:  "failed to execute process",
			Detail: fmt.Sprintf("token %d occupies unknown node %s", token.Id, token.NodeId),
		}
	}

	switch node.Type {
	case definition.NodeStart:
		if _, err := insertActivity(ctx, token, node, engine.ActivityCompleted); err != nil {
			return false, err
		}
		if len(node.Outgoing) == 1 {
			return true, moveToken(ctx, token, node.Outgoing[0].TargetId)
		}
		return true, ec.forkTokens(ctx, token, node.Outgoing)
	case definition.NodeEnd:
		if _, err := insertActivity(ctx, token, node, engine.ActivityCompleted); err != nil {
			return false, err
		}
		return true, completeToken(ctx, token)
	case definition.NodeTask:
		return ec.continueAtTask(ctx, token, node)
	case definition.NodeSubprocess:
		return ec.continueAtSubprocess(ctx, token, node)
	case definition.NodeGateway:
		return ec.continueAtGateway(ctx, token, node)
	default:
		return false, engine.Error{
			Type:   engine.ErrorBug,
			Title:  "failed to execute process",
			Detail: fmt.Sprintf("node %s has an unsupported type %s", node.Id, node.Type),
		}
	}
}

// continueAtTask creates a work item when the token enters the task node and
// parks the token. A completed work item lets the token move on.
func (ec *executionContext) continueAtTask(ctx Context, token *TokenEntity, node *definition.Node) (bool, error) {
	task, err := selectTaskByToken(ctx, token)
	if err != nil {
		return false, err
	}

	if task != nil && task.State == engine.TaskCompleted {
		return true, moveToken(ctx, token, node.Outgoing[0].TargetId)
	}

	if task != nil {
		// an open work item exists, e.g. after a resume - park again
		token.State = engine.TokenWaiting
		return false, ctx.Tokens().Update(token)
	}

	activity, err := insertActivity(ctx, token, node, engine.ActivityActive)
	if err != nil {
		return false, err
	}

	if _, err := createTask(ctx, token, node, activity); err != nil {
		return false, err
	}

	token.State = engine.TokenWaiting
	return true, ctx.Tokens().Update(token)
}

// continueAtSubprocess spawns a subprocess instance when the token enters the
// node and parks the token until the subprocess instance ended.
func (ec *executionContext) continueAtSubprocess(ctx Context, token *TokenEntity, node *definition.Node) (bool, error) {
	children, err := ctx.ProcessInstances().SelectByParent(token.ProcessInstanceId)
	if err != nil {
		return false, err
	}

	var child *ProcessInstanceEntity
	for _, candidate := range children {
		if candidate.ParentTokenId.Int32 == token.Id {
			child = candidate
			break
		}
	}

	if child != nil {
		if !child.State.IsEnded() {
			token.State = engine.TokenWaiting
			return false, ctx.Tokens().Update(token)
		}

		// the subprocess instance ended - complete the related activity
		activities, err := ctx.Activities().SelectByProcessInstance(token.ProcessInstanceId)
		if err != nil {
			return false, err
		}

		for _, activity := range activities {
			if activity.TokenId.Int32 == token.Id && activity.NodeId == node.Id && !activity.EndedAt.Valid {
				if err := completeActivity(ctx, activity, ec.engineId, nil); err != nil {
					return false, err
				}
				break
			}
		}

		return true, moveToken(ctx, token, node.Outgoing[0].TargetId)
	}

	if _, err := insertActivity(ctx, token, node, engine.ActivityActive); err != nil {
		return false, err
	}

	cmd := engine.CreateProcessInstanceCmd{
		DefinitionId: node.SubprocessId,
		Variables:    unmarshalVariables(ec.processInstance.Variables),
		WorkerId:     ec.engineId,
	}

	child, err = createProcessInstance(ctx, cmd, token)
	if err != nil {
		return false, err
	}

	token.State = engine.TokenWaiting
	if err := ctx.Tokens().Update(token); err != nil {
		return false, err
	}

	if err := executeProcessInstance(ctx, child); err != nil {
		return false, err
	}

	// an inline completed subprocess merged its variables into this instance
	refreshed, err := ctx.ProcessInstances().Select(ec.processInstance.Id)
	if err != nil {
		return false, err
	}
	ec.processInstance = refreshed

	return true, nil
}

func (ec *executionContext) continueAtGateway(ctx Context, token *TokenEntity, node *definition.Node) (bool, error) {
	if node.GatewayType == definition.GatewayParallel && len(node.Incoming) > 1 {
		joined, err := ec.joinToken(ctx, token, node)
		if err != nil || !joined {
			return false, err
		}
	}

	if _, err := insertActivity(ctx, token, node, engine.ActivityCompleted); err != nil {
		return false, err
	}

	switch node.GatewayType {
	case definition.GatewayParallel:
		if len(node.Outgoing) == 1 {
			return true, moveToken(ctx, token, node.Outgoing[0].TargetId)
		}
		return true, ec.forkTokens(ctx, token, node.Outgoing)
	case definition.GatewayInclusive:
		var matching []*definition.Edge
		for _, edge := range node.Outgoing {
			if edge.IsDefault {
				continue
			}
			if ec.evaluateEdge(ctx, token, edge) {
				matching = append(matching, edge)
			}
		}

		switch len(matching) {
		case 0:
			if defaultEdge := node.DefaultEdge(); defaultEdge != nil {
				return true, moveToken(ctx, token, defaultEdge.TargetId)
			}
			return false, ec.failRouting(ctx, token, node)
		case 1:
			return true, moveToken(ctx, token, matching[0].TargetId)
		default:
			return true, ec.forkTokens(ctx, token, matching)
		}
	default: // an unset gateway type defaults to exclusive
		for _, edge := range node.Outgoing {
			if edge.IsDefault {
				continue
			}
			if ec.evaluateEdge(ctx, token, edge) {
				return true, moveToken(ctx, token, edge.TargetId)
			}
		}

		if defaultEdge := node.DefaultEdge(); defaultEdge != nil {
			return true, moveToken(ctx, token, defaultEdge.TargetId)
		}

		return false, ec.failRouting(ctx, token, node)
	}
}

// joinToken implements the parallel join. An arriving token parks at the
// gateway until a token waits for each incoming edge. The last arriving token
// consumes the waiting tokens and passes the gateway.
func (ec *executionContext) joinToken(ctx Context, token *TokenEntity, node *definition.Node) (bool, error) {
	tokens, err := ctx.Tokens().SelectByProcessInstance(token.ProcessInstanceId)
	if err != nil {
		return false, err
	}

	var waiting []*TokenEntity
	for _, sibling := range tokens {
		if sibling.Id != token.Id && sibling.NodeId == node.Id && sibling.State == engine.TokenWaiting {
			waiting = append(waiting, sibling)
		}
	}

	if len(waiting) < len(node.Incoming)-1 {
		token.State = engine.TokenWaiting
		return false, ctx.Tokens().Update(token)
	}

	// consume one waiting token per incoming edge
	for i := 0; i < len(node.Incoming)-1; i++ {
		if err := completeToken(ctx, waiting[i]); err != nil {
			return false, err
		}
	}

	return true, nil
}

func (ec *executionContext) forkTokens(ctx Context, token *TokenEntity, edges []*definition.Edge) error {
	for _, edge := range edges {
		if _, err := forkToken(ctx, token, edge.TargetId); err != nil {
			return err
		}
	}

	return completeToken(ctx, token)
}

func (ec *executionContext) evaluateEdge(ctx Context, token *TokenEntity, edge *definition.Edge) bool {
	if edge.Condition == "" {
		return true
	}

	return ctx.Evaluator().Evaluate(edge.Condition, &expr.Context{
		Variables: unmarshalVariables(ec.processInstance.Variables),
		Token:     token.Token(),
		Instance:  ec.processInstance.ProcessInstance(),
	})
}

// failRouting puts the process instance into state ERROR, since a gateway
// matched no outgoing edge and has no default edge.
func (ec *executionContext) failRouting(ctx Context, token *TokenEntity, node *definition.Node) error {
	ec.processInstance.State = engine.InstanceError
	if err := ctx.ProcessInstances().Update(ec.processInstance); err != nil {
		return err
	}

	if err := insertEvent(ctx, ec.processInstance.Id, engine.EventRoutingError, map[string]any{
		"nodeId":  node.Id,
		"tokenId": token.Id,
	}); err != nil {
		return err
	}

	publishEvent(ctx, engine.EventRoutingError, ec.processInstance.ProcessInstance())

	return engine.Error{
		Type:   engine.ErrorProcessModel,
		Title:  "failed to execute process",
		Detail: fmt.Sprintf("gateway %s matched no outgoing edge and has no default edge", node.Id),
	}
}

// finalize caches the currently occupied nodes and completes the process
// instance when no non-ended token remains. Completing a subprocess instance
// merges its variables into the parent instance and reactivates the parked
// token, so that a subsequent execution continues the parent.
func (ec *executionContext) finalize(ctx Context) error {
	tokens, err := ctx.Tokens().SelectByProcessInstance(ec.processInstance.Id)
	if err != nil {
		return err
	}

	var currentNodes []string
	for _, token := range tokens {
		switch token.State {
		case engine.TokenActive, engine.TokenWaiting:
			if !slices.Contains(currentNodes, token.NodeId) {
				currentNodes = append(currentNodes, token.NodeId)
			}
		}
	}

	if len(currentNodes) != 0 {
		text, err := marshalJSONText(currentNodes)
		if err != nil {
			return err
		}

		ec.processInstance.CurrentNodes = text
		return ctx.ProcessInstances().Update(ec.processInstance)
	}

	ec.processInstance.CurrentNodes = pgtype.Text{}
	ec.processInstance.EndedAt = pgtype.Timestamp{Time: ctx.Time(), Valid: true}
	ec.processInstance.State = engine.InstanceCompleted
	if err := ctx.ProcessInstances().Update(ec.processInstance); err != nil {
		return err
	}

	if err := insertEvent(ctx, ec.processInstance.Id, engine.EventProcessCompleted, nil); err != nil {
		return err
	}

	publishEvent(ctx, engine.EventProcessCompleted, ec.processInstance.ProcessInstance())

	if !ec.processInstance.ParentTokenId.Valid {
		return nil
	}

	// propagate the subprocess result to the parent instance
	parentToken, err := ctx.Tokens().Select(ec.processInstance.ParentTokenId.Int32)
	if err != nil {
		return err
	}

	parent, err := ctx.ProcessInstances().Select(parentToken.ProcessInstanceId)
	if err != nil {
		return err
	}

	if err := mergeVariables(ctx, parent, unmarshalVariables(ec.processInstance.Variables)); err != nil {
		return err
	}

	if parentToken.State == engine.TokenWaiting {
		parentToken.State = engine.TokenActive
		if err := ctx.Tokens().Update(parentToken); err != nil {
			return err
		}
	}

	return nil
}
