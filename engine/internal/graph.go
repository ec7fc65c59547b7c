package internal

import (
	"errors"
	"fmt"

	"github.com/adhocore/gronx"
	"github.com/jvollmer/go-flow/definition"
	"github.com/jvollmer/go-flow/engine"
)

func newGraph(d *definition.ProcessDefinition) (*graph, error) {
	startNodes := d.NodesByType(definition.NodeStart)
	if len(startNodes) == 0 {
		return nil, errors.New("process definition has no start node")
	}

	return &graph{definition: d, startNodes: startNodes}, nil
}

// graph is the executable form of a process definition.
type graph struct {
	definition *definition.ProcessDefinition
	startNodes []*definition.Node
}

func (g *graph) nodeById(id string) *definition.Node {
	return g.definition.NodeById(id)
}

// validateProcess validates if the process and its nodes can be executed.
// If the process is invalid, causes are returned.
func validateProcess(ctx Context, d *definition.ProcessDefinition) []engine.ErrorCause {
	var causes []engine.ErrorCause

	if len(d.NodesByType(definition.NodeStart)) == 0 {
		causes = append(causes, engine.ErrorCause{
			Pointer: "/",
			Type:    "process",
			Detail:  fmt.Sprintf("process %s has no start node", d.Id),
		})
	}
	if len(d.NodesByType(definition.NodeEnd)) == 0 {
		causes = append(causes, engine.ErrorCause{
			Pointer: "/",
			Type:    "process",
			Detail:  fmt.Sprintf("process %s has no end node", d.Id),
		})
	}

	for _, node := range d.Nodes {
		switch node.Type {
		case definition.NodeStart:
			if len(node.Incoming) != 0 {
				causes = append(causes, engine.ErrorCause{
					Pointer: nodePointer(node),
					Type:    "node",
					Detail:  fmt.Sprintf("start node %s must not have incoming edges", node.Id),
				})
			}
			if len(node.Outgoing) == 0 {
				causes = append(causes, engine.ErrorCause{
					Pointer: nodePointer(node),
					Type:    "node",
					Detail:  fmt.Sprintf("start node %s must have at least one outgoing edge", node.Id),
				})
			}
		case definition.NodeEnd:
			if len(node.Outgoing) != 0 {
				causes = append(causes, engine.ErrorCause{
					Pointer: nodePointer(node),
					Type:    "node",
					Detail:  fmt.Sprintf("end node %s must not have outgoing edges", node.Id),
				})
			}
		case definition.NodeTask:
			if len(node.Outgoing) != 1 {
				causes = append(causes, engine.ErrorCause{
					Pointer: nodePointer(node),
					Type:    "node",
					Detail:  fmt.Sprintf("task node %s must have exactly one outgoing edge", node.Id),
				})
			}
			if node.DueCycle != "" && !gronx.IsValid(node.DueCycle) {
				causes = append(causes, engine.ErrorCause{
					Pointer: nodePointer(node),
					Type:    "node",
					Detail:  fmt.Sprintf("task node %s has an invalid due cycle %s", node.Id, node.DueCycle),
				})
			}
			if node.DueAfter != "" {
				if _, err := engine.NewISO8601Duration(node.DueAfter); err != nil {
					causes = append(causes, engine.ErrorCause{
						Pointer: nodePointer(node),
						Type:    "node",
						Detail:  fmt.Sprintf("task node %s has an invalid due duration %s", node.Id, node.DueAfter),
					})
				}
			}
		case definition.NodeSubprocess:
			if len(node.Outgoing) != 1 {
				causes = append(causes, engine.ErrorCause{
					Pointer: nodePointer(node),
					Type:    "node",
					Detail:  fmt.Sprintf("subprocess node %s must have exactly one outgoing edge", node.Id),
				})
			}
			if node.SubprocessId == "" {
				causes = append(causes, engine.ErrorCause{
					Pointer: nodePointer(node),
					Type:    "node",
					Detail:  fmt.Sprintf("subprocess node %s has no subprocess ID", node.Id),
				})
			}
		case definition.NodeGateway:
			if len(node.Incoming) == 0 || len(node.Outgoing) == 0 {
				causes = append(causes, engine.ErrorCause{
					Pointer: nodePointer(node),
					Type:    "node",
					Detail:  fmt.Sprintf("gateway %s must have incoming and outgoing edges", node.Id),
				})
			}
			if node.GatewayType == definition.GatewayInclusive && len(node.Incoming) > 1 {
				causes = append(causes, engine.ErrorCause{
					Pointer: nodePointer(node),
					Type:    "node",
					Detail:  fmt.Sprintf("node %s is not supported: joining inclusive gateway", node.Id),
				})
			}
		default:
			causes = append(causes, engine.ErrorCause{
				Pointer: nodePointer(node),
				Type:    "node",
				Detail:  fmt.Sprintf("node %s has no type", node.Id),
			})
		}
	}

	for _, edge := range d.Edges {
		source := edge.Source()

		if edge.Condition != "" {
			if source == nil || source.Type != definition.NodeGateway {
				causes = append(causes, engine.ErrorCause{
					Pointer: edgePointer(edge),
					Type:    "edge",
					Detail:  fmt.Sprintf("conditional edge %s must originate from a gateway", edge),
				})
			} else if err := ctx.Evaluator().Validate(edge.Condition); err != nil {
				causes = append(causes, engine.ErrorCause{
					Pointer: edgePointer(edge),
					Type:    "edge",
					Detail:  fmt.Sprintf("edge condition is invalid: %v", err),
				})
			}
		}

		if edge.IsDefault {
			if source == nil || source.Type != definition.NodeGateway {
				causes = append(causes, engine.ErrorCause{
					Pointer: edgePointer(edge),
					Type:    "edge",
					Detail:  fmt.Sprintf("default edge %s must originate from a gateway", edge),
				})
			}
			if edge.Condition != "" {
				causes = append(causes, engine.ErrorCause{
					Pointer: edgePointer(edge),
					Type:    "edge",
					Detail:  fmt.Sprintf("default edge %s must not have a condition", edge),
				})
			}
			if source != nil && source.GatewayType == definition.GatewayParallel {
				causes = append(causes, engine.ErrorCause{
					Pointer: edgePointer(edge),
					Type:    "edge",
					Detail:  fmt.Sprintf("default edge %s must not originate from a parallel gateway", edge),
				})
			}
		}
	}

	for _, node := range d.Nodes {
		defaultCount := 0
		for _, edge := range node.Outgoing {
			if edge.IsDefault {
				defaultCount++
			}
		}
		if defaultCount > 1 {
			causes = append(causes, engine.ErrorCause{
				Pointer: nodePointer(node),
				Type:    "node",
				Detail:  fmt.Sprintf("gateway %s has more than one default edge", node.Id),
			})
		}
	}

	return causes
}
