package definition

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// New reads a process definition from its JSON model and links nodes and edges.
func New(reader io.Reader) (*ProcessDefinition, error) {
	var definition ProcessDefinition

	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&definition); err == io.EOF {
		return nil, errors.New("JSON is empty")
	} else if err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %v", err)
	}

	if err := definition.link(); err != nil {
		return nil, err
	}

	return &definition, nil
}

// A ProcessDefinition is an immutable process graph template, consisting of
// typed nodes and edges. New versions are new definitions.
type ProcessDefinition struct {
	Id      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version"`

	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`

	Enabled bool `json:"enabled"`

	nodes map[string]*Node
}

func (d *ProcessDefinition) UnmarshalJSON(data []byte) error {
	type alias ProcessDefinition
	if err := json.Unmarshal(data, (*alias)(d)); err != nil {
		return err
	}
	return d.link()
}

// link resolves edge source and target IDs into node pointers and attaches
// incoming and outgoing edges in declaration order.
func (d *ProcessDefinition) link() error {
	d.nodes = make(map[string]*Node, len(d.Nodes))
	for _, node := range d.Nodes {
		if node.Id == "" {
			return fmt.Errorf("node of type %s has no ID", node.Type)
		}
		if _, ok := d.nodes[node.Id]; ok {
			return fmt.Errorf("duplicate node ID %s", node.Id)
		}

		node.Incoming = nil
		node.Outgoing = nil

		d.nodes[node.Id] = node
	}

	for _, edge := range d.Edges {
		edge.source = d.nodes[edge.SourceId]
		edge.target = d.nodes[edge.TargetId]

		if edge.source != nil {
			edge.source.Outgoing = append(edge.source.Outgoing, edge)
		}
		if edge.target != nil {
			edge.target.Incoming = append(edge.target.Incoming, edge)
		}
	}

	return nil
}

func (d *ProcessDefinition) NodeById(id string) *Node {
	return d.nodes[id]
}

func (d *ProcessDefinition) NodesByType(nodeType NodeType) []*Node {
	var nodes []*Node
	for _, node := range d.Nodes {
		if node.Type == nodeType {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func (d *ProcessDefinition) String() string {
	var sb strings.Builder
	sb.WriteString(d.Id)
	if d.Version != "" {
		sb.WriteRune(':')
		sb.WriteString(d.Version)
	}
	return sb.String()
}

// A Node is a typed vertex of the process graph.
type Node struct {
	Id   string   `json:"id"`
	Name string   `json:"name,omitempty"`
	Type NodeType `json:"type"`

	// Gateway type - only relevant for gateway nodes. Defaults to [GatewayExclusive].
	GatewayType GatewayType `json:"gatewayType,omitempty"`

	// Assignee of the work item, created when a task node is entered.
	Assignee string `json:"assignee,omitempty"`
	// Groups that are candidates for the created work item.
	CandidateGroups []string `json:"candidateGroups,omitempty"`
	// Optional ISO 8601 duration until the created work item becomes due.
	DueAfter string `json:"dueAfter,omitempty"`
	// Optional CRON expression, specifying a cyclic due time for created work items.
	DueCycle string `json:"dueCycle,omitempty"`

	// ID of the process definition to instantiate - only relevant for subprocess nodes.
	SubprocessId string `json:"subprocessId,omitempty"`

	Incoming []*Edge `json:"-"`
	Outgoing []*Edge `json:"-"`
}

// DefaultEdge returns the outgoing edge flagged as default, or nil.
func (n *Node) DefaultEdge() *Edge {
	for _, edge := range n.Outgoing {
		if edge.IsDefault {
			return edge
		}
	}
	return nil
}

func (n *Node) OutgoingById(targetId string) *Edge {
	for _, edge := range n.Outgoing {
		if edge.TargetId == targetId {
			return edge
		}
	}
	return nil
}

func (n *Node) String() string {
	return fmt.Sprintf("%s:%s", n.Id, n.Type)
}

// An Edge is a directed connection between two nodes. An edge without a
// condition is unconditionally true.
type Edge struct {
	Id       string `json:"id,omitempty"`
	SourceId string `json:"source"`
	TargetId string `json:"target"`

	// Condition expression, evaluated against the process instance variables.
	Condition string `json:"condition,omitempty"`
	// Marks the edge that is taken when no condition of a gateway matches.
	IsDefault bool `json:"isDefault,omitempty"`

	source *Node
	target *Node
}

func (e *Edge) Source() *Node {
	return e.source
}

func (e *Edge) Target() *Node {
	return e.target
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s->%s", e.SourceId, e.TargetId)
}
