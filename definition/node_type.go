package definition

import "fmt"

// NodeType describes the different node types a process graph consists of.
type NodeType int

const (
	NodeEnd NodeType = iota + 1
	NodeGateway
	NodeStart
	NodeSubprocess
	NodeTask
)

func MapNodeType(s string) NodeType {
	switch s {
	case "END":
		return NodeEnd
	case "GATEWAY":
		return NodeGateway
	case "START":
		return NodeStart
	case "SUBPROCESS":
		return NodeSubprocess
	case "TASK":
		return NodeTask
	default:
		return 0
	}
}

func (v NodeType) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v NodeType) String() string {
	switch v {
	case NodeEnd:
		return "END"
	case NodeGateway:
		return "GATEWAY"
	case NodeStart:
		return "START"
	case NodeSubprocess:
		return "SUBPROCESS"
	case NodeTask:
		return "TASK"
	default:
		return ""
	}
}

func (v *NodeType) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapNodeType(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid node type data %s", s)
	}
	return nil
}

// GatewayType describes the branching semantics of a gateway node.
//
//   - [GatewayExclusive]: first outgoing edge with a matching condition is taken
//   - [GatewayInclusive]: all outgoing edges with a matching condition are taken
//   - [GatewayParallel]: all outgoing edges are taken; incoming edges are joined
type GatewayType int

const (
	GatewayExclusive GatewayType = iota + 1
	GatewayInclusive
	GatewayParallel
)

func MapGatewayType(s string) GatewayType {
	switch s {
	case "EXCLUSIVE":
		return GatewayExclusive
	case "INCLUSIVE":
		return GatewayInclusive
	case "PARALLEL":
		return GatewayParallel
	default:
		return 0
	}
}

func (v GatewayType) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v GatewayType) String() string {
	switch v {
	case GatewayExclusive:
		return "EXCLUSIVE"
	case GatewayInclusive:
		return "INCLUSIVE"
	case GatewayParallel:
		return "PARALLEL"
	default:
		return ""
	}
}

func (v *GatewayType) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapGatewayType(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid gateway type data %s", s)
	}
	return nil
}
