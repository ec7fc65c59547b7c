package definition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderModel = `{
	"id": "order",
	"name": "Order fulfillment",
	"version": "1",
	"enabled": true,
	"nodes": [
		{"id": "orderPlaced", "type": "START"},
		{"id": "checkShipping", "type": "GATEWAY", "gatewayType": "EXCLUSIVE"},
		{"id": "shipExpress", "type": "TASK", "name": "Ship express", "assignee": "jane"},
		{"id": "shipOrder", "type": "TASK", "name": "Ship order", "candidateGroups": ["logistics"]},
		{"id": "orderShipped", "type": "END"}
	],
	"edges": [
		{"source": "orderPlaced", "target": "checkShipping"},
		{"source": "checkShipping", "target": "shipExpress", "condition": "${express} == true"},
		{"source": "checkShipping", "target": "shipOrder", "isDefault": true},
		{"source": "shipExpress", "target": "orderShipped"},
		{"source": "shipOrder", "target": "orderShipped"}
	]
}`

func TestNew(t *testing.T) {
	assert := assert.New(t)

	d, err := New(strings.NewReader(orderModel))
	require.NoError(t, err)

	assert.Equal("order", d.Id)
	assert.Equal("Order fulfillment", d.Name)
	assert.Equal("1", d.Version)
	assert.True(d.Enabled)
	assert.Equal("order:1", d.String())

	assert.Len(d.Nodes, 5)
	assert.Len(d.Edges, 5)

	start := d.NodeById("orderPlaced")
	require.NotNil(t, start)
	assert.Equal(NodeStart, start.Type)
	assert.Empty(start.Incoming)
	require.Len(t, start.Outgoing, 1)
	assert.Equal("checkShipping", start.Outgoing[0].TargetId)

	gateway := d.NodeById("checkShipping")
	require.NotNil(t, gateway)
	assert.Equal(NodeGateway, gateway.Type)
	assert.Equal(GatewayExclusive, gateway.GatewayType)
	assert.Len(gateway.Incoming, 1)
	assert.Len(gateway.Outgoing, 2)

	defaultEdge := gateway.DefaultEdge()
	require.NotNil(t, defaultEdge)
	assert.Equal("shipOrder", defaultEdge.TargetId)

	conditional := gateway.OutgoingById("shipExpress")
	require.NotNil(t, conditional)
	assert.Equal("${express} == true", conditional.Condition)
	assert.Same(gateway, conditional.Source())
	assert.Same(d.NodeById("shipExpress"), conditional.Target())

	task := d.NodeById("shipOrder")
	require.NotNil(t, task)
	assert.Equal(NodeTask, task.Type)
	assert.Equal([]string{"logistics"}, task.CandidateGroups)
	assert.Nil(task.DefaultEdge())

	assert.Nil(d.NodeById("unknown"))
}

func TestNodesByType(t *testing.T) {
	d, err := New(strings.NewReader(orderModel))
	require.NoError(t, err)

	assert.Len(t, d.NodesByType(NodeTask), 2)
	assert.Len(t, d.NodesByType(NodeStart), 1)
	assert.Empty(t, d.NodesByType(NodeSubprocess))
}

func TestNewInvalid(t *testing.T) {
	assert := assert.New(t)

	_, err := New(strings.NewReader(""))
	assert.EqualError(err, "JSON is empty")

	_, err = New(strings.NewReader("not json"))
	assert.ErrorContains(err, "failed to decode JSON")

	_, err = New(strings.NewReader(`{"id": "t", "nodes": [{"type": "START"}], "edges": []}`))
	assert.ErrorContains(err, "has no ID")

	_, err = New(strings.NewReader(`{"id": "t", "nodes": [{"id": "a", "type": "START"}, {"id": "a", "type": "END"}], "edges": []}`))
	assert.ErrorContains(err, "duplicate node ID")

	_, err = New(strings.NewReader(`{"id": "t", "nodes": [{"id": "a", "type": "SOMETHING"}], "edges": []}`))
	assert.ErrorContains(err, "invalid node type")
}

func TestMapNodeType(t *testing.T) {
	assert := assert.New(t)

	for _, nodeType := range []NodeType{NodeEnd, NodeGateway, NodeStart, NodeSubprocess, NodeTask} {
		assert.Equal(nodeType, MapNodeType(nodeType.String()))
	}

	assert.Equal(NodeType(0), MapNodeType("UNKNOWN"))
}

func TestMapGatewayType(t *testing.T) {
	assert := assert.New(t)

	for _, gatewayType := range []GatewayType{GatewayExclusive, GatewayInclusive, GatewayParallel} {
		assert.Equal(gatewayType, MapGatewayType(gatewayType.String()))
	}

	assert.Equal(GatewayType(0), MapGatewayType("UNKNOWN"))
}
