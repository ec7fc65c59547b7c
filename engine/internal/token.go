package internal

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jvollmer/go-flow/engine"
)

type TokenEntity struct {
	Id int32

	ProcessInstanceId int32

	ParentId pgtype.Int4
	ChildIds pgtype.Text

	CreatedAt time.Time
	CreatedBy string
	Data      pgtype.Text
	EndedAt   pgtype.Timestamp
	NodeId    string
	State     engine.TokenState
}

func (e TokenEntity) Token() engine.Token {
	return engine.Token{
		Id: e.Id,

		ProcessInstanceId: e.ProcessInstanceId,

		ParentId: e.ParentId.Int32,
		ChildIds: unmarshalInt32s(e.ChildIds),

		NodeId:    e.NodeId,
		State:     e.State,
		Data:      unmarshalVariables(e.Data),
		CreatedAt: e.CreatedAt,
		CreatedBy: e.CreatedBy,
		EndedAt:   timeOrNil(e.EndedAt),
	}
}

func (e *TokenEntity) appendChildId(childId int32) error {
	childIds := append(unmarshalInt32s(e.ChildIds), childId)

	text, err := marshalJSONText(childIds)
	if err != nil {
		return err
	}

	e.ChildIds = text
	return nil
}

type TokenRepository interface {
	Insert(*TokenEntity) error
	Select(id int32) (*TokenEntity, error)
	SelectByProcessInstance(processInstanceId int32) ([]*TokenEntity, error)
	Update(*TokenEntity) error
	DeleteByProcessInstance(processInstanceId int32) error

	Query(engine.TokenCriteria, engine.QueryOptions) ([]engine.Token, error)
}

// moveToken moves a token along an edge to the edge's target node.
func moveToken(ctx Context, token *TokenEntity, edgeTargetId string) error {
	token.NodeId = edgeTargetId
	if err := ctx.Tokens().Update(token); err != nil {
		return err
	}

	publishEvent(ctx, engine.EventTokenMoved, token.Token())
	return nil
}

// forkToken creates a child token that occupies the given node. The child
// clones the parent's data bag.
func forkToken(ctx Context, parent *TokenEntity, nodeId string) (*TokenEntity, error) {
	child := TokenEntity{
		ProcessInstanceId: parent.ProcessInstanceId,

		ParentId: pgtype.Int4{Int32: parent.Id, Valid: true},

		CreatedAt: ctx.Time(),
		CreatedBy: ctx.Options().EngineId,
		Data:      parent.Data,
		NodeId:    nodeId,
		State:     engine.TokenActive,
	}

	if err := ctx.Tokens().Insert(&child); err != nil {
		return nil, err
	}

	if err := parent.appendChildId(child.Id); err != nil {
		return nil, err
	}

	publishEvent(ctx, engine.EventTokenCreated, child.Token())
	return &child, nil
}

func completeToken(ctx Context, token *TokenEntity) error {
	token.State = engine.TokenCompleted
	token.EndedAt = pgtype.Timestamp{Time: ctx.Time(), Valid: true}
	return ctx.Tokens().Update(token)
}
