package internal

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jvollmer/go-flow/definition"
	"github.com/jvollmer/go-flow/engine"
)

type ActivityEntity struct {
	Id int32

	ProcessInstanceId int32
	TokenId           pgtype.Int4

	CreatedAt time.Time
	EndedAt   pgtype.Timestamp
	Executor  pgtype.Text
	Name      pgtype.Text
	NodeId    string
	Result    pgtype.Text
	StartedAt pgtype.Timestamp
	State     engine.ActivityState
	Type      definition.NodeType
}

func (e ActivityEntity) ActivityInstance() engine.ActivityInstance {
	var duration time.Duration
	if e.StartedAt.Valid && e.EndedAt.Valid {
		duration = e.EndedAt.Time.Sub(e.StartedAt.Time)
	}

	return engine.ActivityInstance{
		Id: e.Id,

		ProcessInstanceId: e.ProcessInstanceId,
		TokenId:           e.TokenId.Int32,

		NodeId:    e.NodeId,
		Name:      e.Name.String,
		Type:      e.Type,
		State:     e.State,
		CreatedAt: e.CreatedAt,
		StartedAt: timeOrNil(e.StartedAt),
		EndedAt:   timeOrNil(e.EndedAt),
		Duration:  duration,
		Executor:  e.Executor.String,
		Result:    unmarshalVariables(e.Result),
	}
}

type ActivityRepository interface {
	Insert(*ActivityEntity) error
	Select(id int32) (*ActivityEntity, error)
	SelectByProcessInstance(processInstanceId int32) ([]*ActivityEntity, error)
	Update(*ActivityEntity) error
	DeleteByProcessInstance(processInstanceId int32) error

	Query(engine.ActivityCriteria, engine.QueryOptions) ([]engine.ActivityInstance, error)
}

// insertActivity records a unit of work performed at a node.
func insertActivity(ctx Context, token *TokenEntity, node *definition.Node, state engine.ActivityState) (*ActivityEntity, error) {
	activity := ActivityEntity{
		ProcessInstanceId: token.ProcessInstanceId,
		TokenId:           pgtype.Int4{Int32: token.Id, Valid: true},

		CreatedAt: ctx.Time(),
		Name:      pgtype.Text{String: node.Name, Valid: node.Name != ""},
		NodeId:    node.Id,
		State:     state,
		Type:      node.Type,
	}

	switch state {
	case engine.ActivityActive:
		activity.StartedAt = pgtype.Timestamp{Time: ctx.Time(), Valid: true}
	case engine.ActivityCompleted:
		activity.StartedAt = pgtype.Timestamp{Time: ctx.Time(), Valid: true}
		activity.EndedAt = pgtype.Timestamp{Time: ctx.Time(), Valid: true}
	}

	if err := ctx.Activities().Insert(&activity); err != nil {
		return nil, err
	}

	return &activity, nil
}

func completeActivity(ctx Context, activity *ActivityEntity, executor string, result map[string]any) error {
	if !activity.StartedAt.Valid {
		activity.StartedAt = pgtype.Timestamp{Time: ctx.Time(), Valid: true}
	}

	activity.EndedAt = pgtype.Timestamp{Time: ctx.Time(), Valid: true}
	activity.Executor = pgtype.Text{String: executor, Valid: executor != ""}
	activity.State = engine.ActivityCompleted

	if len(result) != 0 {
		text, err := marshalJSONText(result)
		if err != nil {
			return err
		}
		activity.Result = text
	}

	return ctx.Activities().Update(activity)
}

// skipActivities skips all non-ended activities of a process instance.
func skipActivities(ctx Context, processInstanceId int32, reason string) error {
	activities, err := ctx.Activities().SelectByProcessInstance(processInstanceId)
	if err != nil {
		return err
	}

	for _, activity := range activities {
		if activity.EndedAt.Valid {
			continue
		}

		activity.EndedAt = pgtype.Timestamp{Time: ctx.Time(), Valid: true}
		activity.State = engine.ActivitySkipped

		if reason != "" {
			text, err := marshalJSONText(map[string]any{"reason": reason})
			if err != nil {
				return err
			}
			activity.Result = text
		}

		if err := ctx.Activities().Update(activity); err != nil {
			return err
		}
	}

	return nil
}
