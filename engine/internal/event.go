package internal

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jvollmer/go-flow/engine"
)

type EventEntity struct {
	Id int32

	ProcessInstanceId int32

	CreatedAt time.Time
	Data      pgtype.Text
	Type      string
}

func (e EventEntity) ProcessEvent() engine.ProcessEvent {
	return engine.ProcessEvent{
		Id: e.Id,

		ProcessInstanceId: e.ProcessInstanceId,

		Type:      e.Type,
		Data:      unmarshalVariables(e.Data),
		CreatedAt: e.CreatedAt,
	}
}

// EventRepository is the append-only audit log of process instances.
// Events are selected and queried in insertion order.
type EventRepository interface {
	Insert(*EventEntity) error
	SelectByProcessInstance(processInstanceId int32) ([]*EventEntity, error)
	DeleteByProcessInstance(processInstanceId int32) error

	Query(engine.EventCriteria, engine.QueryOptions) ([]engine.ProcessEvent, error)
}

func insertEvent(ctx Context, processInstanceId int32, eventType string, data map[string]any) error {
	var text pgtype.Text
	if len(data) != 0 {
		var err error
		if text, err = marshalJSONText(data); err != nil {
			return err
		}
	}

	event := EventEntity{
		ProcessInstanceId: processInstanceId,

		CreatedAt: ctx.Time(),
		Data:      text,
		Type:      eventType,
	}

	return ctx.Events().Insert(&event)
}

func GetExecutionTrace(ctx Context, cmd engine.GetExecutionTraceCmd) (engine.ExecutionTrace, error) {
	processInstance, err := selectProcessInstance(ctx, cmd.ProcessInstanceId, "failed to get execution trace")
	if err != nil {
		return engine.ExecutionTrace{}, err
	}

	eventEntities, err := ctx.Events().SelectByProcessInstance(processInstance.Id)
	if err != nil {
		return engine.ExecutionTrace{}, err
	}

	activityEntities, err := ctx.Activities().SelectByProcessInstance(processInstance.Id)
	if err != nil {
		return engine.ExecutionTrace{}, err
	}

	tokenEntities, err := ctx.Tokens().SelectByProcessInstance(processInstance.Id)
	if err != nil {
		return engine.ExecutionTrace{}, err
	}

	events := make([]engine.ProcessEvent, len(eventEntities))
	for i, entity := range eventEntities {
		events[i] = entity.ProcessEvent()
	}

	activities := make([]engine.ActivityInstance, len(activityEntities))
	for i, entity := range activityEntities {
		activities[i] = entity.ActivityInstance()
	}

	tokens := make([]engine.Token, len(tokenEntities))
	for i, entity := range tokenEntities {
		tokens[i] = entity.Token()
	}

	return engine.ExecutionTrace{
		ProcessInstance: processInstance.ProcessInstance(),
		Events:          events,
		Activities:      activities,
		Tokens:          tokens,
	}, nil
}
