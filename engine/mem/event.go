package mem

import (
	"slices"

	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
)

type eventRepository struct {
	entities []internal.EventEntity
	sequence int32
}

func (r *eventRepository) Insert(entity *internal.EventEntity) error {
	r.sequence++
	entity.Id = r.sequence
	r.entities = append(r.entities, *entity)
	return nil
}

func (r *eventRepository) SelectByProcessInstance(processInstanceId int32) ([]*internal.EventEntity, error) {
	var results []*internal.EventEntity
	for i := range r.entities {
		e := r.entities[i]
		if e.ProcessInstanceId == processInstanceId {
			results = append(results, &e)
		}
	}
	return results, nil
}

func (r *eventRepository) DeleteByProcessInstance(processInstanceId int32) error {
	r.entities = slices.DeleteFunc(r.entities, func(e internal.EventEntity) bool {
		return e.ProcessInstanceId == processInstanceId
	})
	return nil
}

func (r *eventRepository) Query(c engine.EventCriteria, o engine.QueryOptions) ([]engine.ProcessEvent, error) {
	var (
		offset int
		limit  int
	)

	results := make([]engine.ProcessEvent, 0)
	for _, e := range r.entities {
		if c.ProcessInstanceId != 0 && c.ProcessInstanceId != e.ProcessInstanceId {
			continue
		}
		if c.Type != "" && c.Type != e.Type {
			continue
		}

		if offset < o.Offset {
			offset++
			continue
		}

		results = append(results, e.ProcessEvent())
		limit++

		if o.Limit > 0 && limit == o.Limit {
			break
		}
	}

	return results, nil
}
