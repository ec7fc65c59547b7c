package mem

import (
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
)

type activityRepository struct {
	entities []internal.ActivityEntity
	sequence int32
}

func (r *activityRepository) Insert(entity *internal.ActivityEntity) error {
	r.sequence++
	entity.Id = r.sequence
	r.entities = append(r.entities, *entity)
	return nil
}

func (r *activityRepository) Select(id int32) (*internal.ActivityEntity, error) {
	for _, e := range r.entities {
		if e.Id == id {
			return &e, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *activityRepository) SelectByProcessInstance(processInstanceId int32) ([]*internal.ActivityEntity, error) {
	var results []*internal.ActivityEntity
	for i := range r.entities {
		e := r.entities[i]
		if e.ProcessInstanceId == processInstanceId {
			results = append(results, &e)
		}
	}
	return results, nil
}

func (r *activityRepository) Update(entity *internal.ActivityEntity) error {
	for i := range r.entities {
		if r.entities[i].Id == entity.Id {
			r.entities[i] = *entity
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *activityRepository) DeleteByProcessInstance(processInstanceId int32) error {
	r.entities = slices.DeleteFunc(r.entities, func(e internal.ActivityEntity) bool {
		return e.ProcessInstanceId == processInstanceId
	})
	return nil
}

func (r *activityRepository) Query(c engine.ActivityCriteria, o engine.QueryOptions) ([]engine.ActivityInstance, error) {
	var (
		offset int
		limit  int
	)

	results := make([]engine.ActivityInstance, 0)
	for _, e := range r.entities {
		if c.Id != 0 && c.Id != e.Id {
			continue
		}
		if c.ProcessInstanceId != 0 && c.ProcessInstanceId != e.ProcessInstanceId {
			continue
		}
		if c.NodeId != "" && c.NodeId != e.NodeId {
			continue
		}
		if len(c.States) != 0 && !slices.Contains(c.States, e.State) {
			continue
		}

		if offset < o.Offset {
			offset++
			continue
		}

		results = append(results, e.ActivityInstance())
		limit++

		if o.Limit > 0 && limit == o.Limit {
			break
		}
	}

	return results, nil
}
