package mem

import (
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
)

type processInstanceRepository struct {
	entities []internal.ProcessInstanceEntity
	sequence int32
}

func (r *processInstanceRepository) Insert(entity *internal.ProcessInstanceEntity) error {
	r.sequence++
	entity.Id = r.sequence
	r.entities = append(r.entities, *entity)
	return nil
}

func (r *processInstanceRepository) Select(id int32) (*internal.ProcessInstanceEntity, error) {
	for _, e := range r.entities {
		if e.Id == id {
			return &e, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *processInstanceRepository) SelectByParent(parentId int32) ([]*internal.ProcessInstanceEntity, error) {
	var results []*internal.ProcessInstanceEntity
	for i := range r.entities {
		e := r.entities[i]
		if e.ParentId.Valid && e.ParentId.Int32 == parentId {
			results = append(results, &e)
		}
	}
	return results, nil
}

func (r *processInstanceRepository) Update(entity *internal.ProcessInstanceEntity) error {
	for i := range r.entities {
		if r.entities[i].Id == entity.Id {
			r.entities[i] = *entity
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *processInstanceRepository) Delete(id int32) error {
	for i := range r.entities {
		if r.entities[i].Id == id {
			r.entities = slices.Delete(r.entities, i, i+1)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *processInstanceRepository) Query(c engine.ProcessInstanceCriteria, o engine.QueryOptions) ([]engine.ProcessInstance, error) {
	var (
		offset int
		limit  int
	)

	results := make([]engine.ProcessInstance, 0)
	for _, e := range r.entities {
		if c.Id != 0 && c.Id != e.Id {
			continue
		}
		if c.ParentId != 0 && c.ParentId != e.ParentId.Int32 {
			continue
		}
		if c.ProcessId != 0 && c.ProcessId != e.ProcessId {
			continue
		}
		if c.BusinessKey != "" && c.BusinessKey != e.BusinessKey.String {
			continue
		}
		if c.CreatedBy != "" && c.CreatedBy != e.CreatedBy {
			continue
		}
		if c.DefinitionId != "" && c.DefinitionId != e.DefinitionId {
			continue
		}
		if len(c.States) != 0 && !slices.Contains(c.States, e.State) {
			continue
		}

		if offset < o.Offset {
			offset++
			continue
		}

		results = append(results, e.ProcessInstance())
		limit++

		if o.Limit > 0 && limit == o.Limit {
			break
		}
	}

	return results, nil
}

func (r *processInstanceRepository) Stats() (engine.Stats, error) {
	var stats engine.Stats

	var totalDuration time.Duration
	for _, e := range r.entities {
		switch e.State {
		case engine.InstanceCompleted:
			stats.CompletedCount++
			if e.StartedAt.Valid && e.EndedAt.Valid {
				totalDuration += e.EndedAt.Time.Sub(e.StartedAt.Time)
			}
		case engine.InstanceError:
			stats.ErrorCount++
		case engine.InstanceRunning:
			stats.RunningCount++
		case engine.InstanceSuspended:
			stats.SuspendedCount++
		case engine.InstanceTerminated:
			stats.TerminatedCount++
		}
	}

	if stats.CompletedCount != 0 {
		stats.MeanDuration = totalDuration / time.Duration(stats.CompletedCount)
	}

	return stats, nil
}
