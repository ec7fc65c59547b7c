package mem

import (
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
)

type taskRepository struct {
	entities []internal.TaskEntity
	sequence int32
}

func (r *taskRepository) Insert(entity *internal.TaskEntity) error {
	r.sequence++
	entity.Id = r.sequence
	r.entities = append(r.entities, *entity)
	return nil
}

func (r *taskRepository) Select(id int32) (*internal.TaskEntity, error) {
	for _, e := range r.entities {
		if e.Id == id {
			return &e, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *taskRepository) SelectByProcessInstance(processInstanceId int32) ([]*internal.TaskEntity, error) {
	var results []*internal.TaskEntity
	for i := range r.entities {
		e := r.entities[i]
		if e.ProcessInstanceId == processInstanceId {
			results = append(results, &e)
		}
	}
	return results, nil
}

func (r *taskRepository) Update(entity *internal.TaskEntity) error {
	for i := range r.entities {
		if r.entities[i].Id == entity.Id {
			r.entities[i] = *entity
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *taskRepository) DeleteByProcessInstance(processInstanceId int32) error {
	r.entities = slices.DeleteFunc(r.entities, func(e internal.TaskEntity) bool {
		return e.ProcessInstanceId == processInstanceId
	})
	return nil
}

func (r *taskRepository) Query(c engine.TaskCriteria, o engine.QueryOptions) ([]engine.Task, error) {
	var (
		offset int
		limit  int
	)

	results := make([]engine.Task, 0)
	for _, e := range r.entities {
		if !matchesTask(&e, c.Id, c.ProcessInstanceId, c.Assignee, c.CandidateGroup, c.NodeId) {
			continue
		}
		if len(c.States) != 0 && !slices.Contains(c.States, e.State) {
			continue
		}

		if offset < o.Offset {
			offset++
			continue
		}

		results = append(results, e.Task())
		limit++

		if o.Limit > 0 && limit == o.Limit {
			break
		}
	}

	return results, nil
}

func (r *taskRepository) Lock(cmd engine.LockTasksCmd, lockedAt time.Time) ([]*internal.TaskEntity, error) {
	var locked []*internal.TaskEntity
	for i := range r.entities {
		if len(locked) == cmd.Limit {
			break
		}

		e := &r.entities[i]
		if e.State != engine.TaskCreated || e.DueAt.After(lockedAt) {
			continue
		}
		if !matchesTask(e, cmd.Id, cmd.ProcessInstanceId, cmd.Assignee, cmd.CandidateGroup, cmd.NodeId) {
			continue
		}

		e.LockedAt = pgtype.Timestamp{Time: lockedAt, Valid: true}
		e.LockedBy = pgtype.Text{String: cmd.WorkerId, Valid: true}
		e.State = engine.TaskLocked

		entity := *e
		locked = append(locked, &entity)
	}

	return locked, nil
}

func (r *taskRepository) Unlock(cmd engine.UnlockTasksCmd) (int, error) {
	count := 0
	for i := range r.entities {
		e := &r.entities[i]
		if e.State != engine.TaskLocked || e.LockedBy.String != cmd.WorkerId {
			continue
		}
		if cmd.ProcessInstanceId != 0 && cmd.ProcessInstanceId != e.ProcessInstanceId {
			continue
		}

		e.LockedAt = pgtype.Timestamp{}
		e.LockedBy = pgtype.Text{}
		e.State = engine.TaskCreated

		count++
	}

	return count, nil
}

func matchesTask(e *internal.TaskEntity, id int32, processInstanceId int32, assignee string, candidateGroup string, nodeId string) bool {
	if id != 0 && id != e.Id {
		return false
	}
	if processInstanceId != 0 && processInstanceId != e.ProcessInstanceId {
		return false
	}
	if assignee != "" && assignee != e.Assignee.String {
		return false
	}
	if candidateGroup != "" {
		var candidateGroups []string
		if e.CandidateGroups.Valid {
			candidateGroups = e.Task().CandidateGroups
		}
		if !slices.Contains(candidateGroups, candidateGroup) {
			return false
		}
	}
	if nodeId != "" && nodeId != e.NodeId {
		return false
	}
	return true
}
