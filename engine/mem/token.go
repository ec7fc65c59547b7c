package mem

import (
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
)

type tokenRepository struct {
	entities []internal.TokenEntity
	sequence int32
}

func (r *tokenRepository) Insert(entity *internal.TokenEntity) error {
	r.sequence++
	entity.Id = r.sequence
	r.entities = append(r.entities, *entity)
	return nil
}

func (r *tokenRepository) Select(id int32) (*internal.TokenEntity, error) {
	for _, e := range r.entities {
		if e.Id == id {
			return &e, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *tokenRepository) SelectByProcessInstance(processInstanceId int32) ([]*internal.TokenEntity, error) {
	var results []*internal.TokenEntity
	for i := range r.entities {
		e := r.entities[i]
		if e.ProcessInstanceId == processInstanceId {
			results = append(results, &e)
		}
	}
	return results, nil
}

func (r *tokenRepository) Update(entity *internal.TokenEntity) error {
	for i := range r.entities {
		if r.entities[i].Id == entity.Id {
			r.entities[i] = *entity
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *tokenRepository) DeleteByProcessInstance(processInstanceId int32) error {
	r.entities = slices.DeleteFunc(r.entities, func(e internal.TokenEntity) bool {
		return e.ProcessInstanceId == processInstanceId
	})
	return nil
}

func (r *tokenRepository) Query(c engine.TokenCriteria, o engine.QueryOptions) ([]engine.Token, error) {
	var (
		offset int
		limit  int
	)

	results := make([]engine.Token, 0)
	for _, e := range r.entities {
		if c.Id != 0 && c.Id != e.Id {
			continue
		}
		if c.ProcessInstanceId != 0 && c.ProcessInstanceId != e.ProcessInstanceId {
			continue
		}
		if c.ParentId != 0 && c.ParentId != e.ParentId.Int32 {
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

		results = append(results, e.Token())
		limit++

		if o.Limit > 0 && limit == o.Limit {
			break
		}
	}

	return results, nil
}
