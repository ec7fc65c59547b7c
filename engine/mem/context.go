package mem

import (
	"time"

	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/engine/internal"
	"github.com/jvollmer/go-flow/expr"
)

func newMemContext(options Options) *memContext {
	ctx := memContext{
		options:      options,
		evaluator:    expr.New(),
		processCache: internal.NewProcessCache(),
	}

	return &ctx
}

type memContext struct {
	options Options

	evaluator *expr.Evaluator

	time time.Time

	activities       activityRepository
	events           eventRepository
	processes        processRepository
	processCache     *internal.ProcessCache
	processInstances processInstanceRepository
	tasks            taskRepository
	tokens           tokenRepository
}

func (c *memContext) Options() engine.Options {
	return c.options.Common
}

func (c *memContext) Evaluator() *expr.Evaluator {
	return c.evaluator
}

func (c *memContext) Time() time.Time {
	return c.time
}

func (c *memContext) Activities() internal.ActivityRepository {
	return &c.activities
}

func (c *memContext) Events() internal.EventRepository {
	return &c.events
}

func (c *memContext) Processes() internal.ProcessRepository {
	return &c.processes
}

func (c *memContext) ProcessCache() *internal.ProcessCache {
	return c.processCache
}

func (c *memContext) ProcessInstances() internal.ProcessInstanceRepository {
	return &c.processInstances
}

func (c *memContext) Tasks() internal.TaskRepository {
	return &c.tasks
}

func (c *memContext) Tokens() internal.TokenRepository {
	return &c.tokens
}

func (c *memContext) clear() {
	c.processCache.Clear()

	c.activities.entities = nil
	c.events.entities = nil
	c.processes.entities = nil
	c.processInstances.entities = nil
	c.tasks.entities = nil
	c.tokens.entities = nil
}
