package internal

import (
	"time"

	"github.com/jvollmer/go-flow/engine"
	"github.com/jvollmer/go-flow/expr"
)

type Context interface {
	Options() engine.Options
	Evaluator() *expr.Evaluator

	Time() time.Time

	Activities() ActivityRepository
	Events() EventRepository
	ProcessCache() *ProcessCache
	Processes() ProcessRepository
	ProcessInstances() ProcessInstanceRepository
	Tasks() TaskRepository
	Tokens() TokenRepository
}
