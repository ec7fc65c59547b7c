package internal

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jvollmer/go-flow/definition"
	"github.com/jvollmer/go-flow/engine"
)

func NewProcessCache() *ProcessCache {
	return &ProcessCache{
		processes:     make(map[string]*ProcessEntity),
		processesById: make(map[int32]*ProcessEntity),
	}
}

// ProcessCache caches deployed processes, including their parsed graphs.
type ProcessCache struct {
	mutex         sync.RWMutex
	processes     map[string]*ProcessEntity
	processesById map[int32]*ProcessEntity
}

func (c *ProcessCache) Add(process *ProcessEntity) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.processesById[process.Id] = process

	key := fmt.Sprintf("%s:%s", process.DefinitionId, process.Version)
	c.processes[key] = process
}

func (c *ProcessCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	clear(c.processes)
	clear(c.processesById)
}

func (c *ProcessCache) Get(definitionId string, version string) (*ProcessEntity, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	key := fmt.Sprintf("%s:%s", definitionId, version)
	process, ok := c.processes[key]
	return process, ok
}

func (c *ProcessCache) GetById(id int32) (*ProcessEntity, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	process, ok := c.processesById[id]
	return process, ok
}

// GetOrCache gets a cached process by definition ID and version.
// An empty version resolves to the latest deployed version, which is never
// cached by key, since a newer deployment would otherwise be shadowed.
func (c *ProcessCache) GetOrCache(ctx Context, definitionId string, version string) (*ProcessEntity, error) {
	if version != "" {
		if process, ok := c.Get(definitionId, version); ok {
			return process, nil
		}
	}

	process, err := ctx.Processes().SelectByDefinitionId(definitionId, version)
	if err != nil {
		return nil, err
	}

	if err := c.cache(ctx, process); err != nil {
		if _, ok := err.(engine.Error); ok {
			return nil, err
		} else {
			return nil, fmt.Errorf("failed to cache process %s:%s: %v", definitionId, version, err)
		}
	}

	return process, nil
}

func (c *ProcessCache) GetOrCacheById(ctx Context, id int32) (*ProcessEntity, error) {
	if process, ok := c.GetById(id); ok {
		return process, nil
	}

	process, err := ctx.Processes().Select(id)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to select process %d: %v", id, err)
	}
	if err != nil {
		return nil, err
	}

	if err := c.cache(ctx, process); err != nil {
		if _, ok := err.(engine.Error); ok {
			return nil, err
		} else {
			return nil, fmt.Errorf("failed to cache process %d: %v", id, err)
		}
	}

	return process, nil
}

func (c *ProcessCache) cache(ctx Context, process *ProcessEntity) error {
	processDefinition, err := definition.New(strings.NewReader(process.Model))
	if err != nil {
		return engine.Error{
			Type:   engine.ErrorBug,
			Title:  "failed to cache process",
			Detail: fmt.Sprintf("process model is invalid: %v", err),
		}
	}

	graph, err := newGraph(processDefinition)
	if err != nil {
		return engine.Error{
			Type:   engine.ErrorBug,
			Title:  "failed to create execution graph",
			Detail: err.Error(),
		}
	}

	process.graph = graph
	c.Add(process)

	return nil
}

type ProcessEntity struct {
	Id int32

	DefinitionId string
	Model        string
	ModelMd5     string

	CreatedAt time.Time
	CreatedBy string
	IsEnabled bool
	Name      string
	Version   string

	graph *graph
}

func (e ProcessEntity) Process() engine.Process {
	return engine.Process{
		Id: e.Id,

		DefinitionId: e.DefinitionId,
		Name:         e.Name,
		Version:      e.Version,
		IsEnabled:    e.IsEnabled,
		CreatedAt:    e.CreatedAt,
		CreatedBy:    e.CreatedBy,
	}
}

type ProcessRepository interface {
	// Insert inserts a process.
	//
	// If a concurrent insert caused a conflict (definition ID and version
	// must be unique), [pgx.ErrNoRows] is returned.
	Insert(*ProcessEntity) error

	Select(id int32) (*ProcessEntity, error)

	// SelectByDefinitionId selects a process by definition ID and version.
	// An empty version selects the latest deployed version.
	//
	// If no process is found, [pgx.ErrNoRows] is returned.
	SelectByDefinitionId(definitionId string, version string) (*ProcessEntity, error)

	Update(*ProcessEntity) error

	Count() (int, error)

	Query(engine.ProcessCriteria, engine.QueryOptions) ([]engine.Process, error)
}

func DeployProcess(ctx Context, cmd engine.DeployProcessCmd) (engine.Process, error) {
	if err := validateCommand(cmd, "failed to deploy process"); err != nil {
		return engine.Process{}, err
	}

	md5Hash := md5.New()
	md5Hash.Write([]byte(cmd.Model))
	modelMd5 := hex.EncodeToString(md5Hash.Sum(nil))

	processDefinition, err := definition.New(strings.NewReader(cmd.Model))
	if err != nil {
		return engine.Process{}, engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to deploy process",
			Detail: fmt.Sprintf("process model is invalid: %v", err),
		}
	}

	if processDefinition.Id != cmd.DefinitionId {
		return engine.Process{}, engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to deploy process",
			Detail: fmt.Sprintf("process model has definition ID %s, but %s", processDefinition.Id, cmd.DefinitionId),
		}
	}

	causes := validateProcess(ctx, processDefinition)
	if len(causes) != 0 {
		return engine.Process{}, engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to deploy process",
			Detail: "process model is invalid",
			Causes: causes,
		}
	}

	existing, err := ctx.Processes().SelectByDefinitionId(cmd.DefinitionId, cmd.Version)
	if err != nil && err != pgx.ErrNoRows {
		return engine.Process{}, err
	}

	if existing != nil {
		if existing.ModelMd5 != modelMd5 {
			return engine.Process{}, engine.Error{
				Type:   engine.ErrorConflict,
				Title:  "failed to deploy process",
				Detail: fmt.Sprintf("process %s:%s is deployed with a different model", cmd.DefinitionId, cmd.Version),
			}
		}
		return existing.Process(), nil
	}

	process := ProcessEntity{
		DefinitionId: cmd.DefinitionId,
		Model:        cmd.Model,
		ModelMd5:     modelMd5,

		CreatedAt: ctx.Time(),
		CreatedBy: cmd.WorkerId,
		IsEnabled: processDefinition.Enabled,
		Name:      processDefinition.Name,
		Version:   cmd.Version,
	}

	if err := ctx.Processes().Insert(&process); err == pgx.ErrNoRows {
		return engine.Process{}, engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to deploy process",
			Detail: fmt.Sprintf("process %s:%s is deployed concurrently", cmd.DefinitionId, cmd.Version),
		}
	} else if err != nil {
		return engine.Process{}, err
	}

	if err := ctx.ProcessCache().cache(ctx, &process); err != nil {
		return engine.Process{}, err
	}

	return process.Process(), nil
}

func GetProcessModel(ctx Context, cmd engine.GetProcessModelCmd) (string, error) {
	process, err := ctx.Processes().Select(cmd.ProcessId)
	if err == pgx.ErrNoRows {
		return "", engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to get process model",
			Detail: fmt.Sprintf("process %d could not be found", cmd.ProcessId),
		}
	}
	if err != nil {
		return "", err
	}

	return process.Model, nil
}

func SetProcessEnabled(ctx Context, cmd engine.SetProcessEnabledCmd) error {
	if err := validateCommand(cmd, "failed to enable or disable process"); err != nil {
		return err
	}

	process, err := ctx.Processes().Select(cmd.ProcessId)
	if err == pgx.ErrNoRows {
		return engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to enable or disable process",
			Detail: fmt.Sprintf("process %d could not be found", cmd.ProcessId),
		}
	}
	if err != nil {
		return err
	}

	if process.IsEnabled == cmd.Enabled {
		return nil
	}

	process.IsEnabled = cmd.Enabled
	if err := ctx.Processes().Update(process); err != nil {
		return err
	}

	if cached, ok := ctx.ProcessCache().GetById(process.Id); ok {
		cached.IsEnabled = cmd.Enabled
	}

	return nil
}
