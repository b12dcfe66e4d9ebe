package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xela07ax/linc-gateway/internal/domain"
)

// Environment выбирает таблицу адресов агентов.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Tables: статические таблицы диспетчеризации. Строятся один раз при старте.
type Tables struct {
	// env -> agent -> endpoint
	Endpoints map[Environment]map[string]string
	// agent -> разрешенные задачи
	Tasks map[string][]string
}

// Registry: неизменяемый справочник агентов и allow-list пар (agent, task).
// После New доступен только на чтение, поэтому безопасен для конкурентного использования.
type Registry struct {
	endpoints map[Environment]map[string]string
	tasks     map[string]map[string]struct{}
}

// New копирует таблицы и проверяет их согласованность 1:1.
func New(t Tables) (*Registry, error) {
	if len(t.Endpoints) == 0 {
		return nil, fmt.Errorf("registry: no endpoint tables")
	}

	r := &Registry{
		endpoints: make(map[Environment]map[string]string, len(t.Endpoints)),
		tasks:     make(map[string]map[string]struct{}, len(t.Tasks)),
	}

	for agent, tasks := range t.Tasks {
		set := make(map[string]struct{}, len(tasks))
		for _, task := range tasks {
			set[task] = struct{}{}
		}
		r.tasks[canonical(agent)] = set
	}

	for env, table := range t.Endpoints {
		copied := make(map[string]string, len(table))
		for agent, url := range table {
			if url == "" {
				return nil, fmt.Errorf("registry: empty endpoint for %s in %s", agent, env)
			}
			copied[canonical(agent)] = url
		}
		r.endpoints[env] = copied
	}

	// Каждая таблица окружения обязана содержать ровно тот же набор агентов, что и allow-list
	want := r.Agents()
	for env, table := range r.endpoints {
		if len(table) != len(want) {
			return nil, fmt.Errorf("registry: %s table has %d agents, task table has %d", env, len(table), len(want))
		}
		for _, agent := range want {
			if _, ok := table[agent]; !ok {
				return nil, fmt.Errorf("registry: agent %s missing from %s table", agent, env)
			}
		}
	}

	return r, nil
}

// WithOverrides возвращает копию таблиц с подмененными адресами из конфига.
// Неизвестный агент в оверрайдах: ошибка: таблицы должны оставаться 1:1.
func (t Tables) WithOverrides(overrides map[string]map[string]string) (Tables, error) {
	out := Tables{
		Endpoints: make(map[Environment]map[string]string, len(t.Endpoints)),
		Tasks:     t.Tasks,
	}
	for env, table := range t.Endpoints {
		copied := make(map[string]string, len(table))
		for agent, url := range table {
			copied[agent] = url
		}
		out.Endpoints[env] = copied
	}

	for env, table := range overrides {
		target, ok := out.Endpoints[Environment(env)]
		if !ok {
			return Tables{}, fmt.Errorf("registry: unknown environment %q in overrides", env)
		}
		for agent, url := range table {
			agent = canonical(agent)
			if _, ok := target[agent]; !ok {
				return Tables{}, fmt.Errorf("registry: unknown agent %q in overrides", agent)
			}
			target[agent] = url
		}
	}
	return out, nil
}

// ResolveEndpoint возвращает адрес агента для окружения.
func (r *Registry) ResolveEndpoint(agent string, env Environment) (string, error) {
	table, ok := r.endpoints[env]
	if !ok {
		return "", fmt.Errorf("registry: unknown environment %q", env)
	}
	url, ok := table[canonical(agent)]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrAgentNotFound, agent)
	}
	return url, nil
}

// IsValidTask: горячий путь, работает только с памятью.
func (r *Registry) IsValidTask(agent, task string) bool {
	tasks, ok := r.tasks[canonical(agent)]
	if !ok {
		return false
	}
	_, ok = tasks[task]
	return ok
}

// Validate различает «агент не найден» (404) и «задача не разрешена» (400).
func (r *Registry) Validate(agent, task string) error {
	if _, ok := r.tasks[canonical(agent)]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrAgentNotFound, agent)
	}
	if !r.IsValidTask(agent, task) {
		return fmt.Errorf("%w: task '%s' for agent '%s'", domain.ErrTaskNotAllowed, task, canonical(agent))
	}
	return nil
}

// Agents возвращает отсортированный список известных агентов.
func (r *Registry) Agents() []string {
	agents := make([]string, 0, len(r.tasks))
	for agent := range r.tasks {
		agents = append(agents, agent)
	}
	sort.Strings(agents)
	return agents
}

// Canonical приводит имя агента к виду, в котором оно хранится в таблицах.
func Canonical(agent string) string {
	return canonical(agent)
}

func canonical(agent string) string {
	return strings.ToLower(strings.TrimSpace(agent))
}
