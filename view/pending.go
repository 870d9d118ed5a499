package view

import (
	"sort"
	"sync"
)

// ActionKind names an action whose control is disabled while it is pending.
type ActionKind string

const (
	ActionCreate        ActionKind = "create"
	ActionUpdate        ActionKind = "update"
	ActionToggle        ActionKind = "toggle"
	ActionDelete        ActionKind = "delete"
	ActionCreateSubTask ActionKind = "create-subtask"
	ActionToggleSubTask ActionKind = "toggle-subtask"
)

// Pending tracks in-flight actions per entity. Actions on different entities,
// or of different kinds on the same entity, do not block each other.
type Pending struct {
	mu       sync.Mutex
	actions  map[uint64]map[ActionKind]struct{}
	onChange func(id uint64, kind ActionKind, pending bool)
}

// NewPending creates an empty tracker. onChange, if not nil, is called after
// every transition, outside the lock.
func NewPending(onChange func(id uint64, kind ActionKind, pending bool)) *Pending {
	return &Pending{
		actions:  make(map[uint64]map[ActionKind]struct{}),
		onChange: onChange,
	}
}

// Begin marks the action as pending. It returns false if the same action is
// already pending for the entity; otherwise done must be called once the
// action settles.
func (p *Pending) Begin(id uint64, kind ActionKind) (done func(), ok bool) {
	p.mu.Lock()
	kinds, exists := p.actions[id]
	if !exists {
		kinds = make(map[ActionKind]struct{})
		p.actions[id] = kinds
	}
	if _, busy := kinds[kind]; busy {
		p.mu.Unlock()
		return func() {}, false
	}
	kinds[kind] = struct{}{}
	p.mu.Unlock()
	p.notify(id, kind, true)

	var once sync.Once
	return func() {
		once.Do(func() { p.end(id, kind) })
	}, true
}

func (p *Pending) end(id uint64, kind ActionKind) {
	p.mu.Lock()
	if kinds, ok := p.actions[id]; ok {
		delete(kinds, kind)
		if len(kinds) == 0 {
			delete(p.actions, id)
		}
	}
	p.mu.Unlock()
	p.notify(id, kind, false)
}

func (p *Pending) notify(id uint64, kind ActionKind, pending bool) {
	if p.onChange != nil {
		p.onChange(id, kind, pending)
	}
}

// IsPending reports whether the action is in flight for the entity.
func (p *Pending) IsPending(id uint64, kind ActionKind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.actions[id][kind]
	return ok
}

// Kinds returns the actions in flight for the entity, sorted.
func (p *Pending) Kinds(id uint64) []ActionKind {
	p.mu.Lock()
	defer p.mu.Unlock()

	kinds := make([]ActionKind, 0, len(p.actions[id]))
	for k := range p.actions[id] {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Len returns the number of in-flight actions across all entities.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, kinds := range p.actions {
		n += len(kinds)
	}
	return n
}
