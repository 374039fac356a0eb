package fleet

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotFound is returned when an id is absent from the Store.
	ErrNotFound = errors.New("entity not found")
	// ErrKindMismatch is returned when an existing id is written with a
	// different entity type or kind than it was created with.
	ErrKindMismatch = errors.New("entity kind mismatch")
	// ErrInvalidPosition is returned for NaN or infinite coordinates.
	ErrInvalidPosition = errors.New("position must be finite")
	// ErrEmptyID is returned when an entity has no id.
	ErrEmptyID = errors.New("entity id is empty")
	// ErrIDChanged is returned when an updater rewrites the id.
	ErrIDChanged = errors.New("entity id is immutable")
	// ErrUnsupportedEntity is returned for Entity implementations other
	// than Unit, Victim and Hazard.
	ErrUnsupportedEntity = errors.New("unsupported entity type")
)

// ChangeOp names the Store call that produced a Change.
type ChangeOp string

const (
	OpUpsert ChangeOp = "upsert"
	OpMutate ChangeOp = "mutate"
	OpBatch  ChangeOp = "batch"
	OpRemove ChangeOp = "remove"
)

// Change describes one committed Store write.
type Change struct {
	Op  ChangeOp
	IDs []string
}

// Observer is called synchronously after each committed write, before the
// writing call returns. Observers may read the Store but must not write it.
type Observer func(Change)

// Store is the authoritative table of units, victims and hazards keyed by id.
// Writes are expected from a single logical writer; reads are safe from any
// goroutine.
type Store struct {
	mu        sync.RWMutex
	entities  map[string]Entity
	order     []string
	observers []Observer

	batchDepth int
	pending    []string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{entities: make(map[string]Entity)}
}

// Observe registers fn for change notifications.
func (s *Store) Observe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Upsert inserts e or replaces the entity with the same id. Pointers to
// Unit, Victim and Hazard are stored as values.
func (s *Store) Upsert(e Entity) error {
	e, ok := value(e)
	if !ok {
		return fmt.Errorf("upsert %T: %w", e, ErrUnsupportedEntity)
	}
	if e == nil || e.EntityID() == "" {
		return ErrEmptyID
	}
	if !e.Pos().Finite() {
		return fmt.Errorf("upsert %s: %w", e.EntityID(), ErrInvalidPosition)
	}
	notify, err := s.upsert(e)
	if err != nil {
		return err
	}
	s.emit(notify, OpUpsert)
	return nil
}

func (s *Store) upsert(e Entity) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := e.EntityID()
	prev, exists := s.entities[id]
	if exists {
		if !sameKind(prev, e) {
			return nil, fmt.Errorf("upsert %s: %s/%s over %s/%s: %w",
				id, e.EntityType(), e.Kind(), prev.EntityType(), prev.Kind(), ErrKindMismatch)
		}
		e = keepRescued(prev, e)
	} else {
		s.order = append(s.order, id)
	}
	s.entities[id] = e
	return s.commit(id), nil
}

// Get returns the entity stored under id.
func (s *Store) Get(id string) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return e, nil
}

// Unit returns the unit stored under id.
func (s *Store) Unit(id string) (Unit, error) {
	e, err := s.Get(id)
	if err != nil {
		return Unit{}, err
	}
	u, ok := e.(Unit)
	if !ok {
		return Unit{}, fmt.Errorf("get %s: %s is not a unit: %w", id, e.EntityType(), ErrKindMismatch)
	}
	return u, nil
}

// List returns every entity of type t in insertion order.
func (s *Store) List(t EntityType) []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entity
	for _, id := range s.order {
		if e := s.entities[id]; e.EntityType() == t {
			out = append(out, e)
		}
	}
	return out
}

// UnitIDs returns unit ids in insertion order.
func (s *Store) UnitIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, id := range s.order {
		if s.entities[id].EntityType() == TypeUnit {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of stored entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Mutate replaces the entity under id with fn's result. The id, type and
// kind must be unchanged, and a rescued victim stays rescued.
func (s *Store) Mutate(id string, fn func(Entity) Entity) error {
	notify, err := s.mutate(id, fn)
	if err != nil {
		return err
	}
	s.emit(notify, OpMutate)
	return nil
}

func (s *Store) mutate(id string, fn func(Entity) Entity) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("mutate %s: %w", id, ErrNotFound)
	}
	next, ok := value(fn(prev))
	switch {
	case !ok:
		return nil, fmt.Errorf("mutate %s: %T: %w", id, next, ErrUnsupportedEntity)
	case next == nil || next.EntityID() != id:
		return nil, fmt.Errorf("mutate %s: %w", id, ErrIDChanged)
	case !sameKind(prev, next):
		return nil, fmt.Errorf("mutate %s: %w", id, ErrKindMismatch)
	case !next.Pos().Finite():
		return nil, fmt.Errorf("mutate %s: %w", id, ErrInvalidPosition)
	}
	s.entities[id] = keepRescued(prev, next)
	return s.commit(id), nil
}

// Remove deletes the entity under id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	if _, ok := s.entities[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	delete(s.entities, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	notify := s.commit(id)
	s.mu.Unlock()
	s.emit(notify, OpRemove)
	return nil
}

// MutateUnit applies fn to a copy of the unit under id and stores it.
func (s *Store) MutateUnit(id string, fn func(*Unit)) error {
	var typeErr error
	err := s.Mutate(id, func(e Entity) Entity {
		u, ok := e.(Unit)
		if !ok {
			typeErr = fmt.Errorf("mutate %s: %s is not a unit: %w", id, e.EntityType(), ErrKindMismatch)
			return e
		}
		fn(&u)
		return u
	})
	if err != nil {
		return err
	}
	return typeErr
}

// Batch runs fn and emits a single notification for every write made
// inside it. Nested batches collapse into the outermost one.
func (s *Store) Batch(fn func()) {
	s.mu.Lock()
	s.batchDepth++
	s.mu.Unlock()

	var ids []string
	func() {
		defer func() {
			s.mu.Lock()
			s.batchDepth--
			if s.batchDepth == 0 {
				ids, s.pending = s.pending, nil
			}
			s.mu.Unlock()
		}()
		fn()
	}()
	if len(ids) > 0 {
		s.emit(ids, OpBatch)
	}
}

// Snapshot copies the current contents in insertion order.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var snap Snapshot
	for _, id := range s.order {
		switch e := s.entities[id].(type) {
		case Unit:
			snap.Units = append(snap.Units, e)
		case Victim:
			snap.Victims = append(snap.Victims, e)
		case Hazard:
			snap.Hazards = append(snap.Hazards, e)
		}
	}
	return snap
}

// commit records id for notification. It returns the ids to emit now, or
// nil while a batch is open. Caller holds s.mu.
func (s *Store) commit(id string) []string {
	if s.batchDepth > 0 {
		s.pending = append(s.pending, id)
		return nil
	}
	return []string{id}
}

func (s *Store) emit(ids []string, op ChangeOp) {
	if len(ids) == 0 {
		return
	}
	s.mu.RLock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.RUnlock()
	ch := Change{Op: op, IDs: ids}
	for _, fn := range observers {
		fn(ch)
	}
}

func sameKind(a, b Entity) bool {
	return a.EntityType() == b.EntityType() && a.Kind() == b.Kind()
}

func keepRescued(prev, next Entity) Entity {
	pv, ok := prev.(Victim)
	if !ok || !pv.Rescued {
		return next
	}
	nv, ok := next.(Victim)
	if !ok {
		return next
	}
	nv.Rescued = true
	return nv
}

// value dereferences entity pointers. It reports false for types the Store
// does not hold. A nil pointer yields a nil Entity.
func value(e Entity) (Entity, bool) {
	switch v := e.(type) {
	case nil, Unit, Victim, Hazard:
		return e, true
	case *Unit:
		if v == nil {
			return nil, true
		}
		return *v, true
	case *Victim:
		if v == nil {
			return nil, true
		}
		return *v, true
	case *Hazard:
		if v == nil {
			return nil, true
		}
		return *v, true
	}
	return e, false
}
