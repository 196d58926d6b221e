package store

import (
	"cmp"
	"iter"
	"slices"
	"strings"

	"github.com/kjk/roster/grade"
)

// Store is an in-memory collection of records with a unique id index.
//
// Records live in an arena of slots. Display order and the id index are
// both views of slot numbers, so they can't point at different records.
//
// Store is not safe for concurrent use.
type Store struct {
	// Grades is the table used to derive grades. nil means grade.Seven.
	// Set it before adding records.
	Grades *grade.Table

	// Codec is used by Save / Load
	Codec Codec

	// Progress, if set, is called synchronously at checkpoints of
	// long-ish operations (load, save, sort). total is 0 if not known.
	Progress func(op string, done int, total int)

	// OnChange, if set, is called after a successful add, update or delete
	OnChange func(op string, r *Record)

	// OnMalformed, if set, is called for every line skipped by Load.
	// If not set, the line is reported with log.Logf.
	OnMalformed func(err error, line string)

	arena []*Record // nil for free slots
	free  []int
	order []int       // slots in display order
	byID  map[int]int // id => slot
}

// New creates an empty store that derives grades with t
func New(t *grade.Table) *Store {
	return &Store{
		Grades: t,
	}
}

func (s *Store) progress(op string, done, total int) {
	if s.Progress != nil {
		s.Progress(op, done, total)
	}
}

func (s *Store) changed(op string, r *Record) {
	if s.OnChange != nil {
		s.OnChange(op, r)
	}
}

func (s *Store) insert(r *Record) {
	if s.byID == nil {
		s.byID = map[int]int{}
	}
	var slot int
	if n := len(s.free); n > 0 {
		slot = s.free[n-1]
		s.free = s.free[:n-1]
		s.arena[slot] = r
	} else {
		slot = len(s.arena)
		s.arena = append(s.arena, r)
	}
	s.order = append(s.order, slot)
	s.byID[r.id] = slot
}

// removeAt removes the record at position pos in display order
func (s *Store) removeAt(pos int) *Record {
	slot := s.order[pos]
	r := s.arena[slot]
	s.order = slices.Delete(s.order, pos, pos+1)
	delete(s.byID, r.id)
	s.arena[slot] = nil
	s.free = append(s.free, slot)
	return r
}

// Add adds r. Returns ErrDuplicateKey if a record with the same id exists
// and ErrInvalidRecord if r has an empty name or a score outside [0, 100].
// Name, email and course are stored trimmed of surrounding spaces.
// On error neither the store nor r is modified.
func (s *Store) Add(r *Record) error {
	f := r.Fields().trimmed()
	if err := validateFields(r.id, f); err != nil {
		return err
	}
	if _, ok := s.byID[r.id]; ok {
		return &Error{Kind: KindDuplicateKey, ID: r.id}
	}
	r.apply(f)
	r.setTable(s.Grades)
	s.insert(r)
	s.changed("add", r)
	return nil
}

// FindByKey returns the record with a given id
func (s *Store) FindByKey(id int) (*Record, error) {
	slot, ok := s.byID[id]
	if !ok {
		return nil, errNotFoundID(id)
	}
	return s.arena[slot], nil
}

func (s *Store) posByName(name string) int {
	for pos, slot := range s.order {
		if strings.EqualFold(s.arena[slot].Name, name) {
			return pos
		}
	}
	return -1
}

// FindByName returns the first record, in display order, whose name
// matches name case-insensitively
func (s *Store) FindByName(name string) (*Record, error) {
	pos := s.posByName(name)
	if pos < 0 {
		return nil, errNotFoundName(name)
	}
	return s.arena[s.order[pos]], nil
}

// Update overwrites name, email, course and score of the record with a given
// id in place and recomputes its grade. Like Add, it trims text fields.
func (s *Store) Update(id int, f Fields) error {
	slot, ok := s.byID[id]
	if !ok {
		return errNotFoundID(id)
	}
	f = f.trimmed()
	if err := validateFields(id, f); err != nil {
		return err
	}
	r := s.arena[slot]
	r.apply(f)
	s.changed("update", r)
	return nil
}

// Criterion selects a record to delete: by id if ByID is true, by name otherwise
type Criterion struct {
	ByID bool
	ID   int
	Name string
}

// Key creates a Criterion matching on id
func Key(id int) Criterion {
	return Criterion{ByID: true, ID: id}
}

// Name creates a Criterion matching on name (case-insensitive)
func Name(name string) Criterion {
	return Criterion{Name: name}
}

// Delete removes the first record matching c from the store
func (s *Store) Delete(c Criterion) (*Record, error) {
	var pos int
	if c.ByID {
		if _, ok := s.byID[c.ID]; !ok {
			return nil, errNotFoundID(c.ID)
		}
		pos = slices.Index(s.order, s.byID[c.ID])
	} else {
		pos = s.posByName(c.Name)
		if pos < 0 {
			return nil, errNotFoundName(c.Name)
		}
	}
	r := s.removeAt(pos)
	s.changed("delete", r)
	return r, nil
}

func (s *Store) DeleteByKey(id int) (*Record, error) {
	return s.Delete(Key(id))
}

func (s *Store) DeleteByName(name string) (*Record, error) {
	return s.Delete(Name(name))
}

// SortByScore reorders records by score. Records with equal scores keep
// their relative order.
func (s *Store) SortByScore(descending bool) {
	n := len(s.order)
	s.progress("sort", 0, n)
	slices.SortStableFunc(s.order, func(a, b int) int {
		c := cmp.Compare(s.arena[a].score, s.arena[b].score)
		if descending {
			return -c
		}
		return c
	})
	s.progress("sort", n, n)
}

// Count returns number of records
func (s *Store) Count() int {
	return len(s.order)
}

// Records returns records in display order.
// The slice is a copy, the records are not.
func (s *Store) Records() []*Record {
	res := make([]*Record, 0, len(s.order))
	for _, slot := range s.order {
		res = append(res, s.arena[slot])
	}
	return res
}

// All iterates records in display order
func (s *Store) All() iter.Seq[*Record] {
	return func(yield func(*Record) bool) {
		for _, slot := range s.order {
			if !yield(s.arena[slot]) {
				return
			}
		}
	}
}

// Clear removes all records
func (s *Store) Clear() {
	s.arena = nil
	s.free = nil
	s.order = nil
	s.byID = nil
}

// SetGrades changes the grade table and recomputes grades of all records
func (s *Store) SetGrades(t *grade.Table) {
	s.Grades = t
	for _, slot := range s.order {
		s.arena[slot].setTable(t)
	}
}
