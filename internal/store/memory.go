package store

import (
	"context"
	"sync"

	"pqx/internal/model"
)

// Memory is an in-process ColumnarStore keyed by path. Tables are copied on the way
// in and out, so callers never share storage with it.
type Memory struct {
	mu     sync.Mutex
	tables map[string]*model.Table
	errs   map[string]error
	reads  int
}

func NewMemory() *Memory {
	return &Memory{tables: map[string]*model.Table{}, errs: map[string]error{}}
}

// Put stores a copy of t under path.
func (m *Memory) Put(path string, t *model.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[path] = t.Clone()
}

// Get returns a copy of the table at path.
func (m *Memory) Get(path string) (*model.Table, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[path]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// SetError makes every operation on path fail with err until cleared with nil.
func (m *Memory) SetError(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, path)
		return
	}
	m.errs[path] = err
}

// Reads counts slice/full reads served so far.
func (m *Memory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *Memory) lookup(op, path string) (*model.Table, error) {
	if err := m.errs[path]; err != nil {
		return nil, ioError(op, path, err)
	}
	t, ok := m.tables[path]
	if !ok {
		return nil, ioError(op, path, ErrNotFound)
	}
	return t, nil
}

func (m *Memory) RowCount(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.lookup("row count", path)
	if err != nil {
		return 0, err
	}
	return t.NumRows(), nil
}

func (m *Memory) ReadSlice(ctx context.Context, path string, offset, limit int) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkSlice(offset, limit); err != nil {
		return nil, ioError("read slice", path, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.lookup("read slice", path)
	if err != nil {
		return nil, err
	}
	m.reads++
	end := min(offset+limit, t.NumRows())
	offset = min(offset, end)
	cols := make([]model.Column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = model.Column{Name: c.Name, Type: c.Type, Physical: c.Physical, Annotation: c.Annotation, Cells: append([]model.Cell{}, c.Cells[offset:end]...)}
	}
	return model.NewTable(cols...)
}

func (m *Memory) ReadAll(ctx context.Context, path string) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.lookup("read", path)
	if err != nil {
		return nil, err
	}
	m.reads++
	// Labels are positional on every fresh read.
	return model.NewTable(t.Clone().Columns...)
}

func (m *Memory) WriteAll(ctx context.Context, path string, t *model.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[path]; err != nil {
		return ioError("write", path, err)
	}
	m.tables[path] = t.Clone()
	return nil
}
