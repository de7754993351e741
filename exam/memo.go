package exam

import (
	"sync"

	"examview-server/models"
)

// MemoKey identifies one revision of an exam.
type MemoKey struct {
	ExamID   int64
	Checksum string
}

// Memo caches layouts per exam revision. Layouts are read-only once built, so
// they can be shared between requests.
type Memo struct {
	mu      sync.Mutex
	max     int
	layouts map[MemoKey]Layout
}

// NewMemo returns a memo holding at most max layouts; when full it starts over.
func NewMemo(max int) *Memo {
	if max <= 0 {
		max = 64
	}
	return &Memo{max: max, layouts: make(map[MemoKey]Layout)}
}

// Layout returns the cached layout for key, building it from data on a miss.
func (m *Memo) Layout(key MemoKey, data *models.ExamData) Layout {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.layouts[key]; ok {
		return l
	}
	if len(m.layouts) >= m.max {
		m.layouts = make(map[MemoKey]Layout)
	}
	l := NewLayout(data)
	m.layouts[key] = l
	return l
}

// Forget drops every cached revision of an exam.
func (m *Memo) Forget(examID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.layouts {
		if k.ExamID == examID {
			delete(m.layouts, k)
		}
	}
}

// Len reports the number of cached layouts.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.layouts)
}
