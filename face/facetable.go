package face

import "sync"

// FaceTable is the registry of all live Faces, keyed by faceId (spec §3/§4.8).
type FaceTable struct {
	mu     sync.Mutex
	faces  map[uint64]*Face
	nextID uint64
}

// NewFaceTable constructs an empty FaceTable.
func NewFaceTable() *FaceTable {
	return &FaceTable{faces: make(map[uint64]*Face)}
}

// Add assigns the next faceId to transport and registers a new Face for it,
// wiring ls as its LinkService.
func (t *FaceTable) Add(transport Transport, persistency Persistency, scope Scope, ls *LinkService) *Face {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	f := NewFace(t.nextID, transport, persistency, scope, ls)
	t.faces[f.id] = f
	return f
}

// Get returns the Face registered under id, or nil.
func (t *FaceTable) Get(id uint64) *Face {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.faces[id]
}

// Remove closes and unregisters the Face with id, if present.
func (t *FaceTable) Remove(id uint64) {
	t.mu.Lock()
	f, ok := t.faces[id]
	if ok {
		delete(t.faces, id)
	}
	t.mu.Unlock()
	if ok {
		f.Close()
	}
}

// All returns every currently registered Face.
func (t *FaceTable) All() []*Face {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Face, 0, len(t.faces))
	for _, f := range t.faces {
		out = append(out, f)
	}
	return out
}
