package views

import "sync"

// Session holds the view mounted for one browser session.
// Mounting a view unmounts the previous one, discarding its state.
type Session struct {
	ID string

	mu   sync.Mutex
	key  string
	view View
}

func NewSession(id string) *Session {
	return &Session{ID: id}
}

// Mount returns the view mounted under `key`, building it with `build` if another view
// (or none) is mounted, or if `remount` is set. `fresh` reports whether the view was built,
// in which case the caller is expected to Load it.
func (s *Session) Mount(key string, remount bool, build func() (View, error)) (view View, fresh bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !remount && s.view != nil && s.key == key {
		return s.view, false, nil
	}
	view, err = build()
	if err != nil {
		return nil, false, err
	}
	s.key, s.view = key, view
	return view, true, nil
}

// Mounted returns the view mounted under `key`, if any.
func (s *Session) Mounted(key string) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil || s.key != key {
		return nil, false
	}
	return s.view, true
}

// Unmount discards the mounted view.
func (s *Session) Unmount() {
	s.mu.Lock()
	s.key, s.view = "", nil
	s.mu.Unlock()
}
