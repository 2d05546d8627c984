package bot

import (
	"sync"

	"cardgen/internal/models"
)

// session tracks a user's in-progress generation flow: the mode chosen
// via /card and, for the combined mode, the photo waiting for its text.
type session struct {
	Mode        models.ContentType
	PhotoFileID string
}

// sessionStore is an in-memory per-user session map.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[int64]*session)}
}

// Get returns the user's session, or nil.
func (s *sessionStore) Get(userID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// SetMode starts a fresh session with the chosen mode.
func (s *sessionStore) SetMode(userID int64, mode models.ContentType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = &session{Mode: mode}
}

// SetPhoto stores the photo a combined-mode session is waiting to pair
// with text.
func (s *sessionStore) SetPhoto(userID int64, fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[userID]
	if sess == nil {
		sess = &session{Mode: models.ContentTypeBoth}
		s.sessions[userID] = sess
	}
	sess.PhotoFileID = fileID
}

// Clear drops the user's session.
func (s *sessionStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
