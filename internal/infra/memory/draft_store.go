package memory

import (
	"sync"

	"culturax-service/internal/app"
	"culturax-service/internal/domain"
)

// DraftStore keeps admin drafts in process. Drafts are console state and are
// lost on restart.
type DraftStore struct {
	mu     sync.Mutex
	drafts map[string]app.AdminDraft
}

func NewDraftStore() *DraftStore {
	return &DraftStore{drafts: make(map[string]app.AdminDraft)}
}

func (s *DraftStore) Load(adminID string) app.AdminDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(adminID)
}

func (s *DraftStore) Update(adminID string, fn func(*app.AdminDraft) error) (app.AdminDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft := s.loadLocked(adminID)
	if err := fn(&draft); err != nil {
		return s.loadLocked(adminID), err
	}
	s.drafts[adminID] = cloneDraft(draft)
	return draft, nil
}

func (s *DraftStore) loadLocked(adminID string) app.AdminDraft {
	draft, ok := s.drafts[adminID]
	if !ok {
		return app.NewAdminDraft()
	}
	return cloneDraft(draft)
}

func cloneDraft(d app.AdminDraft) app.AdminDraft {
	questions := make([]domain.ParsedQuestion, len(d.Questions))
	copy(questions, d.Questions)
	d.Questions = questions
	return d
}
