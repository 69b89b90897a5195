package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CollectionStore is the durable persistence collaborator. The entire loop
// collection is written on every change; the newest save wins. Load reports
// ok=false when nothing usable is stored (absent or unparseable).
type CollectionStore interface {
	Load() (loops []Loop, ok bool, err error)
	Save(loops []Loop) error
}

var (
	// ErrLoopNotFound is returned when an operation references a missing loop.
	ErrLoopNotFound = errors.New("loop not found")
	// ErrDuplicateEmail flags adding a member whose email already belongs to the loop.
	ErrDuplicateEmail = errors.New("a member with this email already exists")
)

// LoopService is the single write path to the loop collection. Every mutation
// reads the current loop, produces a full modified copy, and replaces it
// wholesale; readers only ever receive deep-copied snapshots.
type LoopService struct {
	store       CollectionStore
	logger      *zap.Logger
	idGenerator func() string

	mu    sync.Mutex
	loops []Loop
}

// NewLoopService loads the persisted collection, falling back to the built-in
// default collection when storage is empty or corrupted.
func NewLoopService(store CollectionStore, logger *zap.Logger) *LoopService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &LoopService{
		store:       store,
		logger:      logger,
		idGenerator: shortID,
	}
	loops, ok, err := store.Load()
	if err != nil || !ok {
		if err != nil {
			logger.Warn("stored collection unusable, seeding defaults", zap.Error(err))
		}
		loops = DefaultLoops()
	}
	for i := range loops {
		migrateLoop(&loops[i])
	}
	s.loops = loops
	return s
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// migrateLoop fills defaults for loops persisted before a field existed.
// Applied on load and again on save, since stored data may predate either.
func migrateLoop(l *Loop) {
	if !l.CollationMode.Valid() {
		l.CollationMode = CollationVerbatim
	}
	if l.Members == nil {
		l.Members = []Member{}
	}
	if l.Questions == nil {
		l.Questions = []Question{}
	}
	if l.Responses == nil {
		l.Responses = []Response{}
	}
	if l.Editions == nil {
		l.Editions = []Edition{}
	}
}

// persist mirrors the full collection to durable storage. Failures are
// logged, not surfaced: the in-memory collection stays authoritative and the
// next successful save supersedes everything before it.
func (s *LoopService) persist() {
	snapshot := make([]Loop, len(s.loops))
	for i, l := range s.loops {
		migrateLoop(&l)
		snapshot[i] = l.Clone()
	}
	if err := s.store.Save(snapshot); err != nil {
		s.logger.Error("persist loop collection", zap.Error(err))
	}
}

func (s *LoopService) indexOf(id string) int {
	for i := range s.loops {
		if s.loops[i].ID == id {
			return i
		}
	}
	return -1
}

// List returns a snapshot of every loop.
func (s *LoopService) List() []Loop {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Loop, len(s.loops))
	for i, l := range s.loops {
		out[i] = l.Clone()
	}
	return out
}

// Get returns a snapshot of one loop.
func (s *LoopService) Get(id string) (*Loop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrLoopNotFound
	}
	l := s.loops[i].Clone()
	return &l, nil
}

// SaveLoop is the editor write path: it validates the loop, then replaces the
// stored loop with the same id wholesale, or appends when the id is new.
// Field-level merging is deliberately absent; the last editor write wins.
func (s *LoopService) SaveLoop(loop Loop) (*Loop, error) {
	if strings.TrimSpace(loop.Name) == "" {
		return nil, NewInvalidError("name required")
	}
	if len(loop.Members) == 0 {
		return nil, NewInvalidError("a loop needs at least one member")
	}
	if loop.Frequency == "" {
		loop.Frequency = FrequencyMonthly
	}
	if !loop.Frequency.Valid() {
		return nil, NewInvalidError(fmt.Sprintf("unknown frequency %q", loop.Frequency))
	}
	if loop.ID == "" {
		loop.ID = s.idGenerator()
	}
	migrateLoop(&loop)

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(loop.ID); i >= 0 {
		s.loops[i] = loop.Clone()
	} else {
		s.loops = append(s.loops, loop.Clone())
	}
	s.persist()
	saved := loop.Clone()
	return &saved, nil
}

// ReplaceLoop replaces an existing loop without editor validation. It is the
// internal commit path for the collation engine and the edition lifecycle,
// which write back full modified copies of a loop they read moments ago.
func (s *LoopService) ReplaceLoop(loop Loop) error {
	migrateLoop(&loop)
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(loop.ID)
	if i < 0 {
		return ErrLoopNotFound
	}
	s.loops[i] = loop.Clone()
	s.persist()
	return nil
}

// AppendResponses appends submitted responses to a loop's working set,
// leaving everything else untouched. Submitters only ever append, so this
// must not go through the editor-style wholesale replace.
func (s *LoopService) AppendResponses(loopID string, responses []Response) error {
	if len(responses) == 0 {
		return NewInvalidError("no responses to append")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(loopID)
	if i < 0 {
		return ErrLoopNotFound
	}
	s.loops[i].Responses = append(s.loops[i].Responses, responses...)
	s.persist()
	return nil
}

// AddMember adds a member to a loop, rejecting duplicate emails
// case-insensitively. A member added without an avatar gets a generated one.
func (s *LoopService) AddMember(loopID, name, email, avatar string) (*Member, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, NewInvalidError("name and email required")
	}
	if avatar == "" {
		avatar = "https://i.pravatar.cc/150?u=" + email
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(loopID)
	if i < 0 {
		return nil, ErrLoopNotFound
	}
	for _, m := range s.loops[i].Members {
		if strings.EqualFold(m.Email, email) {
			return nil, ErrDuplicateEmail
		}
	}
	member := Member{ID: s.idGenerator(), Name: name, Email: email, Avatar: avatar}
	s.loops[i].Members = append(s.loops[i].Members, member)
	s.persist()
	return &member, nil
}

// RemoveMember removes a member. Responses referencing the member stay in the
// working set; aggregation tolerates the dangling reference.
func (s *LoopService) RemoveMember(loopID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(loopID)
	if i < 0 {
		return ErrLoopNotFound
	}
	members := s.loops[i].Members
	for j, m := range members {
		if m.ID == memberID {
			s.loops[i].Members = append(members[:j:j], members[j+1:]...)
			s.persist()
			return nil
		}
	}
	return NewNotFoundError("member not found")
}

// AddQuestions appends questions (manual entry or AI suggestions) in order.
func (s *LoopService) AddQuestions(loopID string, texts []string) ([]Question, error) {
	added := make([]Question, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		added = append(added, Question{ID: s.idGenerator(), Text: strings.TrimSpace(t)})
	}
	if len(added) == 0 {
		return nil, NewInvalidError("question text required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(loopID)
	if i < 0 {
		return nil, ErrLoopNotFound
	}
	s.loops[i].Questions = append(s.loops[i].Questions, added...)
	s.persist()
	return added, nil
}

// RemoveQuestion removes a question; existing responses to it become dangling
// and drop out of grouped output.
func (s *LoopService) RemoveQuestion(loopID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(loopID)
	if i < 0 {
		return ErrLoopNotFound
	}
	questions := s.loops[i].Questions
	for j, q := range questions {
		if q.ID == questionID {
			s.loops[i].Questions = append(questions[:j:j], questions[j+1:]...)
			s.persist()
			return nil
		}
	}
	return NewNotFoundError("question not found")
}

// DeleteLoop removes a loop and its archived editions irrevocably.
func (s *LoopService) DeleteLoop(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ErrLoopNotFound
	}
	s.loops = append(s.loops[:i:i], s.loops[i+1:]...)
	s.persist()
	return nil
}

// SeedDemo restores the built-in demo loop when it is missing and returns it.
func (s *LoopService) SeedDemo() Loop {
	demo := DefaultLoops()[0]
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(demo.ID); i >= 0 {
		return s.loops[i].Clone()
	}
	s.loops = append(s.loops, demo)
	s.persist()
	return demo.Clone()
}
