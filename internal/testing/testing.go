// package testing contains shared testing utilities
package testing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
	"go.uber.org/zap"
)

// NopLogger discards everything.
func NopLogger() *logger.ZapLogger {
	return logger.NewZapLogger(zap.NewNop().Sugar())
}

// MemTranscriptionRepo is an in-memory [ports.TranscriptionRepository].
type MemTranscriptionRepo struct {
	mu     sync.Mutex
	seq    int
	items  map[string]models.Transcription
	Writes int // successful SaveOptimizations calls

	SaveErr   error // returned by SaveOptimizations when set
	InsertErr error
	// BeforeSave runs inside SaveOptimizations before the lookup.
	BeforeSave func(id string)
}

func NewMemTranscriptionRepo() *MemTranscriptionRepo {
	return &MemTranscriptionRepo{items: make(map[string]models.Transcription)}
}

// Seed stores t with a fresh id and returns the id.
func (r *MemTranscriptionRepo) Seed(t models.Transcription) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	t.ID = fmt.Sprintf("%024x", r.seq)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC().Add(time.Duration(r.seq) * time.Millisecond)
	}
	r.items[t.ID] = t
	return t.ID
}

func (r *MemTranscriptionRepo) Get(id string) (models.Transcription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	return t, ok
}

func (r *MemTranscriptionRepo) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

func (r *MemTranscriptionRepo) Insert(ctx context.Context, t *models.Transcription) (*models.Transcription, error) {
	if r.InsertErr != nil {
		return nil, r.InsertErr
	}
	t.ID = r.Seed(*t)
	return t, nil
}

func (r *MemTranscriptionRepo) GetByID(ctx context.Context, id string) (*models.Transcription, error) {
	t, ok := r.Get(id)
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &t, nil
}

func (r *MemTranscriptionRepo) List(ctx context.Context) ([]models.Transcription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Transcription, 0, len(r.items))
	for _, t := range r.items {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemTranscriptionRepo) SaveOptimizations(ctx context.Context, upd models.OptimizationUpdate) error {
	if r.BeforeSave != nil {
		r.BeforeSave(upd.ID)
	}
	if r.SaveErr != nil {
		return r.SaveErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[upd.ID]
	if !ok {
		return ports.ErrNotFound
	}
	t.Optimizations = upd.Optimizations
	t.Details = upd.Details
	if upd.OptimizedText != "" {
		t.OptimizedText = upd.OptimizedText
	}
	t.Status = models.StatusOptimized
	t.UpdatedAt = upd.UpdatedAt
	r.items[upd.ID] = t
	r.Writes++
	return nil
}

func (r *MemTranscriptionRepo) SetStatus(ctx context.Context, id string, status models.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return ports.ErrNotFound
	}
	t.Status = status
	r.items[id] = t
	return nil
}

func (r *MemTranscriptionRepo) ApplyEdit(ctx context.Context, edit models.TranscriptionEdit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[edit.ID]
	if !ok || (edit.UserID != "" && t.UserID != edit.UserID) {
		return ports.ErrNotFound
	}
	if edit.OptimizedText != "" {
		t.OptimizedText = edit.OptimizedText
	}
	if len(edit.Optimizations) > 0 {
		merged := make(map[models.Platform]string, len(t.Optimizations)+len(edit.Optimizations))
		for k, v := range t.Optimizations {
			merged[k] = v
		}
		for k, v := range edit.Optimizations {
			merged[k] = v
		}
		t.Optimizations = merged
	}
	at := edit.EditedAt
	t.EditedAt = &at
	t.UpdatedAt = at
	t.Status = models.StatusEdited
	r.items[edit.ID] = t
	return nil
}

func (r *MemTranscriptionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// MemUserRepo is an in-memory [ports.UserRepository].
type MemUserRepo struct {
	mu    sync.Mutex
	users map[string]models.User
	order []string
}

func NewMemUserRepo() *MemUserRepo {
	return &MemUserRepo{users: make(map[string]models.User)}
}

func (r *MemUserRepo) Get(userID string) (models.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	return u, ok
}

func (r *MemUserRepo) CreateIfAbsent(ctx context.Context, u *models.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.UserID]; ok {
		return false, nil
	}
	r.users[u.UserID] = *u
	r.order = append(r.order, u.UserID)
	return true, nil
}

func (r *MemUserRepo) List(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.users[id])
	}
	return out, nil
}

func (r *MemUserRepo) SetPremium(ctx context.Context, userID string, premium bool, tokens int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return ports.ErrNotFound
	}
	u.IsPremium = premium
	u.Tokens = tokens
	r.users[userID] = u
	return nil
}

// FakeSTT returns Text or Err and counts calls.
type FakeSTT struct {
	mu    sync.Mutex
	Text  string
	Err   error
	Calls int
	Last  models.AudioInput
}

func (f *FakeSTT) Transcribe(ctx context.Context, audio models.AudioInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	f.Last = audio
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}

// FakeRewriter delegates to the configured funcs; unset funcs echo the input.
type FakeRewriter struct {
	RewriteFunc    func(ctx context.Context, system, user string) (string, error)
	StructuredFunc func(ctx context.Context, system, user string) (*models.StructuredPost, error)

	mu    sync.Mutex
	calls int
}

func (f *FakeRewriter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeRewriter) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *FakeRewriter) Rewrite(ctx context.Context, system, user string) (string, error) {
	f.count()
	if f.RewriteFunc != nil {
		return f.RewriteFunc(ctx, system, user)
	}
	return "rewritten: " + user, nil
}

func (f *FakeRewriter) RewriteStructured(ctx context.Context, system, user string) (*models.StructuredPost, error) {
	f.count()
	if f.StructuredFunc != nil {
		return f.StructuredFunc(ctx, system, user)
	}
	return &models.StructuredPost{OptimizedContent: "structured: " + user, Hashtags: []string{}}, nil
}
