package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"bank-support-be/internal/dto"
	"bank-support-be/internal/entity"
	"bank-support-be/internal/repository/contract"
	"bank-support-be/internal/repository/specification"

	"gorm.io/gorm"
)

// fakeKBRepo is an in-memory KBEntryRepository. It understands ByID and
// MissingEmbedding; other specifications are ignored.
type fakeKBRepo struct {
	mu      sync.Mutex
	rows    map[string]*entity.KBEntry
	replace int
	similar []*contract.ScoredKBEntry
}

func newFakeKBRepo(rows ...*entity.KBEntry) *fakeKBRepo {
	r := &fakeKBRepo{rows: map[string]*entity.KBEntry{}}
	for _, row := range rows {
		r.rows[row.Id] = row
	}
	return r
}

func (r *fakeKBRepo) Create(_ context.Context, e *entity.KBEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[e.Id]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.rows[e.Id] = e
	return nil
}

func (r *fakeKBRepo) Update(_ context.Context, e *entity.KBEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.rows[e.Id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Position = old.Position
	r.rows[e.Id] = e
	return nil
}

func (r *fakeKBRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeKBRepo) ReplaceAll(_ context.Context, entries []*entity.KBEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replace++
	r.rows = map[string]*entity.KBEntry{}
	for _, e := range entries {
		r.rows[e.Id] = e
	}
	return nil
}

func (r *fakeKBRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KBEntry, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakeKBRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.KBEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.KBEntry
	for _, row := range r.rows {
		if matchesSpecs(row, specs) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func matchesSpecs(row *entity.KBEntry, specs []specification.Specification) bool {
	for _, s := range specs {
		switch s := s.(type) {
		case specification.ByID:
			if s.ID != row.Id {
				return false
			}
		case specification.MissingEmbedding:
			if row.Embedding != nil {
				return false
			}
		case specification.HasEmbedding:
			if row.Embedding == nil {
				return false
			}
		}
	}
	return true
}

func (r *fakeKBRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func (r *fakeKBRepo) NextPosition(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := 0
	for _, row := range r.rows {
		if row.Position >= next {
			next = row.Position + 1
		}
	}
	return next, nil
}

func (r *fakeKBRepo) UpdateEmbedding(_ context.Context, id string, vec []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.Embedding = vec
	return nil
}

func (r *fakeKBRepo) SearchSimilarWithScore(context.Context, []float32, int, float64) ([]*contract.ScoredKBEntry, error) {
	return r.similar, nil
}

func (r *fakeKBRepo) row(id string) *entity.KBEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

// fakeJobs records enqueued embedding jobs.
type fakeJobs struct {
	mu  sync.Mutex
	ids []string
}

func (j *fakeJobs) Publish(_ context.Context, payload []byte) error {
	var msg dto.PublishEmbedKBEntryMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	j.mu.Lock()
	j.ids = append(j.ids, msg.EntryId)
	j.mu.Unlock()
	return nil
}

func (j *fakeJobs) enqueued() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.ids...)
}

// fakeEmbedder returns a fixed-size vector and counts calls.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	dims  int
	err   error
}

func (e *fakeEmbedder) Name() string { return "fake" }

func (e *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return make([]float32, e.dims), nil
}

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (r *fakeKBRepo) embeddingLen(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		return len(row.Embedding)
	}
	return -1
}
