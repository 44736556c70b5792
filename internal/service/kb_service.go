package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bank-support-be/internal/dto"
	"bank-support-be/internal/entity"
	"bank-support-be/internal/mapper"
	"bank-support-be/internal/pkg/logger"
	"bank-support-be/internal/repository/contract"
	"bank-support-be/internal/repository/specification"
	"bank-support-be/pkg/embedding"
	"bank-support-be/pkg/events"
	"bank-support-be/pkg/kb"

	lru "github.com/hashicorp/golang-lru"
	"gorm.io/gorm"
)

const (
	DefaultSimilarLimit     = 5
	DefaultSimilarThreshold = 0.3
	queryEmbeddingCacheSize = 256
)

type IKBService interface {
	// Init builds the first live snapshot: KB file if configured, otherwise
	// the database (seeded on first run), otherwise the built-in seed list.
	Init(ctx context.Context, kbFile string) error
	List(ctx context.Context) (*dto.KBListResponse, error)
	Get(ctx context.Context, id string) (*dto.KBEntryResponse, error)
	Search(ctx context.Context, query string) ([]dto.KBEntryResponse, error)
	Similar(ctx context.Context, query string, limit int) ([]dto.SimilarKBEntry, error)
	Create(ctx context.Context, req *dto.KBEntryRequest) (*dto.KBEntryResponse, error)
	Update(ctx context.Context, id string, req *dto.KBEntryRequest) (*dto.KBEntryResponse, error)
	Delete(ctx context.Context, id string) error
	Reload(ctx context.Context, filePath string) (*dto.ReloadKBResponse, error)
}

type kbService struct {
	store      *kb.Store
	repo       contract.KBEntryRepository // nil without a database
	embeddings embedding.Provider         // nil disables similarity search
	jobs       IPublisherService          // nil disables embedding sync
	events     IEventPublisher
	mapper     *mapper.KBEntryMapper
	queryCache *lru.Cache
	logger     logger.ILogger

	// mu serializes mutations so the database and the live snapshot agree.
	mu sync.Mutex
}

func NewKBService(
	store *kb.Store,
	repo contract.KBEntryRepository,
	embeddings embedding.Provider,
	jobs IPublisherService,
	eventPublisher IEventPublisher,
	log logger.ILogger,
) IKBService {
	if eventPublisher == nil {
		eventPublisher = nopPublisher{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	cache, _ := lru.New(queryEmbeddingCacheSize)
	return &kbService{
		store:      store,
		repo:       repo,
		embeddings: embeddings,
		jobs:       jobs,
		events:     eventPublisher,
		mapper:     mapper.NewKBEntryMapper(),
		queryCache: cache,
		logger:     log,
	}
}

func (s *kbService) Init(ctx context.Context, kbFile string) error {
	if kbFile != "" {
		n, err := s.store.LoadFile(kbFile)
		if err != nil {
			return err
		}
		s.logger.Info("KB", "KB loaded from file", map[string]interface{}{"path": kbFile, "count": n})
		return nil
	}

	if s.repo == nil {
		if s.store.Snapshot().Len() == 0 {
			if err := s.store.Set(kb.DefaultEntries()); err != nil {
				return err
			}
		}
		s.logger.Info("KB", "KB loaded from seed list", map[string]interface{}{"count": s.store.Snapshot().Len()})
		return nil
	}

	rows, err := s.repo.FindAll(ctx, specification.KBOrder())
	if err != nil {
		return fmt.Errorf("load kb entries: %w", err)
	}
	if len(rows) == 0 {
		sources := kb.DefaultSources()
		rows = make([]*entity.KBEntry, len(sources))
		for i, src := range sources {
			rows[i] = s.mapper.FromSource(src, i)
		}
		if err := s.repo.ReplaceAll(ctx, rows); err != nil {
			return fmt.Errorf("seed kb entries: %w", err)
		}
		s.logger.Info("KB", "Seeded empty kb_entries table", map[string]interface{}{"count": len(rows)})
	}
	s.backfillEmbeddings(ctx)

	entries, err := kb.CompileAll(s.mapper.ToSources(rows))
	if err != nil {
		return err
	}
	if err := s.store.Set(entries); err != nil {
		return err
	}
	s.logger.Info("KB", "KB loaded from database", map[string]interface{}{"count": len(entries)})
	return nil
}

func (s *kbService) List(ctx context.Context) (*dto.KBListResponse, error) {
	snap := s.store.Snapshot()
	entries := snap.Entries()
	out := make([]dto.KBEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = toKBEntryDTO(e)
	}
	return &dto.KBListResponse{
		Version:  snap.Version(),
		LoadedAt: snap.LoadedAt(),
		Count:    len(out),
		Entries:  out,
	}, nil
}

func (s *kbService) Get(ctx context.Context, id string) (*dto.KBEntryResponse, error) {
	e, ok := s.store.Snapshot().Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", kb.ErrNotFound, id)
	}
	res := toKBEntryDTO(e)
	return &res, nil
}

func (s *kbService) Search(ctx context.Context, query string) ([]dto.KBEntryResponse, error) {
	found := s.store.Snapshot().Search(query)
	out := make([]dto.KBEntryResponse, len(found))
	for i, e := range found {
		out[i] = toKBEntryDTO(e)
	}
	return out, nil
}

func (s *kbService) Similar(ctx context.Context, query string, limit int) ([]dto.SimilarKBEntry, error) {
	if s.repo == nil || s.embeddings == nil {
		return nil, fmt.Errorf("%w: similarity search needs a database and an embedding provider", ErrFeatureDisabled)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []dto.SimilarKBEntry{}, nil
	}
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}

	vec, err := s.queryEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := s.repo.SearchSimilarWithScore(ctx, vec, limit, DefaultSimilarThreshold)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SimilarKBEntry, len(scored))
	for i, sc := range scored {
		out[i] = dto.SimilarKBEntry{
			KBEntryResponse: entityToKBEntryDTO(sc.Entry),
			Similarity:      sc.Similarity,
		}
	}
	return out, nil
}

func (s *kbService) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	key := kb.Normalize(query)
	if v, ok := s.queryCache.Get(key); ok {
		return v.([]float32), nil
	}
	vec, err := s.embeddings.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	s.queryCache.Add(key, vec)
	return vec, nil
}

func (s *kbService) Create(ctx context.Context, req *dto.KBEntryRequest) (*dto.KBEntryResponse, error) {
	src := requestToSource(req.Id, req)
	entry, err := src.Compile()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.store.Snapshot().Get(entry.ID); exists {
		return nil, fmt.Errorf("%w: %q", kb.ErrDuplicateID, entry.ID)
	}

	var row *entity.KBEntry
	if s.repo != nil {
		pos, err := s.repo.NextPosition(ctx)
		if err != nil {
			return nil, err
		}
		row = s.mapper.FromSource(src, pos)
		if err := s.repo.Create(ctx, row); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, fmt.Errorf("%w: %q", kb.ErrDuplicateID, entry.ID)
			}
			return nil, err
		}
	}
	if err := s.store.Create(entry); err != nil {
		return nil, err
	}

	s.afterMutation(ctx, "create", entry.ID, row)
	res := toKBEntryDTO(entry)
	return &res, nil
}

func (s *kbService) Update(ctx context.Context, id string, req *dto.KBEntryRequest) (*dto.KBEntryResponse, error) {
	src := requestToSource(id, req)
	entry, err := src.Compile()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.store.Snapshot().Get(id); !exists {
		return nil, fmt.Errorf("%w: %q", kb.ErrNotFound, id)
	}

	var row *entity.KBEntry
	if s.repo != nil {
		row = s.mapper.FromSource(src, 0)
		if err := s.repo.Update(ctx, row); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %q", kb.ErrNotFound, id)
			}
			return nil, err
		}
	}
	if err := s.store.Update(entry); err != nil {
		return nil, err
	}

	s.afterMutation(ctx, "update", id, row)
	res := toKBEntryDTO(entry)
	return &res, nil
}

func (s *kbService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.store.Snapshot().Get(id); !exists {
		return fmt.Errorf("%w: %q", kb.ErrNotFound, id)
	}
	if s.repo != nil {
		if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}

	s.afterMutation(ctx, "delete", id, nil)
	return nil
}

// Reload swaps the live KB for the file's contents. A malformed file leaves
// both the snapshot and the database untouched.
func (s *kbService) Reload(ctx context.Context, filePath string) (*dto.ReloadKBResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.store.LoadFile(filePath)
	if err != nil {
		s.logger.Warn("KB", "Reload rejected", map[string]interface{}{"path": filePath, "error": err.Error()})
		return nil, err
	}

	if s.repo != nil {
		entries := s.store.Snapshot().Entries()
		rows := make([]*entity.KBEntry, len(entries))
		for i, e := range entries {
			rows[i] = s.mapper.FromSource(e.Source(), i)
		}
		if err := s.repo.ReplaceAll(ctx, rows); err != nil {
			// The live KB already serves the new file; the table catches up on the next reload.
			s.logger.Error("KB", "Failed to persist reloaded KB", map[string]interface{}{"error": err.Error()})
		} else {
			s.enqueueEmbeddings(ctx, rows)
		}
	}

	version := s.store.Snapshot().Version()
	s.logger.Info("KB", "KB reloaded", map[string]interface{}{"path": filePath, "count": n, "version": version})
	s.publishChange(ctx, "reload", "", n)
	return &dto.ReloadKBResponse{Count: n, Version: version}, nil
}

func (s *kbService) afterMutation(ctx context.Context, op, id string, row *entity.KBEntry) {
	s.logger.Info("KB", "KB entry "+op, map[string]interface{}{"id": id, "version": s.store.Snapshot().Version()})
	if row != nil {
		s.enqueueEmbeddings(ctx, []*entity.KBEntry{row})
	}
	s.publishChange(ctx, op, id, s.store.Snapshot().Len())
}

// backfillEmbeddings queues rows imported without an embedding, e.g. by
// cmd/seed_kb.
func (s *kbService) backfillEmbeddings(ctx context.Context) {
	if s.jobs == nil {
		return
	}
	missing, err := s.repo.FindAll(ctx, specification.MissingEmbedding{}, specification.KBOrder())
	if err != nil {
		s.logger.Warn("KB", "Failed to list entries without embeddings", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(missing) > 0 {
		s.logger.Info("KB", "Queueing embedding backfill", map[string]interface{}{"count": len(missing)})
		s.enqueueEmbeddings(ctx, missing)
	}
}

func (s *kbService) enqueueEmbeddings(ctx context.Context, rows []*entity.KBEntry) {
	if s.jobs == nil {
		return
	}
	for _, r := range rows {
		payload, err := json.Marshal(dto.PublishEmbedKBEntryMessage{EntryId: r.Id})
		if err != nil {
			continue
		}
		if err := s.jobs.Publish(ctx, payload); err != nil {
			s.logger.Warn("KB", "Failed to enqueue embedding job", map[string]interface{}{"id": r.Id, "error": err.Error()})
		}
	}
}

func (s *kbService) publishChange(ctx context.Context, op, id string, count int) {
	evt := events.New(events.KBChanged, map[string]interface{}{
		"op":      op,
		"id":      id,
		"count":   count,
		"version": s.store.Snapshot().Version(),
	})
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn("KB", "Failed to publish KB change", map[string]interface{}{"op": op, "error": err.Error()})
	}
}

func requestToSource(id string, req *dto.KBEntryRequest) kb.Source {
	return kb.Source{
		ID:       strings.TrimSpace(id),
		Product:  strings.TrimSpace(req.Product),
		Patterns: req.Patterns,
		Answer:   req.Answer,
	}
}

func toKBEntryDTO(e kb.Entry) dto.KBEntryResponse {
	return dto.KBEntryResponse{
		Id:       e.ID,
		Product:  e.Category,
		Patterns: e.Patterns(),
		Answer:   e.Answer,
	}
}

func entityToKBEntryDTO(e *entity.KBEntry) dto.KBEntryResponse {
	updated := e.UpdatedAt
	return dto.KBEntryResponse{
		Id:        e.Id,
		Product:   e.Category,
		Patterns:  e.Patterns,
		Answer:    e.Answer,
		UpdatedAt: &updated,
	}
}
