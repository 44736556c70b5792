package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bank-support-be/internal/dto"
	"bank-support-be/internal/entity"
	"bank-support-be/internal/repository/contract"
	"bank-support-be/pkg/events"
	"bank-support-be/pkg/kb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kbFixture struct {
	svc      IKBService
	store    *kb.Store
	bus      *LocalEventBus
	recorded *recordedEvents
}

func newKBFixture(t *testing.T, repo contract.KBEntryRepository, jobs IPublisherService) *kbFixture {
	t.Helper()
	store, err := kb.NewStore(nil)
	require.NoError(t, err)
	bus := NewLocalEventBus(nil)
	rec := &recordedEvents{}
	bus.Subscribe(rec.handle)

	var svc IKBService
	if repo == nil {
		svc = NewKBService(store, nil, nil, jobs, bus, nil)
	} else {
		svc = NewKBService(store, repo, nil, jobs, bus, nil)
	}
	return &kbFixture{svc: svc, store: store, bus: bus, recorded: rec}
}

func writeKBFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const twoEntryKB = `[
  {"id": "wire-fees", "product": "Transfers", "patterns": ["wire.*fee"], "answer": "Wires cost $25."},
  {"id": "hours", "product": "Branches", "patterns": ["literal:opening hours"], "answer": "9 to 5."}
]`

var loanRequest = dto.KBEntryRequest{
	Id:       "auto-loan",
	Product:  "Loans",
	Patterns: []string{`auto.*loan`, "tokens:car loan"},
	Answer:   "Auto loans start at 6.9% APR.",
}

func TestKBInitFromSeedList(t *testing.T) {
	f := newKBFixture(t, nil, nil)
	require.NoError(t, f.svc.Init(context.Background(), ""))

	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(kb.DefaultSources()), list.Count)
	assert.Equal(t, "checking-fees", list.Entries[0].Id)
}

func TestKBInitFromFile(t *testing.T) {
	f := newKBFixture(t, nil, nil)
	require.NoError(t, f.svc.Init(context.Background(), writeKBFile(t, twoEntryKB)))

	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)

	_, err = f.svc.Get(context.Background(), "checking-fees")
	assert.ErrorIs(t, err, kb.ErrNotFound)
}

func TestKBInitSeedsEmptyTable(t *testing.T) {
	repo := newFakeKBRepo()
	jobs := &fakeJobs{}
	f := newKBFixture(t, repo, jobs)
	require.NoError(t, f.svc.Init(context.Background(), ""))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(len(kb.DefaultSources())), n)
	assert.Equal(t, 1, repo.replace)
	assert.Len(t, jobs.enqueued(), len(kb.DefaultSources()))
	assert.Equal(t, len(kb.DefaultSources()), f.store.Snapshot().Len())
}

func TestKBInitBackfillsOnlyMissingEmbeddings(t *testing.T) {
	repo := newFakeKBRepo(
		&entity.KBEntry{Id: "a", Category: "A", Answer: "a", Position: 0, Embedding: []float32{1}},
		&entity.KBEntry{Id: "b", Category: "B", Answer: "b", Position: 1},
	)
	jobs := &fakeJobs{}
	f := newKBFixture(t, repo, jobs)
	require.NoError(t, f.svc.Init(context.Background(), ""))

	assert.Equal(t, []string{"b"}, jobs.enqueued())
	assert.Zero(t, repo.replace)

	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Entries, 2)
	assert.Equal(t, "a", list.Entries[0].Id)
}

func TestKBCreateUpdateDelete(t *testing.T) {
	f := newKBFixture(t, nil, nil)
	require.NoError(t, f.svc.Init(context.Background(), ""))
	ctx := context.Background()
	before := f.store.Snapshot().Version()

	created, err := f.svc.Create(ctx, &loanRequest)
	require.NoError(t, err)
	assert.Equal(t, loanRequest.Patterns, created.Patterns)
	assert.Greater(t, f.store.Snapshot().Version(), before)

	_, err = f.svc.Create(ctx, &loanRequest)
	assert.ErrorIs(t, err, kb.ErrDuplicateID)

	found, err := f.svc.Search(ctx, "6.9%")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "auto-loan", found[0].Id)

	update := loanRequest
	update.Answer = "Auto loans start at 5.9% APR."
	updated, err := f.svc.Update(ctx, "auto-loan", &update)
	require.NoError(t, err)
	assert.Equal(t, update.Answer, updated.Answer)

	_, err = f.svc.Update(ctx, "missing", &update)
	assert.ErrorIs(t, err, kb.ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, "auto-loan"))
	assert.ErrorIs(t, f.svc.Delete(ctx, "auto-loan"), kb.ErrNotFound)

	f.bus.Wait()
	changes := f.recorded.ofType(events.KBChanged)
	require.Len(t, changes, 3)
	assert.Equal(t, "create", events.String(changes[0], "op"))
	assert.Equal(t, "update", events.String(changes[1], "op"))
	assert.Equal(t, "delete", events.String(changes[2], "op"))
	assert.Equal(t, "auto-loan", events.String(changes[2], "id"))
}

func TestKBCreateRejectsMalformedPattern(t *testing.T) {
	f := newKBFixture(t, nil, nil)
	require.NoError(t, f.svc.Init(context.Background(), ""))
	before := f.store.Snapshot().Version()

	bad := loanRequest
	bad.Patterns = []string{"(unclosed"}
	_, err := f.svc.Create(context.Background(), &bad)
	assert.ErrorIs(t, err, kb.ErrMalformedSource)
	assert.Equal(t, before, f.store.Snapshot().Version())
}

func TestKBMutationsWriteThroughRepository(t *testing.T) {
	repo := newFakeKBRepo()
	jobs := &fakeJobs{}
	f := newKBFixture(t, repo, jobs)
	require.NoError(t, f.svc.Init(context.Background(), ""))
	ctx := context.Background()
	seeded := len(jobs.enqueued())

	_, err := f.svc.Create(ctx, &loanRequest)
	require.NoError(t, err)
	row := repo.row("auto-loan")
	require.NotNil(t, row)
	assert.Equal(t, len(kb.DefaultSources()), row.Position)

	update := loanRequest
	update.Product = "Auto"
	_, err = f.svc.Update(ctx, "auto-loan", &update)
	require.NoError(t, err)
	assert.Equal(t, "Auto", repo.row("auto-loan").Category)

	require.NoError(t, f.svc.Delete(ctx, "auto-loan"))
	assert.Nil(t, repo.row("auto-loan"))

	assert.Equal(t, []string{"auto-loan", "auto-loan"}, jobs.enqueued()[seeded:])
}

func TestKBMutationsWithoutRepositorySkipJobs(t *testing.T) {
	jobs := &fakeJobs{}
	f := newKBFixture(t, nil, jobs)
	require.NoError(t, f.svc.Init(context.Background(), ""))

	_, err := f.svc.Create(context.Background(), &loanRequest)
	require.NoError(t, err)
	assert.Empty(t, jobs.enqueued())
}

func TestKBReload(t *testing.T) {
	repo := newFakeKBRepo()
	f := newKBFixture(t, repo, nil)
	require.NoError(t, f.svc.Init(context.Background(), ""))
	ctx := context.Background()

	res, err := f.svc.Reload(ctx, writeKBFile(t, twoEntryKB))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, f.store.Snapshot().Version(), res.Version)
	assert.NotNil(t, repo.row("wire-fees"))

	_, err = f.svc.Reload(ctx, writeKBFile(t, `[{"id": "x", "product": "X", "patterns": ["("], "answer": "x"}]`))
	assert.ErrorIs(t, err, kb.ErrMalformedSource)
	assert.Equal(t, res.Version, f.store.Snapshot().Version())
	assert.NotNil(t, repo.row("wire-fees"))

	_, err = f.svc.Reload(ctx, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	assert.Equal(t, 2, f.store.Snapshot().Len())

	f.bus.Wait()
	reloads := f.recorded.ofType(events.KBChanged)
	require.Len(t, reloads, 1)
	assert.Equal(t, "reload", events.String(reloads[0], "op"))
}

func TestKBSimilarRequiresDatabaseAndEmbedder(t *testing.T) {
	f := newKBFixture(t, nil, nil)
	_, err := f.svc.Similar(context.Background(), "fees", 3)
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestKBSimilarCachesQueryEmbeddings(t *testing.T) {
	repo := newFakeKBRepo()
	repo.similar = []*contract.ScoredKBEntry{{
		Entry:      &entity.KBEntry{Id: "checking-fees", Category: "Checking", Answer: "..."},
		Similarity: 0.82,
	}}
	embedder := &fakeEmbedder{dims: 4}
	store, err := kb.NewStore(nil)
	require.NoError(t, err)
	svc := NewKBService(store, repo, embedder, nil, nil, nil)

	got, err := svc.Similar(context.Background(), "Checking fees?", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "checking-fees", got[0].Id)
	assert.InDelta(t, 0.82, got[0].Similarity, 1e-9)

	_, err = svc.Similar(context.Background(), "checking   FEES", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.callCount())

	empty, err := svc.Similar(context.Background(), "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
