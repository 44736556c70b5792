package memory

import (
	"testing"
	"time"

	"bank-support-be/pkg/dialog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepositoryLifecycle(t *testing.T) {
	repo := NewSessionRepository(0)
	s := dialog.NewSession(dialog.DefaultPersona)

	repo.Save(s)
	got, ok := repo.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, repo.Count())

	repo.Delete(s.ID)
	_, ok = repo.Get(s.ID)
	assert.False(t, ok)
}

func TestSessionRepositoryExpiry(t *testing.T) {
	repo := NewSessionRepository(20 * time.Millisecond)
	s := dialog.NewSession(dialog.DefaultPersona)
	repo.Save(s)

	assert.Eventually(t, func() bool {
		_, ok := repo.Get(s.ID)
		return !ok
	}, time.Second, 10*time.Millisecond)
}
