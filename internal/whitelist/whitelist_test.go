package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"token-launchpad/internal/domain"
)

func TestAddRemove(t *testing.T) {
	l := &domain.Launch{WhitelistEnabled: true}

	a, b := domain.Identity{1}, domain.Identity{2}

	assert.Equal(t, 2, Add(l, []domain.Identity{b, a, a}))
	assert.Equal(t, 0, Add(l, []domain.Identity{a}), "re-adding is a no-op")
	assert.Equal(t, []domain.Identity{a, b}, Members(l))

	assert.Equal(t, 1, Remove(l, []domain.Identity{b, {9}}))
	assert.True(t, Contains(l, a))
	assert.False(t, Contains(l, b))
}

func TestCanParticipate(t *testing.T) {
	member, outsider := domain.Identity{1}, domain.Identity{2}

	open := &domain.Launch{}
	assert.True(t, CanParticipate(open, outsider), "disabled whitelist admits everyone")

	gated := &domain.Launch{WhitelistEnabled: true}
	Add(gated, []domain.Identity{member})
	assert.True(t, CanParticipate(gated, member))
	assert.False(t, CanParticipate(gated, outsider))
}
