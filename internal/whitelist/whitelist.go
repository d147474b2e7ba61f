// Package whitelist manages the per-launch set of approved contributors.
// Permission and status checks belong to the caller; these helpers only
// mutate and query the set.
package whitelist

import "token-launchpad/internal/domain"

// Add inserts ids and returns how many were not already members.
func Add(l *domain.Launch, ids []domain.Identity) int {
	l.EnsureMaps()
	added := 0
	for _, id := range ids {
		if _, ok := l.Whitelist[id]; ok {
			continue
		}
		l.Whitelist[id] = struct{}{}
		added++
	}
	return added
}

// Remove deletes ids and returns how many were members.
func Remove(l *domain.Launch, ids []domain.Identity) int {
	removed := 0
	for _, id := range ids {
		if _, ok := l.Whitelist[id]; ok {
			delete(l.Whitelist, id)
			removed++
		}
	}
	return removed
}

// Contains reports membership regardless of whether the whitelist is enabled.
func Contains(l *domain.Launch, id domain.Identity) bool {
	_, ok := l.Whitelist[id]
	return ok
}

// CanParticipate reports whether id may contribute to l.
func CanParticipate(l *domain.Launch, id domain.Identity) bool {
	return !l.WhitelistEnabled || Contains(l, id)
}

// Lock freezes the set. Called on activation.
func Lock(l *domain.Launch) {
	l.WhitelistLocked = true
}

// Members returns the set in ascending identity order.
func Members(l *domain.Launch) []domain.Identity {
	return domain.SortedIdentities(l.Whitelist)
}
