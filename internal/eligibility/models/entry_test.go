package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var (
	at  = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	key = Key{PersonID: uuid.New(), AsdID: uuid.New()}
)

func assertInvariant(t *testing.T, e CacheEntry) {
	t.Helper()
	assert.Equal(t, len(e.BlockingDocuments) == 0, e.Eligible, "eligible must equal no blockers")
}

func TestNewSyncEntry(t *testing.T) {
	t.Run("ineligible with blockers", func(t *testing.T) {
		e := NewSyncEntry(key, false, []string{"MEDICAL_CERT [MISSING]"}, at)
		assert.False(t, e.Eligible)
		assert.Equal(t, SourceSyncCheck, e.Source)
		assert.Equal(t, at, e.LastUpdatedAt)
		assertInvariant(t, e)
	})

	t.Run("ineligible without blockers gets placeholder", func(t *testing.T) {
		e := NewSyncEntry(key, false, nil, at)
		assert.Equal(t, []string{UnspecifiedBlocker}, e.BlockingDocuments)
		assertInvariant(t, e)
	})

	t.Run("blockers win over eligible flag", func(t *testing.T) {
		e := NewSyncEntry(key, true, []string{"FEDERATION_CARD [MISSING]"}, at)
		assert.False(t, e.Eligible)
		assertInvariant(t, e)
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		e := NewSyncEntry(key, false, []string{"A [MISSING]", "A [MISSING]", ""}, at)
		assert.Equal(t, []string{"A [MISSING]"}, e.BlockingDocuments)
	})
}

func TestWithBlockerIsIdempotent(t *testing.T) {
	label := "MEDICAL_CERT [EXPIRED on 2026-03-01]"

	e := EmptyEntry(key).WithBlocker(label, at).WithBlocker(label, at.Add(time.Minute))

	assert.Equal(t, []string{label}, e.BlockingDocuments)
	assert.Equal(t, SourceDocumentExpired, e.Source)
	assert.Equal(t, at.Add(time.Minute), e.LastUpdatedAt)
	assertInvariant(t, e)
}

func TestWithoutBlockerTypeRoundTrip(t *testing.T) {
	e := EmptyEntry(key).
		WithBlocker("MEDICAL_CERT [EXPIRED on 2026-03-01]", at).
		WithoutBlockerType("MEDICAL_CERT", at)

	assert.True(t, e.Eligible)
	assert.Empty(t, e.BlockingDocuments)
	assert.Equal(t, SourceDocumentRenewed, e.Source)
}

func TestWithoutBlockerTypeMatchesWholePrefix(t *testing.T) {
	e := NewSyncEntry(key, false, []string{
		"MEDICAL_CERT [MISSING]",
		"MEDICAL_CERT_BASIC [MISSING]",
		"MEDICAL_CERT [EXPIRED on 2026-01-01]",
	}, at).WithoutBlockerType("MEDICAL_CERT", at)

	assert.Equal(t, []string{"MEDICAL_CERT_BASIC [MISSING]"}, e.BlockingDocuments)
	assertInvariant(t, e)
}

func TestMutationsDoNotAliasInput(t *testing.T) {
	base := NewSyncEntry(key, false, []string{"A [MISSING]"}, at)
	_ = base.WithBlocker("B [MISSING]", at)

	assert.Equal(t, []string{"A [MISSING]"}, base.BlockingDocuments)
}

func TestParseSource(t *testing.T) {
	assert.Equal(t, SourceSyncCheck, ParseSource("sync_check"))
	assert.Equal(t, SourceUnknown, ParseSource("legacy"))
}
