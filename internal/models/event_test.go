package models_test

import (
	"testing"
	"time"

	"feedcast-pipeline/internal/models"
)

func TestEventIDIgnoresURLOrder(t *testing.T) {
	a := models.EventID([]string{"https://a.com/1", "https://b.com/2"})
	b := models.EventID([]string{"https://b.com/2", "https://a.com/1"})
	if a != b {
		t.Errorf("Expected identical IDs regardless of URL order, got %q and %q", a, b)
	}
}

func TestEventIDDiffersForDifferentURLs(t *testing.T) {
	a := models.EventID([]string{"https://a.com/1"})
	b := models.EventID([]string{"https://a.com/2"})
	if a == b {
		t.Errorf("Expected different IDs for different URL sets, both %q", a)
	}
}

func TestFingerprintIgnoresTopicOrder(t *testing.T) {
	bucket := time.Date(2026, 8, 30, 14, 25, 0, 0, time.UTC)
	a := models.Fingerprint([]string{"ai", "robotics"}, bucket)
	b := models.Fingerprint([]string{"robotics", "ai"}, bucket)
	if a != b {
		t.Errorf("Expected identical fingerprints regardless of topic order, got %q and %q", a, b)
	}
}

func TestFingerprintSameWithinHourBucket(t *testing.T) {
	early := time.Date(2026, 8, 30, 14, 1, 0, 0, time.UTC)
	late := time.Date(2026, 8, 30, 14, 59, 59, 0, time.UTC)
	if models.Fingerprint([]string{"ai"}, early) != models.Fingerprint([]string{"ai"}, late) {
		t.Error("Expected identical fingerprints within the same hour bucket")
	}
}

func TestFingerprintChangesAcrossBuckets(t *testing.T) {
	first := time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC)
	next := first.Add(time.Hour)
	if models.Fingerprint([]string{"ai"}, first) == models.Fingerprint([]string{"ai"}, next) {
		t.Error("Expected different fingerprints across hour buckets")
	}
}

func TestCacheEntryExpired(t *testing.T) {
	now := time.Now()
	entry := models.CacheEntry{ExpiresAt: now.Add(time.Minute)}

	if entry.Expired(now) {
		t.Error("Entry should not be expired before its deadline")
	}
	if !entry.Expired(now.Add(2 * time.Minute)) {
		t.Error("Entry should be expired after its deadline")
	}
	if !entry.Expired(entry.ExpiresAt) {
		t.Error("Entry should be expired exactly at its deadline")
	}
}
