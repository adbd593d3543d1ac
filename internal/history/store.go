package history

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/feedwatch/appfeedback-bot/internal/models"
	"github.com/feedwatch/appfeedback-bot/internal/storage"
	"github.com/sirupsen/logrus"
)

// Store persists the deduplicated review history as a JSON array, newest
// first, capped at the retention bound. Records are only ever added, never
// mutated; the oldest overflow past the bound is silently discarded.
type Store struct {
	backend  storage.StorageInterface
	filename string
	limit    int
}

// NewStore creates a history store on the given backend.
func NewStore(backend storage.StorageInterface, filename string, limit int) *Store {
	if limit <= 0 {
		limit = 1000
	}
	return &Store{
		backend:  backend,
		filename: filename,
		limit:    limit,
	}
}

// Load reads the persisted history into a fingerprint-keyed map. A missing
// or corrupt file yields an empty map, never an error: the store favors
// availability and resumes accretion from an empty state.
func (s *Store) Load() map[string]models.Review {
	existing := make(map[string]models.Review)

	data, err := s.backend.Retrieve(s.filename)
	if err != nil {
		logrus.Infof("No review history loaded (%v), starting empty", err)
		return existing
	}

	var reviews []models.Review
	if err := json.Unmarshal(data, &reviews); err != nil {
		logrus.Errorf("Review history is corrupt, starting empty: %v", err)
		return existing
	}

	for _, r := range reviews {
		if r.Fingerprint == "" {
			// Histories written before fingerprints were stored.
			r.Fingerprint = Fingerprint(r)
		}
		existing[r.Fingerprint] = r
	}

	logrus.Infof("Loaded %d reviews from history", len(existing))
	return existing
}

// Merge inserts freshly scraped reviews into the existing map and returns it
// together with exactly the genuinely new records. Re-ingesting a batch that
// was already merged is a no-op, so repeated runs over overlapping source
// windows accrete without duplicates.
func (s *Store) Merge(existing map[string]models.Review, fresh []models.Review) (map[string]models.Review, []models.Review) {
	var added []models.Review

	for _, r := range fresh {
		if r.Fingerprint == "" {
			r.Fingerprint = Fingerprint(r)
		}
		if _, ok := existing[r.Fingerprint]; ok {
			continue
		}
		existing[r.Fingerprint] = r
		added = append(added, r)
	}

	return existing, added
}

// ExportSorted returns the history values sorted by observed date
// descending. Ties break on fingerprint so the order is stable across runs.
func ExportSorted(reviews map[string]models.Review) []models.Review {
	sorted := make([]models.Review, 0, len(reviews))
	for _, r := range reviews {
		sorted = append(sorted, r)
	}

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date > sorted[j].Date
		}
		return sorted[i].Fingerprint < sorted[j].Fingerprint
	})

	return sorted
}

// Save persists the sorted history truncated to the retention bound. The
// local backend writes to a temp file and renames, so the previous good
// file survives a crash mid-write.
func (s *Store) Save(reviews map[string]models.Review) error {
	sorted := ExportSorted(reviews)
	if len(sorted) > s.limit {
		sorted = sorted[:s.limit]
	}

	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal review history: %w", err)
	}

	if err := s.backend.Store(s.filename, data); err != nil {
		return fmt.Errorf("failed to persist review history: %w", err)
	}

	logrus.Infof("Saved %d reviews to history (retention limit %d)", len(sorted), s.limit)
	return nil
}
