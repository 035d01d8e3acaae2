package ingest

import "news-archiver/internal/domain/entity"

// DedupCandidates drops candidates whose URL was already seen.
// The first occurrence wins and the input order is preserved.
func DedupCandidates(candidates []entity.Candidate) []entity.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]entity.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.URL == "" {
			continue
		}
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}
