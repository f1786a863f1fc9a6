package roles

import (
	"context"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Record, error)
}

// Drift describes disagreement between the enumeration and the roles table.
type Drift struct {
	// Missing holds enumeration names with no stored row.
	Missing []string `json:"missing"`
	// Unknown holds stored names outside the enumeration.
	Unknown []string `json:"unknown"`
}

// Empty reports whether the store matches the enumeration exactly.
func (d Drift) Empty() bool {
	return len(d.Missing) == 0 && len(d.Unknown) == 0
}

// Service handles role queries.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all stored roles.
func (s *Service) ListRoles(ctx context.Context) ([]Record, error) {
	return s.repo.ListRoles(ctx)
}

// CheckDrift compares stored role names with the enumeration using exact,
// case-sensitive matching.
func (s *Service) CheckDrift(ctx context.Context) (Drift, error) {
	records, err := s.repo.ListRoles(ctx)
	if err != nil {
		return Drift{}, err
	}
	stored := make(map[string]struct{}, len(records))
	var drift Drift
	for _, rec := range records {
		stored[rec.Name] = struct{}{}
		if _, err := Parse(rec.Name); err != nil {
			drift.Unknown = append(drift.Unknown, rec.Name)
		}
	}
	for _, name := range Names() {
		if _, ok := stored[name]; !ok {
			drift.Missing = append(drift.Missing, name)
		}
	}
	return drift, nil
}
