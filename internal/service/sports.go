package service

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// SportCheck classifies configured sport keys against the provider catalogue.
type SportCheck struct {
	Unknown  []string
	Inactive []string
}

// OK reports whether every key is known and in season.
func (c SportCheck) OK() bool {
	return len(c.Unknown) == 0 && len(c.Inactive) == 0
}

// CheckSports looks up keys in the full catalogue, including out-of-season
// sports, so a typo is told apart from a sport with no current events.
func CheckSports(ctx context.Context, catalog domain.SportCatalog, keys []string) (SportCheck, error) {
	sports, err := catalog.ListSports(ctx, true)
	if err != nil {
		return SportCheck{}, fmt.Errorf("check sports: %w", err)
	}
	byKey := make(map[string]domain.Sport, len(sports))
	for _, s := range sports {
		byKey[s.Key] = s
	}

	var check SportCheck
	for _, key := range keys {
		s, ok := byKey[key]
		switch {
		case !ok:
			check.Unknown = append(check.Unknown, key)
		case !s.Active:
			check.Inactive = append(check.Inactive, key)
		}
	}
	return check, nil
}
