package services

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fvbommel/sortorder"
	"github.com/google/uuid"

	"pasosd/internal/models"
	"pasosd/internal/providers"
	"pasosd/internal/schedule"
	"pasosd/internal/structures"
)

type MatchKey string

const (
	// MatchAuto keys by id when every remote record carries one, by name otherwise.
	MatchAuto MatchKey = "auto"
	MatchID   MatchKey = "id"
	MatchName MatchKey = "name"
)

type SchedulePreference string

const (
	PreferSecondary SchedulePreference = "secondary"
	PreferPrimary   SchedulePreference = "primary"
)

type SortOrder string

const (
	SortLexical SortOrder = "lexical"
	SortNatural SortOrder = "natural"
)

type AggregatorPolicy struct {
	MatchKey           MatchKey
	SchedulePreference SchedulePreference
	SortOrder          SortOrder
}

type AggregatorInterface interface {
	Aggregate(catalog []models.CatalogEntry, remote []models.RemoteRecord, now time.Time) *models.Snapshot
}

type Aggregator struct {
	policy AggregatorPolicy
	logger providers.Logger
}

func NewAggregator(conf *structures.Config, logger providers.Logger) AggregatorInterface {
	return NewAggregatorWithPolicy(AggregatorPolicy{
		MatchKey:           MatchKey(conf.Aggregator.MatchKey),
		SchedulePreference: SchedulePreference(conf.Aggregator.SchedulePreference),
		SortOrder:          SortOrder(conf.Aggregator.SortOrder),
	}, logger)
}

func NewAggregatorWithPolicy(policy AggregatorPolicy, logger providers.Logger) *Aggregator {
	if policy.MatchKey == "" {
		policy.MatchKey = MatchAuto
	}
	if policy.SchedulePreference == "" {
		policy.SchedulePreference = PreferSecondary
	}
	if policy.SortOrder == "" {
		policy.SortOrder = SortLexical
	}
	return &Aggregator{policy: policy, logger: logger}
}

// NormalizeName trims, collapses inner whitespace and lowercases name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Aggregate joins catalog entries to remote records. Catalog entries
// without a remote counterpart are omitted and remote records without a
// catalog entry are ignored; neither is an error.
func (a *Aggregator) Aggregate(catalog []models.CatalogEntry, remote []models.RemoteRecord, now time.Time) *models.Snapshot {
	byID := a.keyByID(remote)
	index := buildIndex(remote, byID)

	entries := make([]models.MergedStatus, 0, len(catalog))
	missed := 0
	for _, entry := range catalog {
		key := NormalizeName(entry.Name)
		if byID {
			key = idKey(entry.ID)
		}
		record, ok := index[key]
		if !ok {
			missed++
			a.logger.Debugf(providers.TypeApp, "No upstream record for crossing %d (%s)", entry.ID, entry.Name)
			continue
		}
		entries = append(entries, a.merge(entry, record))
	}

	a.sortEntries(entries)

	matchedBy := "name"
	if byID {
		matchedBy = "id"
	}
	a.logger.Infof(providers.TypeApp, "Aggregated %d crossings by %s (%d catalog entries unmatched, %d upstream records)", len(entries), matchedBy, missed, len(remote))

	return &models.Snapshot{
		ID:         uuid.NewString(),
		Entries:    entries,
		CapturedAt: now,
	}
}

func (a *Aggregator) keyByID(remote []models.RemoteRecord) bool {
	switch a.policy.MatchKey {
	case MatchID:
		return true
	case MatchName:
		return false
	}
	if len(remote) == 0 {
		return false
	}
	for _, r := range remote {
		if r.ID == nil {
			return false
		}
	}
	return true
}

// buildIndex keeps the first record seen for each key.
func buildIndex(remote []models.RemoteRecord, byID bool) map[string]models.RemoteRecord {
	index := make(map[string]models.RemoteRecord, len(remote))
	for _, r := range remote {
		var key string
		if byID {
			if r.ID == nil {
				continue
			}
			key = idKey(*r.ID)
		} else {
			key = NormalizeName(r.Name)
			if key == "" {
				continue
			}
		}
		if _, exists := index[key]; !exists {
			index[key] = r
		}
	}
	return index
}

func idKey(id int) string {
	return "#" + strconv.Itoa(id)
}

func (a *Aggregator) merge(entry models.CatalogEntry, record models.RemoteRecord) models.MergedStatus {
	name := strings.TrimSpace(record.Name)
	if name == "" {
		name = entry.Name
	}

	var text *string
	if rendered, ok := schedule.Render(a.preferredSchedule(record)); ok {
		text = &rendered
	}

	return models.MergedStatus{
		ID:                          entry.ID,
		Name:                        name,
		Status:                      record.PriorityStatus,
		Province:                    record.Province,
		NeighborCountry:             record.NeighborCountry,
		ScheduleExpressionPrimary:   record.ScheduleExpressionPrimary,
		ScheduleExpressionSecondary: record.ScheduleExpressionSecondary,
		ScheduleText:                text,
		URL:                         entry.URL,
	}
}

func (a *Aggregator) preferredSchedule(record models.RemoteRecord) string {
	first, second := record.ScheduleExpressionSecondary, record.ScheduleExpressionPrimary
	if a.policy.SchedulePreference == PreferPrimary {
		first, second = second, first
	}
	if v := nonBlank(first); v != "" {
		return v
	}
	return nonBlank(second)
}

func nonBlank(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func (a *Aggregator) sortEntries(entries []models.MergedStatus) {
	less := func(i, j int) bool { return entries[i].Name < entries[j].Name }
	if a.policy.SortOrder == SortNatural {
		less = func(i, j int) bool { return sortorder.NaturalLess(entries[i].Name, entries[j].Name) }
	}
	sort.SliceStable(entries, less)
}
