package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/khushigupta13/patienthub/internal/domain/patient"
)

// PatientsRepo is a map-backed stand-in for the Postgres repository. It keeps
// the same contract (filtering, pagination, analytics) so handlers and tests
// can run without a database.
type PatientsRepo struct {
	mu    sync.RWMutex
	items map[string]patient.Patient
}

func NewPatientsRepo() *PatientsRepo {
	return &PatientsRepo{
		items: make(map[string]patient.Patient),
	}
}

func (r *PatientsRepo) Create(_ context.Context, req patient.CreatePatientRequest) (patient.Patient, error) {
	p := patient.NewFromCreateRequest(req)

	r.mu.Lock()
	r.items[p.ID] = p
	r.mu.Unlock()

	return p, nil
}

func (r *PatientsRepo) GetByID(_ context.Context, id string) (patient.Patient, error) {
	r.mu.RLock()
	p, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return patient.Patient{}, patient.ErrNotFound
	}

	return p, nil
}

func (r *PatientsRepo) List(_ context.Context, filter patient.ListPatientsFilter) ([]patient.Patient, int, error) {
	matched := r.match(filter)

	sortCol := filter.Sort
	if _, ok := patient.Sortable[sortCol]; !ok {
		sortCol = "name"
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]

		switch sortCol {
		case "age":
			av, bv := ageOrZero(a.Age), ageOrZero(b.Age)
			if av != bv {
				return av < bv
			}
		case "email":
			if a.Email != b.Email {
				return a.Email < b.Email
			}
		case "createdAt":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		default:
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		}

		return a.ID < b.ID
	})

	total := len(matched)

	if filter.Offset >= total {
		return []patient.Patient{}, total, nil
	}

	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}

	page := make([]patient.Patient, end-filter.Offset)
	copy(page, matched[filter.Offset:end])

	return page, total, nil
}

func (r *PatientsRepo) Update(_ context.Context, id string, req patient.UpdatePatientRequest) (patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]

	if !ok {
		return patient.Patient{}, patient.ErrNotFound
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Age != nil {
		p.Age = req.Age
	}
	if req.Gender != nil {
		p.Gender = *req.Gender
	}
	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.MedicalHistory != nil {
		p.MedicalHistory = *req.MedicalHistory
	}

	p.UpdatedAt = time.Now().UTC()
	r.items[id] = p

	return p, nil
}

func (r *PatientsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return patient.ErrNotFound
	}

	delete(r.items, id)

	return nil
}

func (r *PatientsRepo) All(_ context.Context) ([]patient.Patient, error) {
	r.mu.RLock()
	out := make([]patient.Patient, 0, len(r.items))

	for _, p := range r.items {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (r *PatientsRepo) Summary(_ context.Context) (patient.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := patient.Summary{
		TotalPatients: len(r.items),
		GenderStats:   r.genderStatsLocked(),
	}

	sum, counted := 0, 0

	for _, p := range r.items {
		if p.Age != nil {
			sum += *p.Age
			counted++
		}
	}

	if counted > 0 {
		s.AverageAge = math.Round(float64(sum)/float64(counted)*100) / 100
	}

	return s, nil
}

func (r *PatientsRepo) Breakdown(_ context.Context) (patient.Breakdown, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b := patient.Breakdown{
		TotalPatients: len(r.items),
		GenderStats:   r.genderStatsLocked(),
	}

	ageCounts := map[string]int{}
	condCounts := map[string]int{}

	for _, p := range r.items {
		ageCounts[patient.BucketForAge(p.Age)]++

		cond := strings.TrimSpace(p.MedicalHistory)
		if cond == "" {
			cond = "Unknown"
		}
		condCounts[cond]++
	}

	b.AgeStats = []patient.AgeStat{}

	for _, label := range append(append([]string{}, patient.BucketLabels...), patient.BucketUnknown) {
		if c, ok := ageCounts[label]; ok {
			b.AgeStats = append(b.AgeStats, patient.AgeStat{Bucket: label, Count: c})
		}
	}

	b.ConditionStats = []patient.ConditionStat{}

	for cond, count := range condCounts {
		b.ConditionStats = append(b.ConditionStats, patient.ConditionStat{Condition: cond, Count: count})
	}

	// count desc, then name asc so ranking stays deterministic
	sort.Slice(b.ConditionStats, func(i, j int) bool {
		if b.ConditionStats[i].Count != b.ConditionStats[j].Count {
			return b.ConditionStats[i].Count > b.ConditionStats[j].Count
		}
		return b.ConditionStats[i].Condition < b.ConditionStats[j].Condition
	})

	if len(b.ConditionStats) > 5 {
		b.ConditionStats = b.ConditionStats[:5]
	}

	return b, nil
}

func (r *PatientsRepo) genderStatsLocked() []patient.GenderStat {
	counts := map[string]int{}

	for _, p := range r.items {
		g := strings.TrimSpace(p.Gender)
		if g == "" {
			g = "Unknown"
		}
		counts[g]++
	}

	stats := make([]patient.GenderStat, 0, len(counts))

	for g, c := range counts {
		stats = append(stats, patient.GenderStat{Gender: g, Count: c})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Gender < stats[j].Gender
	})

	return stats
}

func (r *PatientsRepo) match(filter patient.ListPatientsFilter) []patient.Patient {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]patient.Patient, 0, len(r.items))

	for _, p := range r.items {
		if filter.Search != nil && !containsFold(p.Name, *filter.Search) {
			continue
		}
		if filter.Condition != nil && !containsFold(p.MedicalHistory, *filter.Condition) {
			continue
		}
		out = append(out, p)
	}

	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func ageOrZero(age *int) int {
	if age == nil {
		return 0
	}
	return *age
}
