package memory_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/khushigupta13/patienthub/internal/domain/patient"
	"github.com/khushigupta13/patienthub/internal/repo/memory"
)

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }

func mustCreate(t *testing.T, repo *memory.PatientsRepo, req patient.CreatePatientRequest) patient.Patient {
	t.Helper()

	p, err := repo.Create(context.Background(), req)

	if err != nil {
		t.Fatalf("create %q: %v", req.Name, err)
	}

	return p
}

func TestListPagination(t *testing.T) {
	repo := memory.NewPatientsRepo()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		mustCreate(t, repo, patient.CreatePatientRequest{
			Name: fmt.Sprintf("Patient %02d", i),
			Age:  intPtr(20 + i),
		})
	}

	firstPage, total, err := repo.List(ctx, patient.ListPatientsFilter{Sort: "name", Limit: 10, Offset: 0})

	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}

	if total != 25 {
		t.Fatalf("got total %d, want 25", total)
	}

	if len(firstPage) != 10 {
		t.Fatalf("got %d items, want 10", len(firstPage))
	}

	secondPage, _, err := repo.List(ctx, patient.ListPatientsFilter{Sort: "name", Limit: 10, Offset: 10})

	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}

	// page 2 begins exactly where page 1 ended
	if secondPage[0].Name != "Patient 10" {
		t.Errorf("second page starts at %q, want %q", secondPage[0].Name, "Patient 10")
	}

	seen := map[string]bool{}

	for _, p := range append(firstPage, secondPage...) {
		if seen[p.ID] {
			t.Fatalf("patient %s appears on both pages", p.ID)
		}
		seen[p.ID] = true
	}

	lastPage, _, err := repo.List(ctx, patient.ListPatientsFilter{Sort: "name", Limit: 10, Offset: 20})

	if err != nil {
		t.Fatalf("list page 3: %v", err)
	}

	if len(lastPage) != 5 {
		t.Errorf("got %d items on last page, want 5", len(lastPage))
	}

	empty, total, err := repo.List(ctx, patient.ListPatientsFilter{Sort: "name", Limit: 10, Offset: 30})

	if err != nil {
		t.Fatalf("list past end: %v", err)
	}

	if len(empty) != 0 || total != 25 {
		t.Errorf("past-end page: got %d items total %d, want 0 and 25", len(empty), total)
	}
}

func TestListFilters(t *testing.T) {
	repo := memory.NewPatientsRepo()
	ctx := context.Background()

	mustCreate(t, repo, patient.CreatePatientRequest{Name: "Anita Rao", MedicalHistory: "Asthma"})
	mustCreate(t, repo, patient.CreatePatientRequest{Name: "Anil Kumar", MedicalHistory: "Diabetes"})
	mustCreate(t, repo, patient.CreatePatientRequest{Name: "Brian Li", MedicalHistory: "asthma, mild"})

	byName, total, err := repo.List(ctx, patient.ListPatientsFilter{Search: strPtr("ani"), Limit: 10})

	if err != nil {
		t.Fatalf("list by name: %v", err)
	}

	if total != 2 || len(byName) != 2 {
		t.Fatalf("search ani: got %d results, want 2", total)
	}

	byCondition, total, err := repo.List(ctx, patient.ListPatientsFilter{Condition: strPtr("Asthma"), Limit: 10})

	if err != nil {
		t.Fatalf("list by condition: %v", err)
	}

	if total != 2 {
		t.Fatalf("condition asthma: got %d results, want 2", total)
	}

	for _, p := range byCondition {
		if p.Name == "Anil Kumar" {
			t.Errorf("diabetes patient matched asthma filter")
		}
	}

	both, total, err := repo.List(ctx, patient.ListPatientsFilter{
		Search:    strPtr("anita"),
		Condition: strPtr("asthma"),
		Limit:     10,
	})

	if err != nil {
		t.Fatalf("list by both: %v", err)
	}

	if total != 1 || both[0].Name != "Anita Rao" {
		t.Fatalf("combined filter: got %d results, want only Anita Rao", total)
	}
}

func TestListSortByAge(t *testing.T) {
	repo := memory.NewPatientsRepo()
	ctx := context.Background()

	mustCreate(t, repo, patient.CreatePatientRequest{Name: "C", Age: intPtr(50)})
	mustCreate(t, repo, patient.CreatePatientRequest{Name: "A", Age: intPtr(70)})
	mustCreate(t, repo, patient.CreatePatientRequest{Name: "B", Age: intPtr(30)})

	got, _, err := repo.List(ctx, patient.ListPatientsFilter{Sort: "age", Limit: 10})

	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []string{"B", "C", "A"}

	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: got %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestUpdatePartialAndDelete(t *testing.T) {
	repo := memory.NewPatientsRepo()
	ctx := context.Background()

	created := mustCreate(t, repo, patient.CreatePatientRequest{
		Name:   "Meera Shah",
		Age:    intPtr(41),
		Gender: "Female",
	})

	updated, err := repo.Update(ctx, created.ID, patient.UpdatePatientRequest{Age: intPtr(42)})

	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.Age == nil || *updated.Age != 42 {
		t.Errorf("age not updated: %v", updated.Age)
	}

	if updated.Name != "Meera Shah" || updated.Gender != "Female" {
		t.Errorf("untouched fields changed: %+v", updated)
	}

	if _, err := repo.Update(ctx, "b2c8b6de-0000-0000-0000-000000000000", patient.UpdatePatientRequest{}); err != patient.ErrNotFound {
		t.Errorf("update missing: got %v, want ErrNotFound", err)
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := repo.GetByID(ctx, created.ID); err != patient.ErrNotFound {
		t.Errorf("get after delete: got %v, want ErrNotFound", err)
	}

	if err := repo.Delete(ctx, created.ID); err != patient.ErrNotFound {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}
}

func TestSummaryAverageIgnoresUnknownAges(t *testing.T) {
	repo := memory.NewPatientsRepo()
	ctx := context.Background()

	mustCreate(t, repo, patient.CreatePatientRequest{Name: "A", Age: intPtr(30), Gender: "Female"})
	mustCreate(t, repo, patient.CreatePatientRequest{Name: "B", Age: intPtr(35), Gender: "Male"})
	mustCreate(t, repo, patient.CreatePatientRequest{Name: "C", Gender: "Female"}) // no age

	s, err := repo.Summary(ctx)

	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if s.TotalPatients != 3 {
		t.Errorf("got total %d, want 3", s.TotalPatients)
	}

	// average over the two known ages only
	if s.AverageAge != 32.5 {
		t.Errorf("got average age %v, want 32.5", s.AverageAge)
	}

	if len(s.GenderStats) != 2 {
		t.Fatalf("got %d gender stats, want 2", len(s.GenderStats))
	}

	if s.GenderStats[0].Gender != "Female" || s.GenderStats[0].Count != 2 {
		t.Errorf("top gender: got %+v", s.GenderStats[0])
	}
}

func TestBreakdownAgeBuckets(t *testing.T) {
	repo := memory.NewPatientsRepo()
	ctx := context.Background()

	// boundary ages: 17 belongs to the child bucket, 18 to the next one up
	ages := map[string]*int{
		"A": intPtr(17),
		"B": intPtr(18),
		"C": intPtr(34),
		"D": intPtr(65),
		"E": nil,
	}

	for name, age := range ages {
		mustCreate(t, repo, patient.CreatePatientRequest{Name: name, Age: age})
	}

	b, err := repo.Breakdown(ctx)

	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}

	want := map[string]int{
		"0-17":    1,
		"18-34":   2,
		"65-119":  1,
		"Unknown": 1,
	}

	if len(b.AgeStats) != len(want) {
		t.Fatalf("got %d age buckets %v, want %d", len(b.AgeStats), b.AgeStats, len(want))
	}

	for _, stat := range b.AgeStats {
		if want[stat.Bucket] != stat.Count {
			t.Errorf("bucket %q: got %d, want %d", stat.Bucket, stat.Count, want[stat.Bucket])
		}
	}

	// empty buckets are omitted entirely
	for _, stat := range b.AgeStats {
		if stat.Bucket == "35-49" || stat.Bucket == "50-64" {
			t.Errorf("empty bucket %q present", stat.Bucket)
		}
	}
}

func TestBreakdownTopConditions(t *testing.T) {
	repo := memory.NewPatientsRepo()
	ctx := context.Background()

	conditions := []string{
		"Asthma", "Asthma", "Asthma",
		"Diabetes", "Diabetes",
		"Hypertension", "Hypertension",
		"Arthritis",
		"Migraine",
		"Eczema",
		"", // blank history lands in Unknown
	}

	for i, cond := range conditions {
		mustCreate(t, repo, patient.CreatePatientRequest{
			Name:           fmt.Sprintf("P%02d", i),
			MedicalHistory: cond,
		})
	}

	b, err := repo.Breakdown(ctx)

	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}

	if len(b.ConditionStats) != 5 {
		t.Fatalf("got %d conditions, want top 5: %v", len(b.ConditionStats), b.ConditionStats)
	}

	// counts descend; equal counts are ordered by condition name
	want := []patient.ConditionStat{
		{Condition: "Asthma", Count: 3},
		{Condition: "Diabetes", Count: 2},
		{Condition: "Hypertension", Count: 2},
		{Condition: "Arthritis", Count: 1},
		{Condition: "Eczema", Count: 1},
	}

	for i, stat := range want {
		if b.ConditionStats[i] != stat {
			t.Errorf("position %d: got %+v, want %+v", i, b.ConditionStats[i], stat)
		}
	}
}
