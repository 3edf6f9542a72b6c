package postgres

import (
	"errors"
	"fmt"
	"strings"

	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khushigupta13/patienthub/internal/domain/patient"
	"github.com/khushigupta13/patienthub/internal/observability"
)

type PatientsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPatientsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PatientsRepo {
	return &PatientsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *PatientsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const patientColumns = `id, name, age, gender, address, phone, email, medical_history, created_at, updated_at`

func scanPatient(row pgx.Row) (patient.Patient, error) {
	var p patient.Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Age,
		&p.Gender,
		&p.Address,
		&p.Phone,
		&p.Email,
		&p.MedicalHistory,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	return p, err
}

func (r *PatientsRepo) Create(ctx context.Context, req patient.CreatePatientRequest) (patient.Patient, error) {
	p := patient.NewFromCreateRequest(req)

	err := r.observe("patients.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO patients(id, name, age, gender, address, phone, email, medical_history, created_at, updated_at)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			p.ID, p.Name, p.Age, p.Gender, p.Address, p.Phone, p.Email, p.MedicalHistory, p.CreatedAt, p.UpdatedAt)

		return err
	})

	if err != nil {
		return patient.Patient{}, err
	}

	return p, nil
}

// List returns one page of matching patients plus the total match count.
func (r *PatientsRepo) List(ctx context.Context, filter patient.ListPatientsFilter) ([]patient.Patient, int, error) {
	baseQuery := `SELECT ` + patientColumns + `, COUNT(*) OVER() AS total FROM patients`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.Search != nil {
		conds = append(conds, fmt.Sprintf("name ILIKE '%%' || $%d || '%%'", argsPosition))
		args = append(args, escapeLike(*filter.Search))
		argsPosition++
	}

	if filter.Condition != nil {
		conds = append(conds, fmt.Sprintf("medical_history ILIKE '%%' || $%d || '%%'", argsPosition))
		args = append(args, escapeLike(*filter.Condition))
		argsPosition++
	}

	query := baseQuery

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// Sort column comes from the allow-list only, never from raw input.
	sortCol, ok := patient.Sortable[filter.Sort]
	if !ok {
		sortCol = "name"
	}

	// id as tiebreak keeps the ordering stable across pages
	query += fmt.Sprintf(" ORDER BY %s ASC, id ASC LIMIT $%d OFFSET $%d", sortCol, argsPosition, argsPosition+1)

	args = append(args, filter.Limit, filter.Offset)

	var output []patient.Patient
	total := 0

	err := r.observe("patients.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		output = make([]patient.Patient, 0, filter.Limit)

		for rows.Next() {
			var p patient.Patient
			var t int

			err = rows.Scan(&p.ID, &p.Name, &p.Age, &p.Gender, &p.Address, &p.Phone, &p.Email, &p.MedicalHistory, &p.CreatedAt, &p.UpdatedAt, &t)

			if err != nil {
				return err
			}

			total = t
			output = append(output, p)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

func (r *PatientsRepo) GetByID(ctx context.Context, id string) (patient.Patient, error) {
	var p patient.Patient

	err := r.observe("patients.get", func() error {
		var err error
		p, err = scanPatient(r.pool.QueryRow(ctx,
			`SELECT `+patientColumns+` FROM patients WHERE id = $1`, id))

		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return patient.Patient{}, patient.ErrNotFound
		}
		return patient.Patient{}, err
	}

	return p, nil
}

func (r *PatientsRepo) Update(ctx context.Context, id string, req patient.UpdatePatientRequest) (patient.Patient, error) {
	var p patient.Patient

	err := r.observe("patients.update", func() error {
		var err error
		p, err = scanPatient(r.pool.QueryRow(
			ctx,
			`UPDATE patients
				SET name = COALESCE($2, name),
						age = COALESCE($3, age),
						gender = COALESCE($4, gender),
						address = COALESCE($5, address),
						phone = COALESCE($6, phone),
						email = COALESCE($7, email),
						medical_history = COALESCE($8, medical_history),
						updated_at = NOW()
			WHERE id = $1
			RETURNING `+patientColumns,
			id,
			req.Name,
			req.Age,
			req.Gender,
			req.Address,
			req.Phone,
			req.Email,
			req.MedicalHistory,
		))

		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return patient.Patient{}, patient.ErrNotFound
		}
		return patient.Patient{}, err
	}

	return p, nil
}

func (r *PatientsRepo) Delete(ctx context.Context, id string) error {
	return r.observe("patients.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return patient.ErrNotFound
		}

		return nil
	})
}

// All returns every patient ordered by name, for the CSV export.
func (r *PatientsRepo) All(ctx context.Context) ([]patient.Patient, error) {
	var output []patient.Patient

	err := r.observe("patients.all", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+patientColumns+` FROM patients ORDER BY name ASC, id ASC`)

		if err != nil {
			return err
		}

		defer rows.Close()

		output = []patient.Patient{}

		for rows.Next() {
			var p patient.Patient

			err = rows.Scan(&p.ID, &p.Name, &p.Age, &p.Gender, &p.Address, &p.Phone, &p.Email, &p.MedicalHistory, &p.CreatedAt, &p.UpdatedAt)

			if err != nil {
				return err
			}

			output = append(output, p)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

// Summary aggregates the totals behind GET /api/patients/analytics.
// NULL ages are excluded from the average; an empty table averages to 0.
func (r *PatientsRepo) Summary(ctx context.Context) (patient.Summary, error) {
	var s patient.Summary

	err := r.observe("patients.analytics_summary", func() error {
		err := r.pool.QueryRow(ctx,
			`SELECT COUNT(*), COALESCE(ROUND(AVG(age)::numeric, 2), 0) FROM patients`,
		).Scan(&s.TotalPatients, &s.AverageAge)

		if err != nil {
			return err
		}

		s.GenderStats, err = r.genderStats(ctx)

		return err
	})

	if err != nil {
		return patient.Summary{}, err
	}

	return s, nil
}

// Breakdown aggregates the admin analytics: gender counts, fixed age
// buckets (out-of-range and missing ages as Unknown), and the top five
// medical-history values, ties broken by condition name.
func (r *PatientsRepo) Breakdown(ctx context.Context) (patient.Breakdown, error) {
	var b patient.Breakdown

	err := r.observe("patients.analytics_breakdown", func() error {
		err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&b.TotalPatients)

		if err != nil {
			return err
		}

		b.GenderStats, err = r.genderStats(ctx)

		if err != nil {
			return err
		}

		b.AgeStats, err = r.ageStats(ctx)

		if err != nil {
			return err
		}

		b.ConditionStats, err = r.conditionStats(ctx)

		return err
	})

	if err != nil {
		return patient.Breakdown{}, err
	}

	return b, nil
}

func (r *PatientsRepo) genderStats(ctx context.Context) ([]patient.GenderStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT COALESCE(NULLIF(TRIM(gender), ''), 'Unknown') AS gender, COUNT(*)
		 FROM patients
		 GROUP BY 1
		 ORDER BY COUNT(*) DESC, 1 ASC`)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	stats := []patient.GenderStat{}

	for rows.Next() {
		var g patient.GenderStat

		if err := rows.Scan(&g.Gender, &g.Count); err != nil {
			return nil, err
		}

		stats = append(stats, g)
	}

	return stats, rows.Err()
}

func (r *PatientsRepo) ageStats(ctx context.Context) ([]patient.AgeStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT CASE
				WHEN age IS NULL OR age < 0 OR age >= 120 THEN 'Unknown'
				WHEN age < 18 THEN '0-17'
				WHEN age < 35 THEN '18-34'
				WHEN age < 50 THEN '35-49'
				WHEN age < 65 THEN '50-64'
				ELSE '65-119'
			END AS bucket, COUNT(*)
		 FROM patients
		 GROUP BY 1`)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	counts := map[string]int{}

	for rows.Next() {
		var bucket string
		var count int

		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, err
		}

		counts[bucket] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// fixed presentation order, empty buckets omitted
	stats := []patient.AgeStat{}

	for _, label := range append(append([]string{}, patient.BucketLabels...), patient.BucketUnknown) {
		if c, ok := counts[label]; ok {
			stats = append(stats, patient.AgeStat{Bucket: label, Count: c})
		}
	}

	return stats, nil
}

func (r *PatientsRepo) conditionStats(ctx context.Context) ([]patient.ConditionStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT COALESCE(NULLIF(TRIM(medical_history), ''), 'Unknown') AS condition, COUNT(*)
		 FROM patients
		 GROUP BY 1
		 ORDER BY COUNT(*) DESC, 1 ASC
		 LIMIT 5`)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	stats := []patient.ConditionStat{}

	for rows.Next() {
		var c patient.ConditionStat

		if err := rows.Scan(&c.Condition, &c.Count); err != nil {
			return nil, err
		}

		stats = append(stats, c)
	}

	return stats, rows.Err()
}

// escapeLike neutralizes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
