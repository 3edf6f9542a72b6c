package patient

import (
	"errors"
	"time"
)

type Patient struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Age            *int      `json:"age"`
	Gender         string    `json:"gender,omitempty"`
	Address        string    `json:"address,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	MedicalHistory string    `json:"medicalHistory,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("patient not found")

type CreatePatientRequest struct {
	Name           string `json:"name" binding:"required,min=1,max=200"`
	Age            *int   `json:"age" binding:"omitempty,gte=0,lte=150"`
	Gender         string `json:"gender" binding:"omitempty,max=40"`
	Address        string `json:"address" binding:"omitempty,max=400"`
	Phone          string `json:"phone" binding:"omitempty,max=40"`
	Email          string `json:"email" binding:"omitempty,email"`
	MedicalHistory string `json:"medicalHistory" binding:"omitempty,max=4000"`
}

// UpdatePatientRequest is an allow-listed partial update: nil fields keep
// their stored value. Arbitrary body fields are ignored by the decoder.
type UpdatePatientRequest struct {
	Name           *string `json:"name" binding:"omitempty,min=1,max=200"`
	Age            *int    `json:"age" binding:"omitempty,gte=0,lte=150"`
	Gender         *string `json:"gender" binding:"omitempty,max=40"`
	Address        *string `json:"address" binding:"omitempty,max=400"`
	Phone          *string `json:"phone" binding:"omitempty,max=40"`
	Email          *string `json:"email" binding:"omitempty,email"`
	MedicalHistory *string `json:"medicalHistory" binding:"omitempty,max=4000"`
}

// Pointer filters are optional: nil means "no filter".
type ListPatientsFilter struct {
	Search    *string // case-insensitive substring on name
	Condition *string // case-insensitive substring on medical history
	Sort      string  // one of the allowed sort keys, "name" by default
	Limit     int
	Offset    int
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Sortable maps the public sort keys to their storage ordering. Anything
// outside this set falls back to name.
var Sortable = map[string]string{
	"name":      "name",
	"age":       "age",
	"email":     "email",
	"createdAt": "created_at",
}

type GenderStat struct {
	Gender string `json:"gender"`
	Count  int    `json:"count"`
}

type AgeStat struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

type ConditionStat struct {
	Condition string `json:"condition"`
	Count     int    `json:"count"`
}

// Summary backs GET /api/patients/analytics.
type Summary struct {
	TotalPatients int          `json:"totalPatients"`
	GenderStats   []GenderStat `json:"genderStats"`
	AverageAge    float64      `json:"averageAge"`
}

// Breakdown backs the admin-only GET /api/analytics.
type Breakdown struct {
	TotalPatients  int             `json:"totalPatients"`
	GenderStats    []GenderStat    `json:"genderStats"`
	AgeStats       []AgeStat       `json:"ageStats"`
	ConditionStats []ConditionStat `json:"conditionStats"`
}

// Age bucket boundaries: [0,18) [18,35) [35,50) [50,65) [65,120).
// Null or out-of-range ages land in BucketUnknown.
var BucketLabels = []string{"0-17", "18-34", "35-49", "50-64", "65-119"}

const BucketUnknown = "Unknown"

var bucketUpper = []int{18, 35, 50, 65, 120}

// BucketForAge returns the label of the bucket a given age falls into.
func BucketForAge(age *int) string {
	if age == nil || *age < 0 || *age >= 120 {
		return BucketUnknown
	}

	for i, upper := range bucketUpper {
		if *age < upper {
			return BucketLabels[i]
		}
	}

	return BucketUnknown
}
