package patient

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreatePatientRequest) Patient {
	now := time.Now().UTC()

	return Patient{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Age:            req.Age,
		Gender:         req.Gender,
		Address:        req.Address,
		Phone:          req.Phone,
		Email:          req.Email,
		MedicalHistory: req.MedicalHistory,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
