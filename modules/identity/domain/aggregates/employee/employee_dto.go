package employee

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/crewledger/crewledger/pkg/constants"
)

type CreateDTO struct {
	EmployeeNumber string `json:"employee_number"`
	FirstName      string `json:"first_name" validate:"required"`
	LastName       string `json:"last_name" validate:"required"`
	MiddleName     string `json:"middle_name"`
	PreferredName  string `json:"preferred_name"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone"`
}

func (d *CreateDTO) Normalize() {
	d.EmployeeNumber = strings.TrimSpace(d.EmployeeNumber)
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.MiddleName = strings.TrimSpace(d.MiddleName)
	d.PreferredName = strings.TrimSpace(d.PreferredName)
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
}

func (d *CreateDTO) Ok() (map[string]string, bool) {
	d.Normalize()
	return validateStruct(d)
}

func (d *CreateDTO) ToEntity() Employee {
	e := New(d.FirstName, d.LastName)
	e = e.WithEmployeeNumber(d.EmployeeNumber)
	e = e.WithProfile(d.FirstName, d.LastName, d.MiddleName, d.PreferredName, d.Email, d.Phone)
	return e
}

// UpdateDTO carries the explicit allow-list of mutable profile fields. Nil
// pointers mean "leave unchanged".
type UpdateDTO struct {
	FirstName     *string `json:"first_name" validate:"omitempty,min=1"`
	LastName      *string `json:"last_name" validate:"omitempty,min=1"`
	MiddleName    *string `json:"middle_name"`
	PreferredName *string `json:"preferred_name"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Phone         *string `json:"phone"`
	Status        *Status `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (d *UpdateDTO) Ok() (map[string]string, bool) {
	return validateStruct(d)
}

// Apply folds the provided fields onto the entity. Required contact fields
// becoming complete clears the needs-profile-completion flag.
func (d *UpdateDTO) Apply(e Employee) Employee {
	firstName := pick(d.FirstName, e.FirstName())
	lastName := pick(d.LastName, e.LastName())
	middleName := pick(d.MiddleName, e.MiddleName())
	preferredName := pick(d.PreferredName, e.PreferredName())
	email := pick(d.Email, e.Email())
	phone := pick(d.Phone, e.Phone())

	e = e.WithProfile(firstName, lastName, middleName, preferredName, email, phone)
	if d.Status != nil {
		e = e.WithStatus(*d.Status)
	}
	return e
}

// TerminateDTO is the input for a real-world termination.
type TerminateDTO struct {
	On     time.Time         `json:"on" validate:"required"`
	Reason TerminationReason `json:"reason" validate:"required,oneof=resigned dismissed"`
}

func (d *TerminateDTO) Ok() (map[string]string, bool) {
	return validateStruct(d)
}

func validateStruct(v interface{}) (map[string]string, bool) {
	errs := constants.Validate.Struct(v)
	if errs == nil {
		return map[string]string{}, true
	}

	out := make(map[string]string)
	var fieldErrs validator.ValidationErrors
	if errors.As(errs, &fieldErrs) {
		for _, fe := range fieldErrs {
			out[fe.Field()] = fe.Tag()
		}
	} else {
		out["_"] = errs.Error()
	}
	return out, false
}

func pick(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}
