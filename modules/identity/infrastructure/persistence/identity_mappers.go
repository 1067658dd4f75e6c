package persistence

import (
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/crewledger/crewledger/modules/identity/domain/aggregates/employee"
	"github.com/crewledger/crewledger/modules/identity/infrastructure/persistence/models"
)

func toDBEmployee(entity employee.Employee) models.Employee {
	return models.Employee{
		PersonID:           entity.PersonID().String(),
		EmployeeNumber:     entity.EmployeeNumber(),
		FirstName:          entity.FirstName(),
		LastName:           entity.LastName(),
		MiddleName:         nullString(entity.MiddleName()),
		PreferredName:      nullString(entity.PreferredName()),
		NormalizedFullName: entity.NormalizedName(),
		Email:              nullString(entity.Email()),
		Phone:              nullString(entity.Phone()),
		Status:             string(entity.Status()),
		TerminationReason:  nullString(string(entity.TerminationReason())),
		TerminatedOn:       nullTime(entity.TerminatedOn()),
		MergedInto:         nullUUID(entity.MergedInto()),
		NeedsProfile:       entity.NeedsProfileCompletion(),
		FirstMentionedDate: nullTime(entity.FirstMentionedDate()),
		FirstMentionedRep:  nullString(entity.FirstMentionedReportID()),
		LastSeenDate:       nullTime(entity.LastSeenDate()),
		LastSeenProjectID:  nullString(entity.LastSeenProjectID()),
		CreatedAt:          entity.CreatedAt(),
		UpdatedAt:          entity.UpdatedAt(),
	}
}

func toDomainEmployee(row models.Employee, aliases []string) (employee.Employee, error) {
	personID, err := uuid.Parse(row.PersonID)
	if err != nil {
		return employee.Employee{}, errors.Wrap(err, "invalid person id")
	}

	mergedInto := uuid.Nil
	if row.MergedInto.Valid && row.MergedInto.String != "" {
		mergedInto, err = uuid.Parse(row.MergedInto.String)
		if err != nil {
			return employee.Employee{}, errors.Wrap(err, "invalid merged_into id")
		}
	}

	return employee.Hydrate(
		personID,
		row.EmployeeNumber,
		row.FirstName,
		row.LastName,
		row.MiddleName.String,
		row.PreferredName.String,
		row.Email.String,
		row.Phone.String,
		aliases,
		employee.Status(row.Status),
		employee.TerminationReason(row.TerminationReason.String),
		row.TerminatedOn.Time,
		mergedInto,
		row.NeedsProfile,
		row.FirstMentionedDate.Time,
		row.FirstMentionedRep.String,
		row.LastSeenDate.Time,
		row.LastSeenProjectID.String,
		row.CreatedAt,
		row.UpdatedAt,
	), nil
}

func toDomainAlias(row models.EmployeeAlias) (employee.AliasRecord, error) {
	personID, err := uuid.Parse(row.PersonID)
	if err != nil {
		return employee.AliasRecord{}, errors.Wrap(err, "invalid person id on alias")
	}
	return employee.AliasRecord{
		PersonID:        personID,
		NormalizedAlias: row.NormalizedAlias,
		CreatedAt:       row.CreatedAt,
	}, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(v time.Time) sql.NullTime {
	return sql.NullTime{Time: v, Valid: !v.IsZero()}
}

func nullUUID(v uuid.UUID) sql.NullString {
	if v == uuid.Nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}
