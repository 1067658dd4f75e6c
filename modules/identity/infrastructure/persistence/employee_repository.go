package persistence

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/crewledger/crewledger/modules/identity/domain/aggregates/employee"
	"github.com/crewledger/crewledger/modules/identity/infrastructure/persistence/models"
	"github.com/crewledger/crewledger/pkg/composables"
	"github.com/crewledger/crewledger/pkg/repo"
)

const (
	uniqueViolation = "23505"

	employeeNameConstraint   = "employees_normalized_full_name_active_idx"
	aliasUniqueConstraint    = "employee_aliases_normalized_alias_key"
	employeeNumberConstraint = "employees_employee_number_key"
)

const (
	employeeFindQuery = `
        SELECT
            e.person_id,
            e.employee_number,
            e.first_name,
            e.last_name,
            e.middle_name,
            e.preferred_name,
            e.normalized_full_name,
            e.email,
            e.phone,
            e.status,
            e.termination_reason,
            e.terminated_on,
            e.merged_into,
            e.needs_profile_completion,
            e.first_mentioned_date,
            e.first_mentioned_report_id,
            e.last_seen_date,
            e.last_seen_project_id,
            e.created_at,
            e.updated_at
        FROM employees e`

	employeeCountQuery = `SELECT COUNT(e.person_id) FROM employees e`

	employeeTerminateQuery = `
        UPDATE employees
        SET status = 'terminated', termination_reason = $2, terminated_on = $3, updated_at = NOW()
        WHERE person_id = $1 AND status != 'terminated'`

	aliasFindQuery = `
        SELECT a.person_id, a.normalized_alias, a.created_at
        FROM employee_aliases a`

	aliasInsertQuery = `
        INSERT INTO employee_aliases (person_id, normalized_alias, created_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (normalized_alias) DO NOTHING`

	aliasOwnerQuery = `SELECT a.person_id FROM employee_aliases a WHERE a.normalized_alias = $1`

	aliasReassignDupesQuery = `
        DELETE FROM employee_aliases a
        WHERE a.person_id = $1
          AND EXISTS (
            SELECT 1 FROM employee_aliases b
            WHERE b.person_id = $2 AND b.normalized_alias = a.normalized_alias
          )`

	aliasReassignQuery = `UPDATE employee_aliases SET person_id = $2 WHERE person_id = $1`

	aliasRetargetQuery = `UPDATE employee_aliases SET person_id = $2 WHERE normalized_alias = $1`

	mergeInsertQuery = `
        INSERT INTO employee_merges (primary_id, duplicate_id, resolved_fields, actor, created_at)
        VALUES ($1, $2, $3, $4, $5)`
)

type PgEmployeeRepository struct{}

func NewEmployeeRepository() employee.Repository {
	return &PgEmployeeRepository{}
}

func (g *PgEmployeeRepository) GetByID(ctx context.Context, id uuid.UUID) (employee.Employee, error) {
	found, err := g.queryEmployees(ctx, employeeFindQuery+" WHERE e.person_id = $1", id.String())
	if err != nil {
		return employee.Employee{}, err
	}
	if len(found) == 0 {
		return employee.Employee{}, gerrors.Wrap(employee.ErrNotFound, id.String())
	}
	return found[0], nil
}

func (g *PgEmployeeRepository) GetByNumber(ctx context.Context, number string) (employee.Employee, error) {
	found, err := g.queryEmployees(ctx, employeeFindQuery+" WHERE e.employee_number = $1", number)
	if err != nil {
		return employee.Employee{}, err
	}
	if len(found) == 0 {
		return employee.Employee{}, gerrors.Wrap(employee.ErrNotFound, number)
	}
	return found[0], nil
}

func (g *PgEmployeeRepository) GetByNormalizedName(ctx context.Context, normalizedName string) (employee.Employee, error) {
	found, err := g.queryEmployees(ctx,
		employeeFindQuery+" WHERE e.normalized_full_name = $1 AND e.status = 'active'",
		normalizedName,
	)
	if err != nil {
		return employee.Employee{}, err
	}
	if len(found) == 0 {
		return employee.Employee{}, gerrors.Wrap(employee.ErrNotFound, normalizedName)
	}
	return found[0], nil
}

func (g *PgEmployeeRepository) SearchByName(ctx context.Context, query string) ([]employee.Employee, error) {
	pattern := "%" + query + "%"
	return g.queryEmployees(ctx,
		employeeFindQuery+` WHERE e.normalized_full_name ILIKE $1
            OR e.first_name ILIKE $1
            OR e.last_name ILIKE $1
            OR e.preferred_name ILIKE $1
            ORDER BY e.last_name, e.first_name`,
		pattern,
	)
}

func (g *PgEmployeeRepository) List(ctx context.Context, params *employee.FindParams) ([]employee.Employee, error) {
	if params == nil {
		params = &employee.FindParams{}
	}

	where, args := buildEmployeeFilters(params)
	query := repo.Join(
		employeeFindQuery,
		repo.JoinWhere(where...),
		"ORDER BY e.last_name, e.first_name",
		repo.FormatLimitOffset(params.Limit, params.Offset),
	)
	return g.queryEmployees(ctx, query, args...)
}

func (g *PgEmployeeRepository) Count(ctx context.Context, params *employee.FindParams) (int64, error) {
	if params == nil {
		params = &employee.FindParams{}
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, gerrors.Wrap(err, "failed to get transaction")
	}

	where, args := buildEmployeeFilters(params)
	query := repo.Join(employeeCountQuery, repo.JoinWhere(where...))

	var count int64
	if err := tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, gerrors.Wrap(err, "failed to count employees")
	}
	return count, nil
}

func (g *PgEmployeeRepository) Create(ctx context.Context, data employee.Employee) (employee.Employee, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return employee.Employee{}, gerrors.Wrap(err, "failed to get transaction")
	}

	now := time.Now()
	dbEmployee := toDBEmployee(data)
	dbEmployee.CreatedAt = now
	dbEmployee.UpdatedAt = now

	fields := []string{
		"person_id",
		"employee_number",
		"first_name",
		"last_name",
		"middle_name",
		"preferred_name",
		"normalized_full_name",
		"email",
		"phone",
		"status",
		"termination_reason",
		"terminated_on",
		"merged_into",
		"needs_profile_completion",
		"first_mentioned_date",
		"first_mentioned_report_id",
		"last_seen_date",
		"last_seen_project_id",
		"created_at",
		"updated_at",
	}
	values := []interface{}{
		dbEmployee.PersonID,
		dbEmployee.EmployeeNumber,
		dbEmployee.FirstName,
		dbEmployee.LastName,
		dbEmployee.MiddleName,
		dbEmployee.PreferredName,
		dbEmployee.NormalizedFullName,
		dbEmployee.Email,
		dbEmployee.Phone,
		dbEmployee.Status,
		dbEmployee.TerminationReason,
		dbEmployee.TerminatedOn,
		dbEmployee.MergedInto,
		dbEmployee.NeedsProfile,
		dbEmployee.FirstMentionedDate,
		dbEmployee.FirstMentionedRep,
		dbEmployee.LastSeenDate,
		dbEmployee.LastSeenProjectID,
		dbEmployee.CreatedAt,
		dbEmployee.UpdatedAt,
	}

	// The employee row goes first: a failure here leaves no alias rows
	// pointing at a nonexistent person.
	if _, err := tx.Exec(ctx, repo.Insert("employees", fields), values...); err != nil {
		return employee.Employee{}, mapUniqueViolation(err, "failed to insert employee")
	}

	for _, alias := range data.KnownAliases() {
		if err := g.AddAlias(ctx, data.PersonID(), alias); err != nil {
			return employee.Employee{}, err
		}
	}

	return g.GetByID(ctx, data.PersonID())
}

func (g *PgEmployeeRepository) Update(ctx context.Context, data employee.Employee) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return gerrors.Wrap(err, "failed to get transaction")
	}

	dbEmployee := toDBEmployee(data)
	dbEmployee.UpdatedAt = time.Now()

	fields := []string{
		"employee_number",
		"first_name",
		"last_name",
		"middle_name",
		"preferred_name",
		"normalized_full_name",
		"email",
		"phone",
		"status",
		"termination_reason",
		"terminated_on",
		"merged_into",
		"needs_profile_completion",
		"first_mentioned_date",
		"first_mentioned_report_id",
		"last_seen_date",
		"last_seen_project_id",
		"updated_at",
	}
	values := []interface{}{
		dbEmployee.EmployeeNumber,
		dbEmployee.FirstName,
		dbEmployee.LastName,
		dbEmployee.MiddleName,
		dbEmployee.PreferredName,
		dbEmployee.NormalizedFullName,
		dbEmployee.Email,
		dbEmployee.Phone,
		dbEmployee.Status,
		dbEmployee.TerminationReason,
		dbEmployee.TerminatedOn,
		dbEmployee.MergedInto,
		dbEmployee.NeedsProfile,
		dbEmployee.FirstMentionedDate,
		dbEmployee.FirstMentionedRep,
		dbEmployee.LastSeenDate,
		dbEmployee.LastSeenProjectID,
		dbEmployee.UpdatedAt,
	}
	values = append(values, dbEmployee.PersonID)

	tag, err := tx.Exec(ctx,
		repo.Update("employees", fields, fmt.Sprintf("person_id = $%d", len(values))),
		values...,
	)
	if err != nil {
		return mapUniqueViolation(err, fmt.Sprintf("failed to update employee %s", dbEmployee.PersonID))
	}
	if tag.RowsAffected() == 0 {
		return gerrors.Wrap(employee.ErrNotFound, dbEmployee.PersonID)
	}
	return nil
}

func (g *PgEmployeeRepository) Terminate(ctx context.Context, id uuid.UUID, on time.Time, reason employee.TerminationReason) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return gerrors.Wrap(err, "failed to get transaction")
	}

	tag, err := tx.Exec(ctx, employeeTerminateQuery, id.String(), string(reason), on)
	if err != nil {
		return gerrors.Wrap(err, fmt.Sprintf("failed to terminate employee %s", id))
	}
	if tag.RowsAffected() == 0 {
		return gerrors.Wrap(employee.ErrNotFound, id.String())
	}
	return nil
}

func (g *PgEmployeeRepository) AddAlias(ctx context.Context, id uuid.UUID, normalizedAlias string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return gerrors.Wrap(err, "failed to get transaction")
	}

	var ownerID string
	err = tx.QueryRow(ctx, aliasOwnerQuery, normalizedAlias).Scan(&ownerID)
	switch {
	case err == nil:
		if ownerID == id.String() {
			return nil // idempotent re-add
		}
		owner, lookupErr := g.GetByID(ctx, uuid.MustParse(ownerID))
		if lookupErr != nil {
			return lookupErr
		}
		if owner.IsActive() {
			return gerrors.Wrap(employee.ErrAliasConflict, normalizedAlias)
		}
		// The previous owner is gone; the alias follows the living
		// record.
		if _, err := tx.Exec(ctx, aliasRetargetQuery, normalizedAlias, id.String()); err != nil {
			return gerrors.Wrap(err, "failed to retarget alias")
		}
		return nil
	case stderrors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx, aliasInsertQuery, id.String(), normalizedAlias, time.Now()); err != nil {
			return mapUniqueViolation(err, "failed to insert alias")
		}
		return nil
	default:
		return gerrors.Wrap(err, "failed to look up alias owner")
	}
}

func (g *PgEmployeeRepository) FindAlias(ctx context.Context, normalizedAlias string) (employee.AliasRecord, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return employee.AliasRecord{}, gerrors.Wrap(err, "failed to get transaction")
	}

	var row models.EmployeeAlias
	err = tx.QueryRow(ctx, aliasFindQuery+" WHERE a.normalized_alias = $1", normalizedAlias).
		Scan(&row.PersonID, &row.NormalizedAlias, &row.CreatedAt)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return employee.AliasRecord{}, gerrors.Wrap(employee.ErrAliasNotFound, normalizedAlias)
		}
		return employee.AliasRecord{}, gerrors.Wrap(err, "failed to find alias")
	}
	return toDomainAlias(row)
}

func (g *PgEmployeeRepository) AliasesFor(ctx context.Context, id uuid.UUID) ([]employee.AliasRecord, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, aliasFindQuery+" WHERE a.person_id = $1 ORDER BY a.created_at", id.String())
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list aliases")
	}
	defer rows.Close()

	var out []employee.AliasRecord
	for rows.Next() {
		var row models.EmployeeAlias
		if err := rows.Scan(&row.PersonID, &row.NormalizedAlias, &row.CreatedAt); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan alias")
		}
		record, err := toDomainAlias(row)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (g *PgEmployeeRepository) ReassignAliases(ctx context.Context, fromID, toID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return gerrors.Wrap(err, "failed to get transaction")
	}

	// Drop aliases the target already holds, then move the rest with
	// their original timestamps.
	if _, err := tx.Exec(ctx, aliasReassignDupesQuery, fromID.String(), toID.String()); err != nil {
		return gerrors.Wrap(err, "failed to drop overlapping aliases")
	}
	if _, err := tx.Exec(ctx, aliasReassignQuery, fromID.String(), toID.String()); err != nil {
		return gerrors.Wrap(err, "failed to reassign aliases")
	}
	return nil
}

func (g *PgEmployeeRepository) RecordMerge(ctx context.Context, record employee.MergeRecord) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return gerrors.Wrap(err, "failed to get transaction")
	}

	resolved, err := json.Marshal(record.ResolvedFields)
	if err != nil {
		return gerrors.Wrap(err, "failed to marshal resolved fields")
	}

	_, err = tx.Exec(ctx, mergeInsertQuery,
		record.PrimaryID.String(),
		record.DuplicateID.String(),
		resolved,
		nullString(record.Actor),
		record.CreatedAt,
	)
	if err != nil {
		return gerrors.Wrap(err, "failed to record merge")
	}
	return nil
}

func (g *PgEmployeeRepository) queryEmployees(ctx context.Context, query string, args ...interface{}) ([]employee.Employee, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to query employees")
	}
	defer rows.Close()

	var dbRows []models.Employee
	for rows.Next() {
		var row models.Employee
		if err := rows.Scan(
			&row.PersonID,
			&row.EmployeeNumber,
			&row.FirstName,
			&row.LastName,
			&row.MiddleName,
			&row.PreferredName,
			&row.NormalizedFullName,
			&row.Email,
			&row.Phone,
			&row.Status,
			&row.TerminationReason,
			&row.TerminatedOn,
			&row.MergedInto,
			&row.NeedsProfile,
			&row.FirstMentionedDate,
			&row.FirstMentionedRep,
			&row.LastSeenDate,
			&row.LastSeenProjectID,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan employee")
		}
		dbRows = append(dbRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	aliasesByPerson, err := g.aliasesByPerson(ctx, dbRows)
	if err != nil {
		return nil, err
	}

	out := make([]employee.Employee, 0, len(dbRows))
	for _, row := range dbRows {
		entity, err := toDomainEmployee(row, aliasesByPerson[row.PersonID])
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

func (g *PgEmployeeRepository) aliasesByPerson(ctx context.Context, dbRows []models.Employee) (map[string][]string, error) {
	if len(dbRows) == 0 {
		return nil, nil
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to get transaction")
	}

	ids := make([]string, 0, len(dbRows))
	for _, row := range dbRows {
		ids = append(ids, row.PersonID)
	}

	rows, err := tx.Query(ctx, aliasFindQuery+" WHERE a.person_id = ANY($1)", ids)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to load aliases")
	}
	defer rows.Close()

	out := make(map[string][]string, len(ids))
	for rows.Next() {
		var row models.EmployeeAlias
		if err := rows.Scan(&row.PersonID, &row.NormalizedAlias, &row.CreatedAt); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan alias")
		}
		out[row.PersonID] = append(out[row.PersonID], row.NormalizedAlias)
	}
	return out, rows.Err()
}

func buildEmployeeFilters(params *employee.FindParams) ([]string, []interface{}) {
	var where []string
	var args []interface{}

	if params.Status != "" {
		args = append(args, string(params.Status))
		where = append(where, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if params.ProjectID != "" {
		args = append(args, params.ProjectID)
		where = append(where, fmt.Sprintf("e.last_seen_project_id = $%d", len(args)))
	}
	if params.NeedsProfileCompletion != nil {
		args = append(args, *params.NeedsProfileCompletion)
		where = append(where, fmt.Sprintf("e.needs_profile_completion = $%d", len(args)))
	}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(e.first_name ILIKE $%d OR e.last_name ILIKE $%d OR e.preferred_name ILIKE $%d OR e.employee_number ILIKE $%d)",
			n, n, n, n,
		))
	}

	return where, args
}

// mapUniqueViolation translates Postgres unique-constraint failures into the
// domain's conditional-write errors.
func mapUniqueViolation(err error, msg string) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case employeeNameConstraint, employeeNumberConstraint:
			return gerrors.Wrap(employee.ErrDuplicate, pgErr.ConstraintName)
		case aliasUniqueConstraint:
			return gerrors.Wrap(employee.ErrAliasConflict, pgErr.ConstraintName)
		}
		return gerrors.Wrap(employee.ErrDuplicate, pgErr.ConstraintName)
	}
	return gerrors.Wrap(err, msg)
}
