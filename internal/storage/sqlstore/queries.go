// Package sqlstore holds the activity, exception and completion queries
// shared by the SQLite and PostgreSQL providers. Queries are written with
// '?' placeholders and rebound for the target dialect.
package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/julianstephens/cadence/internal/migration"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/storage"
)

const activityColumns = `id, kind, template, repeat_every, repeat_unit, repeat_extra,
	end_type, end_count, end_until, created_at, deleted_at`

type Queries struct {
	db      *sql.DB
	dialect migration.Dialect
}

func New(db *sql.DB, dialect migration.Dialect) *Queries {
	return &Queries{db: db, dialect: dialect}
}

// Rebind rewrites '?' placeholders into '$n' for PostgreSQL.
func Rebind(dialect migration.Dialect, query string) string {
	if dialect != migration.Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *Queries) bind(query string) string {
	return Rebind(q.dialect, query)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(row scanner) (models.ActivityDefinition, error) {
	var r storage.ActivityRow
	var deletedAt sql.NullString
	err := row.Scan(&r.ID, &r.Kind, &r.Template, &r.RepeatEvery, &r.RepeatUnit, &r.RepeatExtra,
		&r.EndType, &r.EndCount, &r.EndUntil, &r.CreatedAt, &deletedAt)
	if err != nil {
		return models.ActivityDefinition{}, err
	}
	if deletedAt.Valid {
		r.DeletedAt = &deletedAt.String
	}
	return storage.FromRow(r)
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func (q *Queries) AddActivity(def models.ActivityDefinition) error {
	row, err := storage.ToRow(def)
	if err != nil {
		return err
	}

	tx, err := q.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := q.upsertActivity(tx, row); err != nil {
		return err
	}
	if def.IsRepeating() {
		for index, rec := range def.Repeating.Exceptions {
			if err := q.upsertException(tx, def.ID, index, rec); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activity %s: %w", def.ID, err)
	}
	return nil
}

// UpdateActivity rewrites the definition columns. Stored exceptions are left
// untouched; they are managed through SetException and DeleteException.
func (q *Queries) UpdateActivity(def models.ActivityDefinition) error {
	row, err := storage.ToRow(def)
	if err != nil {
		return err
	}
	return q.upsertActivity(q.db, row)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (q *Queries) upsertActivity(ex execer, row storage.ActivityRow) error {
	_, err := ex.Exec(q.bind(`
		INSERT INTO activities (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			template = excluded.template,
			repeat_every = excluded.repeat_every,
			repeat_unit = excluded.repeat_unit,
			repeat_extra = excluded.repeat_extra,
			end_type = excluded.end_type,
			end_count = excluded.end_count,
			end_until = excluded.end_until,
			deleted_at = excluded.deleted_at`),
		row.ID, row.Kind, row.Template, row.RepeatEvery, row.RepeatUnit, row.RepeatExtra,
		row.EndType, row.EndCount, row.EndUntil, row.CreatedAt, nullable(row.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save activity %s: %w", row.ID, err)
	}
	return nil
}

func (q *Queries) GetActivity(id string) (models.ActivityDefinition, error) {
	def, err := scanActivity(q.db.QueryRow(q.bind(
		`SELECT `+activityColumns+` FROM activities WHERE id = ? AND deleted_at IS NULL`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ActivityDefinition{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return models.ActivityDefinition{}, fmt.Errorf("failed to load activity %s: %w", id, err)
	}

	exceptions, err := q.loadExceptions(`WHERE activity_id = ?`, id)
	if err != nil {
		return models.ActivityDefinition{}, err
	}
	completions, err := q.loadCompletions(`WHERE activity_id = ?`, id)
	if err != nil {
		return models.ActivityDefinition{}, err
	}
	attach(&def, exceptions, completions)
	return def, nil
}

func (q *Queries) GetAllActivities() ([]models.ActivityDefinition, error) {
	return q.list(`WHERE deleted_at IS NULL`)
}

func (q *Queries) GetAllActivitiesIncludingDeleted() ([]models.ActivityDefinition, error) {
	return q.list(``)
}

func (q *Queries) list(where string) ([]models.ActivityDefinition, error) {
	rows, err := q.db.Query(`SELECT ` + activityColumns + ` FROM activities ` + where)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var defs []models.ActivityDefinition
	for rows.Next() {
		def, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	exceptions, err := q.loadExceptions(``)
	if err != nil {
		return nil, err
	}
	completions, err := q.loadCompletions(``)
	if err != nil {
		return nil, err
	}
	for i := range defs {
		attach(&defs[i], exceptions, completions)
	}
	storage.SortDefinitions(defs)
	return defs, nil
}

func attach(def *models.ActivityDefinition, exceptions map[string]map[int]models.ExceptionRecord, completions map[string]models.ActivityCompletions) {
	if def.IsRepeating() {
		for index, rec := range exceptions[def.ID] {
			def.Repeating.Exceptions[index] = rec
		}
	}
	if c, ok := completions[def.ID]; ok {
		def.Completions = &c
	}
}

func (q *Queries) loadExceptions(where string, args ...any) (map[string]map[int]models.ExceptionRecord, error) {
	rows, err := q.db.Query(q.bind(`
		SELECT activity_id, occurrence_index, id, kind, template
		FROM activity_exceptions `+where), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load exceptions: %w", err)
	}
	defer rows.Close()

	out := map[string]map[int]models.ExceptionRecord{}
	for rows.Next() {
		var activityID, id, kind, template string
		var index int
		if err := rows.Scan(&activityID, &index, &id, &kind, &template); err != nil {
			return nil, fmt.Errorf("failed to scan exception: %w", err)
		}
		rec, err := storage.DecodeException(id, kind, template)
		if err != nil {
			return nil, err
		}
		if out[activityID] == nil {
			out[activityID] = map[int]models.ExceptionRecord{}
		}
		out[activityID][index] = rec
	}
	return out, rows.Err()
}

func (q *Queries) loadCompletions(where string, args ...any) (map[string]models.ActivityCompletions, error) {
	rows, err := q.db.Query(q.bind(`
		SELECT activity_id, latest_finished_index, exceptions
		FROM activity_completions `+where), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load completions: %w", err)
	}
	defer rows.Close()

	out := map[string]models.ActivityCompletions{}
	for rows.Next() {
		var activityID, exceptions string
		var latest int
		if err := rows.Scan(&activityID, &latest, &exceptions); err != nil {
			return nil, fmt.Errorf("failed to scan completions: %w", err)
		}
		state, err := storage.DecodeCompletions(latest, exceptions)
		if err != nil {
			return nil, fmt.Errorf("activity %s: %w", activityID, err)
		}
		out[activityID] = state
	}
	return out, rows.Err()
}

func (q *Queries) DeleteActivity(id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := q.db.Exec(q.bind(`UPDATE activities SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`), now, id)
	if err != nil {
		return fmt.Errorf("failed to delete activity %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (q *Queries) RestoreActivity(id string) error {
	var deletedAt sql.NullString
	err := q.db.QueryRow(q.bind(`SELECT deleted_at FROM activities WHERE id = ?`), id).Scan(&deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load activity %s: %w", id, err)
	}
	if !deletedAt.Valid {
		return fmt.Errorf("activity %s is not deleted", id)
	}
	if _, err := q.db.Exec(q.bind(`UPDATE activities SET deleted_at = NULL WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to restore activity %s: %w", id, err)
	}
	return nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return nil
}

func (q *Queries) requireRepeating(id string) error {
	var kind string
	err := q.db.QueryRow(q.bind(`SELECT kind FROM activities WHERE id = ? AND deleted_at IS NULL`), id).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load activity %s: %w", id, err)
	}
	if models.DefinitionKind(kind) != models.DefinitionRepeating {
		return fmt.Errorf("activity %s is not repeating", id)
	}
	return nil
}

func (q *Queries) SetException(activityID string, index int, rec models.ExceptionRecord) error {
	if err := q.requireRepeating(activityID); err != nil {
		return err
	}
	return q.upsertException(q.db, activityID, index, rec)
}

func (q *Queries) upsertException(ex execer, activityID string, index int, rec models.ExceptionRecord) error {
	template, err := storage.EncodeException(rec)
	if err != nil {
		return err
	}
	_, err = ex.Exec(q.bind(`
		INSERT INTO activity_exceptions (id, activity_id, occurrence_index, kind, template)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(activity_id, occurrence_index) DO UPDATE SET
			id = excluded.id,
			kind = excluded.kind,
			template = excluded.template`),
		rec.ID, activityID, index, string(rec.Kind), template,
	)
	if err != nil {
		return fmt.Errorf("failed to save exception %d of activity %s: %w", index, activityID, err)
	}
	return nil
}

func (q *Queries) DeleteException(activityID string, index int) error {
	if err := q.requireRepeating(activityID); err != nil {
		return err
	}
	_, err := q.db.Exec(q.bind(`DELETE FROM activity_exceptions WHERE activity_id = ? AND occurrence_index = ?`), activityID, index)
	if err != nil {
		return fmt.Errorf("failed to delete exception %d of activity %s: %w", index, activityID, err)
	}
	return nil
}

func (q *Queries) activityExists(id string) error {
	var one int
	err := q.db.QueryRow(q.bind(`SELECT 1 FROM activities WHERE id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load activity %s: %w", id, err)
	}
	return nil
}

func (q *Queries) GetCompletions(activityID string) (mo.Option[models.ActivityCompletions], int64, error) {
	none := mo.None[models.ActivityCompletions]()
	if err := q.activityExists(activityID); err != nil {
		return none, 0, err
	}

	var latest int
	var exceptions string
	var version int64
	err := q.db.QueryRow(q.bind(`
		SELECT latest_finished_index, exceptions, version
		FROM activity_completions WHERE activity_id = ?`), activityID).Scan(&latest, &exceptions, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return none, 0, nil
	}
	if err != nil {
		return none, 0, fmt.Errorf("failed to load completions of %s: %w", activityID, err)
	}

	state, err := storage.DecodeCompletions(latest, exceptions)
	if err != nil {
		return none, 0, err
	}
	return mo.Some(state), version, nil
}

// SaveCompletions is a compare-and-swap on the version column. Version 0
// inserts the first row; a concurrent insert loses on the primary key.
func (q *Queries) SaveCompletions(activityID string, state models.ActivityCompletions, expectedVersion int64) error {
	if err := q.activityExists(activityID); err != nil {
		return err
	}
	exceptions, err := storage.EncodeCompletionExceptions(state)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var res sql.Result
	if expectedVersion == 0 {
		res, err = q.db.Exec(q.bind(`
			INSERT INTO activity_completions (activity_id, latest_finished_index, exceptions, version, updated_at)
			VALUES (?, ?, ?, 1, ?)
			ON CONFLICT(activity_id) DO NOTHING`),
			activityID, state.LatestFinishedIndex, exceptions, now)
	} else {
		res, err = q.db.Exec(q.bind(`
			UPDATE activity_completions
			SET latest_finished_index = ?, exceptions = ?, version = version + 1, updated_at = ?
			WHERE activity_id = ? AND version = ?`),
			state.LatestFinishedIndex, exceptions, now, activityID, expectedVersion)
	}
	if err != nil {
		return fmt.Errorf("failed to save completions of %s: %w", activityID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: activity %s, expected version %d", storage.ErrVersionConflict, activityID, expectedVersion)
	}
	return nil
}
