package db

import (
	"context"
	"database/sql"
)

const upsertGrade = `-- name: UpsertGrade :exec
INSERT INTO grades (
    user_id, source, subject, date, grade, grade_type, semester, teacher, comment, synced_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, source, subject, date) DO UPDATE SET
    grade = excluded.grade,
    grade_type = excluded.grade_type,
    semester = excluded.semester,
    teacher = excluded.teacher,
    comment = excluded.comment,
    synced_at = excluded.synced_at
`

type UpsertGradeParams struct {
	UserID    string
	Source    string
	Subject   string
	Date      string
	Grade     int64
	GradeType string
	Semester  string
	Teacher   string
	Comment   sql.NullString
	SyncedAt  int64
}

func (q *Queries) UpsertGrade(ctx context.Context, arg UpsertGradeParams) error {
	_, err := q.db.ExecContext(ctx, upsertGrade,
		arg.UserID,
		arg.Source,
		arg.Subject,
		arg.Date,
		arg.Grade,
		arg.GradeType,
		arg.Semester,
		arg.Teacher,
		arg.Comment,
		arg.SyncedAt,
	)
	return err
}

const getGrades = `-- name: GetGrades :many
SELECT user_id, source, subject, date, grade, grade_type, semester, teacher, comment, synced_at FROM grades
WHERE user_id = ? AND source = ?
ORDER BY date DESC, subject
`

type GetGradesParams struct {
	UserID string
	Source string
}

func (q *Queries) GetGrades(ctx context.Context, arg GetGradesParams) ([]Grade, error) {
	rows, err := q.db.QueryContext(ctx, getGrades, arg.UserID, arg.Source)
	if err != nil {
		return nil, err
	}
	return scanGrades(rows)
}

const getAllGrades = `-- name: GetAllGrades :many
SELECT user_id, source, subject, date, grade, grade_type, semester, teacher, comment, synced_at FROM grades
WHERE user_id = ?
ORDER BY date DESC, source, subject
`

func (q *Queries) GetAllGrades(ctx context.Context, userID string) ([]Grade, error) {
	rows, err := q.db.QueryContext(ctx, getAllGrades, userID)
	if err != nil {
		return nil, err
	}
	return scanGrades(rows)
}

func scanGrades(rows *sql.Rows) ([]Grade, error) {
	defer rows.Close()
	var items []Grade
	for rows.Next() {
		var i Grade
		if err := rows.Scan(
			&i.UserID,
			&i.Source,
			&i.Subject,
			&i.Date,
			&i.Grade,
			&i.GradeType,
			&i.Semester,
			&i.Teacher,
			&i.Comment,
			&i.SyncedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
