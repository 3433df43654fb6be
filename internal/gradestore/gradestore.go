package gradestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gradesync-backend/internal/components/assert"
	"gradesync-backend/internal/components/chrono"
	"gradesync-backend/internal/components/db"
	"gradesync-backend/internal/components/telemetry"
	"gradesync-backend/internal/portal/gradeparse"
)

const (
	report_gradestore_save   = "gradestore.save"
	report_gradestore_synced = "gradestore.synced"
)

// Stored is a grade as persisted for a user.
type Stored struct {
	Source string `json:"source"`
	gradeparse.Grade
	SyncedAt time.Time `json:"syncedAt"`
}

// Store persists synced grades keyed by (user, source, subject, date). A
// later grade with the same key replaces the earlier one.
type Store struct {
	qry    *db.Queries
	makeTx db.MakeTx
	tel    telemetry.API
	time   chrono.TimeAPI
}

func NewStore(qry *db.Queries, makeTx db.MakeTx, tel telemetry.API, clock chrono.TimeAPI) *Store {
	assert.NotNil(qry)
	assert.NotNil(makeTx)
	assert.NotNil(tel)
	assert.NotNil(clock)
	return &Store{qry: qry, makeTx: makeTx, tel: tel, time: clock}
}

// Save upserts every grade in a single transaction, either all of them are
// written or none is.
func (s *Store) Save(ctx context.Context, userID, source string, grades []gradeparse.Grade) error {
	if len(grades) == 0 {
		return nil
	}

	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return err
	}
	defer discard()

	now := s.time.Now().Unix()
	for _, g := range grades {
		err := tx.UpsertGrade(ctx, db.UpsertGradeParams{
			UserID:    userID,
			Source:    source,
			Subject:   g.Subject,
			Date:      g.Date,
			Grade:     int64(g.Value),
			GradeType: g.Type,
			Semester:  g.Semester,
			Teacher:   g.Teacher,
			Comment: sql.NullString{
				String: g.Comment,
				Valid:  g.Comment != "",
			},
			SyncedAt: now,
		})
		if err != nil {
			s.tel.ReportBroken(report_gradestore_save, source, g.Subject, g.Date, err)
			return fmt.Errorf("upsert grade %s/%s: %w", g.Subject, g.Date, err)
		}
	}

	if err := commit(); err != nil {
		s.tel.ReportBroken(report_gradestore_save, source, err)
		return err
	}
	s.tel.ReportCount(report_gradestore_synced, int64(len(grades)))
	return nil
}

func (s *Store) Get(ctx context.Context, userID, source string) ([]Stored, error) {
	rows, err := s.qry.GetGrades(ctx, db.GetGradesParams{UserID: userID, Source: source})
	if err != nil {
		return nil, fmt.Errorf("get grades: %w", err)
	}
	return convert(rows), nil
}

func (s *Store) GetAll(ctx context.Context, userID string) ([]Stored, error) {
	rows, err := s.qry.GetAllGrades(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get all grades: %w", err)
	}
	return convert(rows), nil
}

func convert(rows []db.Grade) []Stored {
	out := make([]Stored, len(rows))
	for i, r := range rows {
		out[i] = Stored{
			Source: r.Source,
			Grade: gradeparse.Grade{
				Subject:  r.Subject,
				Value:    int(r.Grade),
				Type:     r.GradeType,
				Date:     r.Date,
				Semester: r.Semester,
				Teacher:  r.Teacher,
				Comment:  r.Comment.String,
			},
			SyncedAt: time.Unix(r.SyncedAt, 0).In(chrono.Vilnius()),
		}
	}
	return out
}
