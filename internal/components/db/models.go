package db

import "database/sql"

type PortalCredential struct {
	UserID    string
	Source    string
	Secret    string
	UpdatedAt int64
}

type Grade struct {
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

type ApiToken struct {
	Token     string
	UserID    string
	CreatedAt int64
}
