package db

import (
	"context"
	"database/sql"
)

const createNotification = `-- name: CreateNotification :exec
insert into notifications (
    id, username, subject_code, subject_name,
    old_percentage, new_percentage, created_at
) values (?, ?, ?, ?, ?, ?, ?)
`

type CreateNotificationParams struct {
	ID            string
	Username      string
	SubjectCode   string
	SubjectName   string
	OldPercentage float64
	NewPercentage float64
	CreatedAt     int64
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) error {
	_, err := q.db.ExecContext(ctx, createNotification,
		arg.ID,
		arg.Username,
		arg.SubjectCode,
		arg.SubjectName,
		arg.OldPercentage,
		arg.NewPercentage,
		arg.CreatedAt,
	)
	return err
}

const createSubject = `-- name: CreateSubject :exec
insert into subjects (subject_code, subject_name, alias) values (?, ?, ?)
`

type CreateSubjectParams struct {
	SubjectCode string
	SubjectName string
	Alias       string
}

func (q *Queries) CreateSubject(ctx context.Context, arg CreateSubjectParams) error {
	_, err := q.db.ExecContext(ctx, createSubject, arg.SubjectCode, arg.SubjectName, arg.Alias)
	return err
}

const createUser = `-- name: CreateUser :exec
insert into users (username, password, email) values (?, ?, ?)
on conflict (username) do update set
    password = excluded.password,
    email = excluded.email
`

type CreateUserParams struct {
	Username string
	Password string
	Email    string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser, arg.Username, arg.Password, arg.Email)
	return err
}

const deleteSubject = `-- name: DeleteSubject :execrows
delete from subjects where subject_code = ?
`

func (q *Queries) DeleteSubject(ctx context.Context, subjectCode string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSubject, subjectCode)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteUser = `-- name: DeleteUser :execrows
delete from users where username = ?
`

func (q *Queries) DeleteUser(ctx context.Context, username string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteUser, username)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteUserNotifications = `-- name: DeleteUserNotifications :exec
delete from notifications where username = ?
`

func (q *Queries) DeleteUserNotifications(ctx context.Context, username string) error {
	_, err := q.db.ExecContext(ctx, deleteUserNotifications, username)
	return err
}

const deleteUserSnapshots = `-- name: DeleteUserSnapshots :exec
delete from attendance_snapshots where username = ?
`

func (q *Queries) DeleteUserSnapshots(ctx context.Context, username string) error {
	_, err := q.db.ExecContext(ctx, deleteUserSnapshots, username)
	return err
}

const getSnapshots = `-- name: GetSnapshots :many
select username, subject_code, percentage, updated_at from attendance_snapshots where username = ? order by subject_code
`

func (q *Queries) GetSnapshots(ctx context.Context, username string) ([]AttendanceSnapshot, error) {
	rows, err := q.db.QueryContext(ctx, getSnapshots, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AttendanceSnapshot
	for rows.Next() {
		var i AttendanceSnapshot
		if err := rows.Scan(
			&i.Username,
			&i.SubjectCode,
			&i.Percentage,
			&i.UpdatedAt,
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

const getSubjectByAlias = `-- name: GetSubjectByAlias :one
select subject_code, subject_name, alias from subjects where alias = ? and alias != '' limit 1
`

func (q *Queries) GetSubjectByAlias(ctx context.Context, alias string) (Subject, error) {
	row := q.db.QueryRowContext(ctx, getSubjectByAlias, alias)
	var i Subject
	err := row.Scan(&i.SubjectCode, &i.SubjectName, &i.Alias)
	return i, err
}

const getSubjectByCode = `-- name: GetSubjectByCode :one
select subject_code, subject_name, alias from subjects where subject_code = ?
`

func (q *Queries) GetSubjectByCode(ctx context.Context, subjectCode string) (Subject, error) {
	row := q.db.QueryRowContext(ctx, getSubjectByCode, subjectCode)
	var i Subject
	err := row.Scan(&i.SubjectCode, &i.SubjectName, &i.Alias)
	return i, err
}

const getSubjectByName = `-- name: GetSubjectByName :one
select subject_code, subject_name, alias from subjects where subject_name = ? limit 1
`

func (q *Queries) GetSubjectByName(ctx context.Context, subjectName string) (Subject, error) {
	row := q.db.QueryRowContext(ctx, getSubjectByName, subjectName)
	var i Subject
	err := row.Scan(&i.SubjectCode, &i.SubjectName, &i.Alias)
	return i, err
}

const getUser = `-- name: GetUser :one
select username, password, email from users where username = ?
`

func (q *Queries) GetUser(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, username)
	var i User
	err := row.Scan(&i.Username, &i.Password, &i.Email)
	return i, err
}

const listAllUndeliveredNotifications = `-- name: ListAllUndeliveredNotifications :many
select id, username, subject_code, subject_name, old_percentage, new_percentage, created_at, delivered_at from notifications
where delivered_at is null
order by username, created_at, rowid
`

func (q *Queries) ListAllUndeliveredNotifications(ctx context.Context) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, listAllUndeliveredNotifications)
	if err != nil {
		return nil, err
	}
	return scanNotifications(rows)
}

const listSubjects = `-- name: ListSubjects :many
select subject_code, subject_name, alias from subjects order by subject_code
`

func (q *Queries) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := q.db.QueryContext(ctx, listSubjects)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Subject
	for rows.Next() {
		var i Subject
		if err := rows.Scan(&i.SubjectCode, &i.SubjectName, &i.Alias); err != nil {
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

const listUndeliveredNotifications = `-- name: ListUndeliveredNotifications :many
select id, username, subject_code, subject_name, old_percentage, new_percentage, created_at, delivered_at from notifications
where username = ? and delivered_at is null
order by created_at, rowid
`

func (q *Queries) ListUndeliveredNotifications(ctx context.Context, username string) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, listUndeliveredNotifications, username)
	if err != nil {
		return nil, err
	}
	return scanNotifications(rows)
}

func scanNotifications(rows *sql.Rows) ([]Notification, error) {
	defer rows.Close()
	var items []Notification
	for rows.Next() {
		var i Notification
		if err := rows.Scan(
			&i.ID,
			&i.Username,
			&i.SubjectCode,
			&i.SubjectName,
			&i.OldPercentage,
			&i.NewPercentage,
			&i.CreatedAt,
			&i.DeliveredAt,
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

const listUsers = `-- name: ListUsers :many
select username, password, email from users order by username
`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var i User
		if err := rows.Scan(&i.Username, &i.Password, &i.Email); err != nil {
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

const markNotificationDelivered = `-- name: MarkNotificationDelivered :exec
update notifications set delivered_at = ? where id = ?
`

type MarkNotificationDeliveredParams struct {
	DeliveredAt sql.NullInt64
	ID          string
}

func (q *Queries) MarkNotificationDelivered(ctx context.Context, arg MarkNotificationDeliveredParams) error {
	_, err := q.db.ExecContext(ctx, markNotificationDelivered, arg.DeliveredAt, arg.ID)
	return err
}

const setSubjectAlias = `-- name: SetSubjectAlias :execrows
update subjects set alias = ? where subject_code = ?
`

type SetSubjectAliasParams struct {
	Alias       string
	SubjectCode string
}

func (q *Queries) SetSubjectAlias(ctx context.Context, arg SetSubjectAliasParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setSubjectAlias, arg.Alias, arg.SubjectCode)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const upsertSnapshot = `-- name: UpsertSnapshot :exec
insert into attendance_snapshots (username, subject_code, percentage, updated_at)
values (?, ?, ?, ?)
on conflict (username, subject_code) do update set
    percentage = excluded.percentage,
    updated_at = excluded.updated_at
`

type UpsertSnapshotParams struct {
	Username    string
	SubjectCode string
	Percentage  float64
	UpdatedAt   int64
}

func (q *Queries) UpsertSnapshot(ctx context.Context, arg UpsertSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshot,
		arg.Username,
		arg.SubjectCode,
		arg.Percentage,
		arg.UpdatedAt,
	)
	return err
}
