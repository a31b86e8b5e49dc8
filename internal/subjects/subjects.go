// Package subjects stores short aliases for subject codes.
package subjects

import (
	"attendance-backend/internal/components/assert"
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/db"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	report_service_add    = "service.add"
	report_service_get    = "service.get"
	report_service_delete = "service.delete"
	report_service_update = "service.update"
	report_service_fuzzy  = "service.fuzzy-match"

	// names at least this similar (jaro-winkler) are considered the same subject
	fuzzyNameThreshold = 0.9
)

var (
	ErrAliasExists  = errors.New("alias already exists")
	ErrNotFound     = errors.New("subject not found")
	ErrMissingQuery = errors.New("provide subject_code, alias, or subject_name")
)

// NameResolver finds the name of a subject by its code on the portal.
//
// note: fault injection point
type NameResolver interface {
	ResolveSubjectName(ctx context.Context, code string) (string, error)
}

type Subject struct {
	SubjectCode string `json:"subject_code"`
	SubjectName string `json:"subject_name"`
	Alias       string `json:"alias"`
}

func fromRow(row db.Subject) Subject {
	return Subject{
		SubjectCode: row.SubjectCode,
		SubjectName: row.SubjectName,
		Alias:       row.Alias,
	}
}

// Query selects a subject. The first non-empty field of SubjectCode, Alias and
// SubjectName is used.
type Query struct {
	SubjectCode string
	Alias       string
	SubjectName string
}

type Service struct {
	qry      *db.Queries
	resolver NameResolver
	tel      telemetry.API
}

func NewService(qry *db.Queries, resolver NameResolver, tel telemetry.API) Service {
	assert.NotNil(qry, "qry")
	assert.NotNil(resolver, "resolver")
	assert.NotNil(tel, "tel")

	return Service{
		qry:      qry,
		resolver: resolver,
		tel:      telemetry.NewScopedAPI("subjects", tel),
	}
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}

// Add sets the alias of a subject. A subject that is not stored yet has its name
// resolved on the portal first.
func (s Service) Add(ctx context.Context, code, alias string) (Subject, error) {
	if code == "" || alias == "" {
		return Subject{}, fmt.Errorf("%w: subject_code and alias are required", ErrMissingQuery)
	}

	existing, err := s.qry.GetSubjectByCode(ctx, code)
	if err == nil {
		if existing.Alias != "" {
			return Subject{}, fmt.Errorf("%w: %s is %s", ErrAliasExists, code, existing.Alias)
		}
		_, err = s.qry.SetSubjectAlias(ctx, db.SetSubjectAliasParams{Alias: alias, SubjectCode: code})
		if err != nil {
			s.tel.ReportBroken(report_service_add, err, code)
			return Subject{}, err
		}
		existing.Alias = alias
		return fromRow(existing), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.tel.ReportBroken(report_service_add, err, code)
		return Subject{}, err
	}

	name, err := s.resolver.ResolveSubjectName(ctx, code)
	if err != nil {
		s.tel.ReportWarning(report_service_add, "resolve name", code, err)
		return Subject{}, err
	}

	row := db.Subject{SubjectCode: code, SubjectName: name, Alias: alias}
	err = s.qry.CreateSubject(ctx, db.CreateSubjectParams(row))
	if err != nil {
		s.tel.ReportBroken(report_service_add, err, code)
		return Subject{}, err
	}
	return fromRow(row), nil
}

func (s Service) find(ctx context.Context, q Query, fuzzy bool) (db.Subject, error) {
	switch {
	case q.SubjectCode != "":
		row, err := s.qry.GetSubjectByCode(ctx, q.SubjectCode)
		return row, notFound(err, "subject code %s", q.SubjectCode)
	case q.Alias != "":
		row, err := s.qry.GetSubjectByAlias(ctx, q.Alias)
		return row, notFound(err, "alias %s", q.Alias)
	case q.SubjectName != "":
		row, err := s.qry.GetSubjectByName(ctx, q.SubjectName)
		if errors.Is(err, sql.ErrNoRows) && fuzzy {
			return s.closestByName(ctx, q.SubjectName)
		}
		return row, notFound(err, "subject name %s", q.SubjectName)
	}
	return db.Subject{}, ErrMissingQuery
}

func (s Service) closestByName(ctx context.Context, name string) (db.Subject, error) {
	rows, err := s.qry.ListSubjects(ctx)
	if err != nil {
		return db.Subject{}, err
	}

	target := strings.ToLower(strings.TrimSpace(name))
	var best db.Subject
	bestScore := 0.0
	for _, row := range rows {
		score := matchr.JaroWinkler(target, strings.ToLower(row.SubjectName), false)
		if score > bestScore {
			best = row
			bestScore = score
		}
	}
	if bestScore < fuzzyNameThreshold {
		return db.Subject{}, fmt.Errorf("%w: subject name %s", ErrNotFound, name)
	}
	s.tel.ReportDebug(report_service_fuzzy, name, best.SubjectName, bestScore)
	return best, nil
}

// Get returns a subject. A subject name without an exact match resolves to the most
// similar stored name, if any is similar enough.
func (s Service) Get(ctx context.Context, q Query) (Subject, error) {
	row, err := s.find(ctx, q, true)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrMissingQuery) {
			s.tel.ReportBroken(report_service_get, err)
		}
		return Subject{}, err
	}
	return fromRow(row), nil
}

// Delete removes a subject and its alias, names must match exactly.
func (s Service) Delete(ctx context.Context, q Query) (Subject, error) {
	row, err := s.find(ctx, q, false)
	if err != nil {
		return Subject{}, err
	}
	_, err = s.qry.DeleteSubject(ctx, row.SubjectCode)
	if err != nil {
		s.tel.ReportBroken(report_service_delete, err, row.SubjectCode)
		return Subject{}, err
	}
	return fromRow(row), nil
}

// Update replaces the alias of a stored subject.
func (s Service) Update(ctx context.Context, code, alias string) (Subject, error) {
	if code == "" {
		return Subject{}, ErrMissingQuery
	}
	affected, err := s.qry.SetSubjectAlias(ctx, db.SetSubjectAliasParams{Alias: alias, SubjectCode: code})
	if err != nil {
		s.tel.ReportBroken(report_service_update, err, code)
		return Subject{}, err
	}
	if affected == 0 {
		return Subject{}, fmt.Errorf("%w: subject code %s", ErrNotFound, code)
	}
	row, err := s.qry.GetSubjectByCode(ctx, code)
	if err != nil {
		return Subject{}, notFound(err, "subject code %s", code)
	}
	return fromRow(row), nil
}

func (s Service) List(ctx context.Context) ([]Subject, error) {
	rows, err := s.qry.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Subject, len(rows))
	for i, row := range rows {
		out[i] = fromRow(row)
	}
	return out, nil
}

// Aliases maps subject codes to their aliases, subjects without one are left out.
func (s Service) Aliases(ctx context.Context) (map[string]string, error) {
	rows, err := s.qry.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.Alias != "" {
			out[row.SubjectCode] = row.Alias
		}
	}
	return out, nil
}
