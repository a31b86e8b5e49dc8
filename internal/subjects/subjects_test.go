package subjects

import (
	"attendance-backend/internal/components/telemetry"
	"attendance-backend/internal/db"
	"attendance-backend/internal/scrapers/srm"
	"attendance-backend/internal/testutil"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	names map[string]string
	calls int
}

func (f *fakeResolver) ResolveSubjectName(_ context.Context, code string) (string, error) {
	f.calls++
	name, ok := f.names[code]
	if !ok {
		return "", fmt.Errorf("%w: %s", srm.ErrSubjectNotFound, code)
	}
	return name, nil
}

func setup(t *testing.T) (Service, *fakeResolver) {
	resolver := &fakeResolver{names: map[string]string{
		"21CSC204J": "Design and Analysis of Algorithms",
		"21MAB204T": "Probability and Queueing Theory",
	}}
	qry := db.New(testutil.OpenDB(t))
	return NewService(qry, resolver, telemetry.NewTestAPI(t)), resolver
}

func TestAdd(t *testing.T) {
	ctx := context.Background()
	service, resolver := setup(t)

	subject, err := service.Add(ctx, "21CSC204J", "DAA")
	require.NoError(t, err)
	require.Equal(t, Subject{SubjectCode: "21CSC204J", SubjectName: "Design and Analysis of Algorithms", Alias: "DAA"}, subject)
	require.Equal(t, 1, resolver.calls)

	_, err = service.Add(ctx, "21CSC204J", "ALGO")
	require.ErrorIs(t, err, ErrAliasExists)

	_, err = service.Add(ctx, "99XYZ999", "X")
	require.ErrorIs(t, err, srm.ErrSubjectNotFound)

	_, err = service.Add(ctx, "", "X")
	require.ErrorIs(t, err, ErrMissingQuery)
}

func TestAddToSubjectWithoutAlias(t *testing.T) {
	ctx := context.Background()
	service, resolver := setup(t)

	_, err := service.Add(ctx, "21MAB204T", "PQT")
	require.NoError(t, err)
	_, err = service.Update(ctx, "21MAB204T", "")
	require.NoError(t, err)

	subject, err := service.Add(ctx, "21MAB204T", "PROB")
	require.NoError(t, err)
	require.Equal(t, "PROB", subject.Alias)
	require.Equal(t, 1, resolver.calls, "stored subjects are not resolved again")
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	service, _ := setup(t)
	_, err := service.Add(ctx, "21CSC204J", "DAA")
	require.NoError(t, err)

	testCases := []struct {
		name     string
		query    Query
		expected string
		err      error
	}{
		{name: "by code", query: Query{SubjectCode: "21CSC204J"}, expected: "21CSC204J"},
		{name: "by alias", query: Query{Alias: "DAA"}, expected: "21CSC204J"},
		{name: "by name", query: Query{SubjectName: "Design and Analysis of Algorithms"}, expected: "21CSC204J"},
		{name: "by similar name", query: Query{SubjectName: "design and analysis of algorithm"}, expected: "21CSC204J"},
		{name: "code wins", query: Query{SubjectCode: "21CSC204J", Alias: "nope"}, expected: "21CSC204J"},
		{name: "unknown code", query: Query{SubjectCode: "99XYZ999"}, err: ErrNotFound},
		{name: "unknown alias", query: Query{Alias: "OS"}, err: ErrNotFound},
		{name: "dissimilar name", query: Query{SubjectName: "Operating Systems"}, err: ErrNotFound},
		{name: "no query", query: Query{}, err: ErrMissingQuery},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			subject, err := service.Get(ctx, testCase.query)
			if testCase.err != nil {
				require.True(t, errors.Is(err, testCase.err), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, testCase.expected, subject.SubjectCode)
		})
	}
}

func TestDeleteAndUpdate(t *testing.T) {
	ctx := context.Background()
	service, _ := setup(t)
	_, err := service.Add(ctx, "21CSC204J", "DAA")
	require.NoError(t, err)
	_, err = service.Add(ctx, "21MAB204T", "PQT")
	require.NoError(t, err)

	updated, err := service.Update(ctx, "21MAB204T", "PROB")
	require.NoError(t, err)
	require.Equal(t, "PROB", updated.Alias)

	_, err = service.Update(ctx, "99XYZ999", "X")
	require.ErrorIs(t, err, ErrNotFound)

	aliases, err := service.Aliases(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"21CSC204J": "DAA", "21MAB204T": "PROB"}, aliases)

	_, err = service.Delete(ctx, Query{SubjectName: "design and analysis of algorithm"})
	require.ErrorIs(t, err, ErrNotFound, "deletes never match names loosely")

	deleted, err := service.Delete(ctx, Query{Alias: "DAA"})
	require.NoError(t, err)
	require.Equal(t, "21CSC204J", deleted.SubjectCode)

	_, err = service.Delete(ctx, Query{})
	require.ErrorIs(t, err, ErrMissingQuery)

	list, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
