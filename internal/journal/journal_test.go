package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagewrap/internal/assemble"
	"git.home.luguber.info/inful/pagewrap/internal/scope"
)

func report(id string, started time.Time, err error) *assemble.Report {
	return &assemble.Report{
		PassID:   id,
		Scope:    scope.All(scope.ReasonRequested),
		Started:  started,
		Finished: started.Add(40 * time.Millisecond),
		Outputs: []assemble.OutputRecord{
			{Source: "/src/index.html", Dest: "/dist/index.html", Fingerprint: "fp-" + id},
		},
		MissingIncludes: 2,
		Err:             err,
	}
}

func TestJournal_RecordAndRecent(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = j.Close() }()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, j.Record(ctx, report("p1", base, nil)))
	require.NoError(t, j.Record(ctx, report("p2", base.Add(time.Minute), errors.New("footer missing"))))

	passes, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, passes, 2)
	require.Equal(t, "p2", passes[0].ID)
	require.Equal(t, assemble.StatusFailed, passes[0].Status)
	require.Equal(t, "footer missing", passes[0].Error)
	require.Equal(t, "p1", passes[1].ID)
	require.Equal(t, assemble.StatusSuccess, passes[1].Status)
	require.Equal(t, 1, passes[1].Files)
	require.Equal(t, 2, passes[1].MissingIncludes)
	require.Equal(t, "all", passes[1].Scope)
	require.Equal(t, base.UnixMilli(), passes[1].Started.UnixMilli())

	outs, err := j.Outputs(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, []Output{{PassID: "p1", Source: "/src/index.html", Dest: "/dist/index.html", Fingerprint: "fp-p1"}}, outs)
}

func TestJournal_Prune(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = j.Close() }()
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, j.Record(ctx, report(id, base.Add(time.Duration(i)*time.Second), nil)))
	}
	n, err := j.Prune(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	passes, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, passes, 1)
	require.Equal(t, "c", passes[0].ID)

	outs, err := j.Outputs(ctx, "a")
	require.NoError(t, err)
	require.Empty(t, outs)
}

func TestJournal_FilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(context.Background(), report("x", time.Now(), nil)))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = j.Close() }()
	passes, err := j.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, passes, 1)
}
