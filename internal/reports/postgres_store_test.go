package reports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/chainrisk/internal/testutil"
)

func TestPostgresStore_CountAndAdd(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	s := NewPostgresStore(db)
	ctx := context.Background()

	n, err := s.CountReports(ctx, "0xdeadbeef")
	require.NoError(t, err)
	assert.Zero(t, n)

	total, err := s.AddReports(ctx, "0xDEADBEEF", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	total, err = s.AddReports(ctx, "0xdeadbeef", 3)
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	n, err = s.CountReports(ctx, "0xDeadBeef")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = s.AddReports(ctx, "0xdeadbeef", -1)
	assert.ErrorIs(t, err, ErrInvalidCount)
}
