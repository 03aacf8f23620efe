package persistence

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flowstart/douyin-web/internal/domain/importjob"
	"github.com/flowstart/douyin-web/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormImportJobRepository_TryClaim_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormImportJobRepository(db)
	at := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "import_jobs" SET "picked_at"=$1,"status"=$2,"updated_at"=$3 WHERE id = $4 AND status = $5`)).
		WithArgs(at, "processing", at, int64(7), "queued").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.TryClaim(context.Background(), 7, at)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "import_jobs"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err = repo.TryClaim(context.Background(), 7, at)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormImportJobRepository_Queue(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormImportJobRepository(db)
	ctx := context.Background()

	none, err := repo.OldestQueued(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	first, err := importjob.NewJob("orders_1", importjob.JobTypeOrders, map[string]string{importjob.PayloadOrdersFile: "a.xlsx"})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, first))
	second, err := importjob.NewJob("orders_2", importjob.JobTypeOrders, nil)
	require.NoError(t, err)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Create(ctx, second))
	assert.NotZero(t, first.ID)

	oldest, err := repo.OldestQueued(ctx)
	require.NoError(t, err)
	require.NotNil(t, oldest)
	assert.Equal(t, "orders_1", oldest.TaskID)
	assert.Equal(t, "a.xlsx", oldest.Payload[importjob.PayloadOrdersFile])

	// many workers race for the same job; exactly one wins
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TryClaim(ctx, oldest.ID, time.Now())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	claimed, err := repo.FindByID(ctx, oldest.ID)
	require.NoError(t, err)
	assert.Equal(t, importjob.StatusProcessing, claimed.Status)
	assert.NotNil(t, claimed.PickedAt)

	next, err := repo.OldestQueued(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "orders_2", next.TaskID)

	require.NoError(t, repo.UpdateStatus(ctx, oldest.ID, importjob.StatusCompleted))
	byTask, err := repo.FindByTaskID(ctx, "orders_1")
	require.NoError(t, err)
	assert.Equal(t, importjob.StatusCompleted, byTask.Status)

	require.NoError(t, repo.DeleteByTaskIDs(ctx, []string{"orders_1"}))
	_, err = repo.FindByTaskID(ctx, "orders_1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormImportTaskRepository(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormImportTaskRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"t1", "t2", "t3"} {
		task := importjob.NewTask(id, importjob.JobTypeOrders, id+".xlsx")
		task.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, task))
	}

	counters := &importjob.Counters{Total: 3, Created: 2, Updated: 1}
	require.NoError(t, repo.Update(ctx, "t2", importjob.TaskPatch{OrderStats: counters}))
	require.NoError(t, repo.Update(ctx, "t2", importjob.CompletedPatch(4, time.Now())))

	got, err := repo.FindByTaskID(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, importjob.StatusCompleted, got.Status)
	assert.Equal(t, importjob.ProgressCompleted, got.Progress)
	assert.Equal(t, 4, got.SkuStatsCount)
	require.NotNil(t, got.OrderStats)
	assert.Equal(t, 2, got.OrderStats.Created)
	assert.NotNil(t, got.CompletedAt)

	assert.ErrorIs(t, repo.Update(ctx, "missing", importjob.ProgressPatch("x")), shared.ErrNotFound)

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "t3", recent[0].TaskID)

	// t1 is still queued and survives even past the limit
	pruned, err := repo.PruneKeep(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, pruned)

	_, err = repo.FindByTaskID(ctx, "t1")
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, "t1", importjob.FailedPatch("bad file", time.Now())))
	pruned, err = repo.PruneKeep(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, pruned)

	pruned, err = repo.PruneKeep(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, pruned)
}
