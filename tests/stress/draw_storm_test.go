package stress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elcady/walimah-backend/internal/model"
	"github.com/elcady/walimah-backend/internal/repository"
	"github.com/elcady/walimah-backend/internal/service"
)

func newDrawService() *service.DrawService {
	drawRepo := repository.NewDrawRepository(testPool)
	winnerRepo := repository.NewWinnerRepository(testPool)
	userRepo := repository.NewUserRepository(testPool)
	return service.NewDrawService(testPool, drawRepo, winnerRepo, userRepo, nil)
}

// TestDrawExecutionStorm fires 20 concurrent Execute calls at the same
// scheduled draw. The status CAS inside the execution transaction must let
// exactly one through; every loser rolls back its winner rows.
//
//	Given a SCHEDULED draw with two prizes (3 and 2 winners) and 30 users
//	When 20 goroutines execute the draw simultaneously
//	Then exactly 1 execution succeeds
//	And exactly 19 fail with ErrDrawAlreadyExecuted
//	And exactly 5 winner rows exist, all from the winning execution
//	And no user appears twice under the same prize
func TestDrawExecutionStorm(t *testing.T) {
	cleanupTables(t)

	const (
		concurrentExecutions = 20
		timeout              = 60 * time.Second
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	seedUsers(t, 30)
	drawID := seedScheduledDraw(t, "Eid Grand Draw", 3, 2)

	svc := newDrawService()

	startTime := time.Now()
	t.Logf("Starting draw execution storm: %d concurrent executions of draw %d", concurrentExecutions, drawID)

	var wg sync.WaitGroup
	type result struct {
		resp *model.ExecuteDrawResponse
		err  error
	}
	results := make(chan result, concurrentExecutions)

	for i := 0; i < concurrentExecutions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.Execute(ctx, drawID)
			results <- result{resp: resp, err: err}
		}()
	}

	wg.Wait()
	close(results)

	var successes, alreadyExecuted, otherErrors int
	var winning *model.ExecuteDrawResponse
	for r := range results {
		switch {
		case r.err == nil:
			successes++
			winning = r.resp
		case errors.Is(r.err, service.ErrDrawAlreadyExecuted):
			alreadyExecuted++
		default:
			otherErrors++
			t.Logf("Unexpected error: %v", r.err)
		}
	}

	t.Logf("Results - Successes: %d, AlreadyExecuted: %d, Other: %d", successes, alreadyExecuted, otherErrors)
	t.Logf("Execution time: %v", time.Since(startTime))

	require.Equal(t, 1, successes, "Exactly one execution should win the status race")
	assert.Equal(t, concurrentExecutions-1, alreadyExecuted,
		"Every losing execution should fail with ErrDrawAlreadyExecuted")
	assert.Equal(t, 0, otherErrors, "No other errors should occur")

	require.NotNil(t, winning)
	assert.Equal(t, string(model.DrawStatusCompleted), winning.Status)
	require.Len(t, winning.Winners, 5, "Winning execution should pick 3+2 winners")

	// Losing executions must leave no trace.
	var winnerRows int
	err := testPool.QueryRow(ctx, `SELECT COUNT(*) FROM draw_winners`).Scan(&winnerRows)
	require.NoError(t, err)
	assert.Equal(t, 5, winnerRows, "Only the winning execution may persist winner rows")

	var duplicates int
	err = testPool.QueryRow(ctx,
		`SELECT COUNT(*) FROM (
			SELECT draw_prize_id, user_id FROM draw_winners
			GROUP BY draw_prize_id, user_id HAVING COUNT(*) > 1
		) d`).Scan(&duplicates)
	require.NoError(t, err)
	assert.Equal(t, 0, duplicates, "No user may win the same prize twice")

	var status model.DrawStatus
	err = testPool.QueryRow(ctx, `SELECT status FROM draws WHERE id = $1`, drawID).Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, model.DrawStatusCompleted, status)
}

// TestSequentialDrawsExhaustUsers runs back-to-back draws until the winner
// exclusion rule starves the pool. With 4 users and draws of 3 winners each,
// the second draw can only pick the one remaining user and the third must
// fail outright.
func TestSequentialDrawsExhaustUsers(t *testing.T) {
	cleanupTables(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seedUsers(t, 4)
	svc := newDrawService()

	first := seedScheduledDraw(t, "Week 1 Draw", 3)
	resp, err := svc.Execute(ctx, first)
	require.NoError(t, err)
	require.Len(t, resp.Winners, 3)

	second := seedScheduledDraw(t, "Week 2 Draw", 3)
	resp, err = svc.Execute(ctx, second)
	require.NoError(t, err)
	assert.Len(t, resp.Winners, 1, "Only the one user without a prior win is eligible")

	third := seedScheduledDraw(t, "Week 3 Draw", 1)
	_, err = svc.Execute(ctx, third)
	assert.ErrorIs(t, err, service.ErrNoEligibleUsers)

	var distinctWinners int
	err = testPool.QueryRow(ctx, `SELECT COUNT(DISTINCT user_id) FROM draw_winners`).Scan(&distinctWinners)
	require.NoError(t, err)
	assert.Equal(t, 4, distinctWinners, "Across draws every user wins at most once")
}
