package worker

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/internal/feeschedule"
)

// sweepRepo is a minimal feeschedule.Repository: the sweeper only exercises
// ListScheduledToActivate and Activate.
type sweepRepo struct {
	due       []*entity.FeeSchedule
	activated chan int64
}

func (r *sweepRepo) Create(ctx context.Context, schedule *entity.FeeSchedule) error { return nil }
func (r *sweepRepo) GetByID(ctx context.Context, id int64) (*entity.FeeSchedule, error) {
	return nil, nil
}
func (r *sweepRepo) ListByPermitType(ctx context.Context, permitTypeID int64) ([]*entity.FeeSchedule, error) {
	return nil, nil
}
func (r *sweepRepo) GetActive(ctx context.Context, permitTypeID int64, asOf time.Time) (*entity.FeeSchedule, error) {
	return nil, nil
}
func (r *sweepRepo) MaxVersion(ctx context.Context, permitTypeID int64) (int, error) { return 0, nil }
func (r *sweepRepo) SetScheduled(ctx context.Context, id int64, effectiveDate time.Time) error {
	return nil
}

func (r *sweepRepo) ListScheduledToActivate(ctx context.Context, asOf time.Time) ([]*entity.FeeSchedule, error) {
	return r.due, nil
}

func (r *sweepRepo) Activate(ctx context.Context, schedule *entity.FeeSchedule, userID string, now time.Time) error {
	r.activated <- schedule.ID
	return nil
}

type sweepTypeReader struct{}

func (sweepTypeReader) GetByID(ctx context.Context, id int64) (*entity.PermitType, error) {
	return nil, nil
}

func TestActivationSweeper_SweepsImmediatelyOnStart(t *testing.T) {
	repo := &sweepRepo{
		due: []*entity.FeeSchedule{
			{ID: 7, PermitTypeID: 1, Status: entity.ScheduleStatusScheduled},
		},
		activated: make(chan int64, 1),
	}
	svc := feeschedule.NewService(repo, sweepTypeReader{}, zap.NewNop())
	// Long interval: only the startup sweep should fire during the test.
	sweeper := NewActivationSweeper(svc, time.Hour, zap.NewNop())

	if err := sweeper.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sweeper.Stop()

	select {
	case id := <-repo.activated:
		if id != 7 {
			t.Errorf("activated schedule %d, want 7", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("startup sweep did not run")
	}
}

func TestActivationSweeper_StartTwice(t *testing.T) {
	repo := &sweepRepo{activated: make(chan int64, 1)}
	svc := feeschedule.NewService(repo, sweepTypeReader{}, zap.NewNop())
	sweeper := NewActivationSweeper(svc, time.Hour, zap.NewNop())

	if err := sweeper.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sweeper.Stop()

	if err := sweeper.Start(context.Background()); err == nil {
		t.Errorf("second Start() should fail while running")
	}
}

func TestActivationSweeper_StopBeforeStart(t *testing.T) {
	repo := &sweepRepo{activated: make(chan int64, 1)}
	svc := feeschedule.NewService(repo, sweepTypeReader{}, zap.NewNop())
	sweeper := NewActivationSweeper(svc, time.Hour, zap.NewNop())

	// Must not panic or block.
	sweeper.Stop()
	sweeper.Stop()
}
