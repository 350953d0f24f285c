package service

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"coursehub_backend/pkg/monitoring"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PointChange describes one ledger entry to append.
type PointChange struct {
	UserID  uint
	Delta   int
	Reason  model.PointReason
	RefType string
	RefID   uint
	Note    string
}

type ReconcileReport struct {
	UserID       uint `json:"userId"`
	Materialized int  `json:"materialized"`
	LedgerSum    int  `json:"ledgerSum"`
	Drift        int  `json:"drift"`
	Consistent   bool `json:"consistent"`
}

type PointsHistory struct {
	Balance int                `json:"balance"`
	Events  []model.PointEvent `json:"events"`
	Total   int64              `json:"total"`
	Page    int                `json:"page"`
	Limit   int                `json:"limit"`
}

// LedgerService owns every change to a user's points. Callers pass their transaction so the
// ledger row commits or rolls back with the state change that caused it.
type LedgerService struct {
	DB       *gorm.DB
	UserRepo *repository.UserRepository
	Repo     *repository.LedgerRepository
	Now      func() time.Time
}

func NewLedgerService(db *gorm.DB, userRepo *repository.UserRepository, repo *repository.LedgerRepository) *LedgerService {
	return &LedgerService{DB: db, UserRepo: userRepo, Repo: repo, Now: time.Now}
}

// Apply updates the balance with a single conditional statement and appends the event.
// A change that would make the balance negative returns ErrInsufficientPoints and writes nothing.
func (s *LedgerService) Apply(ctx context.Context, tx *gorm.DB, change PointChange) (*model.PointEvent, error) {
	if change.Delta == 0 {
		return nil, nil
	}

	users := s.UserRepo.WithTx(tx)
	rows, err := users.ApplyPoints(ctx, change.UserID, change.Delta)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		if _, err := users.FindByID(ctx, change.UserID); err != nil {
			return nil, util.NotFoundOr(err)
		}
		return nil, util.ErrInsufficientPoints
	}

	balance, err := users.GetPoints(ctx, change.UserID)
	if err != nil {
		return nil, err
	}

	event := &model.PointEvent{
		CreatedAt:    s.Now(),
		UserID:       change.UserID,
		Delta:        change.Delta,
		BalanceAfter: balance,
		Reason:       change.Reason,
		RefType:      change.RefType,
		RefID:        change.RefID,
		Note:         change.Note,
	}
	if err := s.Repo.WithTx(tx).Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// ApplyClamped is Apply for clawbacks: a negative delta larger than the balance is reduced
// to the balance. The event records the delta actually applied.
func (s *LedgerService) ApplyClamped(ctx context.Context, tx *gorm.DB, change PointChange) (*model.PointEvent, error) {
	if change.Delta < 0 {
		balance, err := s.UserRepo.WithTx(tx).GetPoints(ctx, change.UserID)
		if err != nil {
			return nil, util.NotFoundOr(err)
		}
		if -change.Delta > balance {
			logger.Log.Info("Clamping point clawback to balance",
				zap.Uint("userID", change.UserID),
				zap.Int("requested", change.Delta),
				zap.Int("balance", balance))
			change.Delta = -balance
		}
	}
	return s.Apply(ctx, tx, change)
}

// Record 在事务提交后调用，记录指标与日志
func (s *LedgerService) Record(events ...*model.PointEvent) {
	for _, e := range events {
		if e == nil {
			continue
		}
		direction := "credit"
		if e.Delta < 0 {
			direction = "debit"
		}
		monitoring.PointEvents.WithLabelValues(string(e.Reason), direction).Inc()
		logger.Log.Info("Points ledger event",
			zap.Uint("userID", e.UserID),
			zap.Int("delta", e.Delta),
			zap.Int("balance", e.BalanceAfter),
			zap.String("reason", string(e.Reason)),
			zap.String("refType", e.RefType),
			zap.Uint("refID", e.RefID))
	}
}

func (s *LedgerService) Balance(ctx context.Context, userID uint) (int, error) {
	balance, err := s.UserRepo.GetPoints(ctx, userID)
	return balance, util.NotFoundOr(err)
}

func (s *LedgerService) History(ctx context.Context, userID uint, page, limit int) (*PointsHistory, error) {
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	events, total, err := s.Repo.ListByUser(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return &PointsHistory{Balance: balance, Events: events, Total: total, Page: page, Limit: limit}, nil
}

// Reconcile compares the materialized balance with the ledger sum.
func (s *LedgerService) Reconcile(ctx context.Context, userID uint) (*ReconcileReport, error) {
	materialized, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum, err := s.Repo.SumByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	report := &ReconcileReport{
		UserID:       userID,
		Materialized: materialized,
		LedgerSum:    sum,
		Drift:        materialized - sum,
		Consistent:   materialized == sum,
	}
	if !report.Consistent {
		logger.Log.Warn("Points ledger drift detected",
			zap.Uint("userID", userID),
			zap.Int("materialized", materialized),
			zap.Int("ledgerSum", sum))
	}
	return report, nil
}

// Adjust 管理员手动调整积分
func (s *LedgerService) Adjust(ctx context.Context, adminID, userID uint, delta int, note string) (*model.PointEvent, error) {
	if delta == 0 {
		return nil, util.Validationf("delta must not be zero")
	}
	var event *model.PointEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		event, err = s.Apply(ctx, tx, PointChange{
			UserID:  userID,
			Delta:   delta,
			Reason:  model.ReasonAdminAdjustment,
			RefType: "admin",
			RefID:   adminID,
			Note:    note,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, util.ErrInsufficientPoints) {
			logger.Log.Info("Rejected admin adjustment", zap.Uint("userID", userID), zap.Int("delta", delta))
		}
		return nil, err
	}
	s.Record(event)
	return event, nil
}
