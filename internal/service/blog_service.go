package service

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"coursehub_backend/pkg/tracing"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SaveBlogRequest struct {
	Title    string              `json:"title" binding:"required,max=255"`
	Content  string              `json:"content" binding:"required"`
	Features []model.BlogFeature `json:"features" binding:"omitempty,max=20"`
	IsDraft  bool                `json:"isDraft"`
}

type ReviewBlogRequest struct {
	Decision model.BlogStatus `json:"decision" binding:"required,oneof=approved rejected"`
	Note     string           `json:"note" binding:"max=2000"`
}

type BlogAllowance struct {
	Limit      int `json:"limit"`
	Used       int `json:"used"`
	Remaining  int `json:"remaining"`
	PublishFee int `json:"publishFee"`
	Balance    int `json:"balance"`
}

type BlogSaveResult struct {
	Blog        *model.Blog `json:"blog"`
	PointsSpent int         `json:"pointsSpent"`
	Balance     int         `json:"balance"`
}

type BlogService struct {
	DB       *gorm.DB
	BlogRepo *repository.BlogRepository
	UserRepo *repository.UserRepository
	Ledger   *LedgerService
	Guard    *SubmissionGuard
	Rules    *Rules
	Now      func() time.Time
}

func NewBlogService(db *gorm.DB, blogRepo *repository.BlogRepository, userRepo *repository.UserRepository, ledger *LedgerService, guard *SubmissionGuard, rules *Rules) *BlogService {
	return &BlogService{
		DB:       db,
		BlogRepo: blogRepo,
		UserRepo: userRepo,
		Ledger:   ledger,
		Guard:    guard,
		Rules:    rules,
		Now:      time.Now,
	}
}

func (s *BlogService) freePostLimit(role model.UserRole) int {
	rewards := s.Rules.Rewards()
	if role == model.RoleAdmin {
		return rewards.FreePostsAdmin
	}
	return rewards.FreePostsDefault
}

func (s *BlogService) allowance(ctx context.Context, repo *repository.BlogRepository, user *model.User) (*BlogAllowance, error) {
	used, err := repo.CountFreeEligible(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	a := &BlogAllowance{
		Limit:      s.freePostLimit(user.Role),
		Used:       int(used),
		PublishFee: s.Rules.Rewards().BlogPublishFee,
		Balance:    user.Points,
	}
	if a.Used < a.Limit {
		a.Remaining = a.Limit - a.Used
	}
	return a, nil
}

// Allowance 查询用户剩余免费发布次数
func (s *BlogService) Allowance(ctx context.Context, userID uint) (*BlogAllowance, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	return s.allowance(ctx, s.BlogRepo, user)
}

func (s *BlogService) uniqueSlug(ctx context.Context, repo *repository.BlogRepository, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "post"
	}
	exists, err := repo.SlugExists(ctx, base)
	if err != nil || !exists {
		return base, err
	}
	return base + "-" + uuid.NewString()[:8], nil
}

// Save creates (blogID == 0) or edits a blog. Drafts are always free. The first submission for
// review uses a free post while the allowance lasts and costs points afterwards. Later edits and
// resubmissions after a rejection are never charged.
func (s *BlogService) Save(ctx context.Context, userID, blogID uint, req SaveBlogRequest) (*BlogSaveResult, error) {
	ctx, span := tracing.StartSpan(ctx, "Blog.Save", userID)
	defer span.End()

	for i := range req.Features {
		if err := util.ValidateStruct(req.Features[i]); err != nil {
			return nil, fmt.Errorf("features[%d]: %w", i, err)
		}
	}

	release, err := s.Guard.Acquire(ctx, "blog", userID, blogID)
	if err != nil {
		return nil, err
	}
	defer release()

	result := &BlogSaveResult{}
	var event *model.PointEvent

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.BlogRepo.WithTx(tx)

		user, err := s.UserRepo.WithTx(tx).FindByID(ctx, userID)
		if err != nil {
			return util.NotFoundOr(err)
		}

		blog := &model.Blog{AuthorID: userID}
		if blogID != 0 {
			if blog, err = repo.FindByID(ctx, blogID); err != nil {
				return util.NotFoundOr(err)
			}
			if blog.AuthorID != userID {
				return util.ErrNotFound
			}
			if blog.Status.Reviewed() {
				return util.ErrBlogAlreadyReviewed
			}
			if !blog.Status.CanTransition(model.BlogPending) {
				return util.ErrInvalidTransition
			}
		} else if blog.Slug, err = s.uniqueSlug(ctx, repo, req.Title); err != nil {
			return err
		}

		// 只有首次离开草稿进入审核才计费；之后的编辑与驳回重提都不再收费
		firstSubmission := !req.IsDraft && blog.SubmittedAt == nil

		blog.Title = req.Title
		blog.Content = req.Content
		blog.Features = req.Features
		blog.IsDraft = req.IsDraft
		blog.Status = model.BlogPending

		charge := 0
		if firstSubmission {
			allowance, err := s.allowance(ctx, repo, user)
			if err != nil {
				return err
			}
			if allowance.Remaining == 0 {
				charge = allowance.PublishFee
			}
			now := s.Now()
			blog.SubmittedAt = &now
		}
		blog.PointsSpent += charge

		if blog.ID == 0 {
			err = repo.Create(ctx, blog)
		} else {
			err = repo.Save(ctx, blog)
		}
		if err != nil {
			return err
		}

		if charge > 0 {
			event, err = s.Ledger.Apply(ctx, tx, PointChange{
				UserID:  userID,
				Delta:   -charge,
				Reason:  model.ReasonBlogPublishFee,
				RefType: "blog",
				RefID:   blog.ID,
			})
			if err != nil {
				return err
			}
			result.PointsSpent = charge
		}
		result.Blog = blog
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Ledger.Record(event)
	if result.Balance, err = s.Ledger.Balance(ctx, userID); err != nil {
		return nil, err
	}

	logger.Log.Info("Blog saved",
		zap.Uint("userID", userID),
		zap.Uint("blogID", result.Blog.ID),
		zap.Bool("draft", result.Blog.IsDraft),
		zap.Int("pointsSpent", result.PointsSpent))
	return result, nil
}

// Review 管理员审核博客：通过或驳回
func (s *BlogService) Review(ctx context.Context, blogID, reviewerID uint, req ReviewBlogRequest) (*model.Blog, error) {
	if !req.Decision.Valid() || (req.Decision != model.BlogApproved && req.Decision != model.BlogRejected) {
		return nil, util.Validationf("decision must be approved or rejected")
	}
	blog, err := s.BlogRepo.FindByID(ctx, blogID)
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	if blog.Status.Reviewed() {
		return nil, util.ErrBlogAlreadyReviewed
	}
	if blog.IsDraft {
		return nil, fmt.Errorf("%w: drafts cannot be reviewed", util.ErrConflict)
	}
	if !blog.Status.CanTransition(req.Decision) {
		return nil, util.ErrInvalidTransition
	}

	now := s.Now()
	rows, err := s.BlogRepo.UpdateStatusIf(ctx, blog.ID, blog.Status, map[string]interface{}{
		"status":      req.Decision,
		"reviewed_by": reviewerID,
		"review_note": req.Note,
		"reviewed_at": now,
	})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, util.ErrStaleState
	}
	return s.BlogRepo.FindByID(ctx, blog.ID)
}

// Publish moves an approved blog live.
func (s *BlogService) Publish(ctx context.Context, blogID uint) (*model.Blog, error) {
	blog, err := s.BlogRepo.FindByID(ctx, blogID)
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	if !blog.Status.CanTransition(model.BlogPublished) {
		return nil, util.ErrInvalidTransition
	}

	rows, err := s.BlogRepo.UpdateStatusIf(ctx, blog.ID, blog.Status, map[string]interface{}{
		"status":       model.BlogPublished,
		"published_at": s.Now(),
	})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, util.ErrStaleState
	}
	return s.BlogRepo.FindByID(ctx, blog.ID)
}
