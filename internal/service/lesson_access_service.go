package service

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/tracing"
	"time"

	"gorm.io/gorm"
)

const (
	LockReasonIncomplete = "previous_lesson_incomplete"
	LockReasonAssignment = "assignment_not_submitted"
	LockReasonQuiz       = "required_quiz_not_passed"
)

// LessonAccess is the resolved view of one lesson for one learner.
type LessonAccess struct {
	Lesson           *model.Lesson `json:"lesson"`
	Completed        bool          `json:"completed"`
	IsLocked         bool          `json:"isLocked"`
	LockReason       string        `json:"lockReason,omitempty"`
	IsScheduled      bool          `json:"isScheduled"`
	ReleaseAt        *time.Time    `json:"releaseAt,omitempty"`
	PrevLessonID     *uint         `json:"prevLessonId,omitempty"`
	NextLessonID     *uint         `json:"nextLessonId,omitempty"`
	NextLessonLocked bool          `json:"nextLessonLocked"`
}

type LessonCompletion struct {
	LessonID        uint `json:"lessonId"`
	FirstCompletion bool `json:"firstCompletion"`
	PointsAwarded   int  `json:"pointsAwarded"`
	Balance         int  `json:"balance"`
}

type OutlineLesson struct {
	ID           uint       `json:"id"`
	ChapterID    uint       `json:"chapterId"`
	ChapterTitle string     `json:"chapterTitle"`
	Title        string     `json:"title"`
	Completed    bool       `json:"completed"`
	IsLocked     bool       `json:"isLocked"`
	LockReason   string     `json:"lockReason,omitempty"`
	IsScheduled  bool       `json:"isScheduled"`
	ReleaseAt    *time.Time `json:"releaseAt,omitempty"`
}

type CourseOutline struct {
	CourseID       uint            `json:"courseId"`
	Title          string          `json:"title"`
	Lessons        []OutlineLesson `json:"lessons"`
	CompletedCount int             `json:"completedCount"`
	TotalCount     int             `json:"totalCount"`
}

type EarlyUnlockRequest struct {
	UserID    uint  `json:"userId" binding:"required"`
	LessonID  *uint `json:"lessonId"`
	ChapterID *uint `json:"chapterId"`
}

type LessonAccessService struct {
	DB             *gorm.DB
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	ProgressRepo   *repository.ProgressRepository
	AssignmentRepo *repository.AssignmentRepository
	QuizRepo       *repository.QuizRepository
	UserRepo       *repository.UserRepository
	Ledger         *LedgerService
	Rules          *Rules
	Now            func() time.Time
}

func NewLessonAccessService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	progressRepo *repository.ProgressRepository,
	assignmentRepo *repository.AssignmentRepository,
	quizRepo *repository.QuizRepository,
	userRepo *repository.UserRepository,
	ledger *LedgerService,
	rules *Rules,
) *LessonAccessService {
	return &LessonAccessService{
		DB:             db,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		ProgressRepo:   progressRepo,
		AssignmentRepo: assignmentRepo,
		QuizRepo:       quizRepo,
		UserRepo:       userRepo,
		Ledger:         ledger,
		Rules:          rules,
		Now:            time.Now,
	}
}

// lessonVisible: a draft lesson or a lesson in a draft chapter is hidden, unless the lesson
// itself is published.
func lessonVisible(l *model.Lesson) bool {
	switch l.Status {
	case model.PublishPublished:
		return true
	case model.PublishDraft:
		return false
	}
	return l.Chapter != nil && l.Chapter.Status != model.PublishDraft
}

type unlockSet struct {
	lessons  map[uint]bool
	chapters map[uint]bool
}

func newUnlockSet(unlocks []model.EarlyUnlock) unlockSet {
	set := unlockSet{lessons: map[uint]bool{}, chapters: map[uint]bool{}}
	for _, u := range unlocks {
		if u.LessonID != nil {
			set.lessons[*u.LessonID] = true
		}
		if u.ChapterID != nil {
			set.chapters[*u.ChapterID] = true
		}
	}
	return set
}

func (u unlockSet) covers(l *model.Lesson) bool {
	return u.lessons[l.ID] || u.chapters[l.ChapterID]
}

// scheduledFor reports whether the lesson still shows a countdown and until when.
func scheduledFor(l *model.Lesson, now time.Time, unlocks unlockSet) (bool, *time.Time) {
	var releaseAt *time.Time
	if l.ReleasePending(now) {
		releaseAt = l.ReleaseAt
	}
	if l.Chapter != nil && l.Chapter.ReleasePending(now) {
		if releaseAt == nil || l.Chapter.ReleaseAt.After(*releaseAt) {
			releaseAt = l.Chapter.ReleaseAt
		}
	}
	if releaseAt == nil || unlocks.covers(l) {
		return false, nil
	}
	return true, releaseAt
}

// progressState is the learner's completion picture over a set of lessons.
type progressState struct {
	completed       map[uint]bool
	assignments     map[uint][]uint
	submitted       map[uint]bool
	requiredQuizzes map[uint][]uint
	scores          map[uint]int
	passScore       int
}

func (p *progressState) quizPassed(quizID uint) bool {
	score, ok := p.scores[quizID]
	return ok && score >= p.passScore
}

// unmet returns why finishing lessonID is not yet enough to move on, or "".
func (p *progressState) unmet(lessonID uint) string {
	if !p.completed[lessonID] {
		return LockReasonIncomplete
	}
	for _, id := range p.assignments[lessonID] {
		if !p.submitted[id] {
			return LockReasonAssignment
		}
	}
	if p.pendingRequiredQuiz(lessonID) {
		return LockReasonQuiz
	}
	return ""
}

func (p *progressState) pendingRequiredQuiz(lessonID uint) bool {
	for _, id := range p.requiredQuizzes[lessonID] {
		if !p.quizPassed(id) {
			return true
		}
	}
	return false
}

func (s *LessonAccessService) loadProgress(ctx context.Context, userID uint, lessonIDs []uint) (*progressState, error) {
	state := &progressState{
		assignments:     map[uint][]uint{},
		requiredQuizzes: map[uint][]uint{},
		passScore:       s.Rules.Rewards().QuizPassScore,
	}

	var err error
	if state.completed, err = s.ProgressRepo.CompletedLessonIDs(ctx, userID, lessonIDs); err != nil {
		return nil, err
	}

	assignments, err := s.AssignmentRepo.FindByLessons(ctx, lessonIDs)
	if err != nil {
		return nil, err
	}
	assignmentIDs := make([]uint, 0, len(assignments))
	for _, a := range assignments {
		state.assignments[a.LessonID] = append(state.assignments[a.LessonID], a.ID)
		assignmentIDs = append(assignmentIDs, a.ID)
	}
	if state.submitted, err = s.AssignmentRepo.SubmittedAssignmentIDs(ctx, userID, assignmentIDs); err != nil {
		return nil, err
	}

	quizzes, err := s.QuizRepo.FindRequiredByLessons(ctx, lessonIDs)
	if err != nil {
		return nil, err
	}
	quizIDs := make([]uint, 0, len(quizzes))
	for _, q := range quizzes {
		state.requiredQuizzes[q.LessonID] = append(state.requiredQuizzes[q.LessonID], q.ID)
		quizIDs = append(quizIDs, q.ID)
	}
	if state.scores, err = s.QuizRepo.ScoresByQuiz(ctx, userID, quizIDs); err != nil {
		return nil, err
	}
	return state, nil
}

// requireEnrollment hides everything from users without an active enrollment.
func (s *LessonAccessService) requireEnrollment(ctx context.Context, userID, courseID uint) error {
	enrollment, err := s.EnrollmentRepo.Find(ctx, userID, courseID)
	if err != nil {
		return util.NotFoundOr(err)
	}
	if enrollment.Status != model.EnrollmentActive {
		return util.ErrNotFound
	}
	return nil
}

func (s *LessonAccessService) visibleLessons(ctx context.Context, courseID uint) ([]model.Lesson, error) {
	all, err := s.CourseRepo.ListCourseLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}
	visible := make([]model.Lesson, 0, len(all))
	for i := range all {
		if lessonVisible(&all[i]) {
			visible = append(visible, all[i])
		}
	}
	return visible, nil
}

func (s *LessonAccessService) unlocksFor(ctx context.Context, userID uint) (unlockSet, error) {
	unlocks, err := s.CourseRepo.ListEarlyUnlocks(ctx, userID)
	if err != nil {
		return unlockSet{}, err
	}
	return newUnlockSet(unlocks), nil
}

// lockedBy decides whether a lesson is locked given its predecessor. Scheduled lessons show a
// countdown instead, and a lesson with a required quiz still to pass stays reachable while
// the carve-out is enabled.
func (s *LessonAccessService) lockedBy(state *progressState, prevID, lessonID uint, scheduled bool) string {
	reason := state.unmet(prevID)
	if reason == "" || scheduled {
		return ""
	}
	if s.Rules.Progression().QuizPendingCarveOut && state.pendingRequiredQuiz(lessonID) {
		return ""
	}
	return reason
}

// Resolve 计算课时的访问状态：可见性、定时发布、选课、前置课时锁定以及下一课时锁定
func (s *LessonAccessService) Resolve(ctx context.Context, lessonID, userID uint) (*LessonAccess, error) {
	ctx, span := tracing.StartSpan(ctx, "LessonAccess.Resolve", userID)
	defer span.End()

	lesson, err := s.CourseRepo.FindLesson(ctx, lessonID)
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	if !lessonVisible(lesson) {
		return nil, util.ErrNotFound
	}

	unlocks, err := s.unlocksFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	scheduled, releaseAt := scheduledFor(lesson, s.Now(), unlocks)

	if err := s.requireEnrollment(ctx, userID, lesson.CourseID); err != nil {
		return nil, err
	}

	ordered, err := s.visibleLessons(ctx, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	var prev, next *model.Lesson
	for i := range ordered {
		if ordered[i].ID != lesson.ID {
			continue
		}
		if i > 0 {
			prev = &ordered[i-1]
		}
		if i+1 < len(ordered) {
			next = &ordered[i+1]
		}
		break
	}

	ids := []uint{lesson.ID}
	if prev != nil {
		ids = append(ids, prev.ID)
	}
	state, err := s.loadProgress(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	access := &LessonAccess{
		Lesson:      lesson,
		Completed:   state.completed[lesson.ID],
		IsScheduled: scheduled,
		ReleaseAt:   releaseAt,
	}
	if prev != nil {
		access.PrevLessonID = &prev.ID
		access.LockReason = s.lockedBy(state, prev.ID, lesson.ID, scheduled)
		access.IsLocked = access.LockReason != ""
	}
	if next != nil {
		access.NextLessonID = &next.ID
		access.NextLessonLocked = state.unmet(lesson.ID) != ""
	}

	if access.IsLocked || access.IsScheduled {
		lesson.Content = ""
		lesson.VideoURL = ""
	}
	return access, nil
}

// RequireOpen resolves the lesson and rejects it while scheduled or locked.
func (s *LessonAccessService) RequireOpen(ctx context.Context, lessonID, userID uint) (*LessonAccess, error) {
	access, err := s.Resolve(ctx, lessonID, userID)
	if err != nil {
		return nil, err
	}
	if access.IsScheduled {
		return nil, util.ErrLessonNotReleased
	}
	if access.IsLocked {
		return nil, util.ErrLessonLocked
	}
	return access, nil
}

// CompleteLesson marks the lesson done. Only the first completion earns points.
func (s *LessonAccessService) CompleteLesson(ctx context.Context, lessonID, userID uint) (*LessonCompletion, error) {
	if _, err := s.RequireOpen(ctx, lessonID, userID); err != nil {
		return nil, err
	}

	reward := s.Rules.Rewards().LessonCompletion
	result := &LessonCompletion{LessonID: lessonID}
	var event *model.PointEvent

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		first, err := s.ProgressRepo.WithTx(tx).MarkCompleted(ctx, userID, lessonID, s.Now())
		if err != nil {
			return err
		}
		result.FirstCompletion = first
		if !first {
			return nil
		}
		event, err = s.Ledger.Apply(ctx, tx, PointChange{
			UserID:  userID,
			Delta:   reward,
			Reason:  model.ReasonLessonCompleted,
			RefType: "lesson",
			RefID:   lessonID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Ledger.Record(event)
	if event != nil {
		result.PointsAwarded = event.Delta
	}

	if result.Balance, err = s.Ledger.Balance(ctx, userID); err != nil {
		return nil, err
	}
	return result, nil
}

// CourseOutline 返回课程全部可见课时及其完成、锁定状态
func (s *LessonAccessService) CourseOutline(ctx context.Context, courseID, userID uint) (*CourseOutline, error) {
	course, err := s.CourseRepo.FindCourse(ctx, courseID)
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	if err := s.requireEnrollment(ctx, userID, courseID); err != nil {
		return nil, err
	}

	ordered, err := s.visibleLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(ordered))
	for i := range ordered {
		ids[i] = ordered[i].ID
	}
	state, err := s.loadProgress(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	unlocks, err := s.unlocksFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	outline := &CourseOutline{
		CourseID:   course.ID,
		Title:      course.Title,
		Lessons:    make([]OutlineLesson, 0, len(ordered)),
		TotalCount: len(ordered),
	}
	for i := range ordered {
		l := &ordered[i]
		scheduled, releaseAt := scheduledFor(l, now, unlocks)
		item := OutlineLesson{
			ID:          l.ID,
			ChapterID:   l.ChapterID,
			Title:       l.Title,
			Completed:   state.completed[l.ID],
			IsScheduled: scheduled,
			ReleaseAt:   releaseAt,
		}
		if l.Chapter != nil {
			item.ChapterTitle = l.Chapter.Title
		}
		if i > 0 {
			item.LockReason = s.lockedBy(state, ordered[i-1].ID, l.ID, scheduled)
			item.IsLocked = item.LockReason != ""
		}
		if item.Completed {
			outline.CompletedCount++
		}
		outline.Lessons = append(outline.Lessons, item)
	}
	return outline, nil
}

// GrantEarlyUnlock lets one user past the release time of a lesson or a whole chapter.
func (s *LessonAccessService) GrantEarlyUnlock(ctx context.Context, adminID uint, req EarlyUnlockRequest) (*model.EarlyUnlock, error) {
	if (req.LessonID == nil) == (req.ChapterID == nil) {
		return nil, util.Validationf("exactly one of lessonId and chapterId is required")
	}
	if _, err := s.UserRepo.FindByID(ctx, req.UserID); err != nil {
		return nil, util.NotFoundOr(err)
	}
	if req.LessonID != nil {
		if _, err := s.CourseRepo.FindLesson(ctx, *req.LessonID); err != nil {
			return nil, util.NotFoundOr(err)
		}
	} else if _, err := s.CourseRepo.FindChapter(ctx, *req.ChapterID); err != nil {
		return nil, util.NotFoundOr(err)
	}

	unlock := &model.EarlyUnlock{
		UserID:    req.UserID,
		LessonID:  req.LessonID,
		ChapterID: req.ChapterID,
		GrantedBy: adminID,
	}
	if err := s.CourseRepo.CreateEarlyUnlock(ctx, unlock); err != nil {
		return nil, err
	}
	return unlock, nil
}
