package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"career-quest/models"
)

// JobApplicationService tracks the application pipeline.
type JobApplicationService struct {
	DB *gorm.DB
}

func NewJobApplicationService(db *gorm.DB) *JobApplicationService {
	return &JobApplicationService{DB: db}
}

type CreateApplicationInput struct {
	Company  string                   `json:"company" validate:"required,max=200"`
	Position string                   `json:"position" validate:"required,max=200"`
	URL      string                   `json:"url" validate:"omitempty,url"`
	Status   models.ApplicationStatus `json:"status" validate:"omitempty,oneof=WISHLIST APPLIED INTERVIEWING OFFER REJECTED ACCEPTED"`
	Notes    string                   `json:"notes" validate:"max=5000"`
}

type UpdateApplicationStatusInput struct {
	Status models.ApplicationStatus `json:"status" validate:"required,oneof=WISHLIST APPLIED INTERVIEWING OFFER REJECTED ACCEPTED"`
}

func (s *JobApplicationService) Create(userID string, in CreateApplicationInput, now time.Time) (*models.JobApplication, error) {
	status := in.Status
	if status == "" {
		status = models.ApplicationApplied
	}
	app := models.JobApplication{
		UserID:   userID,
		Company:  in.Company,
		Position: in.Position,
		URL:      in.URL,
		Notes:    in.Notes,
	}
	app.Advance(status, now)
	if err := s.DB.Create(&app).Error; err != nil {
		return nil, fmt.Errorf("create job application: %w", err)
	}
	return &app, nil
}

func (s *JobApplicationService) List(userID, status string) ([]models.JobApplication, error) {
	var list []models.JobApplication
	q := s.DB.Where("user_id = ?", userID).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *JobApplicationService) Get(userID, id string) (*models.JobApplication, error) {
	var app models.JobApplication
	if err := s.DB.First(&app, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &app, nil
}

// UpdateStatus moves an application. The bool is false when the status was already set.
func (s *JobApplicationService) UpdateStatus(userID, id string, status models.ApplicationStatus, now time.Time) (*models.JobApplication, bool, error) {
	app, err := s.Get(userID, id)
	if err != nil {
		return nil, false, err
	}
	if app.Status == status {
		return app, false, nil
	}
	app.Advance(status, now)
	if err := s.DB.Model(app).Updates(map[string]any{
		"status":        app.Status,
		"stage_reached": app.StageReached,
		"applied_at":    app.AppliedAt,
	}).Error; err != nil {
		return nil, false, fmt.Errorf("update job application: %w", err)
	}
	return app, true, nil
}

type NotebookService struct {
	DB *gorm.DB
}

func NewNotebookService(db *gorm.DB) *NotebookService {
	return &NotebookService{DB: db}
}

type CreateNotebookEntryInput struct {
	Title   string   `json:"title" validate:"required,max=200"`
	Content string   `json:"content" validate:"max=20000"`
	Tags    []string `json:"tags" validate:"max=20,dive,min=1,max=32"`
}

func (s *NotebookService) Create(userID string, in CreateNotebookEntryInput) (*models.NotebookEntry, error) {
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	entry := models.NotebookEntry{
		UserID:  userID,
		Title:   in.Title,
		Content: in.Content,
		Tags:    tags,
	}
	if err := s.DB.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("create notebook entry: %w", err)
	}
	return &entry, nil
}

func (s *NotebookService) List(userID string, limit int) ([]models.NotebookEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var list []models.NotebookEntry
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&list).Error
	return list, err
}

type LearningService struct {
	DB *gorm.DB
}

func NewLearningService(db *gorm.DB) *LearningService {
	return &LearningService{DB: db}
}

type CreateLearningInput struct {
	ResourceTitle string              `json:"resource_title" validate:"required,max=300"`
	ResourceType  models.ResourceType `json:"resource_type" validate:"omitempty,oneof=COURSE ARTICLE VIDEO BOOK OTHER"`
	ResourceURL   string              `json:"resource_url" validate:"omitempty,url"`
}

func (s *LearningService) Create(userID string, in CreateLearningInput) (*models.LearningProgress, error) {
	lp := models.LearningProgress{
		UserID:        userID,
		ResourceTitle: in.ResourceTitle,
		ResourceType:  in.ResourceType,
		ResourceURL:   in.ResourceURL,
		Status:        models.LearningInProgress,
	}
	if err := s.DB.Create(&lp).Error; err != nil {
		return nil, fmt.Errorf("create learning progress: %w", err)
	}
	return &lp, nil
}

func (s *LearningService) List(userID string) ([]models.LearningProgress, error) {
	var list []models.LearningProgress
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, err
}

// Complete marks the resource done once; a second call reports ErrInvalidTransition.
func (s *LearningService) Complete(userID, id string, now time.Time) (*models.LearningProgress, error) {
	res := s.DB.Model(&models.LearningProgress{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, models.LearningInProgress).
		Updates(map[string]any{
			"status":       models.LearningCompleted,
			"completed_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("complete learning: %w", res.Error)
	}

	var lp models.LearningProgress
	if err := s.DB.First(&lp, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, notFound(err)
	}
	if res.RowsAffected == 0 {
		return &lp, fmt.Errorf("%w: already completed", ErrInvalidTransition)
	}
	return &lp, nil
}
