package services

import (
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"career-quest/models"
)

type MissionService struct {
	DB *gorm.DB
}

func NewMissionService(db *gorm.DB) *MissionService {
	return &MissionService{DB: db}
}

type CreateMissionInput struct {
	Title          string             `json:"title" validate:"required,max=200"`
	Type           models.MissionType `json:"type" validate:"required,oneof=FOCUS DEEP_WORK LEARNING JOB_SEARCH NETWORKING"`
	PlannedMinutes int                `json:"planned_minutes" validate:"gte=0,lte=600"`
}

type CompleteMissionInput struct {
	ActualMinutes *int `json:"actual_minutes" validate:"omitempty,gte=0,lte=1440"`
}

func (s *MissionService) Create(userID string, in CreateMissionInput) (*models.Mission, error) {
	m := models.Mission{
		UserID:         userID,
		Title:          in.Title,
		Type:           in.Type,
		PlannedMinutes: in.PlannedMinutes,
		Status:         models.MissionPending,
	}
	if err := s.DB.Create(&m).Error; err != nil {
		return nil, fmt.Errorf("create mission: %w", err)
	}
	return &m, nil
}

func (s *MissionService) List(userID, status string) ([]models.Mission, error) {
	var list []models.Mission
	q := s.DB.Where("user_id = ?", userID).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *MissionService) Get(userID, id string) (*models.Mission, error) {
	var m models.Mission
	if err := s.DB.First(&m, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *MissionService) Start(userID, id string, now time.Time) (*models.Mission, error) {
	return s.transition(userID, id, []models.MissionStatus{models.MissionPending}, map[string]any{
		"status":     models.MissionInProgress,
		"started_at": now,
	})
}

// Complete closes an open mission. Without an explicit length the elapsed time
// since start is used, falling back to the planned length.
func (s *MissionService) Complete(userID, id string, in CompleteMissionInput, now time.Time) (*models.Mission, error) {
	m, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	minutes := m.PlannedMinutes
	switch {
	case in.ActualMinutes != nil:
		minutes = *in.ActualMinutes
	case m.StartedAt != nil:
		minutes = int(math.Round(now.Sub(*m.StartedAt).Minutes()))
	}

	return s.transition(userID, id, []models.MissionStatus{models.MissionPending, models.MissionInProgress}, map[string]any{
		"status":         models.MissionCompleted,
		"actual_minutes": max(minutes, 0),
		"completed_at":   now,
	})
}

func (s *MissionService) Abandon(userID, id string, now time.Time) (*models.Mission, error) {
	return s.transition(userID, id, []models.MissionStatus{models.MissionPending, models.MissionInProgress}, map[string]any{
		"status":       models.MissionAbandoned,
		"abandoned_at": now,
	})
}

// transition applies updates only while the mission is in one of from, so a
// mission completes at most once even under concurrent requests.
func (s *MissionService) transition(userID, id string, from []models.MissionStatus, updates map[string]any) (*models.Mission, error) {
	res := s.DB.Model(&models.Mission{}).
		Where("id = ? AND user_id = ? AND status IN ?", id, userID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update mission: %w", res.Error)
	}

	m, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return m, fmt.Errorf("%w: mission is %s", ErrInvalidTransition, m.Status)
	}
	return m, nil
}
