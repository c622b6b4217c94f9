package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotebookEntry struct {
	ID      string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID  string                      `gorm:"index;type:varchar(36);not null" json:"user_id"`
	Title   string                      `gorm:"not null" json:"title"`
	Content string                      `gorm:"type:text" json:"content"`
	Tags    datatypes.JSONSlice[string] `json:"tags"`
	Timestamps
}

func (n *NotebookEntry) BeforeCreate(tx *gorm.DB) error {
	assignID(&n.ID)
	return nil
}
