package models

import (
	"time"

	"gorm.io/gorm"
)

// CourseStatus is the publication state of a course.
type CourseStatus string

const (
	CourseDraft     CourseStatus = "Draft"
	CoursePublished CourseStatus = "Published"
)

// Course is authored by an instructor (or an admin) and becomes visible to
// students once published.
type Course struct {
	ID          int64        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Title       string       `gorm:"size:200;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Status      CourseStatus `gorm:"size:16;not null;index" json:"status"`

	InstructorID *string `gorm:"type:uuid;index" json:"instructorId"`
	Instructor   *User   `gorm:"foreignKey:InstructorID;constraint:OnDelete:SET NULL" json:"-"`

	Enrollments []Enrollment `gorm:"foreignKey:CourseID" json:"-"`

	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns a snowflake identifier when none is set.
func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID != 0 {
		return nil
	}
	id, err := NextID()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}
