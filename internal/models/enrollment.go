package models

// Enrollment links a student to a course. A student enrolls in a course at
// most once.
type Enrollment struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_user_course" json:"userId"`
	User   *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	CourseID int64   `gorm:"not null;index;uniqueIndex:idx_enrollments_user_course" json:"courseId"`
	Course   *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`

	Progress int `gorm:"not null;default:0" json:"progress"`
}
