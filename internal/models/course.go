package models

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CourseLevel string

const (
	LevelBeginner     CourseLevel = "Beginner"
	LevelIntermediate CourseLevel = "Intermediate"
	LevelAdvanced     CourseLevel = "Advanced"
)

var (
	ErrModuleNotFound  = errors.New("module not found")
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrAlreadyEnrolled = errors.New("student already enrolled")
)

// Course is the aggregate root for modules and lessons. Modules and lessons are
// stored as one jsonb document and are only reachable through their course.
type Course struct {
	ID           uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	Title        string      `json:"title" gorm:"not null;size:200;index"`
	Description  string      `json:"description" gorm:"type:text;not null"`
	InstructorID uuid.UUID   `json:"instructor_id" gorm:"type:uuid;not null;index"`
	Duration     int         `json:"duration" gorm:"not null;default:0"` // minutes
	Level        CourseLevel `json:"level" gorm:"not null;size:20"`
	Language     string      `json:"language" gorm:"not null;size:50"`
	Price        int64       `json:"price" gorm:"not null"`              // smallest currency unit
	Discount     float64     `json:"discount" gorm:"not null;default:0"` // percent off Price, set by the instructor
	Ratings      *float64    `json:"ratings,omitempty"`

	Categories       datatypes.JSONSlice[string]    `json:"categories" gorm:"type:jsonb"`
	Tags             datatypes.JSONSlice[string]    `json:"tags" gorm:"type:jsonb"`
	EnrolledStudents datatypes.JSONSlice[uuid.UUID] `json:"enrolled_students" gorm:"type:jsonb"`
	Modules          datatypes.JSONSlice[Module]    `json:"modules" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

type Module struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Order     int       `json:"order"`
	Lessons   []Lesson  `json:"lessons"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Lesson holds weak references to discussions; removing a lesson never
// deletes the discussions it points at.
type Lesson struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Duration      int         `json:"duration"`
	VideoURL      string      `json:"video_url"`
	Order         int         `json:"order"`
	DiscussionIDs []uuid.UUID `json:"discussion_ids"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ModuleChanges and LessonChanges carry partial updates; nil fields are left alone.
type ModuleChanges struct {
	Title *string
	Order *int
}

type LessonChanges struct {
	Title    *string
	Duration *int
	VideoURL *string
	Order    *int
}

func (Course) TableName() string {
	return "courses"
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// BeforeSave keeps the derived duration in step with the lessons.
func (c *Course) BeforeSave(tx *gorm.DB) error {
	c.RecalculateDuration()
	return nil
}

func (c *Course) IsInstructor(userID uuid.UUID) bool {
	return c.InstructorID == userID
}

func (c *Course) IsEnrolled(userID uuid.UUID) bool {
	return slices.Contains(c.EnrolledStudents, userID)
}

func (c *Course) Enroll(studentID uuid.UUID) error {
	if c.IsEnrolled(studentID) {
		return ErrAlreadyEnrolled
	}
	c.EnrolledStudents = append(c.EnrolledStudents, studentID)
	return nil
}

func (c *Course) Unenroll(studentID uuid.UUID) {
	c.EnrolledStudents = slices.DeleteFunc(c.EnrolledStudents, func(id uuid.UUID) bool { return id == studentID })
}

// RecalculateDuration sets Duration to the sum of lesson durations once the
// course has modules. Courses without modules keep their declared duration.
func (c *Course) RecalculateDuration() {
	if len(c.Modules) == 0 {
		return
	}
	total := 0
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			total += l.Duration
		}
	}
	c.Duration = total
}

func (c *Course) Module(moduleID uuid.UUID) (*Module, error) {
	for i := range c.Modules {
		if c.Modules[i].ID == moduleID {
			return &c.Modules[i], nil
		}
	}
	return nil, ErrModuleNotFound
}

func (c *Course) HasModule(moduleID uuid.UUID) bool {
	_, err := c.Module(moduleID)
	return err == nil
}

func (c *Course) Lesson(moduleID, lessonID uuid.UUID) (*Lesson, error) {
	m, err := c.Module(moduleID)
	if err != nil {
		return nil, err
	}
	for i := range m.Lessons {
		if m.Lessons[i].ID == lessonID {
			return &m.Lessons[i], nil
		}
	}
	return nil, ErrLessonNotFound
}

// FindLesson looks a lesson up across every module.
func (c *Course) FindLesson(lessonID uuid.UUID) (*Lesson, error) {
	for i := range c.Modules {
		for j := range c.Modules[i].Lessons {
			if c.Modules[i].Lessons[j].ID == lessonID {
				return &c.Modules[i].Lessons[j], nil
			}
		}
	}
	return nil, ErrLessonNotFound
}

func (c *Course) AddModule(title string, order int, now time.Time) *Module {
	c.Modules = append(c.Modules, Module{
		ID:        uuid.New(),
		Title:     title,
		Order:     order,
		Lessons:   []Lesson{},
		CreatedAt: now,
		UpdatedAt: now,
	})
	id := c.Modules[len(c.Modules)-1].ID
	c.sortModules()
	m, _ := c.Module(id)
	return m
}

func (c *Course) UpdateModule(moduleID uuid.UUID, changes ModuleChanges, now time.Time) (*Module, error) {
	m, err := c.Module(moduleID)
	if err != nil {
		return nil, err
	}
	if changes.Title != nil {
		m.Title = *changes.Title
	}
	if changes.Order != nil {
		m.Order = *changes.Order
	}
	m.UpdatedAt = now
	c.sortModules()
	return c.Module(moduleID)
}

func (c *Course) RemoveModule(moduleID uuid.UUID) error {
	if !c.HasModule(moduleID) {
		return ErrModuleNotFound
	}
	c.Modules = slices.DeleteFunc(c.Modules, func(m Module) bool { return m.ID == moduleID })
	c.RecalculateDuration()
	return nil
}

func (c *Course) AddLesson(moduleID uuid.UUID, title string, duration int, videoURL string, order int, now time.Time) (*Lesson, error) {
	m, err := c.Module(moduleID)
	if err != nil {
		return nil, err
	}
	lesson := Lesson{
		ID:            uuid.New(),
		Title:         title,
		Duration:      duration,
		VideoURL:      videoURL,
		Order:         order,
		DiscussionIDs: []uuid.UUID{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.Lessons = append(m.Lessons, lesson)
	m.UpdatedAt = now
	sortLessons(m.Lessons)
	c.RecalculateDuration()
	return c.Lesson(moduleID, lesson.ID)
}

func (c *Course) UpdateLesson(moduleID, lessonID uuid.UUID, changes LessonChanges, now time.Time) (*Lesson, error) {
	l, err := c.Lesson(moduleID, lessonID)
	if err != nil {
		return nil, err
	}
	if changes.Title != nil {
		l.Title = *changes.Title
	}
	if changes.Duration != nil {
		l.Duration = *changes.Duration
	}
	if changes.VideoURL != nil {
		l.VideoURL = *changes.VideoURL
	}
	if changes.Order != nil {
		l.Order = *changes.Order
	}
	l.UpdatedAt = now

	m, _ := c.Module(moduleID)
	sortLessons(m.Lessons)
	c.RecalculateDuration()
	return c.Lesson(moduleID, lessonID)
}

func (c *Course) RemoveLesson(moduleID, lessonID uuid.UUID) error {
	m, err := c.Module(moduleID)
	if err != nil {
		return err
	}
	before := len(m.Lessons)
	m.Lessons = slices.DeleteFunc(m.Lessons, func(l Lesson) bool { return l.ID == lessonID })
	if len(m.Lessons) == before {
		return ErrLessonNotFound
	}
	c.RecalculateDuration()
	return nil
}

// AttachDiscussion records a discussion reference on a lesson. Attaching the
// same id twice is a no-op.
func (c *Course) AttachDiscussion(lessonID, discussionID uuid.UUID) error {
	l, err := c.FindLesson(lessonID)
	if err != nil {
		return err
	}
	if !slices.Contains(l.DiscussionIDs, discussionID) {
		l.DiscussionIDs = append(l.DiscussionIDs, discussionID)
	}
	return nil
}

// DetachDiscussion pulls a discussion reference from every lesson holding it
// and reports whether anything changed.
func (c *Course) DetachDiscussion(discussionID uuid.UUID) bool {
	changed := false
	for i := range c.Modules {
		for j := range c.Modules[i].Lessons {
			l := &c.Modules[i].Lessons[j]
			before := len(l.DiscussionIDs)
			l.DiscussionIDs = slices.DeleteFunc(l.DiscussionIDs, func(id uuid.UUID) bool { return id == discussionID })
			if len(l.DiscussionIDs) != before {
				changed = true
			}
		}
	}
	return changed
}

func (c *Course) sortModules() {
	slices.SortStableFunc(c.Modules, func(a, b Module) int {
		return a.Order - b.Order
	})
}

func sortLessons(lessons []Lesson) {
	slices.SortStableFunc(lessons, func(a, b Lesson) int {
		return a.Order - b.Order
	})
}
