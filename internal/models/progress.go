package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Progress struct {
	ID              uuid.UUID                       `json:"id" gorm:"type:uuid;primaryKey"`
	StudentID       uuid.UUID                       `json:"student_id" gorm:"type:uuid;not null;uniqueIndex:idx_progress_student_course"`
	CourseID        uuid.UUID                       `json:"course_id" gorm:"type:uuid;not null;uniqueIndex:idx_progress_student_course"`
	QuizResults     datatypes.JSONSlice[QuizResult] `json:"quiz_results" gorm:"type:jsonb"`
	OverallProgress int                             `json:"overall_progress" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type QuizResult struct {
	QuizID         uuid.UUID `json:"quiz_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

func (Progress) TableName() string {
	return "progress"
}

func (p *Progress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// RecordResult stores the latest result for a quiz, replacing an earlier
// submission of the same quiz, and recomputes the overall percentage against
// the quizzes the course has now.
func (p *Progress) RecordResult(result QuizResult, courseQuizzes []uuid.UUID) {
	replaced := false
	for i := range p.QuizResults {
		if p.QuizResults[i].QuizID == result.QuizID {
			p.QuizResults[i] = result
			replaced = true
			break
		}
	}
	if !replaced {
		p.QuizResults = append(p.QuizResults, result)
	}
	p.Recalculate(courseQuizzes)
}

// Completed counts the distinct quizzes in courseQuizzes that have a result.
// Results for quizzes deleted since submission do not count.
func (p *Progress) Completed(courseQuizzes []uuid.UUID) int {
	done := make(map[uuid.UUID]bool, len(p.QuizResults))
	for _, r := range p.QuizResults {
		done[r.QuizID] = true
	}
	n := 0
	for _, id := range courseQuizzes {
		if done[id] {
			n++
			delete(done, id)
		}
	}
	return n
}

// Recalculate sets OverallProgress to the completed share of courseQuizzes.
func (p *Progress) Recalculate(courseQuizzes []uuid.UUID) {
	if len(courseQuizzes) == 0 {
		p.OverallProgress = 0
		return
	}
	pct := math.Round(float64(p.Completed(courseQuizzes)) / float64(len(courseQuizzes)) * 100)
	p.OverallProgress = int(pct)
}
