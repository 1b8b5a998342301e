package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrAnswerCountMismatch = errors.New("answer count does not match question count")

type Quiz struct {
	ID          uuid.UUID                     `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string                        `json:"title" gorm:"not null;size:200"`
	Description *string                       `json:"description,omitempty" gorm:"type:text"`
	Questions   datatypes.JSONSlice[Question] `json:"questions" gorm:"type:jsonb"`

	// Both references are by value; ModuleID is checked procedurally against
	// the course document, never by a foreign key.
	CourseID *uuid.UUID `json:"course_id,omitempty" gorm:"type:uuid;index"`
	ModuleID *uuid.UUID `json:"module_id,omitempty" gorm:"type:uuid;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

type Question struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

type QuestionResult struct {
	Question      string `json:"question"`
	UserAnswer    int    `json:"user_answer"`
	CorrectAnswer int    `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

type QuizGrade struct {
	Score          int              `json:"score"`
	TotalQuestions int              `json:"total_questions"`
	Results        []QuestionResult `json:"results"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// Grade compares answers positionally against the correct options.
func (q *Quiz) Grade(answers []int) (*QuizGrade, error) {
	if len(answers) != len(q.Questions) {
		return nil, fmt.Errorf("%w: got %d answers for %d questions", ErrAnswerCountMismatch, len(answers), len(q.Questions))
	}

	grade := &QuizGrade{
		TotalQuestions: len(q.Questions),
		Results:        make([]QuestionResult, 0, len(q.Questions)),
	}
	for i, question := range q.Questions {
		correct := answers[i] == question.CorrectOption
		if correct {
			grade.Score++
		}
		grade.Results = append(grade.Results, QuestionResult{
			Question:      question.QuestionText,
			UserAnswer:    answers[i],
			CorrectAnswer: question.CorrectOption,
			IsCorrect:     correct,
		})
	}
	return grade, nil
}
