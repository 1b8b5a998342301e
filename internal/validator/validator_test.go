package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(err error) []string {
	ve, ok := err.(ValidationErrors)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(ve))
	for _, e := range ve {
		out = append(out, e.Field)
	}
	return out
}

func TestValidateSignup(t *testing.T) {
	v := New()

	require.NoError(t, v.Validate(&SignupRequest{
		UserName: "ada", Email: "ada@example.com", Password: "secret123", PasswordConfirm: "secret123",
	}))

	err := v.Validate(&SignupRequest{UserName: "a", Email: "nope", Password: "secret123", PasswordConfirm: "other"})
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"user_name", "email", "password_confirm"}, fields(err))
}

func TestValidateQuiz(t *testing.T) {
	v := New()

	valid := CreateQuizRequest{
		Title: "Basics",
		Questions: []QuestionRequest{
			{QuestionText: "2+2?", Options: []string{"3", "4"}, CorrectOption: 1},
		},
	}
	require.NoError(t, v.Validate(&valid))

	tests := []struct {
		name  string
		req   CreateQuizRequest
		field string
	}{
		{"no questions", CreateQuizRequest{Title: "x"}, "questions"},
		{"one option", CreateQuizRequest{Title: "x", Questions: []QuestionRequest{
			{QuestionText: "q", Options: []string{"only"}},
		}}, "questions[0].options"},
		{"correct option out of range", CreateQuizRequest{Title: "x", Questions: []QuestionRequest{
			{QuestionText: "q", Options: []string{"a", "b"}, CorrectOption: 2},
		}}, "questions[0].correct_option"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			require.Error(t, err)
			assert.Contains(t, fields(err), tt.field)
		})
	}
}

func TestValidateCourseRules(t *testing.T) {
	v := New()

	err := v.Validate(&CreateCourseRequest{
		Title: "Go", Description: "d", Level: "Expert", Language: "en", Price: -1,
	})
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"level", "price"}, fields(err))

	role := "Instructor"
	require.NoError(t, v.Validate(&UpdateUserRequest{Role: &role}))
	role = "root"
	assert.Equal(t, []string{"role"}, fields(v.Validate(&UpdateUserRequest{Role: &role})))
}

func TestValidationErrorsMessage(t *testing.T) {
	ve := ValidationErrors{{Field: "email", Message: "is required"}}
	assert.Equal(t, "validation failed: email: is required", ve.Error())
	assert.Equal(t, "validation failed", ValidationErrors{}.Error())
}
