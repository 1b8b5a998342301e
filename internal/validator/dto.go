package validator

// ===== USERS =====

type SignupRequest struct {
	UserName        string `json:"user_name" validate:"required,min=3,max=50"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Code            string `json:"code" validate:"required,len=6,numeric"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// UpdateUserRequest is used by admins; nil fields are left unchanged
type UpdateUserRequest struct {
	UserName *string `json:"user_name" validate:"omitempty,min=3,max=50"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Role     *string `json:"role" validate:"omitempty,user_role"`
	Active   *bool   `json:"active"`
}

// ===== COURSES =====

type CreateCourseRequest struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description" validate:"required,max=5000"`
	Duration     int      `json:"duration" validate:"gte=0"`
	Level        string   `json:"level" validate:"required,course_level"`
	Language     string   `json:"language" validate:"required,max=50"`
	Price        int64    `json:"price" validate:"gte=0"`
	Discount     float64  `json:"discount" validate:"gte=0,lte=100"`
	Categories   []string `json:"categories" validate:"omitempty,max=20,dive,required,max=50"`
	Tags         []string `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
	InstructorID *string  `json:"instructor_id" validate:"omitempty,uuid"` // honoured for admins only
}

type UpdateCourseRequest struct {
	Title       *string   `json:"title" validate:"omitempty,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Duration    *int      `json:"duration" validate:"omitempty,gte=0"`
	Level       *string   `json:"level" validate:"omitempty,course_level"`
	Language    *string   `json:"language" validate:"omitempty,max=50"`
	Price       *int64    `json:"price" validate:"omitempty,gte=0"`
	Discount    *float64  `json:"discount" validate:"omitempty,gte=0,lte=100"`
	Categories  *[]string `json:"categories" validate:"omitempty,max=20,dive,required,max=50"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
}

type CreateModuleRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Order int    `json:"order" validate:"gte=0"`
}

type UpdateModuleRequest struct {
	Title *string `json:"title" validate:"omitempty,max=200"`
	Order *int    `json:"order" validate:"omitempty,gte=0"`
}

type CreateLessonRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Duration int    `json:"duration" validate:"gte=0"`
	VideoURL string `json:"video_url" validate:"required,max=2048,url_or_key"`
	Order    int    `json:"order" validate:"gte=0"`
}

type UpdateLessonRequest struct {
	Title    *string `json:"title" validate:"omitempty,max=200"`
	Duration *int    `json:"duration" validate:"omitempty,gte=0"`
	VideoURL *string `json:"video_url" validate:"omitempty,max=2048,url_or_key"`
	Order    *int    `json:"order" validate:"omitempty,gte=0"`
}

// ===== DISCUSSIONS =====

type CreateDiscussionRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required,max=10000"`
}

type ReplyRequest struct {
	Content string `json:"content" validate:"required,max=10000"`
}

// ===== QUIZZES =====

type QuestionRequest struct {
	QuestionText  string   `json:"question_text" validate:"required,max=1000"`
	Options       []string `json:"options" validate:"required,min=2,max=10,dive,required,max=500"`
	CorrectOption int      `json:"correct_option"`
}

type CreateQuizRequest struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description *string           `json:"description" validate:"omitempty,max=2000"`
	Questions   []QuestionRequest `json:"questions" validate:"required,min=1,max=100,dive"`
}

type UpdateQuizRequest struct {
	Title       *string            `json:"title" validate:"omitempty,max=200"`
	Description *string            `json:"description" validate:"omitempty,max=2000"`
	Questions   *[]QuestionRequest `json:"questions" validate:"omitempty,min=1,max=100,dive"`
}

type SubmitQuizRequest struct {
	Answers []int `json:"answers" validate:"required,min=1,dive,gte=0"`
}

// ===== PAYMENTS =====

// InitiatePaymentRequest names the course only; price, discount, tax and
// currency all come from server-side data.
type InitiatePaymentRequest struct {
	CourseID string `json:"course_id" validate:"required,uuid"`
}
