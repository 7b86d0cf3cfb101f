package model

// StartAttemptRequest is the payload for starting an exam attempt.
type StartAttemptRequest struct {
	DurationMinutes *int `json:"duration_minutes" binding:"required,min=0,max=480"`
}

// RecordAnswerRequest is the payload for saving a single answer.
// Pointers distinguish an absent field from a legitimate zero.
type RecordAnswerRequest struct {
	QuestionIndex  *int `json:"question_index" binding:"required,min=0"`
	SelectedOption *int `json:"selected_option" binding:"required,min=0"`
}
