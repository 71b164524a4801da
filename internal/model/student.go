package model

// StudentIdentity is captured once at login and never changes during a session.
type StudentIdentity struct {
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
	School    string `json:"school"`
	BirthDate string `json:"birth_date"`
	Token     string `json:"token"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	Name      string `json:"name" binding:"required,min=2,max=100"`
	ClassName string `json:"class_name" binding:"required,max=50"`
	School    string `json:"school" binding:"required,max=150"`
	BirthDate string `json:"birth_date" binding:"required,datetime=2006-01-02"`
	Token     string `json:"token" binding:"required,exam_token"`
}

// StudentLoginResponse is returned after successful student login.
type StudentLoginResponse struct {
	AccessToken string          `json:"access_token"`
	Identity    StudentIdentity `json:"identity"`
	Exam        ExamSummary     `json:"exam"`
	Resumable   bool            `json:"resumable"`
	Resume      *ResumeSummary  `json:"resume,omitempty"`
}

// AdminLoginRequest is the payload for admin authentication.
type AdminLoginRequest struct {
	AccessCode string `json:"access_code" binding:"required,min=4,max=128"`
}
