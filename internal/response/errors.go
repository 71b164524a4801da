package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrAdminDisabled      ErrCode = "ADMIN_DISABLED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrInvalidEntryToken ErrCode = "INVALID_ENTRY_TOKEN"
	ErrExamNotPublished  ErrCode = "EXAM_NOT_PUBLISHED"
	ErrNoQuestions       ErrCode = "NO_QUESTIONS"

	// ─── Session ───────────────────────────────────────────────────────
	ErrSessionInUse      ErrCode = "SESSION_IN_USE"
	ErrSessionNotStarted ErrCode = "SESSION_NOT_STARTED"
	ErrSessionStarted    ErrCode = "SESSION_ALREADY_STARTED"
	ErrSessionFinalized  ErrCode = "SESSION_FINALIZED"
	ErrLockFailed        ErrCode = "FULLSCREEN_REQUIRED"
	ErrUnknownQuestion   ErrCode = "UNKNOWN_QUESTION"
	ErrUnknownAction     ErrCode = "UNKNOWN_ACTION"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Kode akses salah."
	case ErrAdminDisabled:
		return "Akses administrator belum dikonfigurasi."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrStudentAccessOnly:
		return "Sumber daya ini terbatas untuk siswa."
	case ErrAdminAccessOnly:
		return "Sumber daya ini terbatas untuk administrator."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrInvalidEntryToken:
		return "Token ujian tidak valid."
	case ErrExamNotPublished:
		return "Ujian ini belum dipublikasikan."
	case ErrNoQuestions:
		return "Ujian ini tidak memiliki soal."

	// ─── Session ───────────────────────────────────────────────────────
	case ErrSessionInUse:
		return "Ujian Anda sedang dibuka di perangkat atau tab lain."
	case ErrSessionNotStarted:
		return "Ujian belum dimulai."
	case ErrSessionStarted:
		return "Ujian sudah dimulai."
	case ErrSessionFinalized:
		return "Ujian sudah selesai."
	case ErrLockFailed:
		return "Mode layar penuh wajib diaktifkan untuk memulai ujian."
	case ErrUnknownQuestion:
		return "Soal tidak ditemukan."
	case ErrUnknownAction:
		return "Aksi tidak dikenal."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
