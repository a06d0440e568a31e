package api

import (
	"context"

	"github.com/vytor/studyflash/internal/auth"
	"github.com/vytor/studyflash/internal/jobs"
	"github.com/vytor/studyflash/internal/services"
)

// HealthChecker reports whether storage can serve requests.
type HealthChecker interface {
	Ready(ctx context.Context) error
}

type Server struct {
	DeckService      services.DeckService
	FlashcardService services.FlashcardService
	ImportService    services.ImportService
	StudyService     services.StudyService
	QuizService      services.QuizService
	JobQueue         jobs.JobQueue
	Issuer           *auth.Issuer
	DB               HealthChecker
	CORSOrigins      []string
	MaxImportBytes   int64
}
