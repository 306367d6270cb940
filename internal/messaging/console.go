package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ConsoleService logs conversation openers instead of delivering them.
// Used in development and as the default when no messaging backend is
// configured.
type ConsoleService struct {
	logger *slog.Logger
}

// NewConsoleService creates a new ConsoleService.
func NewConsoleService(logger *slog.Logger) *ConsoleService {
	return &ConsoleService{logger: logger}
}

func (s *ConsoleService) OpenConversation(ctx context.Context, params ConversationParams) error {
	// cases.Caser is stateful; build one per call.
	caser := cases.Title(language.English)
	opener := fmt.Sprintf("%s requested a %s session with %s on %s.",
		params.StudentName,
		caser.String(params.Subject),
		params.TutorName,
		params.StartTime.Format("Mon, Jan 2 at 15:04"),
	)

	s.logger.Info("conversation opened",
		"session_id", params.SessionID,
		"student_id", params.StudentID,
		"tutor_id", params.TutorID,
		"opener", opener,
	)
	return nil
}
