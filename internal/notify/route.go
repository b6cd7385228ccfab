package notify

import "quiz-grading-service/internal/domain"

// Outbound topics.
const (
	TopicQuizzes       = "quizzes"
	TopicAdmin         = "admin-notifications"
	TopicNotifications = "notifications"
)

// UserTopic is the per-user topic a student's grading results are sent to.
func UserTopic(userID string) string {
	return "user-" + userID
}

// Route returns the topics a notification is republished to.
func Route(n domain.Notification) []string {
	switch n.Type {
	case domain.NotificationQuizCreated, domain.NotificationQuizUpdated, domain.NotificationQuizDeleted:
		return []string{TopicQuizzes}
	case domain.NotificationSubmissionGraded:
		// Students see their own result; admins see every result.
		if userID, ok := n.UserID(); ok {
			return []string{UserTopic(userID), TopicAdmin}
		}
		return []string{TopicAdmin}
	default:
		return []string{TopicNotifications}
	}
}
