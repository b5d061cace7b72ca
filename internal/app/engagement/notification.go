package engagement

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/kinly-app/kinly/internal/domain"
	"github.com/kinly-app/kinly/internal/infra/metrics"
	"github.com/kinly-app/kinly/internal/infra/sqlite"
)

// NotificationService records achievement notifications under a policy:
//   - at most MaxPerDay notifications per user per calendar day
//   - nothing recorded during quiet hours (QuietStart to QuietEnd, local time)
//
// Delivery to devices happens elsewhere; this service only keeps the log
// that delivery drains via Pending and MarkShown.
type NotificationService struct {
	db     *sqlite.DB
	policy domain.NotificationPolicy
	now    func() time.Time
	loc    *time.Location
	logger *log.Logger
}

// NewNotificationService creates a notification service with default policy.
func NewNotificationService(db *sqlite.DB) *NotificationService {
	return NewNotificationServiceWithPolicy(db, domain.DefaultNotificationPolicy())
}

// NewNotificationServiceWithPolicy creates a notification service with custom policy.
func NewNotificationServiceWithPolicy(db *sqlite.DB, policy domain.NotificationPolicy) *NotificationService {
	return &NotificationService{
		db:     db,
		policy: policy,
		now:    time.Now,
		loc:    time.Local,
		logger: log.Default(),
	}
}

// WithClock overrides the clock and time zone. Intended for tests.
func (n *NotificationService) WithClock(now func() time.Time, loc *time.Location) *NotificationService {
	n.now = now
	if loc != nil {
		n.loc = loc
	}
	return n
}

// WithLogger overrides the logger.
func (n *NotificationService) WithLogger(l *log.Logger) *NotificationService {
	n.logger = l
	return n
}

// Create records a notification if policy allows it.
// Returns the notification ID (0 if suppressed by policy) and any error.
func (n *NotificationService) Create(notif domain.Notification) (int64, error) {
	now := n.now().In(n.loc)

	todayCount, err := n.db.NotificationCountSince(notif.UserID, startOfDay(now))
	if err != nil {
		return 0, fmt.Errorf("count today: %w", err)
	}
	if todayCount >= n.policy.MaxPerDay {
		return 0, nil
	}
	if n.isQuietHour(now) {
		return 0, nil
	}

	notif.CreatedAt = now
	notif.Shown = false

	id, err := n.db.InsertNotification(notif)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// ForUser returns the notification trigger for one user's engine.
func (n *NotificationService) ForUser(userID string) domain.Notifier {
	return userNotifier{svc: n, userID: userID}
}

type userNotifier struct {
	svc    *NotificationService
	userID string
}

// NotifyAchievementUnlocked implements domain.Notifier. Errors are logged
// and counted, never returned.
func (u userNotifier) NotifyAchievementUnlocked(achID string) {
	title, body := "Achievement unlocked", "You unlocked a new achievement."
	if def, ok := Lookup(achID); ok && !def.Hidden {
		title = "Achievement unlocked: " + def.Name
		body = fmt.Sprintf("You earned %d points.", def.Points)
	} else if ok {
		body = "You found a hidden achievement!"
	}

	id, err := u.svc.Create(domain.Notification{
		UserID: u.userID,
		Type:   domain.NotifyAchievement,
		Title:  title,
		Body:   body,
	})
	switch {
	case err != nil:
		metrics.Notifications.WithLabelValues("failed").Inc()
		u.svc.logger.Printf("[notify] %s for %s: %v", achID, u.userID, err)
	case id == 0:
		metrics.Notifications.WithLabelValues("suppressed").Inc()
	default:
		metrics.Notifications.WithLabelValues("created").Inc()
	}
}

// Pending returns unshown notifications for a user ("" for all users).
func (n *NotificationService) Pending(userID string, limit int) ([]domain.Notification, error) {
	return n.db.ListPendingNotifications(userID, limit)
}

// MarkShown marks a notification as shown.
func (n *NotificationService) MarkShown(id int64) error {
	return n.db.MarkNotificationShown(id)
}

// TodayCount returns how many notifications a user received today.
func (n *NotificationService) TodayCount(userID string) (int, error) {
	return n.db.NotificationCountSince(userID, startOfDay(n.now().In(n.loc)))
}

// Policy returns the current notification policy.
func (n *NotificationService) Policy() domain.NotificationPolicy {
	return n.policy
}

// isQuietHour returns true if the given time falls within quiet hours.
func (n *NotificationService) isQuietHour(t time.Time) bool {
	startHour, startMin := parseHHMM(n.policy.QuietStart)
	endHour, endMin := parseHHMM(n.policy.QuietEnd)

	timeMinutes := t.Hour()*60 + t.Minute()
	startMinutes := startHour*60 + startMin
	endMinutes := endHour*60 + endMin

	if startMinutes == endMinutes {
		return false // no quiet window
	}
	if startMinutes > endMinutes {
		// Wraps midnight: e.g. 22:00 to 08:00
		return timeMinutes >= startMinutes || timeMinutes < endMinutes
	}
	return timeMinutes >= startMinutes && timeMinutes < endMinutes
}

// startOfDay returns local midnight of t's calendar day.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// parseHHMM parses "HH:MM" into hour and minute.
func parseHHMM(s string) (int, int) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h, m
}
