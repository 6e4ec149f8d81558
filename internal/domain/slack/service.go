package slack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"leavedesk/internal/domain/leave"
)

// Service dispatches Slack notifications. Every send is best-effort: when
// the integration is unconfigured or the Web API call fails, the dispatcher
// logs and reports false instead of surfacing an error to the triggering
// request.
type Service struct {
	store  StoreAPI
	poster Poster
	now    func() time.Time
}

func NewService(store StoreAPI, poster Poster) *Service {
	return &Service{store: store, poster: poster, now: time.Now}
}

// NotifyLeaveCreated posts a single-leave notice and reports whether the
// message went out.
func (s *Service) NotifyLeaveCreated(ctx context.Context, lv leave.LeaveRequest, ownerName string) bool {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		slog.Warn("slack config load failed", "err", err)
		return false
	}
	if cfg == nil || !cfg.Enabled || cfg.BotToken == "" || cfg.ChannelID == "" {
		return false
	}

	text := leaveNoticeText(lv, ownerName)
	if err := s.poster.Post(ctx, cfg.BotToken, cfg.ChannelID, text); err != nil {
		slog.Warn("slack leave notice failed", "leaveId", lv.ID, "err", err)
		return false
	}
	return true
}

// SendTest posts a short message so admins can verify the configuration.
func (s *Service) SendTest(ctx context.Context) error {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return err
	}
	if cfg == nil || cfg.BotToken == "" || cfg.ChannelID == "" {
		return fmt.Errorf("slack is not configured")
	}
	return s.poster.Post(ctx, cfg.BotToken, cfg.ChannelID, "Leavedesk test message: Slack integration is working.")
}

// SendSummary posts the rolling-window leave summary. With force=false it
// only sends when the configured schedule matches the current wall clock and
// no summary went out inside the cooldown window.
func (s *Service) SendSummary(ctx context.Context, force bool) (bool, error) {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return false, err
	}
	if cfg == nil || !cfg.Enabled || cfg.BotToken == "" || cfg.ChannelID == "" {
		return false, nil
	}

	now := s.now()
	if !force {
		if !scheduleMatches(now, cfg.ScheduleTime, cfg.WorkdaysOnly) {
			return false, nil
		}
		if recentlySent(now, cfg.LastSummarySentAt) {
			return false, nil
		}
	}

	dayRange := cfg.DayRange
	if dayRange < 1 || dayRange > 30 {
		dayRange = 7
	}
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, dayRange)

	rows, err := s.store.LeavesInWindow(ctx, from, to)
	if err != nil {
		return false, err
	}

	text := summaryText(rows, from, to)
	if err := s.poster.Post(ctx, cfg.BotToken, cfg.ChannelID, text); err != nil {
		slog.Warn("slack summary post failed", "err", err)
		return false, nil
	}
	if err := s.store.MarkSummarySent(ctx, now); err != nil {
		slog.Warn("slack summary watermark update failed", "err", err)
	}
	return true, nil
}

func leaveNoticeText(lv leave.LeaveRequest, ownerName string) string {
	span := formatSpan(lv.StartDate, lv.EndDate, lv.IsHalfDay, lv.Period)
	return fmt.Sprintf(":palm_tree: *New leave request* from %s\n%s leave, %s", ownerName, lv.LeaveType, span)
}

func summaryText(rows []SummaryRow, from, to time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":calendar: *Upcoming leave* (%s to %s)\n", from.Format("Jan 2"), to.AddDate(0, 0, -1).Format("Jan 2"))
	if len(rows) == 0 {
		b.WriteString("No leave requests in this window.")
		return b.String()
	}
	for _, row := range rows {
		span := formatSpan(row.StartDate, row.EndDate, row.IsHalfDay, row.Period)
		fmt.Fprintf(&b, "• %s (%s): %s, %s [%s]\n", row.UserName, row.Department, row.LeaveType, span, row.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSpan(start, end time.Time, isHalfDay bool, period *string) string {
	if isHalfDay && period != nil {
		return fmt.Sprintf("%s (%s)", start.Format("Jan 2"), *period)
	}
	if start.Equal(end) {
		return start.Format("Jan 2")
	}
	return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("Jan 2"))
}
