package analytics

import (
	"context"
	"math"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tixora/backend/internal/middleware"
	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
	"github.com/tixora/backend/pkg/response"
)

// StatsSource returns registration totals for one event.
type StatsSource interface {
	Stats(ctx context.Context, eventID uuid.UUID) (models.EventStats, error)
}

// ViewerCounter reports live dashboard connections for an event.
type ViewerCounter interface {
	ViewerCount(eventID uuid.UUID) int
}

// Handler handles event and dashboard statistics.
type Handler struct {
	db      database.DB
	stats   StatsSource
	viewers ViewerCounter
	logger  *zap.Logger
}

// NewHandler creates an analytics handler. viewers may be nil.
func NewHandler(db database.DB, stats StatsSource, viewers ViewerCounter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{db: db, stats: stats, viewers: viewers, logger: logger}
}

// SummaryResponse is the JSON shape for GET /events/:id/stats.
type SummaryResponse struct {
	EventID            uuid.UUID `json:"event_id"`
	TotalRegistrations int       `json:"total_registrations"`
	TotalCheckedIn     int       `json:"total_checked_in"`
	TotalNotCheckedIn  int       `json:"total_not_checked_in"`
	TotalWaitlisted    int       `json:"total_waitlisted"`
	CheckInRate        float64   `json:"checkin_rate"`
	LiveViewers        int       `json:"live_viewers"`
}

// DashboardResponse is the JSON shape for GET /dashboard/stats.
type DashboardResponse struct {
	TotalEvents        int     `json:"total_events"`
	UpcomingEvents     int     `json:"upcoming_events"`
	TotalRegistrations int     `json:"total_registrations"`
	TotalCheckedIn     int     `json:"total_checked_in"`
	CheckInRate        float64 `json:"checkin_rate"`
}

// Summarize derives the display figures from raw counts.
func Summarize(s models.EventStats) SummaryResponse {
	notIn := s.Total - s.CheckedIn
	if notIn < 0 {
		notIn = 0
	}
	return SummaryResponse{
		EventID:            s.EventID,
		TotalRegistrations: s.Total,
		TotalCheckedIn:     s.CheckedIn,
		TotalNotCheckedIn:  notIn,
		TotalWaitlisted:    s.Waitlisted,
		CheckInRate:        rate(s.CheckedIn, s.Total),
	}
}

// rate is part/total as a percentage rounded to one decimal.
func rate(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

// GetByEvent handles GET /events/:id/stats. Event access is enforced by route middleware.
func (h *Handler) GetByEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	s, err := h.stats.Stats(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("event stats failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to load event stats")
		return
	}
	out := Summarize(s)
	if h.viewers != nil {
		out.LiveViewers = h.viewers.ViewerCount(id)
	}
	response.OK(c, out)
}

// Dashboard handles GET /dashboard/stats: totals across events the caller owns or staffs.
func (h *Handler) Dashboard(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	const q = `SELECT COUNT(DISTINCT e.id),
			COUNT(DISTINCT e.id) FILTER (WHERE e.event_date >= CURRENT_DATE),
			COUNT(r.id),
			COUNT(r.checked_in_at)
		FROM events e
		LEFT JOIN registrations r ON r.event_id = e.id
		WHERE e.owner_id = $1
		   OR e.id IN (SELECT event_id FROM event_team_members WHERE user_id = $1)`
	var out DashboardResponse
	err := h.db.QueryRow(c.Request.Context(), q, userID).
		Scan(&out.TotalEvents, &out.UpcomingEvents, &out.TotalRegistrations, &out.TotalCheckedIn)
	if err != nil {
		h.logger.Error("dashboard stats failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to load dashboard stats")
		return
	}
	out.CheckInRate = rate(out.TotalCheckedIn, out.TotalRegistrations)
	response.OK(c, out)
}
