package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tixora/backend/internal/middleware"
	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
	"github.com/tixora/backend/pkg/response"
	"github.com/tixora/backend/pkg/storage"
)

const dateLayout = "2006-01-02"

// Event dates are calendar days in Western Indonesia Time.
var wib = time.FixedZone("WIB", 7*60*60)

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Title          string  `json:"title" binding:"required,max=200"`
	Description    *string `json:"description"`
	Location       *string `json:"location" binding:"omitempty,max=300"`
	EventDate      string  `json:"event_date" binding:"required,datetime=2006-01-02"`
	EventTime      *string `json:"event_time" binding:"omitempty,datetime=15:04"`
	MaxAttendees   *int    `json:"max_attendees" binding:"omitempty,min=1"`
	IsPublished    bool    `json:"is_published"`
	EnableWaitlist bool    `json:"enable_waitlist"`
}

// UpdateRequest is the body for PATCH /events/:id. Absent fields are left unchanged;
// max_attendees 0 removes the cap.
type UpdateRequest struct {
	Title          *string `json:"title" binding:"omitempty,min=1,max=200"`
	Description    *string `json:"description"`
	Location       *string `json:"location" binding:"omitempty,max=300"`
	EventDate      *string `json:"event_date" binding:"omitempty,datetime=2006-01-02"`
	EventTime      *string `json:"event_time" binding:"omitempty,datetime=15:04"`
	MaxAttendees   *int    `json:"max_attendees" binding:"omitempty,min=0"`
	IsPublished    *bool   `json:"is_published"`
	EnableWaitlist *bool   `json:"enable_waitlist"`
}

// PublishRequest is the body for PATCH /events/:id/publish.
type PublishRequest struct {
	IsPublished *bool `json:"is_published" binding:"required"`
}

// ImageUploadRequest is the body for POST /events/:id/image-upload-url.
type ImageUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// ImagePresigner issues direct-upload URLs for cover images.
type ImagePresigner interface {
	GeneratePresignedUploadURL(ctx context.Context, key, contentType string) (string, error)
	PresignExpire() time.Duration
	PublicObjectURL(key string) string
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo   *Repository
	images ImagePresigner
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates an events handler. images may be nil when S3 is not configured.
func NewHandler(repo *Repository, images ImagePresigner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, images: images, logger: logger, now: time.Now}
}

func (h *Handler) today() time.Time {
	y, m, d := h.now().In(wib).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		response.BadRequest(c, "Judul event wajib diisi")
		return
	}
	date, err := parseDate(req.EventDate)
	if err != nil {
		response.BadRequest(c, "invalid event_date")
		return
	}
	if date.Before(h.today()) {
		response.BadRequest(c, "Tanggal event tidak boleh di masa lalu")
		return
	}

	e := &models.Event{
		OwnerID:        userID,
		Title:          title,
		Description:    req.Description,
		Location:       req.Location,
		EventDate:      date,
		EventTime:      req.EventTime,
		MaxAttendees:   req.MaxAttendees,
		IsPublished:    req.IsPublished,
		EnableWaitlist: req.EnableWaitlist,
	}
	for attempt := 0; attempt < 2; attempt++ {
		e.Slug, err = Slugify(title)
		if err != nil {
			break
		}
		err = h.repo.Create(c.Request.Context(), e)
		if !errors.Is(err, ErrSlugTaken) {
			break
		}
	}
	if err != nil {
		h.logger.Error("create event failed", zap.Error(err), zap.String("owner_id", userID.String()))
		response.Internal(c, "failed to create event")
		return
	}
	h.logger.Info("event created", zap.String("event_id", e.ID.String()), zap.String("slug", e.Slug))
	response.Created(c, e)
}

// GetByID handles GET /events/:id (owner or team).
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.notFoundOrInternal(c, err)
		return
	}
	response.OK(c, gin.H{"event": e, "role": c.GetString(ContextEventRole)})
}

// GetBySlug handles GET /public/events/:slug. Unpublished events are hidden.
func (h *Handler) GetBySlug(c *gin.Context) {
	e, err := h.repo.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		response.Internal(c, "failed to load event")
		return
	}
	if err != nil || !e.IsPublished {
		response.NotFound(c, "Event tidak ditemukan")
		return
	}
	response.OK(c, e)
}

// ListPublished handles GET /public/events.
func (h *Handler) ListPublished(c *gin.Context) {
	list, err := h.repo.ListPublished(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// ListMine handles GET /events: events owned by or shared with the caller.
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	list, err := h.repo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /events/:id (owner or team admin).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.notFoundOrInternal(c, err)
		return
	}
	if req.Title != nil {
		e.Title = strings.TrimSpace(*req.Title)
		if e.Title == "" {
			response.BadRequest(c, "Judul event wajib diisi")
			return
		}
	}
	if req.Description != nil {
		e.Description = req.Description
	}
	if req.Location != nil {
		e.Location = req.Location
	}
	if req.EventDate != nil {
		date, err := parseDate(*req.EventDate)
		if err != nil {
			response.BadRequest(c, "invalid event_date")
			return
		}
		e.EventDate = date
	}
	if req.EventTime != nil {
		e.EventTime = req.EventTime
	}
	if req.MaxAttendees != nil {
		if *req.MaxAttendees == 0 {
			e.MaxAttendees = nil
		} else {
			e.MaxAttendees = req.MaxAttendees
		}
	}
	if req.IsPublished != nil {
		e.IsPublished = *req.IsPublished
	}
	if req.EnableWaitlist != nil {
		e.EnableWaitlist = *req.EnableWaitlist
	}
	if err := h.repo.Update(c.Request.Context(), e); err != nil {
		h.notFoundOrInternal(c, err)
		return
	}
	response.OK(c, e)
}

// Publish handles PATCH /events/:id/publish (owner or team admin).
func (h *Handler) Publish(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.notFoundOrInternal(c, err)
		return
	}
	e.IsPublished = *req.IsPublished
	if err := h.repo.Update(c.Request.Context(), e); err != nil {
		h.notFoundOrInternal(c, err)
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /events/:id (owner only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.notFoundOrInternal(c, err)
		return
	}
	h.logger.Info("event deleted", zap.String("event_id", id.String()))
	response.NoContent(c)
}

// ImageUploadURL handles POST /events/:id/image-upload-url. The returned image_url
// is stored on the event right away; the client PUTs the file to upload_url.
func (h *Handler) ImageUploadURL(c *gin.Context) {
	if h.images == nil {
		response.ServiceUnavailable(c, "S3 not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req ImageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !storage.ValidateImageType(req.ContentType) {
		response.BadRequest(c, "invalid file type: only jpg, png and webp images allowed")
		return
	}
	key := storage.EventImageKey(id.String(), uuid.NewString(), req.ContentType)
	url, err := h.images.GeneratePresignedUploadURL(c.Request.Context(), key, req.ContentType)
	if err != nil {
		h.logger.Error("generate presigned upload URL failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "S3 upload unavailable")
		return
	}
	imageURL := h.images.PublicObjectURL(key)
	if err := h.repo.SetImageURL(c.Request.Context(), id, imageURL); err != nil {
		h.notFoundOrInternal(c, err)
		return
	}
	response.OK(c, gin.H{
		"upload_url":   url,
		"s3_key":       key,
		"image_url":    imageURL,
		"content_type": req.ContentType,
		"expires_in":   int(h.images.PresignExpire().Seconds()),
	})
}

func (h *Handler) notFoundOrInternal(c *gin.Context, err error) {
	if errors.Is(err, database.ErrNotFound) {
		response.NotFound(c, "event not found")
		return
	}
	h.logger.Error("event query failed", zap.Error(err))
	response.Internal(c, "failed to load event")
}
