package checkin

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tixora/backend/internal/tickets"
	"github.com/tixora/backend/pkg/response"
)

// VerifyRequest is the body for POST /events/:id/checkin.
type VerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

// BulkRequest is the body for POST /events/:id/checkin/bulk.
type BulkRequest struct {
	RegistrationIDs []uuid.UUID `json:"registration_ids" binding:"required,min=1,max=1000"`
}

// View is a Result with the staff message attached.
type View struct {
	Result
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// NewView wraps res for JSON output.
func NewView(res Result) View {
	return View{Result: res, Message: res.Message(), Retryable: res.Retryable()}
}

// Handler serves check-in endpoints for event staff.
type Handler struct {
	verifier       *Verifier
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewHandler creates a check-in handler. maxUploadKB bounds scanned image uploads.
func NewHandler(verifier *Verifier, maxUploadKB int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{verifier: verifier, maxUploadBytes: int64(maxUploadKB) * 1024, logger: logger}
}

// Verify handles POST /events/:id/checkin.
func (h *Handler) Verify(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.respond(c, eventID, req.Token)
}

// VerifyImage handles POST /events/:id/checkin/image with a multipart "image"
// field holding a photo of the ticket.
func (h *Handler) VerifyImage(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "image is required")
		return
	}
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, response.Body{Success: false, Error: "image too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "cannot read image")
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		response.BadRequest(c, "cannot read image")
		return
	}
	token, err := tickets.DecodeBytes(raw)
	if errors.Is(err, tickets.ErrNoCode) {
		response.UnprocessableEntity(c, "QR code tidak terdeteksi pada gambar.")
		return
	}
	if err != nil {
		response.BadRequest(c, "unsupported image")
		return
	}
	h.respond(c, eventID, token)
}

// Bulk handles POST /events/:id/checkin/bulk.
func (h *Handler) Bulk(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	n, err := h.verifier.BulkCheckIn(c.Request.Context(), eventID, req.RegistrationIDs)
	if err != nil {
		response.ServiceUnavailable(c, "Gagal melakukan check-in. Silakan coba lagi.")
		return
	}
	response.OK(c, gin.H{"count": n, "requested": len(req.RegistrationIDs)})
}

func (h *Handler) respond(c *gin.Context, eventID uuid.UUID, token string) {
	res, err := h.verifier.Verify(c.Request.Context(), eventID, token)
	view := NewView(res)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Data: view, Error: view.Message})
		return
	}
	c.JSON(http.StatusOK, response.Body{Success: res.Status == StatusSuccess, Data: view})
}
