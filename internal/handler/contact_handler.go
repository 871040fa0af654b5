package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prperemyshlev/contacts-service/internal/domain"
	"github.com/prperemyshlev/contacts-service/internal/dto"
	"github.com/prperemyshlev/contacts-service/internal/service"
)

// ContactHandler handles contact requests of the authenticated user
type ContactHandler struct {
	contactService service.ContactService
	logger         *zap.Logger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactService service.ContactService, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		logger:         logger,
	}
}

// List handles listing contacts
// @Summary List contacts
// @Tags contacts
// @Security BearerAuth
// @Produce json
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size" default(100)
// @Param query query string false "Substring of first name, last name or email"
// @Success 200 {array} domain.Contact
// @Router /api/contacts [get]
func (h *ContactHandler) List(c *gin.Context) {
	var q dto.ContactQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindingError(c, locQuery, err)
		return
	}

	filter := domain.ContactFilter{
		Skip:  0,
		Limit: service.DefaultContactLimit,
		Query: q.Query,
	}
	if q.Skip != nil {
		filter.Skip = *q.Skip
	}
	if q.Limit != nil {
		filter.Limit = *q.Limit
	}

	contacts, err := h.contactService.List(c.Request.Context(), CurrentUser(c), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, contacts)
}

// Birthdays handles listing contacts with a birthday in the next week
// @Summary Upcoming birthdays
// @Tags contacts
// @Security BearerAuth
// @Produce json
// @Success 200 {array} domain.Contact
// @Router /api/contacts/birthdays [get]
func (h *ContactHandler) Birthdays(c *gin.Context) {
	contacts, err := h.contactService.UpcomingBirthdays(c.Request.Context(), CurrentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, contacts)
}

// Get handles reading one contact
// @Summary Get contact
// @Tags contacts
// @Security BearerAuth
// @Produce json
// @Param id path int true "Contact ID"
// @Success 200 {object} domain.Contact
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/contacts/{id} [get]
func (h *ContactHandler) Get(c *gin.Context) {
	id, ok := contactID(c)
	if !ok {
		return
	}

	contact, err := h.contactService.Get(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, contact)
}

// Create handles creating a contact
// @Summary Create contact
// @Tags contacts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ContactRequest true "Contact"
// @Success 201 {object} domain.Contact
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/contacts [post]
func (h *ContactHandler) Create(c *gin.Context) {
	var req dto.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, locBody, err)
		return
	}

	contact, err := h.contactService.Create(c.Request.Context(), CurrentUser(c), req.Fields())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, contact)
}

// Update handles replacing a contact
// @Summary Update contact
// @Tags contacts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Contact ID"
// @Param request body dto.ContactRequest true "Contact"
// @Success 200 {object} domain.Contact
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/contacts/{id} [put]
func (h *ContactHandler) Update(c *gin.Context) {
	id, ok := contactID(c)
	if !ok {
		return
	}

	var req dto.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, locBody, err)
		return
	}

	contact, err := h.contactService.Update(c.Request.Context(), CurrentUser(c), id, req.Fields())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, contact)
}

// Delete handles deleting a contact
// @Summary Delete contact
// @Tags contacts
// @Security BearerAuth
// @Produce json
// @Param id path int true "Contact ID"
// @Success 200 {object} domain.Contact
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/contacts/{id} [delete]
func (h *ContactHandler) Delete(c *gin.Context) {
	id, ok := contactID(c)
	if !ok {
		return
	}

	contact, err := h.contactService.Delete(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, contact)
}

// contactID parses the id path parameter, writing a 422 when it is not an integer
func contactID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Detail: []dto.FieldError{{Loc: []string{locPath, "id"}, Msg: "value is not a valid integer"}},
		})
		return 0, false
	}
	return id, true
}
