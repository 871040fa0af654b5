package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prperemyshlev/contacts-service/internal/dto"
	"github.com/prperemyshlev/contacts-service/internal/service"
)

// UserHandler handles profile requests of the authenticated user
type UserHandler struct {
	userService   service.UserService
	maxAvatarSize int64
	logger        *zap.Logger
}

// NewUserHandler creates a new user handler. maxAvatarSize <= 0 disables the upload size check.
func NewUserHandler(userService service.UserService, maxAvatarSize int64, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService:   userService,
		maxAvatarSize: maxAvatarSize,
		logger:        logger,
	}
}

// Me handles getting current user profile
// @Summary Get current user profile
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /api/users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewUserResponse(CurrentUser(c)))
}

// UpdateAvatar handles avatar uploads
// @Summary Update avatar
// @Tags users
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Avatar image"
// @Success 200 {object} dto.UserResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/users/avatar [patch]
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Detail: []dto.FieldError{{Loc: []string{locBody, "file"}, Msg: "field required"}},
		})
		return
	}

	if h.maxAvatarSize > 0 && header.Size > h.maxAvatarSize {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Detail: []dto.FieldError{{
				Loc: []string{locBody, "file"},
				Msg: fmt.Sprintf("file must be at most %d bytes", h.maxAvatarSize),
			}},
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, h.logger, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer file.Close()

	user, err := h.userService.UpdateAvatar(c.Request.Context(), CurrentUser(c), file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}
