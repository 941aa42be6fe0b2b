package v1

import (
	"net/http"

	"career-coach-backend/internal/delivery/http/response"
	"career-coach-backend/internal/domain"
	"career-coach-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileUC domain.ProfileUsecase
}

// NewProfileHandler registers the /users/me routes. updateLimit guards the
// write endpoint.
func NewProfileHandler(r *gin.RouterGroup, profileUC domain.ProfileUsecase, updateLimit gin.HandlerFunc) {
	handler := &ProfileHandler{profileUC: profileUC}

	me := r.Group("/users/me")
	{
		me.GET("", handler.GetProfile)
		me.GET("/onboarding-status", handler.GetOnboardingStatus)
		if updateLimit != nil {
			me.PUT("/profile", updateLimit, handler.UpdateProfile)
		} else {
			me.PUT("/profile", handler.UpdateProfile)
		}
	}
}

// GetProfile godoc
// @Summary      Get current user profile
// @Description  Returns the career profile of the signed-in user
// @Tags         profile
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.Profile}
// @Failure      401  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /users/me [get]
// @Security     BearerAuth
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profile, err := h.profileUC.GetProfile(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Profile retrieved", profile)
}

// UpdateProfile godoc
// @Summary      Update current user profile
// @Description  Sets industry, experience, bio and skills. Creates the industry insight with defaults when the industry is new.
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        request  body      domain.UpdateProfileRequest  true  "Profile data"
// @Success      200      {object}  response.Response{data=domain.Profile}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Failure      504      {object}  response.Response
// @Router       /users/me/profile [put]
// @Security     BearerAuth
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req domain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	profile, err := h.profileUC.UpdateProfile(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Profile updated successfully", profile)
}

// GetOnboardingStatus godoc
// @Summary      Get onboarding status
// @Description  Reports whether the signed-in user has chosen an industry
// @Tags         profile
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.OnboardingStatus}
// @Failure      401  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /users/me/onboarding-status [get]
// @Security     BearerAuth
func (h *ProfileHandler) GetOnboardingStatus(c *gin.Context) {
	status, err := h.profileUC.GetOnboardingStatus(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Onboarding status retrieved", status)
}
