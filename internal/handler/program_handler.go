package handler

import (
	"net/http"

	"fundecodes-backend/internal/middleware"
	"fundecodes-backend/internal/service"
	"fundecodes-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProgramHandler struct {
	programService service.ProgramService
}

func NewProgramHandler(programService service.ProgramService) *ProgramHandler {
	return &ProgramHandler{programService: programService}
}

func (h *ProgramHandler) RegisterRoutes(router *gin.RouterGroup) {
	programs := router.Group("/api/programs")
	{
		programs.GET("", middleware.RequirePermission("programs.read"), h.ListPrograms)
		programs.GET("/:id", middleware.RequirePermission("programs.read"), h.GetProgram)
		programs.POST("", middleware.RequirePermission("programs.write"), h.CreateProgram)
		programs.PUT("/:id", middleware.RequirePermission("programs.write"), h.UpdateProgram)
		programs.DELETE("/:id", middleware.RequirePermission("programs.write"), h.DeleteProgram)
	}
}

// ListPrograms returns the budget lines requests can be charged against
// @Summary      List programs
// @Tags         programs
// @Produce      json
// @Security     BearerAuth
// @Param        include_inactive  query  bool  false  "Include deactivated programs"
// @Success      200  {object}  response.Response{data=[]service.ProgramResponse}
// @Router       /api/programs [get]
func (h *ProgramHandler) ListPrograms(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"

	programs, err := h.programService.ListPrograms(c.Request.Context(), includeInactive)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, programs))
}

// GetProgram returns a single program
// @Summary      Get program
// @Tags         programs
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Program ID"
// @Success      200  {object}  response.Response{data=service.ProgramResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/programs/{id} [get]
func (h *ProgramHandler) GetProgram(c *gin.Context) {
	program, err := h.programService.GetProgram(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, program))
}

// CreateProgram registers a new budget line
// @Summary      Create program
// @Tags         programs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body  service.CreateProgramRequest  true  "Program payload"
// @Success      201  {object}  response.Response{data=service.ProgramResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/programs [post]
func (h *ProgramHandler) CreateProgram(c *gin.Context) {
	var req service.CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	program, err := h.programService.CreateProgram(c.Request.Context(), userIDStr, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, program))
}

// UpdateProgram edits a program's name, description or active flag
// @Summary      Update program
// @Tags         programs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string                        true  "Program ID"
// @Param        payload  body  service.UpdateProgramRequest  true  "Program payload"
// @Success      200  {object}  response.Response{data=service.ProgramResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/programs/{id} [put]
func (h *ProgramHandler) UpdateProgram(c *gin.Context) {
	var req service.UpdateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	program, err := h.programService.UpdateProgram(c.Request.Context(), c.Param("id"), userIDStr, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, program))
}

// DeleteProgram deactivates a program so new requests cannot charge it
// @Summary      Deactivate program
// @Tags         programs
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Program ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/programs/{id} [delete]
func (h *ProgramHandler) DeleteProgram(c *gin.Context) {
	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	if err := h.programService.DeleteProgram(c.Request.Context(), c.Param("id"), userIDStr); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deactivated": true}))
}
