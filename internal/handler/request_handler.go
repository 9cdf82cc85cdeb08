package handler

import (
	"errors"
	"net/http"

	"fundecodes-backend/internal/middleware"
	"fundecodes-backend/internal/model"
	"fundecodes-backend/internal/service"
	"fundecodes-backend/pkg/pagination"
	"fundecodes-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
}

func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	{
		requests.GET("", middleware.RequirePermission("requests.read"), h.ListRequests)
		requests.POST("", middleware.RequirePermission("requests.write"), h.CreateRequest)
		requests.GET("/:id", middleware.RequirePermission("requests.read"), h.GetRequest)
		requests.GET("/:id/history", middleware.RequirePermission("requests.read"), h.GetHistory)

		requests.PUT("/:id/validate", middleware.RequireRole(model.RoleAccountant, model.RoleAdmin), h.transition(model.TransitionValidate))
		requests.PUT("/:id/return", middleware.RequireRole(model.RoleAccountant, model.RoleAdmin), h.transition(model.TransitionReturn))
		requests.PUT("/:id/approve", middleware.RequireRole(model.RoleDirector, model.RoleAdmin), h.transition(model.TransitionApprove))
		requests.PUT("/:id/reject", middleware.RequireRole(model.RoleDirector, model.RoleAdmin), h.transition(model.TransitionReject))
	}
}

// CreateRequest submits a new purchase request in pending state
// @Summary      Create purchase request
// @Description  Creates a purchase request charged against a program; the history ledger opens with the creation entry
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRequestDTO  true  "Purchase request payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	result, err := h.requestService.CreateRequest(c.Request.Context(), userIDStr, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListRequests returns purchase requests with server-side filters
// @Summary      List purchase requests
// @Description  Lists requests, optionally filtered by status, creator, or invoice presence
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        status       query  string  false  "Status filter (pending|validated|approved|rejected)"
// @Param        created_by   query  string  false  "Creator user id filter"
// @Param        has_invoice  query  bool    false  "Only requests with (true) or without (false) a final invoice"
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        limit        query  int     false  "Items per page (default 20, max 100)"
// @Success      200  {object}  response.Response
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.RequestListFilter{
		Status:    c.Query("status"),
		CreatedBy: c.Query("created_by"),
		Page:      params.Page,
		Limit:     params.Limit,
	}
	if raw, ok := c.GetQuery("has_invoice"); ok {
		hasInvoice := raw == "true" || raw == "1"
		filter.HasInvoice = &hasInvoice
	}

	requests, total, err := h.requestService.ListRequests(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, requests, total, params.Page, params.Limit))
}

// GetRequest returns one purchase request with its history and invoice
// @Summary      Get purchase request
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	result, err := h.requestService.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusForRequestError(err), response.Error(statusForRequestError(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetHistory returns the append-only ledger of one request
// @Summary      Get request history
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Request ID"
// @Success      200  {object}  response.Response{data=[]service.HistoryEntryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id}/history [get]
func (h *RequestHandler) GetHistory(c *gin.Context) {
	entries, err := h.requestService.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusForRequestError(err), response.Error(statusForRequestError(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}

// transition builds the handler for one lifecycle action endpoint
func (h *RequestHandler) transition(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.TransitionDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			// Allow empty body — the note is optional for most transitions
			req.Note = ""
		}

		userID, _ := c.Get("userID")
		userIDStr, _ := userID.(string)
		userRole, _ := c.Get("userRole")
		roleStr, _ := userRole.(string)

		result, err := h.requestService.Transition(c.Request.Context(), c.Param("id"), action, roleStr, userIDStr, req.Note)
		if err != nil {
			status := statusForRequestError(err)
			c.JSON(status, response.Error(status, err.Error()))
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
	}
}

func statusForRequestError(err error) int {
	switch {
	case errors.Is(err, service.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTransitionConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvoiceAlreadyAttached):
		return http.StatusConflict
	}
	return http.StatusBadRequest
}
