package handler

import (
	"net/http"

	"fundecodes-backend/internal/middleware"
	"fundecodes-backend/internal/service"
	"fundecodes-backend/pkg/pagination"
	"fundecodes-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.GET("", middleware.RequirePermission("invoices.read"), h.ListInvoices)
	}

	requests := router.Group("/api/requests")
	{
		requests.POST("/:id/invoice", middleware.RequirePermission("invoices.write"), h.AttachInvoice)
		requests.DELETE("/:id/invoice", middleware.RequirePermission("invoices.write"), h.DetachInvoice)
	}
}

// AttachInvoice attaches the final invoice to an approved request
// @Summary      Attach final invoice
// @Description  Creates the settlement invoice for an approved request and records it in the request ledger
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string                    true  "Request ID"
// @Param        payload  body  service.AttachInvoiceDTO  true  "Invoice payload"
// @Success      201  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/invoice [post]
func (h *InvoiceHandler) AttachInvoice(c *gin.Context) {
	var req service.AttachInvoiceDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	result, err := h.invoiceService.AttachInvoice(c.Request.Context(), c.Param("id"), userIDStr, req)
	if err != nil {
		status := statusForRequestError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// DetachInvoice removes the final invoice from a request. Idempotent.
// @Summary      Detach final invoice
// @Description  Deletes the invoice row; the request's ledger keeps the attachment record. Safe to call twice.
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id}/invoice [delete]
func (h *InvoiceHandler) DetachInvoice(c *gin.Context) {
	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)

	if err := h.invoiceService.DetachInvoice(c.Request.Context(), c.Param("id"), userIDStr); err != nil {
		status := statusForRequestError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"final_invoice": nil}))
}

// ListInvoices lists attached invoices joined with their requests
// @Summary      List final invoices
// @Description  Read-side projection over requests that carry a final invoice
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        currency  query  string  false  "Currency filter (CRC|USD)"
// @Param        page      query  int     false  "Page number (default 1)"
// @Param        limit     query  int     false  "Items per page (default 20, max 100)"
// @Success      200  {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	params := pagination.Parse(c)

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), c.Query("currency"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, invoices, total, params.Page, params.Limit))
}
