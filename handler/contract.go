package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lataonhehe/data-contract-hackathon/model"
	"github.com/lataonhehe/data-contract-hackathon/pkg/apperr"
	"github.com/lataonhehe/data-contract-hackathon/service"
)

type ContractHandler struct {
	svc *service.ContractService
}

func NewContractHandler(svc *service.ContractService) *ContractHandler {
	return &ContractHandler{svc: svc}
}

type CreateContractRequest struct {
	User    string `json:"user" binding:"required"`
	Request string `json:"request" binding:"required"`
}

type GenerateRequest struct {
	Request string `json:"request" binding:"required"`
}

type SaveContractRequest struct {
	User    string `json:"user" binding:"required"`
	Content string `json:"content"`
	YAML    string `json:"yaml"`
}

// respondError maps an internal error kind to a status code and JSON body.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == "" {
		kind = "internal"
	}
	c.JSON(apperr.HTTPStatus(err), gin.H{
		"error":   string(kind),
		"message": apperr.MessageOf(err),
	})
}

// emailShaped mirrors the loose owner check: an address must contain "@" and
// ".". Anything stricter is out of scope.
func emailShaped(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

// Create handles POST /contracts
func (h *ContractHandler) Create(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "user and request are required"))
		return
	}
	if !emailShaped(req.User) {
		respondError(c, apperr.New(apperr.KindValidation, "user must be a valid email address"))
		return
	}

	contract, err := h.svc.Create(c.Request.Context(), req.User, req.Request)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contract_id": contract.ContractID,
		"status":      contract.Status,
		"s3_path":     contract.S3Path,
		"yaml":        contract.YAML,
		"message":     "Contract created successfully",
	})
}

// Get handles GET /contracts/:id
func (h *ContractHandler) Get(c *gin.Context) {
	contract, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// Update handles PUT /contracts/:id
func (h *ContractHandler) Update(c *gin.Context) {
	var upd model.ContractUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}

	contract, err := h.svc.Update(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// Delete handles DELETE /contracts/:id
func (h *ContractHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contract " + id + " deleted successfully"})
}

// List handles GET /contracts
func (h *ContractHandler) List(c *gin.Context) {
	contracts, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contracts": contracts})
}

// Generate handles POST /generate: model call without persistence.
func (h *ContractHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "request is required"))
		return
	}

	content, err := h.svc.Generate(c.Request.Context(), req.Request)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"content": content,
		"message": "Contract generated successfully",
	})
}

// StreamGenerate handles POST /contracts/stream-generate: model output is
// relayed as SSE chunk events, closed by a done event carrying the full text.
func (h *ContractHandler) StreamGenerate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "request is required"))
		return
	}

	ch, err := h.svc.GenerateStream(c.Request.Context(), req.Request)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		chunk, ok := <-ch
		if !ok {
			return false
		}
		switch {
		case chunk.Err != nil:
			c.SSEvent("error", gin.H{"message": apperr.MessageOf(chunk.Err)})
			return false
		case chunk.Done:
			c.SSEvent("done", gin.H{"fullContent": chunk.FullContent})
			return false
		default:
			c.SSEvent("chunk", gin.H{"text": chunk.Text})
			return true
		}
	})
}

// Save handles POST /contracts/save: persist caller-supplied YAML without
// generation, for the generate-edit-save flow.
func (h *ContractHandler) Save(c *gin.Context) {
	var req SaveContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "user and content are required"))
		return
	}
	if !emailShaped(req.User) {
		respondError(c, apperr.New(apperr.KindValidation, "user must be a valid email address"))
		return
	}
	content := req.Content
	if content == "" {
		content = req.YAML
	}

	contract, err := h.svc.Save(c.Request.Context(), req.User, content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contract_id": contract.ContractID,
		"status":      contract.Status,
		"s3_path":     contract.S3Path,
		"yaml":        contract.YAML,
		"message":     "Contract saved successfully",
	})
}

// Violations handles GET /contracts/:id/violations. The output is synthetic
// demo data; nothing is persisted.
func (h *ContractHandler) Violations(c *gin.Context) {
	id := c.Param("id")
	contract, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contract_id": id,
		"mock":        true,
		"violations":  model.MockViolations(id, contract.YAML, 3),
	})
}

// SampleData handles GET /contracts/:id/sample-data. The output is synthetic
// demo data shaped by the contract's field declarations.
func (h *ContractHandler) SampleData(c *gin.Context) {
	id := c.Param("id")
	contract, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	ds := model.MockDataset(id, contract.YAML, 10)
	c.JSON(http.StatusOK, gin.H{
		"contract_id": id,
		"mock":        true,
		"columns":     ds.Columns,
		"rows":        ds.Rows,
	})
}
