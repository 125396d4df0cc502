package handlers

import (
	"io"
	"net/http"
	"strings"

	dom "github.com/ramtunguturi36/hair/internal/domain"
	"github.com/ramtunguturi36/hair/internal/dto"
	"github.com/ramtunguturi36/hair/internal/service"

	"github.com/gin-gonic/gin"
)

const imageField = "image"

type AnalysisHandler struct {
	svc      *service.AnalysisService
	history  *service.HistoryService
	ledgers  *service.LedgerRegistry
	maxBytes int64
}

func NewAnalysisHandler(svc *service.AnalysisService, history *service.HistoryService, ledgers *service.LedgerRegistry, maxImageBytes int64) *AnalysisHandler {
	return &AnalysisHandler{svc: svc, history: history, ledgers: ledgers, maxBytes: maxImageBytes}
}

// Analyze godoc
// @Summary      Analyze a hair photo
// @Description  Charges one analysis worth of credits. Failed analyses are refunded.
// @Tags         analyses
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        image  formData  file  true  "Hair photo"
// @Success      200    {object}  dto.AnalyzeResponse
// @Failure      400    {object}  map[string]string
// @Failure      402    {object}  map[string]string
// @Failure      429    {object}  map[string]string
// @Failure      502    {object}  map[string]string
// @Router       /analyses [post]
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	image, ok := h.readImage(c)
	if !ok {
		return
	}
	l, ok := sessionLedger(c, h.ledgers)
	if !ok {
		return
	}
	res, err := h.svc.Analyze(c.Request.Context(), l, image)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AnalyzeResponse{
		Analysis: analysisToResponse(res.Analysis),
		Routine:  routineToResponse(res.Routine),
		Balance:  res.Balance,
		Charged:  res.Charged,
	})
}

// History godoc
// @Summary      List past analyses
// @Tags         history
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.ListHistoryResponse
// @Failure      500  {object}  map[string]string
// @Router       /history [get]
func (h *AnalysisHandler) History(c *gin.Context) {
	list, err := h.history.List(c.Request.Context(), principal(c).AccountID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]dto.AnalysisResponse, len(list))
	for i := range list {
		out[i] = analysisToResponse(list[i])
	}
	c.JSON(http.StatusOK, dto.ListHistoryResponse{Items: out})
}

// RecordHistory godoc
// @Summary      Save a classification made in the browser
// @Tags         history
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CreateHistoryRequest  true  "Result"
// @Success      201   {object}  dto.AnalysisResponse
// @Failure      400   {object}  map[string]string
// @Router       /history [post]
func (h *AnalysisHandler) RecordHistory(c *gin.Context) {
	var req dto.CreateHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.history.RecordClient(c.Request.Context(), principal(c).AccountID, req.Result, req.Date.Time())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, analysisToResponse(a))
}

// Routine godoc
// @Summary      Weekly care routine for a hair type
// @Tags         analyses
// @Produce      json
// @Security     BearerAuth
// @Param        hair_type  query     string  true  "Hair type, e.g. Type 3 Curly"
// @Success      200        {object}  dto.RoutineResponse
// @Failure      400        {object}  map[string]string
// @Router       /routine [get]
func (h *AnalysisHandler) Routine(c *gin.Context) {
	hairType := strings.TrimSpace(c.Query("hair_type"))
	if hairType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hair_type is required"})
		return
	}
	c.JSON(http.StatusOK, dto.RoutineResponse{HairType: hairType, Days: routineToResponse(service.Routine(hairType))})
}

func (h *AnalysisHandler) readImage(c *gin.Context) ([]byte, bool) {
	fh, err := c.FormFile(imageField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return nil, false
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image is too large"})
		return nil, false
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return nil, false
	}
	return data, true
}

func analysisToResponse(a dom.Analysis) dto.AnalysisResponse {
	probs := make([]dto.ProbabilityResponse, len(a.Probabilities))
	for i, p := range a.Probabilities {
		probs[i] = dto.ProbabilityResponse{Name: p.Name, Percentage: p.Percentage}
	}
	return dto.AnalysisResponse{
		ID:            a.ID,
		HairType:      a.HairType,
		Confidence:    a.Confidence,
		Probabilities: probs,
		Analysis:      a.Summary,
		Source:        a.Source,
		CreatedAt:     a.CreatedAt,
	}
}

func routineToResponse(days []dom.RoutineDay) []dto.RoutineDayResponse {
	out := make([]dto.RoutineDayResponse, len(days))
	for i, d := range days {
		out[i] = dto.RoutineDayResponse{Day: d.Day, Activity: d.Activity, Products: d.Products}
	}
	return out
}
