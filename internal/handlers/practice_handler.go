package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/practice-engine/internal/models"
	"github.com/SAP-F-2025/practice-engine/internal/services"
	"github.com/SAP-F-2025/practice-engine/internal/utils"
	"github.com/SAP-F-2025/practice-engine/internal/validator"
)

type PracticeHandler struct {
	BaseHandler
	practiceService    services.PracticeService
	progressionService services.ProgressionService
	validator          *validator.Validator
}

func NewPracticeHandler(
	practiceService services.PracticeService,
	progressionService services.ProgressionService,
	validator *validator.Validator,
	logger utils.Logger,
) *PracticeHandler {
	return &PracticeHandler{
		BaseHandler:        NewBaseHandler(logger),
		practiceService:    practiceService,
		progressionService: progressionService,
		validator:          validator,
	}
}

// GetLevels lists a topic's levels with their progression state
// @Summary Get topic levels
// @Description Returns both levels of a topic with set counts and the caller's progression state
// @Tags practice
// @Produce json
// @Param topic_id path uint true "Topic ID"
// @Success 200 {object} SuccessResponse{data=[]services.LevelOverview}
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /topics/{topic_id}/levels [get]
func (h *PracticeHandler) GetLevels(c *gin.Context) {
	topicID := h.parseIDParam(c, "topic_id")
	if topicID == 0 {
		return
	}

	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing topic levels", "topic_id", topicID)

	overviews, err := h.progressionService.GetLevelOverviews(c.Request.Context(), principal, topicID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: overviews})
}

// GetSetsByLevel lists the sets of one topic+level with accessibility flags
// @Summary Get sets by level
// @Description Returns the level's sets in sequence order with completed and accessible flags
// @Tags practice
// @Produce json
// @Param topic_id path uint true "Topic ID"
// @Param level path string true "Level (1 or 2)"
// @Success 200 {object} SuccessResponse{data=services.LevelSetsResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /topics/{topic_id}/levels/{level}/sets [get]
func (h *PracticeHandler) GetSetsByLevel(c *gin.Context) {
	topicID := h.parseIDParam(c, "topic_id")
	if topicID == 0 {
		return
	}

	level := models.Level(c.Param("level"))

	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing level sets", "topic_id", topicID, "level", level)

	response, err := h.progressionService.GetSetsByLevel(c.Request.Context(), principal, topicID, level)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: response})
}

// GetSetQuestions returns a set's questions for taking
// @Summary Get set questions
// @Description Returns the set's questions without correct answers; learners must have sequential access
// @Tags practice
// @Produce json
// @Param set_id path uint true "Set ID"
// @Success 200 {object} SuccessResponse{data=services.SetQuestionsResponse}
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sets/{set_id}/questions [get]
func (h *PracticeHandler) GetSetQuestions(c *gin.Context) {
	setID := h.parseIDParam(c, "set_id")
	if setID == 0 {
		return
	}

	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting set questions", "set_id", setID)

	response, err := h.practiceService.GetSetQuestions(c.Request.Context(), principal, setID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: response})
}

// SubmitAttempt evaluates and possibly records a practice submission
// @Summary Submit practice attempt
// @Description Evaluates the submission; passing learner submissions are recorded and credited
// @Tags practice
// @Accept json
// @Produce json
// @Param set_id path uint true "Set ID"
// @Param attempt body services.SubmitPracticeAttemptRequest true "Answers keyed by question id"
// @Success 200 {object} SuccessResponse{data=services.SubmitPracticeAttemptResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sets/{set_id}/attempts [post]
func (h *PracticeHandler) SubmitAttempt(c *gin.Context) {
	setID := h.parseIDParam(c, "set_id")
	if setID == 0 {
		return
	}

	var req services.SubmitPracticeAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, newErrorResponse("Invalid request payload", err.Error()))
		return
	}

	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting practice attempt", "set_id", setID)

	response, err := h.practiceService.SubmitAttempt(c.Request.Context(), principal, setID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: response})
}

// GetHistory returns the caller's recorded attempts for a set
// @Summary Get attempt history
// @Description Returns the caller's recorded attempts with the best score
// @Tags practice
// @Produce json
// @Param set_id path uint true "Set ID"
// @Success 200 {object} SuccessResponse{data=services.PracticeHistoryResponse}
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sets/{set_id}/attempts [get]
func (h *PracticeHandler) GetHistory(c *gin.Context) {
	setID := h.parseIDParam(c, "set_id")
	if setID == 0 {
		return
	}

	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	query := h.parseHistoryQuery(c)

	h.LogRequest(c, "Getting attempt history", "set_id", setID)

	response, err := h.practiceService.GetHistory(c.Request.Context(), principal, setID, query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: response})
}

// GetMyScore returns the caller's cumulative totals
// @Summary Get cumulative score
// @Tags practice
// @Produce json
// @Success 200 {object} SuccessResponse{data=models.StudentScore}
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /students/me/score [get]
func (h *PracticeHandler) GetMyScore(c *gin.Context) {
	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	score, err := h.practiceService.GetStudentScore(c.Request.Context(), principal.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: score})
}

func (h *PracticeHandler) parseHistoryQuery(c *gin.Context) *services.AttemptHistoryQuery {
	query := &services.AttemptHistoryQuery{
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			query.Limit = limit
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			query.Offset = offset
		}
	}
	if fromStr := c.Query("date_from"); fromStr != "" {
		if from, err := time.Parse(time.RFC3339, fromStr); err == nil {
			query.DateFrom = &from
		}
	}
	if toStr := c.Query("date_to"); toStr != "" {
		if to, err := time.Parse(time.RFC3339, toStr); err == nil {
			query.DateTo = &to
		}
	}

	return query
}
