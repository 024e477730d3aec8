package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/practice-engine/internal/services"
	"github.com/SAP-F-2025/practice-engine/internal/utils"
	"github.com/SAP-F-2025/practice-engine/internal/validator"
)

type TestHandler struct {
	BaseHandler
	testService services.TestService
	validator   *validator.Validator
}

func NewTestHandler(
	testService services.TestService,
	validator *validator.Validator,
	logger utils.Logger,
) *TestHandler {
	return &TestHandler{
		BaseHandler: NewBaseHandler(logger),
		testService: testService,
		validator:   validator,
	}
}

// GetTestQuestions returns a test's questions for taking
// @Summary Get test questions
// @Description Returns the test's questions without correct answers; learners only within the open window
// @Tags tests
// @Produce json
// @Param test_id path uint true "Test ID"
// @Success 200 {object} SuccessResponse{data=services.TestQuestionsResponse}
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tests/{test_id}/questions [get]
func (h *TestHandler) GetTestQuestions(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}

	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting test questions", "test_id", testID)

	response, err := h.testService.GetTestQuestions(c.Request.Context(), principal, testID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: response})
}

// SubmitTest evaluates and records a test submission
// @Summary Submit test
// @Description Scores the submission as a percentage; every learner submission is recorded
// @Tags tests
// @Accept json
// @Produce json
// @Param test_id path uint true "Test ID"
// @Param submission body services.SubmitTestRequest true "Answers keyed by question id"
// @Success 200 {object} SuccessResponse{data=services.SubmitTestResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tests/{test_id}/attempts [post]
func (h *TestHandler) SubmitTest(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}

	var req services.SubmitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, newErrorResponse("Invalid request payload", err.Error()))
		return
	}

	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting test", "test_id", testID)

	response, err := h.testService.SubmitTest(c.Request.Context(), principal, testID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: response})
}

// GetTestAttempts returns the caller's attempts for a test
// @Summary Get test attempts
// @Tags tests
// @Produce json
// @Param test_id path uint true "Test ID"
// @Success 200 {object} SuccessResponse{data=[]services.TestAttemptView}
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tests/{test_id}/attempts [get]
func (h *TestHandler) GetTestAttempts(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}

	principal, ok := h.getPrincipal(c)
	if !ok {
		return
	}

	attempts, err := h.testService.GetTestAttempts(c.Request.Context(), principal, testID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: attempts})
}
