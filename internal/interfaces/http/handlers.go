package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/recruitment-engine/internal/application/engine"
	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/stage"
)

// ActorHeader carries the operator performing an action
const ActorHeader = "X-Actor"

// CaseEngine is the part of the engine the API exposes
type CaseEngine interface {
	CreateCase(ctx context.Context, in engine.CaseInput, actor string) (*entity.RecruitmentCase, error)
	ListCases(ctx context.Context) ([]*entity.RecruitmentCase, error)
	GetCase(ctx context.Context, caseID int64) (*entity.RecruitmentCase, error)
	History(ctx context.Context, caseID int64) ([]*entity.HistoryEntry, error)
	StageView(ctx context.Context, caseID int64, step int) (*engine.StageView, error)
	Advance(ctx context.Context, caseID int64, actor string) (*entity.RecruitmentCase, error)
	CancelCase(ctx context.Context, caseID int64, actor, reason string) (*entity.RecruitmentCase, error)
	Overrides(ctx context.Context, caseID int64) ([]*entity.EditOverride, error)
	GrantOverride(ctx context.Context, caseID int64, step int, actor, reason string) (*entity.EditOverride, error)
	RevokeOverride(ctx context.Context, caseID, overrideID int64, actor string) (*entity.EditOverride, error)

	SaveTOR(ctx context.Context, caseID int64, in engine.TORInput, actor string) (*entity.TOR, error)
	SubmitTOR(ctx context.Context, caseID int64, actor string) (*entity.TOR, error)
	ApproveTOR(ctx context.Context, caseID int64, actor string) (*entity.TOR, error)
	RejectTOR(ctx context.Context, caseID int64, actor, reason string) (*entity.TOR, error)

	SaveSRF(ctx context.Context, caseID int64, in engine.SRFInput, actor string) (*entity.SRF, error)
	SubmitSRF(ctx context.Context, caseID int64, actor string) (*entity.SRF, error)
	VerifyHR(ctx context.Context, caseID int64, actor string) (*entity.SRF, error)
	VerifyBudget(ctx context.Context, caseID int64, actor string) (*entity.SRF, error)
	ApproveSRF(ctx context.Context, caseID int64, actor string) (*entity.SRF, error)
	RejectSRF(ctx context.Context, caseID int64, actor, reason string) (*entity.SRF, error)

	SaveReport(ctx context.Context, caseID int64, summary, actor string) (*entity.SelectionReport, error)
	SubmitReport(ctx context.Context, caseID int64, actor string) (*entity.SelectionReport, error)
	ApproveReport(ctx context.Context, caseID int64, actor string) (*entity.SelectionReport, error)
	RejectReport(ctx context.Context, caseID int64, actor, reason string) (*entity.SelectionReport, error)

	CreateVacancy(ctx context.Context, caseID int64, in engine.VacancyInput, actor string) (*entity.Vacancy, error)
	PublishVacancy(ctx context.Context, caseID, vacancyID int64, actor string) (*entity.Vacancy, error)

	RegisterCandidate(ctx context.Context, in engine.CandidateInput) (*entity.Candidate, error)
	UpdateCandidate(ctx context.Context, candidateID int64, in engine.CandidateInput) (*entity.Candidate, error)
	GetCandidate(ctx context.Context, candidateID int64) (*entity.Candidate, error)
	SubmitApplication(ctx context.Context, caseID, candidateID int64, actor string) (*entity.Application, error)
	RejectApplication(ctx context.Context, caseID, applicationID int64, actor, reason string) (*entity.Application, error)
	WithdrawApplication(ctx context.Context, caseID, applicationID int64, actor, reason string) (*entity.Application, error)
	Applications(ctx context.Context, caseID int64) ([]*entity.Application, error)

	FormCommittee(ctx context.Context, caseID int64, name, actor string) (*entity.Committee, error)
	AddMember(ctx context.Context, caseID int64, in engine.MemberInput, actor string) (*entity.Member, error)
	RemoveMember(ctx context.Context, caseID, memberID int64, actor string) error
	DeclareConflict(ctx context.Context, caseID, memberID int64, hasConflict bool, details, actor string) (*entity.ConflictOfInterestDeclaration, error)

	RecordLonglisting(ctx context.Context, caseID, applicationID int64, in engine.LonglistInput, actor string) (*stage.LonglistRow, error)
	ConfigureShortlisting(ctx context.Context, caseID int64, in engine.ShortlistConfig, actor string) (*entity.ShortlistingRecord, error)
	ScoreShortlistCandidate(ctx context.Context, caseID, applicationID int64, in engine.ShortlistScores, actor string) (*stage.ShortlistRow, error)
	ScheduleWrittenTest(ctx context.Context, caseID int64, in engine.TestInput, actor string) (*entity.WrittenTest, error)
	RecordTestAttendance(ctx context.Context, caseID, applicationID int64, attended bool, actor string) (*stage.TestRow, error)
	RecordTestMarks(ctx context.Context, caseID, applicationID int64, marks float64, actor string) (*stage.TestRow, error)

	ScheduleInterview(ctx context.Context, caseID int64, in engine.InterviewInput, actor string) (*entity.Interview, error)
	InviteToInterview(ctx context.Context, caseID, applicationID int64, attended bool, actor string) (*entity.InterviewCandidate, error)
	RecordEvaluation(ctx context.Context, caseID, applicationID int64, in engine.EvaluationInput, actor string) (*entity.Evaluation, error)
	RankCandidates(ctx context.Context, interviewID int64, actor string) ([]*entity.InterviewResult, error)
	Results(ctx context.Context, interviewID int64) ([]*entity.InterviewResult, error)

	CreateOffer(ctx context.Context, caseID, applicationID int64, in engine.OfferInput, actor string) (*entity.Offer, error)
	SendOffer(ctx context.Context, caseID, offerID int64, actor string) (*entity.Offer, error)
	AcceptOffer(ctx context.Context, caseID, offerID int64, actor string) (*entity.Offer, error)
	DeclineOffer(ctx context.Context, caseID, offerID int64, actor, reason string) (*entity.Offer, error)

	RunSanctionCheck(ctx context.Context, caseID int64, actor string) (*entity.SanctionCheck, error)
	OverrideSanction(ctx context.Context, caseID int64, actor, reason string) (*entity.SanctionCheck, error)
	StartBackgroundCheck(ctx context.Context, caseID int64, actor string) (*entity.BackgroundCheck, error)
	AddReference(ctx context.Context, caseID int64, in engine.ReferenceInput, actor string) (*entity.Reference, error)
	SetReferenceStatus(ctx context.Context, caseID, referenceID int64, status entity.TrackStatus, notes, actor string) (*entity.Reference, error)
	SetBackgroundTrack(ctx context.Context, caseID int64, track string, status entity.TrackStatus, notes, actor string) (*entity.BackgroundCheck, error)
	CompleteBackgroundCheck(ctx context.Context, caseID int64, actor string) (*entity.BackgroundCheck, error)

	DraftContract(ctx context.Context, caseID int64, in engine.ContractInput, actor string) (*entity.Contract, error)
	RequestSignature(ctx context.Context, caseID int64, actor string) (*entity.Contract, error)
	SignContract(ctx context.Context, caseID int64, actor string) (*entity.Contract, error)
	ActivateContract(ctx context.Context, caseID int64, actor string) (*entity.Contract, error)
	AddChecklistItem(ctx context.Context, caseID int64, name string, isRequired bool, actor string) (*entity.ChecklistItem, error)
	SetChecklistItem(ctx context.Context, caseID, itemID int64, checked bool, actor string) (*entity.ChecklistItem, error)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine CaseEngine
	logger Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(engine CaseEngine, logger Logger) *Handlers {
	return &Handlers{engine: engine, logger: logger}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	// Unmet lists the conditions that blocked the action
	Unmet []string `json:"unmet,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ActionRequest is the optional body of an action
type ActionRequest struct {
	Reason string `json:"reason"`
}

// OverrideRequest opens a past stage for editing
type OverrideRequest struct {
	Stage  int    `json:"stage"`
	Reason string `json:"reason"`
}

// ReportRequest holds the selection report summary
type ReportRequest struct {
	Summary string `json:"summary"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// CreateCase handles POST /api/v1/cases
func (h *Handlers) CreateCase(c *gin.Context) {
	var in engine.CaseInput
	if !h.bind(c, &in) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	rc, err := h.engine.CreateCase(c.Request.Context(), in, actor)
	h.respond(c, http.StatusCreated, rc, err)
}

// ListCases handles GET /api/v1/cases
func (h *Handlers) ListCases(c *gin.Context) {
	cases, err := h.engine.ListCases(c.Request.Context())
	h.respond(c, http.StatusOK, cases, err)
}

// GetCase handles GET /api/v1/cases/:id
func (h *Handlers) GetCase(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	rc, err := h.engine.GetCase(c.Request.Context(), id)
	h.respond(c, http.StatusOK, rc, err)
}

// History handles GET /api/v1/cases/:id/history
func (h *Handlers) History(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	history, err := h.engine.History(c.Request.Context(), id)
	h.respond(c, http.StatusOK, history, err)
}

// StageView handles GET /api/v1/cases/:id/stages/:stage
func (h *Handlers) StageView(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	step, err := strconv.Atoi(c.Param("stage"))
	if err != nil {
		h.fail(c, apperror.Validation("stage", "must be a stage number"))
		return
	}
	view, err := h.engine.StageView(c.Request.Context(), id, step)
	h.respond(c, http.StatusOK, view, err)
}

// Advance handles POST /api/v1/cases/:id/advance
func (h *Handlers) Advance(c *gin.Context) {
	h.caseAction(func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.Advance(ctx, id, actor)
	})(c)
}

// Cancel handles POST /api/v1/cases/:id/cancel
func (h *Handlers) Cancel(c *gin.Context) {
	h.caseAction(func(ctx context.Context, e CaseEngine, id int64, actor string, req ActionRequest) (interface{}, error) {
		return e.CancelCase(ctx, id, actor, req.Reason)
	})(c)
}

// Overrides handles GET /api/v1/cases/:id/overrides
func (h *Handlers) Overrides(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	overrides, err := h.engine.Overrides(c.Request.Context(), id)
	h.respond(c, http.StatusOK, overrides, err)
}

// GrantOverride handles POST /api/v1/cases/:id/overrides
func (h *Handlers) GrantOverride(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req OverrideRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	o, err := h.engine.GrantOverride(c.Request.Context(), id, req.Stage, actor, req.Reason)
	h.respond(c, http.StatusCreated, o, err)
}

// RevokeOverride handles DELETE /api/v1/cases/:id/overrides/:overrideID
func (h *Handlers) RevokeOverride(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	overrideID, ok := h.pathID(c, "overrideID")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	o, err := h.engine.RevokeOverride(c.Request.Context(), id, overrideID, actor)
	h.respond(c, http.StatusOK, o, err)
}

// SaveTOR handles PUT /api/v1/cases/:id/tor
func (h *Handlers) SaveTOR(c *gin.Context) {
	var in engine.TORInput
	h.save(c, &in, func(ctx context.Context, id int64, actor string) (interface{}, error) {
		return h.engine.SaveTOR(ctx, id, in, actor)
	})
}

// SaveSRF handles PUT /api/v1/cases/:id/srf
func (h *Handlers) SaveSRF(c *gin.Context) {
	var in engine.SRFInput
	h.save(c, &in, func(ctx context.Context, id int64, actor string) (interface{}, error) {
		return h.engine.SaveSRF(ctx, id, in, actor)
	})
}

// SaveReport handles PUT /api/v1/cases/:id/report
func (h *Handlers) SaveReport(c *gin.Context) {
	var req ReportRequest
	h.save(c, &req, func(ctx context.Context, id int64, actor string) (interface{}, error) {
		return h.engine.SaveReport(ctx, id, req.Summary, actor)
	})
}

// save binds a document body and stores it on the case
func (h *Handlers) save(c *gin.Context, body interface{}, fn func(ctx context.Context, id int64, actor string) (interface{}, error)) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if !h.bind(c, body) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	doc, err := fn(c.Request.Context(), id, actor)
	h.respond(c, http.StatusOK, doc, err)
}

// actionFunc performs one named action on a case
type actionFunc func(ctx context.Context, e CaseEngine, caseID int64, actor string, req ActionRequest) (interface{}, error)

var (
	submitTOR = func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.SubmitTOR(ctx, id, actor)
	}
	approveTOR = func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.ApproveTOR(ctx, id, actor)
	}
	rejectTOR = func(ctx context.Context, e CaseEngine, id int64, actor string, req ActionRequest) (interface{}, error) {
		return e.RejectTOR(ctx, id, actor, req.Reason)
	}

	submitSRF = func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.SubmitSRF(ctx, id, actor)
	}
	verifyHR = func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.VerifyHR(ctx, id, actor)
	}
	verifyBudget = func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.VerifyBudget(ctx, id, actor)
	}
	approveSRF = func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.ApproveSRF(ctx, id, actor)
	}
	rejectSRF = func(ctx context.Context, e CaseEngine, id int64, actor string, req ActionRequest) (interface{}, error) {
		return e.RejectSRF(ctx, id, actor, req.Reason)
	}

	submitReport = func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.SubmitReport(ctx, id, actor)
	}
	approveReport = func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.ApproveReport(ctx, id, actor)
	}
	rejectReport = func(ctx context.Context, e CaseEngine, id int64, actor string, req ActionRequest) (interface{}, error) {
		return e.RejectReport(ctx, id, actor, req.Reason)
	}

	runSanction = func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.RunSanctionCheck(ctx, id, actor)
	}
	overrideSanction = func(ctx context.Context, e CaseEngine, id int64, actor string, req ActionRequest) (interface{}, error) {
		return e.OverrideSanction(ctx, id, actor, req.Reason)
	}
	startBackground = func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.StartBackgroundCheck(ctx, id, actor)
	}
	completeBackground = func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.CompleteBackgroundCheck(ctx, id, actor)
	}
	requestSignature = func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.RequestSignature(ctx, id, actor)
	}
	signContract = func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.SignContract(ctx, id, actor)
	}
	activateContract = func(ctx context.Context, e CaseEngine, id int64, actor string, _ ActionRequest) (interface{}, error) {
		return e.ActivateContract(ctx, id, actor)
	}
)

// caseAction adapts an action to a POST /api/v1/cases/:id/... handler
func (h *Handlers) caseAction(fn actionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.pathID(c, "id")
		if !ok {
			return
		}
		var req ActionRequest
		if c.Request.ContentLength != 0 && !h.bind(c, &req) {
			return
		}
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		result, err := fn(c.Request.Context(), h.engine, id, actor, req)
		h.respond(c, http.StatusOK, result, err)
	}
}

func (h *Handlers) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid " + name,
		})
		return 0, false
	}
	return id, true
}

func (h *Handlers) bind(c *gin.Context, body interface{}) bool {
	if err := c.ShouldBindJSON(body); err != nil {
		h.logger.Error("Invalid request body", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return false
	}
	return true
}

// actor reads the operator from the request headers
func (h *Handlers) actor(c *gin.Context) (string, bool) {
	actor := strings.TrimSpace(c.GetHeader(ActorHeader))
	if actor == "" {
		h.fail(c, apperror.Validation("actor", "%s header is required", ActorHeader))
		return "", false
	}
	return actor, true
}

// respond writes data with status, or the error when err is set
func (h *Handlers) respond(c *gin.Context, status int, data interface{}, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, Response{Success: true, Data: data})
}

// fail maps the engine error taxonomy onto HTTP status codes
func (h *Handlers) fail(c *gin.Context, err error) {
	resp := Response{Success: false, Error: err.Error()}

	var status int
	switch {
	case errors.Is(err, apperror.ErrRetryable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrPreconditionNotMet):
		status = http.StatusConflict
		resp.Unmet = apperror.UnmetConditions(err)
	default:
		status = http.StatusInternalServerError
		resp.Error = "internal error"
		h.logger.Error("Unhandled engine error", "path", c.Request.URL.Path, "error", err)
	}

	c.JSON(status, resp)
}
