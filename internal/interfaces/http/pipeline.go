package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/recruitment-engine/internal/application/engine"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
)

// ApplicationRequest submits a registered candidate to a case
type ApplicationRequest struct {
	CandidateID int64 `json:"candidate_id"`
}

// CommitteeRequest names the selection committee
type CommitteeRequest struct {
	Name string `json:"name"`
}

// ConflictRequest records a member's conflict of interest declaration
type ConflictRequest struct {
	HasConflict bool   `json:"has_conflict"`
	Details     string `json:"details"`
}

// AttendanceRequest marks whether a candidate sat a test or interview
type AttendanceRequest struct {
	Attended bool `json:"attended"`
}

// MarksRequest records written test marks
type MarksRequest struct {
	Marks float64 `json:"marks"`
}

// TrackRequest sets the status of a reference or background track
type TrackRequest struct {
	Status entity.TrackStatus `json:"status"`
	Notes  string             `json:"notes"`
}

// ChecklistItemRequest adds an onboarding checklist item
type ChecklistItemRequest struct {
	Name       string `json:"name"`
	IsRequired bool   `json:"is_required"`
}

// CheckRequest ticks or unticks a checklist item
type CheckRequest struct {
	Checked bool `json:"checked"`
}

// bodyAction adapts an engine call to a handler. It parses the named path
// ids in order, binds an optional JSON body into T and requires an actor.
func bodyAction[T any](h *Handlers, status int, params []string, fn func(ctx context.Context, e CaseEngine, ids []int64, in T, actor string) (interface{}, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids := make([]int64, 0, len(params))
		for _, name := range params {
			id, ok := h.pathID(c, name)
			if !ok {
				return
			}
			ids = append(ids, id)
		}
		var in T
		if c.Request.ContentLength != 0 && !h.bind(c, &in) {
			return
		}
		actor, ok := h.actor(c)
		if !ok {
			return
		}
		result, err := fn(c.Request.Context(), h.engine, ids, in, actor)
		h.respond(c, status, result, err)
	}
}

var (
	caseParam        = []string{"id"}
	applicationParam = []string{"id", "applicationID"}
)

// RegisterCandidate handles POST /api/v1/candidates
func (h *Handlers) RegisterCandidate(c *gin.Context) {
	bodyAction(h, http.StatusCreated, nil, func(ctx context.Context, e CaseEngine, _ []int64, in engine.CandidateInput, _ string) (interface{}, error) {
		return e.RegisterCandidate(ctx, in)
	})(c)
}

// UpdateCandidate handles PUT /api/v1/candidates/:candidateID
func (h *Handlers) UpdateCandidate(c *gin.Context) {
	bodyAction(h, http.StatusOK, []string{"candidateID"}, func(ctx context.Context, e CaseEngine, ids []int64, in engine.CandidateInput, _ string) (interface{}, error) {
		return e.UpdateCandidate(ctx, ids[0], in)
	})(c)
}

// GetCandidate handles GET /api/v1/candidates/:candidateID
func (h *Handlers) GetCandidate(c *gin.Context) {
	id, ok := h.pathID(c, "candidateID")
	if !ok {
		return
	}
	candidate, err := h.engine.GetCandidate(c.Request.Context(), id)
	h.respond(c, http.StatusOK, candidate, err)
}

// Applications handles GET /api/v1/cases/:id/applications
func (h *Handlers) Applications(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	apps, err := h.engine.Applications(c.Request.Context(), id)
	h.respond(c, http.StatusOK, apps, err)
}

// Results handles GET /api/v1/interviews/:interviewID/results
func (h *Handlers) Results(c *gin.Context) {
	id, ok := h.pathID(c, "interviewID")
	if !ok {
		return
	}
	results, err := h.engine.Results(c.Request.Context(), id)
	h.respond(c, http.StatusOK, results, err)
}

// SetBackgroundTrack handles PUT /api/v1/cases/:id/background/tracks/:track
func (h *Handlers) SetBackgroundTrack(c *gin.Context) {
	track := c.Param("track")
	bodyAction(h, http.StatusOK, caseParam, func(ctx context.Context, e CaseEngine, ids []int64, in TrackRequest, actor string) (interface{}, error) {
		return e.SetBackgroundTrack(ctx, ids[0], track, in.Status, in.Notes, actor)
	})(c)
}

// pipelineRoutes maps the stage 4 to 15 operations onto handlers
func (h *Handlers) pipelineRoutes(cases, candidates, interviews *gin.RouterGroup) {
	candidates.POST("", h.RegisterCandidate)
	candidates.GET("/:candidateID", h.GetCandidate)
	candidates.PUT("/:candidateID", h.UpdateCandidate)

	cases.POST("/:id/vacancies", bodyAction(h, http.StatusCreated, caseParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in engine.VacancyInput, actor string) (interface{}, error) {
			return e.CreateVacancy(ctx, ids[0], in, actor)
		}))
	cases.POST("/:id/vacancies/:vacancyID/publish", bodyAction(h, http.StatusOK, []string{"id", "vacancyID"},
		func(ctx context.Context, e CaseEngine, ids []int64, _ ActionRequest, actor string) (interface{}, error) {
			return e.PublishVacancy(ctx, ids[0], ids[1], actor)
		}))

	cases.GET("/:id/applications", h.Applications)
	cases.POST("/:id/applications", bodyAction(h, http.StatusCreated, caseParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in ApplicationRequest, actor string) (interface{}, error) {
			return e.SubmitApplication(ctx, ids[0], in.CandidateID, actor)
		}))
	cases.POST("/:id/applications/:applicationID/reject", bodyAction(h, http.StatusOK, applicationParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in ActionRequest, actor string) (interface{}, error) {
			return e.RejectApplication(ctx, ids[0], ids[1], actor, in.Reason)
		}))
	cases.POST("/:id/applications/:applicationID/withdraw", bodyAction(h, http.StatusOK, applicationParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in ActionRequest, actor string) (interface{}, error) {
			return e.WithdrawApplication(ctx, ids[0], ids[1], actor, in.Reason)
		}))

	cases.POST("/:id/committee", bodyAction(h, http.StatusCreated, caseParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in CommitteeRequest, actor string) (interface{}, error) {
			return e.FormCommittee(ctx, ids[0], in.Name, actor)
		}))
	cases.POST("/:id/committee/members", bodyAction(h, http.StatusCreated, caseParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in engine.MemberInput, actor string) (interface{}, error) {
			return e.AddMember(ctx, ids[0], in, actor)
		}))
	cases.DELETE("/:id/committee/members/:memberID", bodyAction(h, http.StatusOK, []string{"id", "memberID"},
		func(ctx context.Context, e CaseEngine, ids []int64, _ ActionRequest, actor string) (interface{}, error) {
			return nil, e.RemoveMember(ctx, ids[0], ids[1], actor)
		}))
	cases.PUT("/:id/committee/members/:memberID/conflict", bodyAction(h, http.StatusOK, []string{"id", "memberID"},
		func(ctx context.Context, e CaseEngine, ids []int64, in ConflictRequest, actor string) (interface{}, error) {
			return e.DeclareConflict(ctx, ids[0], ids[1], in.HasConflict, in.Details, actor)
		}))

	cases.PUT("/:id/applications/:applicationID/longlisting", bodyAction(h, http.StatusOK, applicationParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in engine.LonglistInput, actor string) (interface{}, error) {
			return e.RecordLonglisting(ctx, ids[0], ids[1], in, actor)
		}))

	cases.PUT("/:id/shortlisting", bodyAction(h, http.StatusOK, caseParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in engine.ShortlistConfig, actor string) (interface{}, error) {
			return e.ConfigureShortlisting(ctx, ids[0], in, actor)
		}))
	cases.PUT("/:id/applications/:applicationID/shortlisting", bodyAction(h, http.StatusOK, applicationParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in engine.ShortlistScores, actor string) (interface{}, error) {
			return e.ScoreShortlistCandidate(ctx, ids[0], ids[1], in, actor)
		}))

	cases.PUT("/:id/written-test", bodyAction(h, http.StatusOK, caseParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in engine.TestInput, actor string) (interface{}, error) {
			return e.ScheduleWrittenTest(ctx, ids[0], in, actor)
		}))
	cases.PUT("/:id/applications/:applicationID/written-test/attendance", bodyAction(h, http.StatusOK, applicationParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in AttendanceRequest, actor string) (interface{}, error) {
			return e.RecordTestAttendance(ctx, ids[0], ids[1], in.Attended, actor)
		}))
	cases.PUT("/:id/applications/:applicationID/written-test/marks", bodyAction(h, http.StatusOK, applicationParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in MarksRequest, actor string) (interface{}, error) {
			return e.RecordTestMarks(ctx, ids[0], ids[1], in.Marks, actor)
		}))

	cases.PUT("/:id/interview", bodyAction(h, http.StatusOK, caseParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in engine.InterviewInput, actor string) (interface{}, error) {
			return e.ScheduleInterview(ctx, ids[0], in, actor)
		}))
	cases.PUT("/:id/applications/:applicationID/interview", bodyAction(h, http.StatusOK, applicationParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in AttendanceRequest, actor string) (interface{}, error) {
			return e.InviteToInterview(ctx, ids[0], ids[1], in.Attended, actor)
		}))
	cases.POST("/:id/applications/:applicationID/evaluations", bodyAction(h, http.StatusCreated, applicationParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in engine.EvaluationInput, actor string) (interface{}, error) {
			return e.RecordEvaluation(ctx, ids[0], ids[1], in, actor)
		}))
	interviews.POST("/:interviewID/rank", bodyAction(h, http.StatusOK, []string{"interviewID"},
		func(ctx context.Context, e CaseEngine, ids []int64, _ ActionRequest, actor string) (interface{}, error) {
			return e.RankCandidates(ctx, ids[0], actor)
		}))
	interviews.GET("/:interviewID/results", h.Results)

	cases.POST("/:id/applications/:applicationID/offers", bodyAction(h, http.StatusCreated, applicationParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in engine.OfferInput, actor string) (interface{}, error) {
			return e.CreateOffer(ctx, ids[0], ids[1], in, actor)
		}))
	offer := []string{"id", "offerID"}
	cases.POST("/:id/offers/:offerID/send", bodyAction(h, http.StatusOK, offer,
		func(ctx context.Context, e CaseEngine, ids []int64, _ ActionRequest, actor string) (interface{}, error) {
			return e.SendOffer(ctx, ids[0], ids[1], actor)
		}))
	cases.POST("/:id/offers/:offerID/accept", bodyAction(h, http.StatusOK, offer,
		func(ctx context.Context, e CaseEngine, ids []int64, _ ActionRequest, actor string) (interface{}, error) {
			return e.AcceptOffer(ctx, ids[0], ids[1], actor)
		}))
	cases.POST("/:id/offers/:offerID/decline", bodyAction(h, http.StatusOK, offer,
		func(ctx context.Context, e CaseEngine, ids []int64, in ActionRequest, actor string) (interface{}, error) {
			return e.DeclineOffer(ctx, ids[0], ids[1], actor, in.Reason)
		}))

	cases.POST("/:id/background/start", h.caseAction(startBackground))
	cases.POST("/:id/background/references", bodyAction(h, http.StatusCreated, caseParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in engine.ReferenceInput, actor string) (interface{}, error) {
			return e.AddReference(ctx, ids[0], in, actor)
		}))
	cases.PUT("/:id/background/references/:referenceID", bodyAction(h, http.StatusOK, []string{"id", "referenceID"},
		func(ctx context.Context, e CaseEngine, ids []int64, in TrackRequest, actor string) (interface{}, error) {
			return e.SetReferenceStatus(ctx, ids[0], ids[1], in.Status, in.Notes, actor)
		}))
	cases.PUT("/:id/background/tracks/:track", h.SetBackgroundTrack)

	cases.PUT("/:id/contract", bodyAction(h, http.StatusOK, caseParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in engine.ContractInput, actor string) (interface{}, error) {
			return e.DraftContract(ctx, ids[0], in, actor)
		}))
	cases.POST("/:id/contract/request-signature", h.caseAction(requestSignature))
	cases.POST("/:id/contract/sign", h.caseAction(signContract))

	cases.POST("/:id/checklist", bodyAction(h, http.StatusCreated, caseParam,
		func(ctx context.Context, e CaseEngine, ids []int64, in ChecklistItemRequest, actor string) (interface{}, error) {
			return e.AddChecklistItem(ctx, ids[0], in.Name, in.IsRequired, actor)
		}))
	cases.PUT("/:id/checklist/:itemID", bodyAction(h, http.StatusOK, []string{"id", "itemID"},
		func(ctx context.Context, e CaseEngine, ids []int64, in CheckRequest, actor string) (interface{}, error) {
			return e.SetChecklistItem(ctx, ids[0], ids[1], in.Checked, actor)
		}))
}
