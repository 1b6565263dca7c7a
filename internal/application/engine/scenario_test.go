package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/event"
	"github.com/garyjia/recruitment-engine/internal/domain/stage"
)

// TestScenario_FullPipeline runs five applicants through all fifteen stages:
// 55 is not longlisted, everyone else passes shortlisting and the written
// test, the three strongest are interviewed and 88 is hired.
func TestScenario_FullPipeline(t *testing.T) {
	f := newFixture(t, 85, 82, 88, 75, 55)
	ctx, e, id := f.ctx, f.engine, f.caseID

	f.driveTo(stage.Shortlisting)
	assert.Len(t, f.active(), 4, "the 55 applicant is not longlisted")

	f.driveTo(stage.WrittenTest)
	shortlist, err := e.StageView(ctx, id, int(stage.Shortlisting))
	require.NoError(t, err)
	require.Len(t, shortlist.Snapshot.Shortlist.Candidates, 4)
	for _, row := range shortlist.Snapshot.Shortlist.Candidates {
		assert.True(t, row.IsShortlisted, "application %d", row.ApplicationID)
	}

	f.driveTo(stage.Interview)
	test, err := e.StageView(ctx, id, int(stage.WrittenTest))
	require.NoError(t, err)
	require.Len(t, test.Snapshot.Test.Candidates, 4)
	for _, row := range test.Snapshot.Test.Candidates {
		assert.True(t, row.IsPassed, "application %d", row.ApplicationID)
	}

	f.driveTo(stage.SelectionReport)
	results, err := e.Results(ctx, f.interviewID)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 88.0, f.scores[results[0].ApplicationID])
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, entity.ResultHire, results[0].Recommendation)
	assert.Equal(t, 84.0, results[0].FinalScore)
	assert.Equal(t, entity.ResultReserve, results[1].Recommendation)
	assert.Equal(t, 2, results[1].Rank)
	assert.Equal(t, 3, results[2].Rank)

	hire := results[0].ApplicationID
	for _, appID := range f.apps {
		app := f.application(appID)
		switch score := f.scores[appID]; {
		case score == 55:
			assert.Equal(t, entity.ApplicationRejected, app.Status)
		case score == 75:
			assert.Equal(t, entity.ApplicationTested, app.Status)
		default:
			assert.Equal(t, entity.ApplicationInterviewed, app.Status)
		}
	}

	f.driveTo(stage.Contract)
	sanction, err := e.StageView(ctx, id, int(stage.SanctionCheck))
	require.NoError(t, err)
	assert.True(t, sanction.Complete)
	background, err := e.StageView(ctx, id, int(stage.BackgroundCheck))
	require.NoError(t, err)
	assert.True(t, background.Complete)
	assert.Len(t, background.Snapshot.References, 2)

	f.completeStage()

	c := f.current()
	assert.Equal(t, entity.CaseStatusCompleted, c.Status)
	assert.Equal(t, 15, c.CurrentStep)
	require.NotNil(t, c.CompletedAt)
	assert.Equal(t, entity.ApplicationHired, f.application(hire).Status)

	contract, err := e.StageView(ctx, id, int(stage.Contract))
	require.NoError(t, err)
	assert.True(t, contract.Complete)
	assert.False(t, contract.Editable)
	for _, item := range contract.Snapshot.Checklist {
		assert.True(t, item.Checked, item.Name)
	}

	_, err = e.Advance(ctx, id, actor)
	assert.Error(t, err, "a completed case is closed")

	assert.Equal(t, 14, f.events.count(event.TypeCaseAdvanced))
	assert.Equal(t, 1, f.events.count(event.TypeCaseCompleted))
	assert.Equal(t, 1, f.events.count(event.TypeRankingComputed))
	assert.Equal(t, 1, f.events.count(event.TypeSanctionScreened))

	history, err := e.History(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "create", history[0].Action)
	assert.Equal(t, "complete", history[len(history)-1].Action)
}
