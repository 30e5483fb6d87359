package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"github.com/Harshitk-cp/signalrealm/internal/llm"
	"github.com/Harshitk-cp/signalrealm/internal/prompts"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_MillMeeting(t *testing.T) {
	f := newFixture(t)
	f.router.responses["SURFACE"] = "```json\n{\"title\":\"Mill Meeting\",\"summary\":\"A meeting with Jane at the old mill.\",\"tags\":[\"meeting\",\"location\"]}\n```"
	f.router.responses["STRUCTURE"] = `{"energy":"calm","dominant_language":"spatial"}`

	fields, err := f.analysis.Analyze(context.Background(), f.signal, f.realmID, "")
	require.NoError(t, err)

	assert.Equal(t, "Mill Meeting", fields[domain.FieldTitle])
	assert.Equal(t, []any{"meeting", "location"}, fields[domain.FieldTags])
	assert.Equal(t, "calm", fields[domain.FieldEnergy])
	assert.Equal(t, "Mill Meeting", f.signal.Fields[domain.FieldTitle])
	require.Len(t, f.signals.updates, 1)

	require.Equal(t, 2, f.router.callCount())
	assert.Contains(t, f.router.calls[0].system, "INVOCATION\n\nRealm of Ada. A quiet valley.\n\nSURFACE SYSTEM")
	assert.Contains(t, f.router.calls[0].user, "Met with Jane at the old mill.")
	assert.Contains(t, f.router.calls[0].user, "TEXT CAPTURE 2025-03-01T09:30:00Z")
	assert.Contains(t, f.router.calls[1].system, "STRUCTURE SYSTEM")

	history := f.signals.history(f.signal.ID)
	require.Equal(t, []string{"analysis_surface", "analysis_structure"}, historyTypes(history))

	surface := history[0]
	assert.Equal(t, "acct-1", surface.AccountID)
	assert.Equal(t, "fake-model", surface.Model)
	assert.Empty(t, surface.Error)
	assert.NotEmpty(t, surface.SystemPrompt)
	assert.NotEmpty(t, surface.UserPrompt)
	require.NotNil(t, surface.Tokens)
	assert.Equal(t, 10, *surface.Tokens)
	assert.Subset(t, surface.FieldsUpdated, []string{domain.FieldTitle, domain.FieldSummary, domain.FieldTags})
	assert.Equal(t, domain.FieldTitle, surface.FieldsUpdated[0])
}

func TestAnalyze_StructureFailureKeepsSurface(t *testing.T) {
	f := newFixture(t)
	f.router.responses["SURFACE"] = `{"title":"Mill Meeting"}`
	f.router.errs["STRUCTURE"] = &llm.ProviderError{Provider: "mock", StatusCode: 503, Body: "overloaded"}

	fields, err := f.analysis.Analyze(context.Background(), f.signal, f.realmID, "")
	require.NoError(t, err)

	assert.Equal(t, "Mill Meeting", fields[domain.FieldTitle])
	for _, name := range domain.LayerFields(domain.LayerStructure) {
		assert.NotContains(t, fields, name)
	}

	history := f.signals.history(f.signal.ID)
	require.Equal(t, []string{"analysis_surface", "analysis_structure_failed"}, historyTypes(history))
	assert.Contains(t, history[1].Error, "status 503")
	assert.Empty(t, history[1].FieldsUpdated)
	assert.Empty(t, history[1].Response)
}

func TestAnalyze_BothLayersFail(t *testing.T) {
	f := newFixture(t)
	f.router.errs["SURFACE"] = errors.New("connection reset")
	f.router.errs["STRUCTURE"] = errors.New("connection reset")

	fields, err := f.analysis.Analyze(context.Background(), f.signal, f.realmID, "")
	require.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Nil(t, fields)
	assert.Empty(t, f.signals.updates)
	assert.Equal(t, []string{"analysis_surface_failed", "analysis_structure_failed"}, historyTypes(f.signals.history(f.signal.ID)))
}

func TestAnalyze_UnparseableResponseProducesNoFields(t *testing.T) {
	f := newFixture(t)
	f.router.responses["SURFACE"] = "I'm sorry, I can't answer in JSON."
	f.router.errs["STRUCTURE"] = errors.New("timeout")

	_, err := f.analysis.Analyze(context.Background(), f.signal, f.realmID, "")
	require.ErrorIs(t, err, ErrAnalysisFailed)

	history := f.signals.history(f.signal.ID)
	require.Len(t, history, 2)
	assert.Equal(t, "analysis_surface", history[0].Type)
	assert.Equal(t, "I'm sorry, I can't answer in JSON.", history[0].Response)
	assert.Contains(t, history[0].Error, ErrUnparseableResponse.Error())
	assert.Empty(t, history[0].FieldsUpdated)
}

func TestAnalyze_AccountFailures(t *testing.T) {
	tests := []struct {
		name      string
		accountID string
		mutate    func(cfg *domain.RealmLLMConfig)
		wantErr   error
	}{
		{name: "disabled account", accountID: "acct-off", wantErr: domain.ErrAccountDisabled},
		{name: "unknown account", accountID: "acct-404", wantErr: domain.ErrAccountNotFound},
		{
			name:    "no default",
			mutate:  func(cfg *domain.RealmLLMConfig) { cfg.DefaultAccountID = "" },
			wantErr: domain.ErrNoDefaultAccount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.mutate != nil {
				tt.mutate(f.realms.configs[f.realmID])
			}

			_, err := f.analysis.Analyze(context.Background(), f.signal, f.realmID, tt.accountID)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.router.callCount())

			history := f.signals.history(f.signal.ID)
			require.Len(t, history, 1)
			assert.Equal(t, domain.HistoryAnalysisAborted, history[0].Type)
			assert.NotEmpty(t, history[0].Error)
		})
	}
}

func TestAnalyze_MissingTemplateIsFatal(t *testing.T) {
	f := newFixture(t)
	delete(f.templates, "structure/user.md")

	_, err := f.analysis.Analyze(context.Background(), f.signal, f.realmID, "")
	require.ErrorIs(t, err, prompts.ErrTemplateNotFound)
	assert.Zero(t, f.router.callCount())
	assert.Empty(t, f.signals.history(f.signal.ID))
}

func TestAnalyze_UnknownRealm(t *testing.T) {
	f := newFixture(t)
	_, err := f.analysis.Analyze(context.Background(), f.signal, uuid.New(), "")
	assert.ErrorIs(t, err, ErrRealmNotFound)
}

func TestAnalyze_HistoryIsAppendOnly(t *testing.T) {
	f := newFixture(t)
	f.router.responses["SURFACE"] = `{"title":"First"}`
	f.router.errs["STRUCTURE"] = errors.New("down")

	_, err := f.analysis.Analyze(context.Background(), f.signal, f.realmID, "")
	require.NoError(t, err)
	before := f.signals.history(f.signal.ID)

	f.router.responses["SURFACE"] = `{"title":"Second"}`
	delete(f.router.errs, "STRUCTURE")
	f.router.responses["STRUCTURE"] = `{"state":"open"}`

	_, err = f.analysis.Analyze(context.Background(), f.signal, f.realmID, "")
	require.NoError(t, err)
	after := f.signals.history(f.signal.ID)

	require.Greater(t, len(after), len(before))
	if diff := cmp.Diff(before, after[:len(before)]); diff != "" {
		t.Errorf("existing history entries changed (-before +after):\n%s", diff)
	}
	assert.Equal(t, "Second", f.signal.Fields[domain.FieldTitle])
}

func TestAnalyzeSelective_LayerRouting(t *testing.T) {
	tests := []struct {
		name        string
		fields      []string
		wantCalls   int
		wantHistory []string
	}{
		{
			name:        "structure only",
			fields:      []string{domain.FieldEnergy},
			wantCalls:   1,
			wantHistory: []string{"analysis_selective_structure", "analysis_selective_complete"},
		},
		{
			name:        "both layers",
			fields:      []string{domain.FieldTitle, domain.FieldEnergy},
			wantCalls:   2,
			wantHistory: []string{"analysis_selective_surface", "analysis_selective_structure", "analysis_selective_complete"},
		},
		{
			name:        "surface only",
			fields:      []string{domain.FieldTemperature},
			wantCalls:   1,
			wantHistory: []string{"analysis_selective_surface", "analysis_selective_complete"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.router.responses["SURFACE"] = `{"title":"T","summary":"S","temperature":0.4,"tags":["x"]}`
			f.router.responses["STRUCTURE"] = `{"energy":"high","state":"liminal"}`

			fields, err := f.analysis.AnalyzeSelective(context.Background(), SelectiveInput{
				SignalID: f.signal.ID,
				RealmID:  f.realmID,
				Fields:   tt.fields,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantCalls, f.router.callCount())
			assert.Equal(t, tt.wantHistory, historyTypes(f.signals.history(f.signal.ID)))
			for name := range fields {
				assert.Contains(t, tt.fields, name)
			}
		})
	}
}

func TestAnalyzeSelective_FiltersQuestionsAndResults(t *testing.T) {
	f := newFixture(t)
	f.router.responses["STRUCTURE"] = `{"energy":"high","state":"liminal","orientation":"inward"}`

	fields, err := f.analysis.AnalyzeSelective(context.Background(), SelectiveInput{
		SignalID: f.signal.ID,
		RealmID:  f.realmID,
		Fields:   []string{domain.FieldEnergy},
	})
	require.NoError(t, err)

	if diff := cmp.Diff(domain.FieldMap{domain.FieldEnergy: "high"}, fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	assert.NotContains(t, f.signal.Fields, domain.FieldState)

	user := f.router.calls[0].user
	assert.Contains(t, user, "**energy:** Energy?")
	assert.NotContains(t, user, "**state:**")

	history := f.signals.history(f.signal.ID)
	assert.Equal(t, []string{domain.FieldEnergy}, history[0].FieldsRequested)
	assert.Equal(t, []string{domain.FieldEnergy}, history[0].FieldsUpdated)
	assert.Equal(t, []string{domain.FieldEnergy}, history[1].FieldsUpdated)
}

func TestAnalyzeSelective_FailureLeavesFieldsUntouched(t *testing.T) {
	f := newFixture(t)
	f.signal.Fields = domain.FieldMap{domain.FieldEnergy: "previous"}
	f.router.errs["STRUCTURE"] = &llm.ProviderError{Provider: "mock", StatusCode: 500, Body: "boom"}

	_, err := f.analysis.AnalyzeSelective(context.Background(), SelectiveInput{
		SignalID: f.signal.ID,
		RealmID:  f.realmID,
		Fields:   []string{domain.FieldEnergy},
	})
	var pe *llm.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 500, pe.StatusCode)

	assert.Empty(t, f.signals.updates)
	assert.Equal(t, "previous", f.signal.Fields[domain.FieldEnergy])
	assert.Equal(t, []string{"analysis_selective_structure_failed"}, historyTypes(f.signals.history(f.signal.ID)))
}

func TestAnalyzeSelective_SecondLayerFailureAbortsAll(t *testing.T) {
	f := newFixture(t)
	f.router.responses["SURFACE"] = `{"title":"T"}`
	f.router.errs["STRUCTURE"] = errors.New("down")

	_, err := f.analysis.AnalyzeSelective(context.Background(), SelectiveInput{
		SignalID: f.signal.ID,
		RealmID:  f.realmID,
		Fields:   []string{domain.FieldTitle, domain.FieldEnergy},
	})
	require.Error(t, err)
	assert.Empty(t, f.signals.updates)
	assert.Equal(t,
		[]string{"analysis_selective_surface", "analysis_selective_structure_failed"},
		historyTypes(f.signals.history(f.signal.ID)))
}

func TestAnalyzeSelective_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.analysis.AnalyzeSelective(ctx, SelectiveInput{SignalID: f.signal.ID, RealmID: f.realmID})
	assert.ErrorIs(t, err, ErrNoAnalysisFields)

	_, err = f.analysis.AnalyzeSelective(ctx, SelectiveInput{
		SignalID: f.signal.ID,
		RealmID:  f.realmID,
		Fields:   []string{domain.FieldTitle, "signal_mood"},
	})
	require.ErrorIs(t, err, ErrUnknownField)
	assert.Contains(t, err.Error(), "signal_mood")

	_, err = f.analysis.AnalyzeSelective(ctx, SelectiveInput{
		SignalID: uuid.New(),
		RealmID:  f.realmID,
		Fields:   []string{domain.FieldTitle},
	})
	assert.ErrorIs(t, err, ErrSignalNotFound)

	assert.Zero(t, f.router.callCount())
}

func TestAnalyzeSelective_EmptyAnswerFails(t *testing.T) {
	f := newFixture(t)
	f.router.responses["SURFACE"] = `{"summary":"not what was asked"}`

	_, err := f.analysis.AnalyzeSelective(context.Background(), SelectiveInput{
		SignalID: f.signal.ID,
		RealmID:  f.realmID,
		Fields:   []string{domain.FieldTitle},
	})
	require.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Empty(t, f.signals.updates)
}
