package judge

import (
	"context"
	"errors"
	"testing"

	"github.com/Harshitk-cp/prospector/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evidenceWith(text string) []domain.Evidence {
	return []domain.Evidence{{RawText: text}}
}

func TestMockClient_KeywordDecisions(t *testing.T) {
	cases := []struct {
		text string
		want domain.Decision
	}{
		{"Vendor selected after the Q3 evaluation", domain.DecisionAccept},
		{"RFP issued for platform migration", domain.DecisionAccept},
		{"Hiring two platform engineers", domain.DecisionWeakAccept},
		{"New Director of Infrastructure announced", domain.DecisionWeakAccept},
		{"Project cancelled pending budget review", domain.DecisionReject},
		{"The initiative was abandoned last year", domain.DecisionReject},
		{"Quarterly earnings in line with estimates", domain.DecisionNoProgress},
	}

	client := NewMockClient()
	h := &domain.Hypothesis{Statement: "entity is buying"}
	for _, tc := range cases {
		verdict, err := client.Judge(context.Background(), h, evidenceWith(tc.text))
		require.NoError(t, err)
		assert.Equal(t, tc.want, verdict.Decision, "text: %q", tc.text)
	}
	assert.Len(t, client.JudgeCalls, len(cases))
}

func TestMockClient_Overrides(t *testing.T) {
	client := NewMockClient()
	client.JudgeResponse = &domain.Verdict{Decision: domain.DecisionAccept, ConfidenceDelta: 0.2}

	verdict, err := client.Judge(context.Background(), &domain.Hypothesis{}, evidenceWith("irrelevant"))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAccept, verdict.Decision)
	assert.Equal(t, 0.2, verdict.ConfidenceDelta)

	client.JudgeError = errors.New("boom")
	_, err = client.Judge(context.Background(), &domain.Hypothesis{}, nil)
	assert.Error(t, err)
}
