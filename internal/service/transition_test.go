package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

func TestNextStatuses(t *testing.T) {
	tests := []struct {
		name        string
		fraud       *FraudCheckResult
		wantIntent  repository.IntentStatus
		wantAttempt repository.AttemptStatus
		wantCode    *string
		wantMessage *string
	}{
		{
			name:        "no signal",
			wantIntent:  repository.IntentProcessing,
			wantAttempt: repository.AttemptPending,
		},
		{
			name:        "empty suggestion",
			fraud:       &FraudCheckResult{},
			wantIntent:  repository.IntentProcessing,
			wantAttempt: repository.AttemptPending,
		},
		{
			name:        "fraud cancel",
			fraud:       &FraudCheckResult{Suggestion: FraudCancel, Status: "fraud", Reason: "stolen_card"},
			wantIntent:  repository.IntentFailed,
			wantAttempt: repository.AttemptFailure,
			wantCode:    strPtr("fraud"),
			wantMessage: strPtr("stolen_card"),
		},
		{
			name:        "manual review",
			fraud:       &FraudCheckResult{Suggestion: FraudManualReview, Status: "manual_review"},
			wantIntent:  repository.IntentRequiresMerchantAction,
			wantAttempt: repository.AttemptUnresolved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextStatuses(tt.fraud)

			require.Equal(t, tt.wantIntent, got.Intent)
			require.Equal(t, tt.wantAttempt, got.Attempt)
			require.Equal(t, tt.wantCode, got.ErrorCode)
			require.Equal(t, tt.wantMessage, got.ErrorMessage)
		})
	}
}

func strPtr(s string) *string {
	return &s
}
