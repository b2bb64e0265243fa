package engine

import (
	"context"
	"fmt"

	"github.com/roach88/herald/internal/ir"
)

// VerifyCycle reads the stored transcripts of a cycle and checks each
// against its content-addressed ID. Returns the transcripts, or a
// *TamperedError for the first one whose content was altered.
func (e *Engine) VerifyCycle(ctx context.Context, cycleToken string) ([]ir.Transcript, error) {
	transcripts, err := e.store.ReadTranscripts(ctx, cycleToken)
	if err != nil {
		return nil, fmt.Errorf("verify cycle %s: %w", cycleToken, err)
	}
	if err := VerifyTranscripts(cycleToken, transcripts); err != nil {
		return transcripts, err
	}
	return transcripts, nil
}

// VerifyTranscripts checks that every transcript's ID matches its content.
func VerifyTranscripts(cycleToken string, transcripts []ir.Transcript) error {
	for _, tr := range transcripts {
		want, err := ir.TranscriptID(cycleToken, tr)
		if err != nil {
			return fmt.Errorf("verify transcript %d: %w", tr.EffectIndex, err)
		}
		if want != tr.ID {
			return &TamperedError{
				CycleToken:  cycleToken,
				EffectIndex: tr.EffectIndex,
				StoredID:    tr.ID,
				ComputedID:  want,
			}
		}
	}
	return nil
}
