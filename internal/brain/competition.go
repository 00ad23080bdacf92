package brain

import (
	"context"

	"github.com/marcus8448/v5ctl/internal/wire"
)

// SetCompetitionState issues the set-competition-state shape of the
// overloaded 0x2E command: one state byte followed by four zero bytes. It
// MUST NOT be interleaved with GetKernelVariable on the same Brain (§4.3);
// see the note on GetKernelVariable.
func (b *Brain) SetCompetitionState(ctx context.Context, state CompetitionState) error {
	bld := wire.NewBuilder(5)
	bld.WriteU8(uint8(state))
	bld.Pad(4)
	_, err := b.sendExtended(ctx, cmd0x2E, bld.Bytes())
	return err
}
