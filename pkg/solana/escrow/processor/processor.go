package processor

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
)

const (
	escrowOpenedEventName    = "EscrowOpened"
	escrowFulfilledEventName = "EscrowFulfilled"
	escrowCancelledEventName = "EscrowCancelled"
)

// Number of accounts each instruction is handed, in order
const (
	openAccountCount    = 8
	fulfillAccountCount = 11
	cancelAccountCount  = 7
)

type escrowProcessor struct {
	log     *logrus.Entry
	program ed25519.PublicKey
}

// New returns the escrow program, deployed at the configured program id
func New(configProvider ConfigProvider) runtime.Processor {
	conf := configProvider()

	return &escrowProcessor{
		log:     logrus.StandardLogger().WithField("type", "solana/escrow/processor"),
		program: conf.programId.Get(context.Background()),
	}
}

func (p *escrowProcessor) ProgramID() ed25519.PublicKey {
	return p.program
}

func (p *escrowProcessor) Process(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, data []byte) error {
	instruction, err := escrow.GetEscrowInstruction(data)
	if err != nil {
		return solana.InstructionErrorInvalidInstructionData
	}

	log := p.log.WithFields(logrus.Fields{
		"method":      "Process",
		"instruction": instruction.String(),
	})

	payload := data[1:]
	switch instruction {
	case escrow.EscrowInstructionOpen:
		err = p.open(ctx, accounts, payload)
	case escrow.EscrowInstructionFulfill:
		err = p.fulfill(ctx, accounts, payload)
	case escrow.EscrowInstructionCancel:
		err = p.cancel(ctx, accounts, payload)
	default:
		err = solana.InstructionErrorInvalidInstructionData
	}

	if err != nil {
		log.WithError(err).Debug("instruction rejected")
		return err
	}
	return nil
}

func recordEscrowEvent(ctx *runtime.InvokeContext, eventName string, address ed25519.PublicKey, record *escrow.EscrowAccount, kvPairs map[string]interface{}) {
	event := map[string]interface{}{
		"escrow":           base58.Encode(address),
		"maker":            base58.Encode(record.Maker),
		"nonce":            record.Nonce,
		"mint_a":           base58.Encode(record.MintA),
		"mint_b":           base58.Encode(record.MintB),
		"requested_amount": record.RequestedAmount,
	}
	for k, v := range kvPairs {
		event[k] = v
	}
	metrics.RecordEvent(ctx.Context(), eventName, event)
}
