package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordersWithoutApplication(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, ctx, NewContext(ctx, nil))

	RecordEvent(ctx, "EscrowOpened", map[string]interface{}{"nonce": 7})
	RecordCount(ctx, "solana_runtime_instruction_ok", 1)
	RecordDuration(ctx, "solana_runtime_transaction_duration", time.Second)

	txnCtx, end := StartTransaction(ctx, "scenario")
	assert.Equal(t, ctx, txnCtx)
	end()

	tracer := TraceMethodCall(ctx, "runtime", "ProcessTransaction")
	assert.Nil(t, tracer)
	tracer.AddAttribute("instructions", 3)
	tracer.AddAttributes(map[string]interface{}{"signers": 1})
	tracer.OnError(errors.New("failure"))
	tracer.End()
}
