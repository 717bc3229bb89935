package integration

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aptos-labs/aptos-go-sdk"
	"github.com/rs/zerolog"

	"github.com/0xjunha/apt-reward-script/internal/batch"
	"github.com/0xjunha/apt-reward-script/internal/chain/chaintest"
	"github.com/0xjunha/apt-reward-script/internal/config"
	"github.com/0xjunha/apt-reward-script/internal/journal"
	"github.com/0xjunha/apt-reward-script/internal/lifecycle"
	"github.com/0xjunha/apt-reward-script/internal/payload"
	"github.com/0xjunha/apt-reward-script/internal/recipients"
	"github.com/0xjunha/apt-reward-script/internal/risk"
)

func TestDistributionFlowReachesFinished(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dir := t.TempDir()
	path := filepath.Join(dir, "addresses.csv")
	if err := os.WriteFile(path, []byte("0xA\n\n  \n0xB\n0xC\n"), 0o644); err != nil {
		t.Fatalf("write addresses: %v", err)
	}

	addrs, err := recipients.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	intents := payload.Build(addrs, config.DefaultAmountOctas)
	if len(intents) != 3 {
		t.Fatalf("expected 3 intents, got %d", len(intents))
	}

	node := &chaintest.Node{
		BalanceOctas: 2 * config.DefaultAmountOctas,
		Sequence:     3,
		SendErrs:     map[int]error{2: errors.New("transaction expired")},
	}
	balance, _ := node.Balance(ctx, aptos.AccountOne)
	required, err := risk.Required(len(intents), config.DefaultAmountOctas)
	if err != nil {
		t.Fatalf("Required returned error: %v", err)
	}
	if (risk.Limits{Balance: balance}).Allow(required) {
		t.Fatalf("expected balance below batch total")
	}

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	recorder, err := journal.NewJSONLRecorder(filepath.Join(dir, "journal.jsonl"), "flow")
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	defer recorder.Close()

	events := batch.NewWorker(node, logger, batch.WithMaxInFlight(2)).Run(ctx, nil, intents)
	controller := lifecycle.NewController(node, aptos.AccountOne, logger,
		lifecycle.WithIntents(len(intents)),
		lifecycle.WithRecorder(recorder),
	)
	summary, err := controller.Consume(ctx, events)
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if summary.Executed != 2 || summary.SendFailed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if node.SequenceCalls() != 1 {
		t.Fatalf("expected exactly one sequence lookup, got %d", node.SequenceCalls())
	}
	if summary.SequenceNumber != 3 {
		t.Fatalf("expected sequence number 3, got %d", summary.SequenceNumber)
	}
	if !strings.Contains(buf.String(), "batch complete") {
		t.Fatalf("expected log output to include batch complete, got %s", buf.String())
	}
}
