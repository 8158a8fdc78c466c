package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/database"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/service"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/testutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	schedulePath = ""
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQuoteCmd(t *testing.T) {
	out, err := run(t, "quote", "--value", "10000", "--side", "sell")
	require.NoError(t, err)

	assert.Contains(t, out, "Securities tax")
	assert.Contains(t, out, "Total costs")
	assert.Contains(t, out, "₹")

	_, err = run(t, "quote", "--value", "10000", "--side", "sell", "--venue", "LSE")
	assert.ErrorContains(t, err, "unknown venue")

	_, err = run(t, "quote", "--value", "-5", "--side", "buy")
	assert.Error(t, err)
}

func TestXIRRCmd(t *testing.T) {
	out, err := run(t, "xirr", "--flow", "2023-01-01:-1000", "--flow", "2024-01-01:1100")
	require.NoError(t, err)
	assert.Equal(t, "10.00%", strings.TrimSpace(out))

	out, err = run(t, "xirr", "--flow", "2024-01-01:-1000")
	require.NoError(t, err)
	assert.Equal(t, "N/A", strings.TrimSpace(out))

	_, err = run(t, "xirr", "--flow", "yesterday:-1000")
	assert.Error(t, err)
}

func TestVerifyCmd(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sim.db")

	db, err := database.Open(path)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	svc := testutil.NewTestGameService(t, db, testutil.NewFakePriceSource(map[string]string{"ITC": "400"}), nil)
	g := testutil.CreateGame(t, db)
	_, err = svc.ExecuteTrade(ctx, g.ID, service.TradeInput{Symbol: "ITC", Side: model.SideBuy, Quantity: 25})
	require.NoError(t, err)
	_, err = svc.ExecuteTrade(ctx, g.ID, service.TradeInput{Symbol: "ITC", Side: model.SideSell, Quantity: 5})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := run(t, "verify", "--db", path, g.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "Ledger entries  2")

	_, err = run(t, "verify", "--db", path, testutil.MakeID())
	assert.ErrorContains(t, err, "game not found")
}
