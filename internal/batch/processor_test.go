package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment-api/internal/model"
	"fulfillment-api/internal/precheck"
)

func lineProduct(name string) model.Product {
	return model.Product{Name: name, Price: 1, Mode: model.ModeLine}
}

func TestProcessor_PartialDelivery(t *testing.T) {
	h := newHarness(t)
	h.product(lineProduct("nfa"), "a@x.io:p:One", "a@x.io:p:Two", "a@x.io:p:Three")

	report := h.proc.Run(context.Background(), "nfa", []model.PendingOrder{h.order("O1", "nfa", 5)})

	o := h.orderState("O1")
	assert.Equal(t, model.OrderCompleted, o.Status)
	assert.Equal(t, 3, o.Delivered)
	assert.Empty(t, h.units("nfa", model.ModeLine))
	assert.Equal(t, int64(0), h.stock("nfa"))
	assert.Equal(t, 3, report.Delivered)
	assert.Equal(t, model.FailureNone, report.Failure)

	d := h.notes.byOrder()["O1"]
	assert.Equal(t, model.OutcomePartial, d.Outcome)
	assert.Equal(t, model.FailurePartialSupply, d.Failure)
	assert.Equal(t, []string{"One", "Two", "Three"}, d.Identities)
	require.NotEmpty(t, d.Artifact)
	data, err := os.ReadFile(d.Artifact)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io:p:One\na@x.io:p:Two\na@x.io:p:Three", string(data))
}

func TestProcessor_FairnessInArrivalOrder(t *testing.T) {
	h := newHarness(t)
	h.product(lineProduct("nfa"), "u1", "u2", "u3")

	h.proc.Run(context.Background(), "nfa", []model.PendingOrder{h.order("A", "nfa", 2), h.order("B", "nfa", 2)})

	notes := h.notes.byOrder()
	assert.Equal(t, []string{"u1", "u2"}, notes["A"].Contents)
	assert.Equal(t, model.OutcomeCompleted, notes["A"].Outcome)
	assert.Equal(t, []string{"u3"}, notes["B"].Contents)
	assert.Equal(t, model.OutcomePartial, notes["B"].Outcome)
	assert.Equal(t, 1, h.orderState("B").Delivered)
}

func TestProcessor_LeftoverWrittenBack(t *testing.T) {
	h := newHarness(t)
	h.product(lineProduct("nfa"), "u1", "u2", "u3", "u4")

	h.proc.Run(context.Background(), "nfa", []model.PendingOrder{h.order("A", "nfa", 1)})

	assert.Equal(t, "u2\nu3\nu4\n", h.rawFile("nfa"))
	assert.Equal(t, int64(3), h.stock("nfa"))
}

func TestProcessor_NoUnitsFailsOrder(t *testing.T) {
	h := newHarness(t)
	h.product(lineProduct("nfa"), "u1")

	h.proc.Run(context.Background(), "nfa", []model.PendingOrder{h.order("A", "nfa", 1), h.order("B", "nfa", 1)})

	assert.Equal(t, model.OrderCompleted, h.orderState("A").Status)
	b := h.orderState("B")
	assert.Equal(t, model.OrderFailed, b.Status)
	assert.Zero(t, b.Delivered)
	assert.Equal(t, model.FailureNoUnitsAvailable, h.notes.byOrder()["B"].Failure)
}

func TestProcessor_ValidatorDownTouchesNothing(t *testing.T) {
	h := newHarness(t)
	p := lineProduct("nfa")
	p.PrecheckLevel = model.PrecheckCredential
	h.product(p, "u1", "bad-u2", "u3")
	h.validator.healthErr = precheck.ErrUnavailable

	before := h.rawFile("nfa")
	report := h.proc.Run(context.Background(), "nfa", []model.PendingOrder{h.order("A", "nfa", 1), h.order("B", "nfa", 2)})

	assert.Equal(t, model.FailureValidatorUnavailable, report.Failure)
	for _, id := range []string{"A", "B"} {
		assert.Equal(t, model.OrderFailed, h.orderState(id).Status)
		d := h.notes.byOrder()[id]
		assert.Equal(t, model.OutcomeFailed, d.Outcome)
		assert.Equal(t, model.FailureValidatorUnavailable, d.Failure)
	}
	assert.Equal(t, before, h.rawFile("nfa"))
	assert.Equal(t, int64(3), h.stock("nfa"))
	assert.Zero(t, h.validator.batches)
}

func TestProcessor_ValidatorTransportFailure(t *testing.T) {
	h := newHarness(t)
	p := lineProduct("nfa")
	p.PrecheckLevel = model.PrecheckReputation
	h.product(p, "u1", "bad-u2")
	h.validator.batchErr = errors.Join(precheck.ErrUnavailable, errors.New("connection reset"))

	h.proc.Run(context.Background(), "nfa", []model.PendingOrder{h.order("A", "nfa", 1)})

	assert.Equal(t, model.OrderFailed, h.orderState("A").Status)
	assert.Equal(t, []string{"u1", "bad-u2"}, h.units("nfa", model.ModeLine))
}

func TestProcessor_PrecheckRemovesInvalid(t *testing.T) {
	h := newHarness(t)
	p := lineProduct("nfa")
	p.PrecheckLevel = model.PrecheckCredential
	h.product(p, "bad-1", "good-1", "bad-2", "good-2", "good-3")

	report := h.proc.Run(context.Background(), "nfa", []model.PendingOrder{h.order("A", "nfa", 4)})

	assert.Equal(t, 2, report.Invalid)
	d := h.notes.byOrder()["A"]
	assert.Equal(t, []string{"good-1", "good-2", "good-3"}, d.Contents)
	assert.True(t, d.PrecheckEnabled)
	assert.Equal(t, 3, d.PrecheckValid)
	assert.Equal(t, 2, d.PrecheckInvalid)
	assert.Empty(t, h.units("nfa", model.ModeLine))
}

func TestProcessor_DedupAcrossOrdersInOnePass(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ledger.Record(ctx, "Old", "someone", "O0", "nfa", "x"))
	h.product(lineProduct("nfa"), "a@x.io:p1:Steve", "b@x.io:p2:steve", "c@x.io:p3:old", "d@x.io:p4:Alex")

	report := h.proc.Run(ctx, "nfa", []model.PendingOrder{h.order("A", "nfa", 1), h.order("B", "nfa", 1), h.order("C", "nfa", 1)})

	notes := h.notes.byOrder()
	assert.Equal(t, []string{"a@x.io:p1:Steve"}, notes["A"].Contents)
	assert.Equal(t, []string{"d@x.io:p4:Alex"}, notes["B"].Contents)
	assert.Equal(t, model.OutcomeFailed, notes["C"].Outcome)
	assert.Equal(t, 2, report.Duplicates)
	assert.Empty(t, h.units("nfa", model.ModeLine))

	rec, err := h.ledger.Lookup(ctx, "STEVE")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "A", rec.OrderID)
}

func TestProcessor_FileMode(t *testing.T) {
	h := newHarness(t)
	h.product(model.Product{Name: "cookies", Mode: model.ModeFile}, "c1", "c2", "c3")

	h.proc.Run(context.Background(), "cookies", []model.PendingOrder{h.order("A", "cookies", 2)})

	d := h.notes.byOrder()["A"]
	assert.Equal(t, model.OutcomeCompleted, d.Outcome)
	assert.Len(t, d.Contents, 2)
	assert.FileExists(t, d.Artifact)
	assert.Len(t, h.units("cookies", model.ModeFile), 1)
	assert.Equal(t, int64(1), h.stock("cookies"))
}

func TestProcessor_CooldownUnlessExempt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := lineProduct("nfa")
	p.CooldownSeconds = 300
	h.product(p, "u1", "u2")

	a := h.order("A", "nfa", 1)
	b := h.order("B", "nfa", 1)
	b.CooldownExempt = true
	h.proc.Run(ctx, "nfa", []model.PendingOrder{a, b})

	cd, err := h.store.GetCooldown(ctx, a.UserID, "nfa")
	require.NoError(t, err)
	assert.NotNil(t, cd)
	_, ok, err := h.cooldowns.Get(ctx, a.UserID, "nfa")
	require.NoError(t, err)
	assert.True(t, ok)

	cd, err = h.store.GetCooldown(ctx, b.UserID, "nfa")
	require.NoError(t, err)
	assert.Nil(t, cd)
}

func TestProcessor_NoCooldownForFailedOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := lineProduct("nfa")
	p.CooldownSeconds = 300
	h.product(p)

	a := h.order("A", "nfa", 1)
	h.proc.Run(ctx, "nfa", []model.PendingOrder{a})

	cd, err := h.store.GetCooldown(ctx, a.UserID, "nfa")
	require.NoError(t, err)
	assert.Nil(t, cd)
}

func TestProcessor_UnknownProductFailsAll(t *testing.T) {
	h := newHarness(t)

	report := h.proc.Run(context.Background(), "ghost", []model.PendingOrder{h.order("A", "ghost", 1)})

	assert.Equal(t, model.FailureInternal, report.Failure)
	assert.Equal(t, model.OrderFailed, h.orderState("A").Status)
}

func TestProcessor_NotifyFailureDoesNotRollBack(t *testing.T) {
	h := newHarness(t)
	h.notes.err = errors.New("dm closed")
	h.product(lineProduct("nfa"), "u1")

	h.proc.Run(context.Background(), "nfa", []model.PendingOrder{h.order("A", "nfa", 1)})

	assert.Equal(t, model.OrderCompleted, h.orderState("A").Status)
	assert.Empty(t, h.units("nfa", model.ModeLine))
}

// breakStock replaces the product's stock file with a directory so every read fails.
func (h *harness) breakStock(product string) {
	h.t.Helper()
	require.NoError(h.t, os.MkdirAll(filepath.Join(h.root, product+".txt"), 0o755))
}

func TestProcessor_StoreIOErrorFailsEveryOrder(t *testing.T) {
	h := newHarness(t)
	h.product(lineProduct("nfa"))
	h.breakStock("nfa")

	report := h.proc.Run(context.Background(), "nfa",
		[]model.PendingOrder{h.order("A", "nfa", 1), h.order("B", "nfa", 2)})

	assert.Equal(t, model.FailureStoreIO, report.Failure)
	notes := h.notes.byOrder()
	require.Len(t, notes, 2)
	for _, id := range []string{"A", "B"} {
		assert.Equal(t, model.OrderFailed, h.orderState(id).Status, id)
		assert.Equal(t, model.OutcomeFailed, notes[id].Outcome, id)
		assert.Equal(t, model.FailureStoreIO, notes[id].Failure, id)
		assert.Zero(t, notes[id].Delivered, id)
	}
}
