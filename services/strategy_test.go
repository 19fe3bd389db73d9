package services

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Tirth-chokshi/strategy-backend/models"
	"github.com/Tirth-chokshi/strategy-backend/repository/memrepo"
)

func detailInput(sp float64, symbol string, typ models.DetailType) models.StrategyDetailInput {
	token := "tok-" + symbol
	return models.StrategyDetailInput{
		StrikePrice:     &sp,
		TradingSymbol:   &symbol,
		InstrumentToken: &token,
		Type:            &typ,
	}
}

func newStrategyService() *StrategyService {
	now := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	return &StrategyService{
		Repo: memrepo.NewStrategies(),
		Now: func() time.Time {
			now = now.Add(time.Second)
			return now
		},
	}
}

func mustCreate(t *testing.T, svc *StrategyService, owner primitive.ObjectID, details ...models.StrategyDetailInput) *models.Strategy {
	t.Helper()
	if details == nil {
		details = []models.StrategyDetailInput{}
	}
	st, err := svc.Create(context.Background(), owner, CreateStrategyInput{StrategyName: "Iron condor", StrategyDetails: details})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return st
}

func TestCreateStrategy(t *testing.T) {
	svc := newStrategyService()
	owner := primitive.NewObjectID()
	ctx := context.Background()

	st := mustCreate(t, svc, owner, detailInput(22000, "NIFTY22000CE", models.DetailCall))
	if st.Status {
		t.Fatalf("status should default to false")
	}
	if st.UserID != owner {
		t.Fatalf("owner not recorded")
	}
	if len(st.StrategyDetails) != 1 || st.StrategyDetails[0].ID.IsZero() {
		t.Fatalf("detail id not assigned: %+v", st.StrategyDetails)
	}

	_, err := svc.Create(ctx, owner, CreateStrategyInput{StrategyName: "  ", StrategyDetails: []models.StrategyDetailInput{}})
	wantKind(t, err, KindValidation)

	_, err = svc.Create(ctx, owner, CreateStrategyInput{StrategyName: "x"})
	wantKind(t, err, KindValidation)

	_, err = svc.Create(ctx, owner, CreateStrategyInput{
		StrategyName:    "x",
		StrategyDetails: []models.StrategyDetailInput{detailInput(1, "S", models.DetailType("XX"))},
	})
	wantKind(t, err, KindValidation)
}

func TestStrategiesInvisibleToOtherUsers(t *testing.T) {
	svc := newStrategyService()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	ctx := context.Background()

	st := mustCreate(t, svc, alice, detailInput(100, "A", models.DetailPut))
	id := st.ID.Hex()
	detailID := st.StrategyDetails[0].ID.Hex()
	name := "stolen"

	_, err := svc.GetByID(ctx, bob, id)
	wantKind(t, err, KindNotFound)
	_, err = svc.Update(ctx, bob, id, models.StrategyUpdate{StrategyName: &name})
	wantKind(t, err, KindNotFound)
	_, err = svc.AddDetails(ctx, bob, id, []models.StrategyDetailInput{detailInput(1, "B", models.DetailCall)})
	wantKind(t, err, KindNotFound)
	_, err = svc.UpdateDetail(ctx, bob, id, detailID, models.StrategyDetailInput{TradingSymbol: &name})
	wantKind(t, err, KindNotFound)
	_, err = svc.RemoveDetail(ctx, bob, id, detailID)
	wantKind(t, err, KindNotFound)
	_, err = svc.ToggleStatus(ctx, bob, id)
	wantKind(t, err, KindNotFound)
	wantKind(t, svc.Delete(ctx, bob, id), KindNotFound)

	list, err := svc.ListMine(ctx, bob)
	if err != nil || len(list) != 0 {
		t.Fatalf("bob sees %d strategies (err %v)", len(list), err)
	}

	got, err := svc.GetByID(ctx, alice, id)
	if err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if got.StrategyName != "Iron condor" || got.Status || len(got.StrategyDetails) != 1 {
		t.Fatalf("strategy changed by another user: %+v", got)
	}
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	svc := newStrategyService()
	owner := primitive.NewObjectID()
	ctx := context.Background()

	_, err := svc.GetByID(ctx, owner, "zzz")
	wantKind(t, err, KindNotFound)
	_, err = svc.RemoveDetail(ctx, owner, primitive.NewObjectID().Hex(), "zzz")
	wantKind(t, err, KindNotFound)
}

func TestAddDetailsPreservesOrder(t *testing.T) {
	svc := newStrategyService()
	owner := primitive.NewObjectID()
	ctx := context.Background()

	st := mustCreate(t, svc, owner, detailInput(100, "D0", models.DetailCall))
	got, err := svc.AddDetails(ctx, owner, st.ID.Hex(), []models.StrategyDetailInput{
		detailInput(200, "D1", models.DetailPut),
		detailInput(300, "D2", models.DetailFutures),
	})
	if err != nil {
		t.Fatalf("add details: %v", err)
	}

	want := []string{"D0", "D1", "D2"}
	if len(got.StrategyDetails) != len(want) {
		t.Fatalf("details = %d, want %d", len(got.StrategyDetails), len(want))
	}
	for i, d := range got.StrategyDetails {
		if d.TradingSymbol != want[i] {
			t.Fatalf("detail %d = %s, want %s", i, d.TradingSymbol, want[i])
		}
	}
	if !got.UpdatedAt.After(st.UpdatedAt) {
		t.Fatalf("updatedAt not refreshed")
	}

	_, err = svc.AddDetails(ctx, owner, st.ID.Hex(), nil)
	wantKind(t, err, KindValidation)
}

func TestUpdateDetailKeepsIdentity(t *testing.T) {
	svc := newStrategyService()
	owner := primitive.NewObjectID()
	ctx := context.Background()

	st := mustCreate(t, svc, owner,
		detailInput(100, "D0", models.DetailCall),
		detailInput(200, "D1", models.DetailPut),
	)
	target := st.StrategyDetails[1]
	sp := 250.0

	got, err := svc.UpdateDetail(ctx, owner, st.ID.Hex(), target.ID.Hex(), models.StrategyDetailInput{StrikePrice: &sp})
	if err != nil {
		t.Fatalf("update detail: %v", err)
	}
	d := got.StrategyDetails[1]
	if d.ID != target.ID || d.StrikePrice != 250 || d.TradingSymbol != "D1" {
		t.Fatalf("unexpected detail after update: %+v", d)
	}
	if got.StrategyDetails[0].StrikePrice != 100 {
		t.Fatalf("sibling detail modified")
	}

	_, err = svc.UpdateDetail(ctx, owner, st.ID.Hex(), primitive.NewObjectID().Hex(), models.StrategyDetailInput{StrikePrice: &sp})
	wantKind(t, err, KindNotFound)

	bad := models.DetailType("SPOT")
	_, err = svc.UpdateDetail(ctx, owner, st.ID.Hex(), target.ID.Hex(), models.StrategyDetailInput{Type: &bad})
	wantKind(t, err, KindValidation)
}

func TestRemoveDetail(t *testing.T) {
	svc := newStrategyService()
	owner := primitive.NewObjectID()
	ctx := context.Background()

	st := mustCreate(t, svc, owner,
		detailInput(100, "D0", models.DetailCall),
		detailInput(200, "D1", models.DetailPut),
	)
	got, err := svc.RemoveDetail(ctx, owner, st.ID.Hex(), st.StrategyDetails[0].ID.Hex())
	if err != nil {
		t.Fatalf("remove detail: %v", err)
	}
	if len(got.StrategyDetails) != 1 || got.StrategyDetails[0].TradingSymbol != "D1" {
		t.Fatalf("unexpected details: %+v", got.StrategyDetails)
	}

	_, err = svc.RemoveDetail(ctx, owner, st.ID.Hex(), st.StrategyDetails[0].ID.Hex())
	wantKind(t, err, KindNotFound)
}

func TestToggleStatusTwice(t *testing.T) {
	svc := newStrategyService()
	owner := primitive.NewObjectID()
	ctx := context.Background()

	st := mustCreate(t, svc, owner)
	first, err := svc.ToggleStatus(ctx, owner, st.ID.Hex())
	if err != nil || !first.Status {
		t.Fatalf("first toggle: status=%v err=%v", first != nil && first.Status, err)
	}
	second, err := svc.ToggleStatus(ctx, owner, st.ID.Hex())
	if err != nil || second.Status != st.Status {
		t.Fatalf("second toggle did not restore status (err %v)", err)
	}
}

func TestUpdateMergesKnownFields(t *testing.T) {
	svc := newStrategyService()
	owner := primitive.NewObjectID()
	ctx := context.Background()

	st := mustCreate(t, svc, owner, detailInput(100, "D0", models.DetailCall))
	on := true
	got, err := svc.Update(ctx, owner, st.ID.Hex(), models.StrategyUpdate{Status: &on})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.Status || got.StrategyName != "Iron condor" || len(got.StrategyDetails) != 1 {
		t.Fatalf("unexpected merge result: %+v", got)
	}

	replaced := []models.StrategyDetailInput{detailInput(5, "N", models.DetailFutures)}
	got, err = svc.Update(ctx, owner, st.ID.Hex(), models.StrategyUpdate{StrategyDetails: &replaced})
	if err != nil {
		t.Fatalf("replace details: %v", err)
	}
	if len(got.StrategyDetails) != 1 || got.StrategyDetails[0].TradingSymbol != "N" {
		t.Fatalf("details not replaced: %+v", got.StrategyDetails)
	}

	empty := ""
	_, err = svc.Update(ctx, owner, st.ID.Hex(), models.StrategyUpdate{StrategyName: &empty})
	wantKind(t, err, KindValidation)
}

func TestDeleteStrategy(t *testing.T) {
	svc := newStrategyService()
	owner := primitive.NewObjectID()
	ctx := context.Background()

	st := mustCreate(t, svc, owner)
	if err := svc.Delete(ctx, owner, st.ID.Hex()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err := svc.GetByID(ctx, owner, st.ID.Hex())
	wantKind(t, err, KindNotFound)
}
