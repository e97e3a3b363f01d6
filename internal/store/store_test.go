package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"medeasy/pharmacy/domain"
	"medeasy/pharmacy/internal/database"
	"medeasy/pharmacy/internal/migrations"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	// unique in-memory DB per test so shared cache does not leak rows
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db).WithClock(func() time.Time { return testNow })
}

func seedUser(t *testing.T, s *Store, username string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Password: "hash", Name: "Test " + username, Role: role}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func seedDrug(t *testing.T, s *Store, name string, qty int64, price string, expiry time.Time) *domain.Drug {
	t.Helper()
	d := &domain.Drug{
		Name:         name,
		Dosage:       "500mg",
		Form:         "Tablet",
		Manufacturer: "Acme Pharma",
		BatchNumber:  "B-" + name,
		ExpiryDate:   expiry,
		Quantity:     qty,
		UnitPrice:    decimal.RequireFromString(price).Div(decimal.NewFromInt(2)).Round(2),
		SellingPrice: decimal.RequireFromString(price),
		MinimumStock: domain.DefaultMinimumStock,
		Category:     "Analgesic",
	}
	if err := s.CreateDrug(context.Background(), d); err != nil {
		t.Fatalf("create drug: %v", err)
	}
	return d
}

func seedSupplier(t *testing.T, s *Store) *domain.Supplier {
	t.Helper()
	sup := &domain.Supplier{Name: "MedSupply Co."}
	if err := s.CreateSupplier(context.Background(), sup); err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	return sup
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "alice", domain.RolePharmacist)
	if u.Initials != "TA" {
		t.Fatalf("initials = %q, want TA", u.Initials)
	}
	err := s.CreateUser(context.Background(), &domain.User{Username: "alice", Password: "x", Name: "Other", Role: domain.RoleStaff})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUserByUsernameMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.UserByUsername(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDrugRoundTripKeepsDecimalAndTime(t *testing.T) {
	s := newTestStore(t)
	expiry := testNow.AddDate(1, 0, 0)
	d := seedDrug(t, s, "Paracetamol", 100, "5.99", expiry)

	got, err := s.GetDrug(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("get drug: %v", err)
	}
	if !got.SellingPrice.Equal(decimal.RequireFromString("5.99")) {
		t.Fatalf("selling price = %s", got.SellingPrice)
	}
	if !got.ExpiryDate.Equal(expiry) {
		t.Fatalf("expiry = %v, want %v", got.ExpiryDate, expiry)
	}
	if got.Status(testNow) != domain.StatusInStock {
		t.Fatalf("status = %s", got.Status(testNow))
	}
}

func TestListDrugsSearch(t *testing.T) {
	s := newTestStore(t)
	expiry := testNow.AddDate(1, 0, 0)
	seedDrug(t, s, "Paracetamol", 100, "5.99", expiry)
	ibu := &domain.Drug{Name: "Brufen", Dosage: "200mg", Form: "Tablet", Manufacturer: "Abbott", BatchNumber: "X1",
		ExpiryDate: expiry, Quantity: 5, SellingPrice: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(1),
		MinimumStock: 10, Category: "NSAID"}
	generic := "Ibuprofen"
	ibu.GenericName = &generic
	if err := s.CreateDrug(context.Background(), ibu); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := s.ListDrugs(context.Background(), "")
	if err != nil || len(all) != 2 {
		t.Fatalf("list all: %d drugs, err %v", len(all), err)
	}
	found, err := s.ListDrugs(context.Background(), "IBU")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Brufen" {
		t.Fatalf("search by generic name returned %+v", found)
	}
}

func TestUpdateDrugPartial(t *testing.T) {
	s := newTestStore(t)
	d := seedDrug(t, s, "Amoxicillin", 40, "8.50", testNow.AddDate(0, 6, 0))

	qty := int64(5)
	got, err := s.UpdateDrug(context.Background(), d.ID, domain.DrugUpdate{Quantity: &qty})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Quantity != 5 || got.Name != "Amoxicillin" {
		t.Fatalf("unexpected drug after update: %+v", got)
	}
	if got.Status(testNow) != domain.StatusLowStock {
		t.Fatalf("status = %s, want low-stock", got.Status(testNow))
	}

	neg := int64(-1)
	if _, err := s.UpdateDrug(context.Background(), d.ID, domain.DrugUpdate{Quantity: &neg}); err == nil {
		t.Fatalf("expected validation error for negative quantity")
	}
	if _, err := s.UpdateDrug(context.Background(), 999, domain.DrugUpdate{Quantity: &qty}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteDrugReferencedBySale(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "cashier", domain.RoleStaff)
	d := seedDrug(t, s, "Cetirizine", 20, "2.00", testNow.AddDate(1, 0, 0))
	spare := seedDrug(t, s, "Loratadine", 20, "2.00", testNow.AddDate(1, 0, 0))

	_, err := s.CreateSale(context.Background(), domain.NewSale{
		UserID: u.ID, PaymentMethod: domain.PaymentCash,
		Items: []domain.NewLine{{DrugID: d.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if err := s.DeleteDrug(context.Background(), d.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := s.DeleteDrug(context.Background(), spare.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteDrug(context.Background(), spare.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestCreateSaleDecrementsStockAndTotals(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "cashier", domain.RoleStaff)
	a := seedDrug(t, s, "Paracetamol", 100, "5.99", testNow.AddDate(1, 0, 0))
	b := seedDrug(t, s, "Vitamin C", 30, "12.25", testNow.AddDate(1, 0, 0))

	sale, err := s.CreateSale(context.Background(), domain.NewSale{
		UserID:        u.ID,
		PaymentMethod: domain.PaymentCard,
		Items: []domain.NewLine{
			{DrugID: a.ID, Quantity: 3},
			{DrugID: b.ID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	// 3 x 5.99 + 2 x 12.25
	if want := decimal.RequireFromString("42.47"); !sale.TotalAmount.Equal(want) {
		t.Fatalf("total = %s, want %s", sale.TotalAmount, want)
	}
	if len(sale.Items) != 2 || sale.Items[0].SaleID != sale.ID {
		t.Fatalf("items not linked: %+v", sale.Items)
	}

	got, _ := s.GetDrug(context.Background(), a.ID)
	if got.Quantity != 97 {
		t.Fatalf("quantity = %d, want 97", got.Quantity)
	}

	loaded, err := s.GetSale(context.Background(), sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if len(loaded.Items) != 2 || !loaded.TotalAmount.Equal(sale.TotalAmount) {
		t.Fatalf("loaded sale mismatch: %+v", loaded)
	}
}

func TestCreateSaleInsufficientStockRollsBack(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "cashier", domain.RoleStaff)
	a := seedDrug(t, s, "Paracetamol", 10, "1.00", testNow.AddDate(1, 0, 0))
	b := seedDrug(t, s, "Ibuprofen", 1, "1.00", testNow.AddDate(1, 0, 0))

	_, err := s.CreateSale(context.Background(), domain.NewSale{
		UserID: u.ID, PaymentMethod: domain.PaymentCash,
		Items: []domain.NewLine{{DrugID: a.ID, Quantity: 4}, {DrugID: b.ID, Quantity: 2}},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	got, _ := s.GetDrug(context.Background(), a.ID)
	if got.Quantity != 10 {
		t.Fatalf("first line not rolled back: quantity = %d", got.Quantity)
	}
	sales, _ := s.ListSales(context.Background())
	if len(sales) != 0 {
		t.Fatalf("sale persisted after failure: %+v", sales)
	}
}

func TestCreateSaleRejectsExpiredDrug(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "cashier", domain.RoleStaff)
	d := seedDrug(t, s, "Old Syrup", 50, "4.00", testNow.AddDate(0, 0, -1))

	_, err := s.CreateSale(context.Background(), domain.NewSale{
		UserID: u.ID, PaymentMethod: domain.PaymentCash,
		Items: []domain.NewLine{{DrugID: d.ID, Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for expired drug, got %v", err)
	}
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "cashier", domain.RoleStaff)
	d := seedDrug(t, s, "Insulin", 5, "30.00", testNow.AddDate(1, 0, 0))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		sold    int
		refused int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateSale(context.Background(), domain.NewSale{
				UserID: u.ID, PaymentMethod: domain.PaymentCash,
				Items: []domain.NewLine{{DrugID: d.ID, Quantity: 1}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sold++
			case errors.Is(err, domain.ErrInsufficientStock):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if sold != 5 || refused != 3 {
		t.Fatalf("sold %d refused %d, want 5 and 3", sold, refused)
	}
	got, _ := s.GetDrug(context.Background(), d.ID)
	if got.Quantity != 0 {
		t.Fatalf("quantity = %d, want 0", got.Quantity)
	}
}

func TestSalesBetweenAndSummary(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "cashier", domain.RoleStaff)
	d := seedDrug(t, s, "Paracetamol", 100, "2.50", testNow.AddDate(1, 0, 0))

	for _, day := range []int{-2, 0} {
		clock := testNow.AddDate(0, 0, day)
		_, err := s.WithClock(func() time.Time { return clock }).CreateSale(context.Background(), domain.NewSale{
			UserID: u.ID, PaymentMethod: domain.PaymentCash,
			Items: []domain.NewLine{{DrugID: d.ID, Quantity: 2}},
		})
		if err != nil {
			t.Fatalf("sale: %v", err)
		}
	}

	dayStart := time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 0, 0, 0, 0, time.UTC)
	sales, err := s.SalesBetween(context.Background(), dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("sales between: %v", err)
	}
	if len(sales) != 1 || len(sales[0].Items) != 1 {
		t.Fatalf("expected one sale with items today, got %+v", sales)
	}

	all, err := s.SalesBetween(context.Background(), time.Time{}, time.Time{})
	if err != nil || len(all) != 2 {
		t.Fatalf("open range: %d sales, err %v", len(all), err)
	}
	if !all[0].CreatedAt.After(all[1].CreatedAt) {
		t.Fatalf("sales not newest first")
	}

	count, revenue, err := s.SalesSummary(context.Background(), dayStart.AddDate(0, 0, -7), dayStart.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if count != 2 || !revenue.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("summary = %d, %s", count, revenue)
	}
}

func TestPurchaseWorkflowRestocksOnReceipt(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "admin", domain.RoleAdmin)
	sup := seedSupplier(t, s)
	d := seedDrug(t, s, "Amoxicillin", 4, "8.00", testNow.AddDate(1, 0, 0))

	p, err := s.CreatePurchase(context.Background(), domain.NewPurchase{
		SupplierID: sup.ID, UserID: u.ID,
		Items: []domain.NewLine{{DrugID: d.ID, Quantity: 50, UnitPrice: decimal.RequireFromString("3.20")}},
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	if p.Status != domain.PurchasePending || !p.TotalAmount.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("unexpected purchase %+v", p)
	}

	received := domain.PurchaseReceived
	if _, err := s.UpdatePurchase(context.Background(), p.ID, domain.PurchaseUpdate{Status: &received}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("pending -> received should be rejected, got %v", err)
	}

	approved := domain.PurchaseApproved
	if _, err := s.UpdatePurchase(context.Background(), p.ID, domain.PurchaseUpdate{Status: &approved}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, err := s.UpdatePurchase(context.Background(), p.ID, domain.PurchaseUpdate{Status: &received})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if got.ReceivedDate == nil || !got.ReceivedDate.Equal(testNow) {
		t.Fatalf("received date = %v", got.ReceivedDate)
	}
	drug, _ := s.GetDrug(context.Background(), d.ID)
	if drug.Quantity != 54 {
		t.Fatalf("quantity = %d, want 54", drug.Quantity)
	}

	cancelled := domain.PurchaseCancelled
	if _, err := s.UpdatePurchase(context.Background(), p.ID, domain.PurchaseUpdate{Status: &cancelled}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("received orders are final, got %v", err)
	}
}

func TestCreatePurchaseUnknownSupplier(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "admin", domain.RoleAdmin)
	d := seedDrug(t, s, "Amoxicillin", 4, "8.00", testNow.AddDate(1, 0, 0))
	_, err := s.CreatePurchase(context.Background(), domain.NewPurchase{
		SupplierID: 42, UserID: u.ID,
		Items: []domain.NewLine{{DrugID: d.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRequestsFilterAndUpdate(t *testing.T) {
	s := newTestStore(t)
	staff := seedUser(t, s, "staff", domain.RoleStaff)
	other := seedUser(t, s, "other", domain.RoleStaff)
	ctx := context.Background()

	mine := &domain.Request{UserID: staff.ID, Type: domain.RequestStock, Title: "Need gloves", Description: "Box of 100"}
	if err := s.CreateRequest(ctx, mine); err != nil {
		t.Fatalf("create: %v", err)
	}
	if mine.Priority != domain.PriorityMedium || mine.Status != domain.RequestPending {
		t.Fatalf("defaults not applied: %+v", mine)
	}
	urgent := &domain.Request{UserID: other.ID, Type: domain.RequestOther, Title: "Fridge broken", Description: "-", Priority: domain.PriorityUrgent}
	if err := s.CreateRequest(ctx, urgent); err != nil {
		t.Fatalf("create: %v", err)
	}

	own, _ := s.ListRequests(ctx, domain.RequestFilter{UserID: staff.ID})
	if len(own) != 1 || own[0].ID != mine.ID {
		t.Fatalf("owner filter returned %+v", own)
	}
	byPriority, _ := s.ListRequests(ctx, domain.RequestFilter{Priority: domain.PriorityUrgent, Status: domain.RequestPending})
	if len(byPriority) != 1 || byPriority[0].ID != urgent.ID {
		t.Fatalf("priority filter returned %+v", byPriority)
	}

	denied := errors.New("denied")
	if _, err := s.UpdateRequest(ctx, mine.ID, domain.RequestUpdate{}, func(domain.Request) error { return denied }); !errors.Is(err, denied) {
		t.Fatalf("authorize error not returned: %v", err)
	}

	later := testNow.Add(time.Hour)
	approved := domain.RequestApproved
	got, err := s.WithClock(func() time.Time { return later }).UpdateRequest(ctx, mine.ID, domain.RequestUpdate{Status: &approved}, nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != approved || !got.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected request after update: %+v", got)
	}
	pending := domain.RequestPending
	if _, err := s.UpdateRequest(ctx, mine.ID, domain.RequestUpdate{Status: &pending}, nil); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestDashboardSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "staff", domain.RoleStaff)
	seedDrug(t, s, "Paracetamol", 15, "25.00", testNow.AddDate(1, 0, 0))
	d := seedDrug(t, s, "Ibuprofen", 51, "75.00", testNow.AddDate(1, 0, 0))

	if _, err := s.CreateSale(ctx, domain.NewSale{UserID: u.ID, PaymentMethod: domain.PaymentCash,
		Items: []domain.NewLine{{DrugID: d.ID, Quantity: 1}}}); err != nil {
		t.Fatalf("sale: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.CreateRequest(ctx, &domain.Request{UserID: u.ID, Type: domain.RequestStock, Title: "t", Description: "d"}); err != nil {
			t.Fatalf("request: %v", err)
		}
	}

	snap, err := s.DashboardSnapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Drugs) != 2 || len(snap.SaleTotals) != 1 || len(snap.RequestStatuses) != 2 {
		t.Fatalf("snapshot sizes: %d drugs, %d sales, %d requests", len(snap.Drugs), len(snap.SaleTotals), len(snap.RequestStatuses))
	}
	if !snap.SaleTotals[0].Equal(decimal.NewFromInt(75)) {
		t.Fatalf("sale total = %s", snap.SaleTotals[0])
	}
}

func TestImportDrugsSkipsKnownBarcodes(t *testing.T) {
	s := newTestStore(t)
	code := "8901234567890"
	batch := []domain.Drug{
		{Name: "Napa", Dosage: "500mg", Form: "Tablet", Manufacturer: "Beximco", BatchNumber: "N1", ExpiryDate: testNow.AddDate(1, 0, 0),
			Quantity: 10, UnitPrice: decimal.NewFromInt(1), SellingPrice: decimal.NewFromInt(2), MinimumStock: 10, Category: "Analgesic", Barcode: &code},
		{Name: "Napa Extra", Dosage: "500mg", Form: "Tablet", Manufacturer: "Beximco", BatchNumber: "N2", ExpiryDate: testNow.AddDate(1, 0, 0),
			Quantity: 10, UnitPrice: decimal.NewFromInt(1), SellingPrice: decimal.NewFromInt(2), MinimumStock: 10, Category: "Analgesic", Barcode: &code},
	}
	n, err := s.ImportDrugs(context.Background(), batch)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 1 {
		t.Fatalf("inserted %d, want 1", n)
	}
}

func approvedPurchase(t *testing.T, s *Store, drugID int64, qty int64) *domain.Purchase {
	t.Helper()
	u := seedUser(t, s, "buyer", domain.RoleAdmin)
	sup := seedSupplier(t, s)
	p, err := s.CreatePurchase(context.Background(), domain.NewPurchase{
		SupplierID: sup.ID, UserID: u.ID,
		Items: []domain.NewLine{{DrugID: drugID, Quantity: qty, UnitPrice: decimal.RequireFromString("2.00")}},
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	approved := domain.PurchaseApproved
	p, err = s.UpdatePurchase(context.Background(), p.ID, domain.PurchaseUpdate{Status: &approved})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	return p
}

func TestSavePurchaseRejectsStaleStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := seedDrug(t, s, "Amoxicillin", 4, "8.00", testNow.AddDate(1, 0, 0))
	p := approvedPurchase(t, s, d.ID, 50)

	// stale copy read before another writer received the order
	stale := *p
	received := domain.PurchaseReceived
	if _, err := s.UpdatePurchase(ctx, p.ID, domain.PurchaseUpdate{Status: &received}); err != nil {
		t.Fatalf("receive: %v", err)
	}
	stale.Status = domain.PurchaseCancelled
	if err := savePurchase(ctx, s.db, &stale, domain.PurchaseApproved); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	got, _ := s.GetPurchase(ctx, p.ID)
	if got.Status != domain.PurchaseReceived {
		t.Fatalf("status = %s, want received", got.Status)
	}
}

func TestConcurrentReceiptRestocksOnce(t *testing.T) {
	s := newTestStore(t)
	d := seedDrug(t, s, "Amoxicillin", 4, "8.00", testNow.AddDate(1, 0, 0))
	p := approvedPurchase(t, s, d.ID, 50)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, lost int
	)
	received := domain.PurchaseReceived
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdatePurchase(context.Background(), p.ID, domain.PurchaseUpdate{Status: &received})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInvalidTransition):
				lost++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// received -> received is not a change, so later callers succeed without restocking
	if ok+lost != 6 {
		t.Fatalf("ok %d lost %d", ok, lost)
	}
	got, _ := s.GetDrug(context.Background(), d.ID)
	if got.Quantity != 54 {
		t.Fatalf("quantity = %d, want 54 (restocked once)", got.Quantity)
	}
}

func TestUpdatePurchaseBlankNotesClears(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := seedDrug(t, s, "Amoxicillin", 4, "8.00", testNow.AddDate(1, 0, 0))
	p := approvedPurchase(t, s, d.ID, 5)

	note := "call before delivery"
	if _, err := s.UpdatePurchase(ctx, p.ID, domain.PurchaseUpdate{Notes: &note}); err != nil {
		t.Fatalf("set notes: %v", err)
	}
	blank := "  "
	got, err := s.UpdatePurchase(ctx, p.ID, domain.PurchaseUpdate{Notes: &blank})
	if err != nil {
		t.Fatalf("clear notes: %v", err)
	}
	if got.Notes != nil {
		t.Fatalf("notes = %q, want nil", *got.Notes)
	}
	stored, _ := s.GetPurchase(ctx, p.ID)
	if stored.Notes != nil {
		t.Fatalf("stored notes = %q, want NULL", *stored.Notes)
	}
}

func TestSaveRequestRejectsStaleDecision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	staff := seedUser(t, s, "staff", domain.RoleStaff)
	r := &domain.Request{UserID: staff.ID, Type: domain.RequestStock, Title: "Syringes", Description: "10ml"}
	if err := s.CreateRequest(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	stale := *r
	approved := domain.RequestApproved
	if _, err := s.UpdateRequest(ctx, r.ID, domain.RequestUpdate{Status: &approved}, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	stale.Status = domain.RequestRejected
	if err := saveRequest(ctx, s.db, &stale, domain.RequestPending); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	got, _ := s.GetRequest(ctx, r.ID)
	if got.Status != domain.RequestApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}
}

func TestConcurrentReviewersDecideOnce(t *testing.T) {
	s := newTestStore(t)
	staff := seedUser(t, s, "staff", domain.RoleStaff)
	r := &domain.Request{UserID: staff.ID, Type: domain.RequestReturn, Title: "Damaged box", Description: "Lot 7"}
	if err := s.CreateRequest(context.Background(), r); err != nil {
		t.Fatalf("create: %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		decided []domain.RequestStatus
	)
	for _, next := range []domain.RequestStatus{domain.RequestApproved, domain.RequestRejected} {
		next := next
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateRequest(context.Background(), r.ID, domain.RequestUpdate{Status: &next}, nil)
			if err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				decided = append(decided, next)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(decided) != 1 {
		t.Fatalf("decisions applied = %v, want exactly one", decided)
	}
	got, _ := s.GetRequest(context.Background(), r.ID)
	if got.Status != decided[0] {
		t.Fatalf("stored status %s, winner %s", got.Status, decided[0])
	}
}

func TestSaveDrugKeepsStockMovedAfterRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "cashier", domain.RoleStaff)
	d := seedDrug(t, s, "Cetirizine", 10, "4.00", testNow.AddDate(1, 0, 0))

	stale, err := s.GetDrug(ctx, d.ID)
	if err != nil {
		t.Fatalf("get drug: %v", err)
	}
	if _, err := s.CreateSale(ctx, domain.NewSale{
		UserID: u.ID, PaymentMethod: domain.PaymentCard,
		Items: []domain.NewLine{{DrugID: d.ID, Quantity: 3}},
	}); err != nil {
		t.Fatalf("sale: %v", err)
	}

	stale.SellingPrice = decimal.RequireFromString("6.00")
	if err := saveDrug(ctx, s.db, stale, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if stale.Quantity != 7 {
		t.Fatalf("returned quantity = %d, want 7", stale.Quantity)
	}
	got, _ := s.GetDrug(ctx, d.ID)
	if got.Quantity != 7 || !got.SellingPrice.Equal(decimal.RequireFromString("6.00")) {
		t.Fatalf("stored drug quantity %d price %s", got.Quantity, got.SellingPrice)
	}
}

func TestPriceEditsDoNotUndoConcurrentSales(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "cashier", domain.RoleStaff)
	d := seedDrug(t, s, "Omeprazole", 20, "5.00", testNow.AddDate(1, 0, 0))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := s.CreateSale(context.Background(), domain.NewSale{
				UserID: u.ID, PaymentMethod: domain.PaymentCash,
				Items: []domain.NewLine{{DrugID: d.ID, Quantity: 2}},
			}); err != nil {
				t.Errorf("sale: %v", err)
			}
		}()
		go func(i int) {
			defer wg.Done()
			price := decimal.NewFromInt(int64(5 + i))
			if _, err := s.UpdateDrug(context.Background(), d.ID, domain.DrugUpdate{SellingPrice: &price}); err != nil {
				t.Errorf("update: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := s.GetDrug(context.Background(), d.ID)
	if got.Quantity != 10 {
		t.Fatalf("quantity = %d, want 10", got.Quantity)
	}
}

func TestPricesLimitedToTwoDecimals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := &domain.Drug{
		Name: "Zinc", Dosage: "20mg", Form: "Tablet", Manufacturer: "Acme", BatchNumber: "Z1",
		ExpiryDate: testNow.AddDate(1, 0, 0), Quantity: 5, UnitPrice: decimal.RequireFromString("1.005"),
		SellingPrice: decimal.RequireFromString("2.00"), MinimumStock: 1, Category: "Supplement",
	}
	var verr *domain.ValidationError
	if err := s.CreateDrug(ctx, d); !errors.As(err, &verr) || verr.Fields["unitPrice"] != "decimals=2" {
		t.Fatalf("expected unitPrice decimals error, got %v", err)
	}

	stored := seedDrug(t, s, "Zinc", 5, "2.00", testNow.AddDate(1, 0, 0))
	odd := decimal.RequireFromString("2.999")
	if _, err := s.UpdateDrug(ctx, stored.ID, domain.DrugUpdate{SellingPrice: &odd}); !errors.As(err, &verr) || verr.Fields["sellingPrice"] != "decimals=2" {
		t.Fatalf("expected sellingPrice decimals error, got %v", err)
	}

	u := seedUser(t, s, "buyer", domain.RoleAdmin)
	sup := seedSupplier(t, s)
	_, err := s.CreatePurchase(ctx, domain.NewPurchase{
		SupplierID: sup.ID, UserID: u.ID,
		Items: []domain.NewLine{{DrugID: stored.ID, Quantity: 1, UnitPrice: decimal.RequireFromString("0.125")}},
	})
	if !errors.As(err, &verr) || verr.Fields["items[0].unitPrice"] != "decimals=2" {
		t.Fatalf("expected item price decimals error, got %v", err)
	}

	// trailing zeros are fine
	whole := decimal.RequireFromString("3.500")
	if _, err := s.UpdateDrug(ctx, stored.ID, domain.DrugUpdate{SellingPrice: &whole}); err != nil {
		t.Fatalf("update with trailing zero: %v", err)
	}
}
