// Package seed fills an empty database with demo accounts, suppliers and
// stock, and loads drug catalogs from disk.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"medeasy/pharmacy/domain"
	"medeasy/pharmacy/internal/store"
)

type demoUser struct {
	username, password, name, initials string
	role                               domain.Role
}

var demoUsers = []demoUser{
	{"admin", "admin123", "Dr. John Admin", "JA", domain.RoleAdmin},
	{"pharmacist", "pharm123", "Sarah PharmD", "SP", domain.RolePharmacist},
	{"staff", "staff123", "Mike Clinical", "MC", domain.RoleStaff},
}

func ptr(s string) *string { return &s }

var demoSuppliers = []domain.Supplier{
	{Name: "PharmaCorp International", ContactPerson: ptr("Jennifer Wilson"), Email: ptr("orders@pharmacorp.com"), Phone: ptr("+1-555-0123"), Address: ptr("123 Medical Plaza, Healthcare City, HC 12345")},
	{Name: "MediSupply Solutions", ContactPerson: ptr("Robert Chen"), Email: ptr("sales@medisupply.com"), Phone: ptr("+1-555-0124"), Address: ptr("456 Pharmacy Ave, Drug District, DD 67890")},
	{Name: "HealthDistributors Ltd", ContactPerson: ptr("Maria Rodriguez"), Email: ptr("procurement@healthdist.com"), Phone: ptr("+1-555-0125"), Address: ptr("789 Supply Chain Blvd, Medicine Town, MT 11111")},
}

type demoDrug struct {
	name, generic, dosage, form, manufacturer, batch string
	months                                           int // expiry relative to seeding time
	quantity, minimum                                int64
	unitPrice, sellingPrice                          string
	category, description, barcode                   string
}

// quantities span every stock status
var demoDrugs = []demoDrug{
	{"Paracetamol", "Acetaminophen", "500mg", "Tablet", "PharmaCorp International", "PC2024001", 18, 500, 100, "0.25", "0.50", "Pain Relief", "Over-the-counter pain reliever and fever reducer", "1234567890123"},
	{"Amoxicillin", "Amoxicillin", "250mg", "Capsule", "MediSupply Solutions", "MS2024002", 9, 200, 50, "1.50", "3.00", "Antibiotic", "Penicillin-type antibiotic for bacterial infections", "1234567890124"},
	{"Ibuprofen", "Ibuprofen", "400mg", "Tablet", "HealthDistributors Ltd", "HD2024003", 14, 300, 75, "0.30", "0.75", "Pain Relief", "Nonsteroidal anti-inflammatory drug (NSAID)", "1234567890125"},
	{"Aspirin", "Acetylsalicylic Acid", "75mg", "Tablet", "PharmaCorp International", "PC2024004", 11, 15, 50, "0.15", "0.35", "Pain Relief", "Low-dose aspirin for heart health and pain relief", "1234567890126"},
	{"Insulin", "Human Insulin", "100IU/ml", "Injection", "MediSupply Solutions", "MS2024005", -1, 8, 25, "25.00", "50.00", "Diabetes", "Rapid-acting insulin for diabetes management", "1234567890127"},
	{"Ventolin Inhaler", "Salbutamol", "100mcg", "Inhaler", "HealthDistributors Ltd", "HD2024006", 7, 0, 30, "15.00", "30.00", "Respiratory", "Bronchodilator for asthma and COPD", "1234567890128"},
}

// Demo seeds demo data once. It does nothing when the admin account exists.
func Demo(ctx context.Context, st *store.Store, now time.Time, log *zap.Logger) error {
	_, err := st.UserByUsername(ctx, demoUsers[0].username)
	if err == nil {
		log.Info("demo data already present")
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	for _, du := range demoUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(du.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", du.username, err)
		}
		u := &domain.User{Username: du.username, Password: string(hash), Name: du.name, Role: du.role, Initials: du.initials}
		if err := st.CreateUser(ctx, u); err != nil {
			return err
		}
	}
	for _, sup := range demoSuppliers {
		if err := st.CreateSupplier(ctx, &sup); err != nil {
			return err
		}
	}

	drugs := make([]domain.Drug, len(demoDrugs))
	for i, dd := range demoDrugs {
		drugs[i] = domain.Drug{
			Name:         dd.name,
			GenericName:  ptr(dd.generic),
			Dosage:       dd.dosage,
			Form:         dd.form,
			Manufacturer: dd.manufacturer,
			BatchNumber:  dd.batch,
			ExpiryDate:   now.AddDate(0, dd.months, 0),
			Quantity:     dd.quantity,
			MinimumStock: dd.minimum,
			UnitPrice:    decimal.RequireFromString(dd.unitPrice),
			SellingPrice: decimal.RequireFromString(dd.sellingPrice),
			Category:     dd.category,
			Description:  ptr(dd.description),
			Barcode:      ptr(dd.barcode),
		}
	}
	n, err := st.ImportDrugs(ctx, drugs)
	if err != nil {
		return err
	}
	log.Info("seeded demo data",
		zap.Int("users", len(demoUsers)),
		zap.Int("suppliers", len(demoSuppliers)),
		zap.Int("drugs", n))
	return nil
}
