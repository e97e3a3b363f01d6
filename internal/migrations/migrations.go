package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Run creates the database schema for the connected dialect. Statements are
// idempotent so Run is safe on every start.
func Run(db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == "pgx" {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            name TEXT NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('admin', 'pharmacist', 'staff')),
            initials TEXT NOT NULL,
            created_at TIMESTAMP NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS drugs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            generic_name TEXT,
            dosage TEXT NOT NULL,
            form TEXT NOT NULL,
            manufacturer TEXT NOT NULL,
            batch_number TEXT NOT NULL,
            expiry_date TIMESTAMP NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity >= 0),
            unit_price TEXT NOT NULL,
            selling_price TEXT NOT NULL,
            minimum_stock INTEGER NOT NULL DEFAULT 10 CHECK (minimum_stock >= 0),
            category TEXT NOT NULL,
            description TEXT,
            barcode TEXT UNIQUE,
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS suppliers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            contact_person TEXT,
            email TEXT,
            phone TEXT,
            address TEXT,
            created_at TIMESTAMP NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS sales (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            total_amount TEXT NOT NULL,
            payment_method TEXT NOT NULL CHECK (payment_method IN ('cash', 'card', 'insurance')),
            customer_name TEXT,
            customer_phone TEXT,
            notes TEXT,
            created_at TIMESTAMP NOT NULL,
            FOREIGN KEY(user_id) REFERENCES users(id)
        );`,
	`CREATE TABLE IF NOT EXISTS sale_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            sale_id INTEGER NOT NULL,
            drug_id INTEGER NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            unit_price TEXT NOT NULL,
            total_price TEXT NOT NULL,
            FOREIGN KEY(sale_id) REFERENCES sales(id),
            FOREIGN KEY(drug_id) REFERENCES drugs(id)
        );`,
	`CREATE TABLE IF NOT EXISTS purchases (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            supplier_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            total_amount TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'received', 'cancelled')),
            order_date TIMESTAMP NOT NULL,
            received_date TIMESTAMP,
            notes TEXT,
            FOREIGN KEY(supplier_id) REFERENCES suppliers(id),
            FOREIGN KEY(user_id) REFERENCES users(id)
        );`,
	`CREATE TABLE IF NOT EXISTS purchase_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            purchase_id INTEGER NOT NULL,
            drug_id INTEGER NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            unit_price TEXT NOT NULL,
            total_price TEXT NOT NULL,
            FOREIGN KEY(purchase_id) REFERENCES purchases(id),
            FOREIGN KEY(drug_id) REFERENCES drugs(id)
        );`,
	`CREATE TABLE IF NOT EXISTS requests (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            type TEXT NOT NULL CHECK (type IN ('stock', 'prescription', 'return', 'other')),
            title TEXT NOT NULL,
            description TEXT NOT NULL,
            priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected', 'completed')),
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL,
            FOREIGN KEY(user_id) REFERENCES users(id)
        );`,
	`CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items(sale_id);`,
	`CREATE INDEX IF NOT EXISTS idx_purchase_items_purchase ON purchase_items(purchase_id);`,
	`CREATE INDEX IF NOT EXISTS idx_requests_user ON requests(user_id);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('admin', 'pharmacist', 'staff')),
			initials TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	`CREATE TABLE IF NOT EXISTS drugs (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            generic_name TEXT,
            dosage TEXT NOT NULL,
            form TEXT NOT NULL,
            manufacturer TEXT NOT NULL,
            batch_number TEXT NOT NULL,
            expiry_date TIMESTAMPTZ NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity >= 0),
            unit_price NUMERIC(10, 2) NOT NULL,
            selling_price NUMERIC(10, 2) NOT NULL,
            minimum_stock INTEGER NOT NULL DEFAULT 10 CHECK (minimum_stock >= 0),
            category TEXT NOT NULL,
            description TEXT,
            barcode TEXT UNIQUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS suppliers (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            contact_person TEXT,
            email TEXT,
            phone TEXT,
            address TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS sales (
            id SERIAL PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id),
            total_amount NUMERIC(12, 2) NOT NULL,
            payment_method TEXT NOT NULL CHECK (payment_method IN ('cash', 'card', 'insurance')),
            customer_name TEXT,
            customer_phone TEXT,
            notes TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS sale_items (
            id SERIAL PRIMARY KEY,
            sale_id INTEGER NOT NULL REFERENCES sales(id),
            drug_id INTEGER NOT NULL REFERENCES drugs(id),
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            unit_price NUMERIC(10, 2) NOT NULL,
            total_price NUMERIC(12, 2) NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS purchases (
            id SERIAL PRIMARY KEY,
            supplier_id INTEGER NOT NULL REFERENCES suppliers(id),
            user_id INTEGER NOT NULL REFERENCES users(id),
            total_amount NUMERIC(12, 2) NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'received', 'cancelled')),
            order_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            received_date TIMESTAMPTZ,
            notes TEXT
        );`,
	`CREATE TABLE IF NOT EXISTS purchase_items (
            id SERIAL PRIMARY KEY,
            purchase_id INTEGER NOT NULL REFERENCES purchases(id),
            drug_id INTEGER NOT NULL REFERENCES drugs(id),
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            unit_price NUMERIC(10, 2) NOT NULL,
            total_price NUMERIC(12, 2) NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS requests (
            id SERIAL PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id),
            type TEXT NOT NULL CHECK (type IN ('stock', 'prescription', 'return', 'other')),
            title TEXT NOT NULL,
            description TEXT NOT NULL,
            priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected', 'completed')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items(sale_id);`,
	`CREATE INDEX IF NOT EXISTS idx_purchase_items_purchase ON purchase_items(purchase_id);`,
	`CREATE INDEX IF NOT EXISTS idx_requests_user ON requests(user_id);`,
}
