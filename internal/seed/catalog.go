package seed

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"medeasy/pharmacy/internal/catalog"
	"medeasy/pharmacy/internal/store"
)

// LoadCatalog imports the drug catalog at path. Rows that fail to parse are
// logged and skipped; drugs whose barcode is already stocked are ignored.
func LoadCatalog(ctx context.Context, st *store.Store, path string, log *zap.Logger) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read drug catalog %s: %w", path, err)
	}
	res, err := catalog.Parse(data)
	if err != nil {
		return 0, fmt.Errorf("parse drug catalog %s: %w", path, err)
	}
	for _, skipped := range res.Skipped {
		log.Warn("skipping catalog row", zap.String("file", path), zap.Int("row", skipped.Row), zap.String("reason", skipped.Err))
	}
	n, err := st.ImportDrugs(ctx, res.Drugs)
	if err != nil {
		return 0, err
	}
	log.Info("seeded drug catalog", zap.String("file", path), zap.Int("rows", n))
	return n, nil
}
