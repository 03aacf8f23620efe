package persistence

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertChunkSize keeps a single INSERT under the bind parameter limits of
// both postgres and sqlite.
const upsertChunkSize = 500

// upsertMany inserts records and, for rows whose key already exists, overwrites
// columns in place. records must be a slice of model pointers without duplicate keys.
func upsertMany(tx *gorm.DB, records any, key string, columns []string) error {
	return upsertWith(tx, records, key, clause.AssignmentColumns(columns))
}

// upsertWith is upsertMany with explicit assignments, which may reference
// both the stored row and the excluded one.
func upsertWith(tx *gorm.DB, records any, key string, set clause.Set) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: key}},
		DoUpdates: set,
	}).CreateInBatches(records, upsertChunkSize).Error
}

// floorExpr rounds a non-negative numeric expression down. sqlite builds
// without math functions lack FLOOR, and an integer cast truncates there.
func floorExpr(tx *gorm.DB, expr string) string {
	if tx.Dialector.Name() == "sqlite" {
		return "CAST(" + expr + " AS INTEGER)"
	}
	return "FLOOR(" + expr + ")"
}

// existingKeys returns the subset of keys present in column of model's table
func existingKeys(tx *gorm.DB, model any, column string, keys []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(keys))
	if len(keys) == 0 {
		return found, nil
	}
	var rows []string
	if err := tx.Model(model).Where(column+" IN ?", keys).Pluck(column, &rows).Error; err != nil {
		return nil, err
	}
	for _, k := range rows {
		found[k] = struct{}{}
	}
	return found, nil
}
