package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/purescan/backend/internal/domain"
)

// ScanRepository persists scan records. Records are insert-only: the
// history screen reads them, nothing updates them.
type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Save inserts one completed scan
func (r *ScanRepository) Save(ctx context.Context, rec *domain.ScanRecord) error {
	const q = `
INSERT INTO scans
(id, user_id, created_at, product_name, brand, barcode, product_type, method,
 grade, score, summary, nutri_grade, nova_group, image_url,
 ingredients, harmful_chemicals, macros, allergens, additives, nutrient_levels, categories)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);
`
	res := rec.Result
	ingredients, err := json.Marshal(res.Ingredients)
	if err != nil {
		return fmt.Errorf("marshal ingredients: %w", err)
	}
	harmful, err := json.Marshal(res.HarmfulChemicals)
	if err != nil {
		return fmt.Errorf("marshal harmful chemicals: %w", err)
	}
	macros, err := json.Marshal(res.Macros)
	if err != nil {
		return fmt.Errorf("marshal macros: %w", err)
	}
	allergens, err := json.Marshal(res.Allergens)
	if err != nil {
		return fmt.Errorf("marshal allergens: %w", err)
	}
	additives, err := json.Marshal(res.Additives)
	if err != nil {
		return fmt.Errorf("marshal additives: %w", err)
	}
	levels, err := json.Marshal(res.NutrientLevels)
	if err != nil {
		return fmt.Errorf("marshal nutrient levels: %w", err)
	}

	_, err = r.db.ExecContext(ctx, q,
		rec.ID, rec.UserID, rec.CreatedAt,
		res.ProductName, res.Brand, res.Barcode, res.ProductType, res.Method,
		res.OverallGrade, res.ToxicityScore, res.Summary, res.NutriGrade, res.NovaGroup, res.ImageURL,
		ingredients, harmful, macros, allergens, additives, levels, res.Categories,
	)
	return err
}

// History returns the user's latest scans, newest first
func (r *ScanRepository) History(ctx context.Context, userID string, limit int) ([]*domain.ScanRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, user_id, created_at, product_name, brand, barcode, product_type, method,
       grade, score, summary, nutri_grade, nova_group, image_url,
       ingredients, harmful_chemicals, macros, allergens, additives, nutrient_levels, categories
FROM scans
WHERE user_id = ? ORDER BY created_at DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ScanRecord
	for rows.Next() {
		rec, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRow(rows *sql.Rows) (*domain.ScanRecord, error) {
	var (
		rec       domain.ScanRecord
		res       domain.ScanResult
		brand     sql.NullString
		barcode   sql.NullString
		nutri     sql.NullString
		nova      sql.NullInt64
		imageURL  sql.NullString
		summary   sql.NullString
		cats      sql.NullString
		ingJSON   []byte
		harmJSON  []byte
		macroJSON []byte
		allerJSON []byte
		addJSON   []byte
		lvlJSON   []byte
	)

	if err := rows.Scan(
		&rec.ID, &rec.UserID, &rec.CreatedAt,
		&res.ProductName, &brand, &barcode, &res.ProductType, &res.Method,
		&res.OverallGrade, &res.ToxicityScore, &summary, &nutri, &nova, &imageURL,
		&ingJSON, &harmJSON, &macroJSON, &allerJSON, &addJSON, &lvlJSON, &cats,
	); err != nil {
		return nil, err
	}

	res.Brand = brand.String
	res.Barcode = barcode.String
	res.Summary = summary.String
	res.NutriGrade = nutri.String
	res.NovaGroup = int(nova.Int64)
	res.ImageURL = imageURL.String
	res.Categories = cats.String

	unmarshalJSON(ingJSON, &res.Ingredients)
	unmarshalJSON(harmJSON, &res.HarmfulChemicals)
	unmarshalJSON(macroJSON, &res.Macros)
	unmarshalJSON(allerJSON, &res.Allergens)
	unmarshalJSON(addJSON, &res.Additives)
	unmarshalJSON(lvlJSON, &res.NutrientLevels)

	rec.Result = res
	return &rec, nil
}

// unmarshalJSON tolerates NULL and legacy rows; a bad column degrades to
// the zero value instead of failing the whole history read
func unmarshalJSON(data []byte, v any) {
	if len(data) == 0 {
		return
	}
	_ = json.Unmarshal(data, v)
}
