package scoring

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	apperrors "place-discovery/internal/common/errors"
	"place-discovery/internal/common/validation"
	"place-discovery/internal/places"
)

//go:embed weights.schema.json
var weightsSchemaJSON []byte

var weightsSchema = validation.MustCompile(weightsSchemaJSON)

// WeightsFile is the on-disk layout of configs/weights.json.
type WeightsFile struct {
	Version    string        `json:"version"`
	Hotel      WeightsConfig `json:"hotel"`
	Restaurant WeightsConfig `json:"restaurant"`
}

// LoadFile reads, validates and compiles a weights file.
func LoadFile(path string) (WeightSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return WeightSet{}, apperrors.NewWeightsInvalidError("", fmt.Errorf("read %s: %w", path, err))
	}
	return Parse(data)
}

// Parse validates data against the weights schema and compiles it. Every failure is
// a WEIGHTS_INVALID error; weights are never partially applied.
func Parse(data []byte) (WeightSet, error) {
	result, err := weightsSchema.ValidateBytes(data)
	if err != nil {
		return WeightSet{}, apperrors.NewWeightsInvalidError("", err)
	}
	if err := result.Err(); err != nil {
		return WeightSet{}, apperrors.NewWeightsInvalidError("", err)
	}

	var file WeightsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return WeightSet{}, apperrors.NewWeightsInvalidError("", err)
	}
	for _, cfg := range []*WeightsConfig{&file.Hotel, &file.Restaurant} {
		if cfg.Version == "" {
			cfg.Version = file.Version
		}
	}

	set, err := CompileSet(file.Hotel, file.Restaurant)
	if err != nil {
		return WeightSet{}, apperrors.NewWeightsInvalidError("", err)
	}
	return set, nil
}

// Querier is the part of *sql.DB the weight loader needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

const selectWeightsSQL = `SELECT category, config FROM scoring_weights WHERE version = $1`

// LoadFromDB reads one versioned weight record per category from the scoring_weights
// table and validates them the same way as the file form.
func LoadFromDB(ctx context.Context, db Querier, version string) (WeightSet, error) {
	rows, err := db.QueryContext(ctx, selectWeightsSQL, version)
	if err != nil {
		return WeightSet{}, apperrors.NewWeightsInvalidError("", fmt.Errorf("query scoring_weights: %w", err))
	}
	defer rows.Close()

	doc := map[string]interface{}{"version": version}
	for rows.Next() {
		var (
			category string
			raw      []byte
		)
		if err := rows.Scan(&category, &raw); err != nil {
			return WeightSet{}, apperrors.NewWeightsInvalidError("", fmt.Errorf("scan scoring_weights: %w", err))
		}
		cat, err := places.ParseCategory(category)
		if err != nil {
			return WeightSet{}, apperrors.NewWeightsInvalidError("", err)
		}
		if _, dup := doc[string(cat)]; dup {
			return WeightSet{}, apperrors.NewWeightsInvalidError(
				fmt.Sprintf("version %s has more than one %s record", version, cat), nil)
		}
		doc[string(cat)] = json.RawMessage(raw)
	}
	if err := rows.Err(); err != nil {
		return WeightSet{}, apperrors.NewWeightsInvalidError("", fmt.Errorf("iterate scoring_weights: %w", err))
	}
	if len(doc) == 1 {
		return WeightSet{}, apperrors.NewWeightsInvalidError(
			fmt.Sprintf("no scoring_weights rows for version %q", version), nil)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return WeightSet{}, apperrors.NewWeightsInvalidError("", err)
	}
	return Parse(data)
}
