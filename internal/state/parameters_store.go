// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zivoe/ztm/internal/types"
)

// SaveTrancheParameters saves a new version of the parameter document. The
// document is validated before anything touches the database; at most one
// version per config name is active at a time.
func SaveTrancheParameters(params types.TrancheParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}
	if err := params.Validate(); err != nil {
		return 0, fmt.Errorf("refusing to persist parameters: %w", err)
	}

	document, err := json.Marshal(params)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal parameter document: %w", err)
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE tranche_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO tranche_parameters (version, config_name, is_active, activated_at, created_at, document)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(stmt, version, configName, makeActive, currentTime, currentTime, document).Scan(&paramsID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert tranche parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved tranche parameters")
	return paramsID, nil
}

// LoadActiveTrancheParameters loads the currently active parameter document
// and its row ID for snapshot linkage.
func LoadActiveTrancheParameters(configName string) (types.TrancheParameters, int64, error) {
	if DB == nil {
		return types.TrancheParameters{}, 0, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT params_id, document
        FROM tranche_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	var paramsID int64
	var document []byte
	err := DB.QueryRow(query, configName).Scan(&paramsID, &document)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.TrancheParameters{}, 0, fmt.Errorf("no active tranche parameters found for config '%s'", configName)
		}
		return types.TrancheParameters{}, 0, fmt.Errorf("failed to scan active tranche parameters for config '%s': %w", configName, err)
	}

	var params types.TrancheParameters
	if err := json.Unmarshal(document, &params); err != nil {
		return types.TrancheParameters{}, 0, fmt.Errorf("failed to unmarshal parameter document %d: %w", paramsID, err)
	}
	if err := params.Validate(); err != nil {
		return types.TrancheParameters{}, 0, fmt.Errorf("stored parameter document %d is invalid: %w", paramsID, err)
	}

	log.Info().Str("config", configName).Int64("params_id", paramsID).Msg("Loaded active tranche parameters")
	return params, paramsID, nil
}

// EnsureDefaultParameters makes sure an active parameter document exists for
// the config, seeding the provided defaults as the next version when none is
// active. Returns the active document and its row ID either way.
func EnsureDefaultParameters(configName string, defaults types.TrancheParameters) (types.TrancheParameters, int64, error) {
	params, paramsID, err := LoadActiveTrancheParameters(configName)
	if err == nil {
		return params, paramsID, nil
	}

	var nextVersion int
	if err := DB.QueryRow(
		`SELECT COALESCE(MAX(version), 0) + 1 FROM tranche_parameters WHERE config_name = $1;`,
		configName,
	).Scan(&nextVersion); err != nil {
		return types.TrancheParameters{}, 0, fmt.Errorf("failed to determine next parameter version: %w", err)
	}

	paramsID, err = SaveTrancheParameters(defaults, configName, nextVersion, true)
	if err != nil {
		return types.TrancheParameters{}, 0, err
	}

	log.Warn().
		Str("config", configName).
		Int("version", nextVersion).
		Int64("params_id", paramsID).
		Msg("No active tranche parameters found; seeded defaults")
	return defaults, paramsID, nil
}
