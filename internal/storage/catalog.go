package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/claude/fitlog/internal/models"
)

// SearchCatalog returns local catalog exercises whose name contains q
// (case-insensitive), ordered by name.
func (db *DB) SearchCatalog(ctx context.Context, q string, limit int) ([]models.Exercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, muscle_group FROM exercises
		 WHERE name ILIKE '%' || $1 || '%' ESCAPE '\'
		 ORDER BY name
		 LIMIT $2`,
		escapeLike(q), limit)
	if err != nil {
		return nil, fmt.Errorf("searching catalog: %w", err)
	}
	defer rows.Close()

	result := []models.Exercise{}
	for rows.Next() {
		var e models.Exercise
		if err := rows.Scan(&e.ID, &e.Name, &e.MuscleGroup); err != nil {
			return nil, fmt.Errorf("scanning catalog exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
