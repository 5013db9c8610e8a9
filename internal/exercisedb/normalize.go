package exercisedb

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/claude/fitlog/internal/models"
)

// decodeItems accepts a bare JSON array or an object wrapping it in "data".
func decodeItems(body []byte) ([]map[string]any, error) {
	var items []map[string]any
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}
	var wrapped struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding exercises: %w", err)
	}
	return wrapped.Data, nil
}

// normalizeMany maps raw items to lookups, drops nameless ones and truncates to limit.
func normalizeMany(items []map[string]any, limit int) []models.ExerciseLookup {
	out := []models.ExerciseLookup{}
	for _, raw := range items {
		ex := normalize(raw)
		if ex.Name == "" {
			continue
		}
		out = append(out, ex)
		if len(out) == limit {
			break
		}
	}
	return out
}

func normalize(raw map[string]any) models.ExerciseLookup {
	id := firstString(raw, "exerciseId", "id", "_id")
	name := firstString(raw, "name", "title")
	if name == "" && id != "" {
		name = "Exercise #" + id
	}

	bodyParts := stringList(raw, "bodyParts", "bodyPart")
	equipments := stringList(raw, "equipments", "equipment")

	source := Source
	ex := models.ExerciseLookup{
		Source:         source,
		ID:             id,
		Name:           name,
		ExternalSource: &source,
		ExternalID:     &id,
		BodyParts:      bodyParts,
		Equipments:     equipments,
		ImageURL:       optional(firstString(raw, "imageUrl", "gifUrl")),
		VideoURL:       optional(firstString(raw, "videoUrl")),
	}
	if len(bodyParts) > 0 {
		ex.MuscleGroup = &bodyParts[0]
	}
	return ex
}

// firstString returns the first key present with a non-null scalar value.
func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

// stringList reads a list under listKey, or a single string under scalarKey.
func stringList(raw map[string]any, listKey, scalarKey string) []string {
	out := []string{}
	if list, ok := raw[listKey].([]any); ok {
		for _, item := range list {
			if s := fmt.Sprint(item); item != nil && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := raw[scalarKey].(string); ok && s != "" {
		out = append(out, s)
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
