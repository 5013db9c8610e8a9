// Package analytics turns a user's workouts, exercises and sets into derived
// statistics: trailing weekly/monthly rollups, endurance records, strength
// rankings by estimated 1RM and per-exercise progression series.
//
// Everything here is a pure function over an in-memory snapshot. Callers load
// the rows, pass an explicit "now" where time matters and serialize the result.
package analytics

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/claude/fitlog/internal/models"
)

// IdentityKind says which field an exercise identity was derived from.
type IdentityKind int

const (
	ByName IdentityKind = iota
	ByExternalRef
	ByCatalogID
)

// ErrInvalidIdentity is returned by ParseIdentity for malformed keys.
var ErrInvalidIdentity = errors.New("invalid exercise identity key")

// Identity groups workout exercises that are "the same exercise" even when
// they were logged with different sourcing. Identity values are comparable
// and can be used directly as map keys.
type Identity struct {
	Kind       IdentityKind
	CatalogID  int64
	Source     string
	ExternalID string
	Name       string // lowercased
}

// Resolve derives the identity of a workout exercise: the catalog id when
// present, else the external source and id when both are non-empty, else the
// lowercased name.
func Resolve(ex models.WorkoutExercise) Identity {
	if ex.ExerciseID != nil {
		return Identity{Kind: ByCatalogID, CatalogID: *ex.ExerciseID}
	}
	if ex.ExternalSource != nil && ex.ExternalID != nil && *ex.ExternalSource != "" && *ex.ExternalID != "" {
		return Identity{Kind: ByExternalRef, Source: *ex.ExternalSource, ExternalID: *ex.ExternalID}
	}
	return Identity{Kind: ByName, Name: strings.ToLower(ex.Name)}
}

// sourceEscaper percent-encodes the separator so external keys split
// unambiguously at the first colon.
var sourceEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// Key renders the identity as "local:<id>", "external:<source>:<id>" or "name:<name>".
// The source has '%' and ':' percent-encoded; the external id is kept verbatim.
func (id Identity) Key() string {
	switch id.Kind {
	case ByCatalogID:
		return "local:" + strconv.FormatInt(id.CatalogID, 10)
	case ByExternalRef:
		return "external:" + sourceEscaper.Replace(id.Source) + ":" + id.ExternalID
	default:
		return "name:" + id.Name
	}
}

func (id Identity) String() string { return id.Key() }

// ParseIdentity is the inverse of Key.
func ParseIdentity(key string) (Identity, error) {
	switch {
	case strings.HasPrefix(key, "local:"):
		n, err := strconv.ParseInt(strings.TrimPrefix(key, "local:"), 10, 64)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, key)
		}
		return Identity{Kind: ByCatalogID, CatalogID: n}, nil
	case strings.HasPrefix(key, "external:"):
		escaped, extID, ok := strings.Cut(strings.TrimPrefix(key, "external:"), ":")
		if !ok || escaped == "" || extID == "" {
			return Identity{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, key)
		}
		source, err := url.PathUnescape(escaped)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, key)
		}
		return Identity{Kind: ByExternalRef, Source: source, ExternalID: extID}, nil
	case strings.HasPrefix(key, "name:"):
		return Identity{Kind: ByName, Name: strings.ToLower(strings.TrimPrefix(key, "name:"))}, nil
	}
	return Identity{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, key)
}
