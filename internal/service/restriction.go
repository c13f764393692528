package service

import (
	"fmt"
	"slices"
	"strings"

	"github.com/signinable/signind/internal/models"
)

// RestrictionField names a fingerprint field that must stay unchanged between
// issuance and later use of a signin. The set is closed: only ip and
// user_agent are restrictable, never referer or anything dynamic.
type RestrictionField string

const (
	FieldIP        RestrictionField = "ip"
	FieldUserAgent RestrictionField = "user_agent"
)

var allowedRestrictions = []RestrictionField{FieldIP, FieldUserAgent}

// RestrictionsFunc computes the restricted fields for an owner. A nil func
// means unrestricted: sessions may roam across IP and device.
type RestrictionsFunc[O any] func(owner O) []RestrictionField

// StaticRestrictions adapts a fixed field set to a RestrictionsFunc.
func StaticRestrictions[O any](fields ...RestrictionField) RestrictionsFunc[O] {
	return func(O) []RestrictionField { return fields }
}

// ParseRestrictionFields parses a comma-separated field list, e.g. from an
// environment variable. Unknown names are rejected rather than ignored.
func ParseRestrictionFields(s string) ([]RestrictionField, error) {
	var fields []RestrictionField
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field := RestrictionField(part)
		if !slices.Contains(allowedRestrictions, field) {
			return nil, fmt.Errorf("unknown restriction field %q", part)
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// RestrictionPolicy decides whether a request fingerprint is allowed to act
// on a signin.
type RestrictionPolicy[O any] struct {
	restrictions RestrictionsFunc[O]
}

func NewRestrictionPolicy[O any](restrictions RestrictionsFunc[O]) *RestrictionPolicy[O] {
	return &RestrictionPolicy[O]{restrictions: restrictions}
}

// RestrictedFields resolves the owner's restricted set, intersected with the
// allowed fields.
func (p *RestrictionPolicy[O]) RestrictedFields(owner O) []RestrictionField {
	if p.restrictions == nil {
		return nil
	}
	var fields []RestrictionField
	for _, f := range p.restrictions(owner) {
		if slices.Contains(allowedRestrictions, f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// IsPermitted reports whether every restricted, non-skipped field of the
// request fingerprint matches what the signin recorded.
func (p *RestrictionPolicy[O]) IsPermitted(owner O, signin *models.Signin, fp models.Fingerprint, skip []RestrictionField) bool {
	for _, field := range p.RestrictedFields(owner) {
		if slices.Contains(skip, field) {
			continue
		}
		switch field {
		case FieldIP:
			if signin.IP != fp.IP {
				return false
			}
		case FieldUserAgent:
			if signin.UserAgent != fp.UserAgent {
				return false
			}
		}
	}
	return true
}
