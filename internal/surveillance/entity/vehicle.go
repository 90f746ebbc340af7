package entity

import (
	"regexp"
	"strings"

	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

// Word lists and synonym rules restored verbatim from
// original_source/entity_service.py — the distillation only described the
// normalization behavior ("chevy -> chevrolet" etc.) without the full tables,
// so vehicle extraction needs these to actually match anything.
var vehicleColors = []string{
	"white", "black", "silver", "gray", "grey", "red", "blue",
	"green", "brown", "tan", "beige", "gold", "yellow", "orange",
	"purple", "maroon", "navy", "dark", "light", "bright",
}

var vehicleMakes = []string{
	// American
	"ford", "chevrolet", "chevy", "gmc", "dodge", "ram", "jeep", "chrysler",
	"lincoln", "cadillac", "buick", "tesla", "rivian",
	// Japanese
	"toyota", "honda", "nissan", "mazda", "subaru", "mitsubishi", "lexus",
	"acura", "infiniti", "suzuki",
	// Korean
	"hyundai", "kia", "genesis",
	// German
	"bmw", "mercedes", "mercedes-benz", "audi", "volkswagen", "vw", "porsche",
	// European
	"volvo", "jaguar", "land rover", "range rover", "mini", "fiat", "alfa romeo",
}

var vehicleModels = []string{
	// Toyota
	"camry", "corolla", "rav4", "highlander", "tacoma", "tundra", "prius", "4runner",
	// Honda
	"civic", "accord", "cr-v", "pilot", "odyssey", "fit", "hr-v",
	// Ford
	"f-150", "f150", "f-250", "f250", "mustang", "explorer", "escape", "bronco", "ranger",
	// Chevrolet
	"silverado", "malibu", "equinox", "tahoe", "suburban", "colorado", "camaro", "corvette",
	// Nissan
	"altima", "sentra", "rogue", "pathfinder", "frontier", "maxima", "murano",
	// BMW
	"3 series", "5 series", "x3", "x5", "m3", "m5",
	// Tesla
	"model 3", "model s", "model x", "model y", "cybertruck",
	// Jeep
	"wrangler", "grand cherokee", "cherokee", "compass", "gladiator",
	// Others
	"outback", "forester", "cx-5", "cx-9", "elantra", "sonata", "tucson", "santa fe",
}

var skipWords = map[string]bool{
	// Vehicle types
	"car": true, "truck": true, "van": true, "suv": true, "vehicle": true, "auto": true,
	"sedan": true, "coupe": true, "hatchback": true, "convertible": true, "wagon": true,
	"crossover": true, "pickup": true, "minivan": true,
	// Verbs/actions
	"pulling": true, "parked": true, "driving": true, "arrived": true, "leaving": true,
	"stopped": true, "turning": true, "moving": true, "approaching": true, "backing": true,
	"entering": true, "exiting": true,
	// Common words
	"is": true, "was": true, "has": true, "had": true, "the": true, "at": true, "in": true,
	"on": true, "to": true, "from": true, "just": true, "still": true, "now": true,
	"then": true, "here": true, "there": true, "this": true, "that": true,
	// Adjectives
	"small": true, "large": true, "big": true, "old": true, "new": true, "used": true,
	"nice": true, "beautiful": true,
}

func wordBoundary(s string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(s) + `\b`)
}

// ExtractVehicleEntity pulls color/make/model out of a free-text AI
// description and builds the hyphen-joined signature used for
// signature-first vehicle matching. Returns nil when neither
// (color∧make) nor (make∧model) is satisfied — ported exactly from
// extract_vehicle_entity in original_source/entity_service.py.
func ExtractVehicleEntity(description string) *model.VehicleEntityInfo {
	if description == "" {
		return nil
	}
	lower := strings.ToLower(description)

	var color *string
	for _, c := range vehicleColors {
		if wordBoundary(c).MatchString(lower) {
			v := c
			if v == "grey" {
				v = "gray"
			}
			color = &v
			break
		}
	}

	var make_ *string
	earliestPos := len(lower) + 1
	for _, m := range vehicleMakes {
		loc := wordBoundary(m).FindStringIndex(lower)
		if loc == nil || loc[0] >= earliestPos {
			continue
		}
		earliestPos = loc[0]
		normalized := m
		switch m {
		case "chevy":
			normalized = "chevrolet"
		case "vw":
			normalized = "volkswagen"
		case "mercedes-benz":
			normalized = "mercedes"
		case "range rover":
			normalized = "land rover"
		}
		make_ = &normalized
	}

	var model_ *string
	for _, m := range vehicleModels {
		pattern := strings.ReplaceAll(regexp.QuoteMeta(m), `\-`, `[-\s]?`)
		re := regexp.MustCompile(`\b` + pattern + `\b`)
		if re.MatchString(lower) {
			normalized := strings.ReplaceAll(strings.ReplaceAll(m, "-", ""), " ", "")
			model_ = &normalized
			break
		}
	}

	if model_ == nil && make_ != nil {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(*make_) + `\s+(\w+[-\w]*)\b`)
		if loc := re.FindStringSubmatch(lower); loc != nil {
			candidate := loc[1]
			if !skipWords[candidate] && len(candidate) >= 2 {
				normalized := strings.ReplaceAll(candidate, "-", "")
				model_ = &normalized
			}
		}
	}

	info := &model.VehicleEntityInfo{Color: color, Make: make_, Model: model_}
	if !info.IsValid() {
		return nil
	}

	var parts []string
	if info.Color != nil {
		parts = append(parts, strings.ToLower(*info.Color))
	}
	if info.Make != nil {
		parts = append(parts, strings.ToLower(*info.Make))
	}
	if info.Model != nil {
		parts = append(parts, strings.ToLower(*info.Model))
	}
	sig := strings.Join(parts, "-")
	info.Signature = &sig
	return info
}
