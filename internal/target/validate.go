package target

import (
	"unicode/utf8"

	"github.com/sells-group/easyrelocate/internal/apperr"
	"github.com/sells-group/easyrelocate/internal/model"
)

const (
	maxNameLen    = 256
	maxAddressLen = 512
)

// ValidateInput enforces that exactly one of a non-blank address or a full
// lat/lng pair is given, along with a name.
func ValidateInput(in model.TargetInput) error {
	if in.Name == nil || *in.Name == "" || utf8.RuneCountInString(*in.Name) > maxNameLen {
		return apperr.Validation("name must be between 1 and 256 characters")
	}
	if in.Address != nil && utf8.RuneCountInString(*in.Address) > maxAddressLen {
		return apperr.Validation("address must be at most 512 characters")
	}

	hasLat, hasLng := in.Lat != nil, in.Lng != nil
	hasAddress := trimmedOrNil(in.Address) != nil
	hasCoords := hasLat && hasLng

	switch {
	case hasLat != hasLng:
		return apperr.Validation("lat and lng must be provided together")
	case hasAddress && hasCoords:
		return apperr.Validation("Provide either address, or both lat and lng (not both)")
	case !hasAddress && !hasCoords:
		return apperr.Validation("Provide either address, or both lat and lng")
	}

	if hasCoords && (*in.Lat < -90 || *in.Lat > 90 || *in.Lng < -180 || *in.Lng > 180) {
		return apperr.Validation("lat must be within [-90, 90] and lng within [-180, 180]")
	}
	return nil
}
