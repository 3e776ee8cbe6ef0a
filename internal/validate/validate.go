package validate

import (
	"fmt"
	"strings"

	"github.com/locustgrub/locustgrub/server/internal/model"
)

// CheckinInput validates the required fields of a submission. Each failure
// wraps model.ErrValidation and names the offending field.
func CheckinInput(in model.CheckinInput) error {
	if strings.TrimSpace(in.VendorID) == "" {
		return fmt.Errorf("%w: vendorId is required", model.ErrValidation)
	}
	if !model.Presence(in.Presence).Valid() {
		return fmt.Errorf("%w: presence must be present|absent", model.ErrValidation)
	}
	if !model.LineLength(in.LineLength).Valid() {
		return fmt.Errorf("%w: lineLength must be none|short|medium|long", model.ErrValidation)
	}
	return nil
}
