package applications

import (
	"fmt"

	"github.com/bigredeye/catalystx/internal/models"
)

// Transition validates a reviewer decision. Re-applying the current status is
// allowed and reported as unchanged.
func Transition(current, target models.ApplicationStatus) (changed bool, err error) {
	if target != models.ApplicationStatusAccepted && target != models.ApplicationStatusRejected {
		return false, fmt.Errorf("cannot move application to %q", target)
	}
	if !models.IsKnownStatus(current) {
		return false, fmt.Errorf("application has unknown status %q", current)
	}
	return current != target, nil
}
