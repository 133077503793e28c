package collector

import (
	"errors"

	"github.com/aws/smithy-go"
)

// apiError extracts the service error code and fault side from err.
func apiError(err error) (code, fault string, ok bool) {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return "", "", false
	}
	return ae.ErrorCode(), ae.ErrorFault().String(), true
}
