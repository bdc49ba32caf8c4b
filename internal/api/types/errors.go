package types

import appErr "github.com/qa-dashboard/engine/pkg/errors"

// FromAppError renders err as the error envelope with its HTTP status.
func FromAppError(err error) (int, Envelope) {
	if err == nil {
		return 200, OK()
	}
	return appErr.HTTPStatus(err), Fail(appErr.PublicMessage(err))
}
