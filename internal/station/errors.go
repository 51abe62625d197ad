package station

import "errors"

var (
	// ErrRestartRequested is returned by Tick and Run after the provisioning
	// trigger has been honoured. The caller should restart the process.
	ErrRestartRequested = errors.New("station: restart requested")

	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("station: missing dependency")
)
