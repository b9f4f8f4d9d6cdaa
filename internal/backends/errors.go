package backends

import "errors"

var (
	// ErrUnknownDatasource is returned when a query names a datasource that
	// was never registered. Unlike an unavailable backend this is a hard
	// error.
	ErrUnknownDatasource = errors.New("unknown datasource")

	// ErrDatasourceUnavailable indicates the backend was registered but is
	// unreachable or unhealthy. Evaluation cycles hitting it are skipped.
	ErrDatasourceUnavailable = errors.New("datasource unavailable")

	// ErrQueryExecution indicates the backend rejected or errored on the
	// query itself.
	ErrQueryExecution = errors.New("query execution failed")
)
