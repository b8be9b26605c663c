package domain

// HTTP headers shared by the server and the worker client.
const (
	// HeaderRun identifies the run a request operates on.
	HeaderRun = "X-Parwrk-Run"
	// HeaderWorker identifies the calling worker within a run.
	HeaderWorker = "X-Parwrk-Id"
	// HeaderStatus is set on every worker-scoped response: the worker's
	// failure count, "0" when it has none and the run has completed work.
	HeaderStatus = "X-Parwrk-Status"
)
