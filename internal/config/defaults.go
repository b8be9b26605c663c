package config

const (
	// DefaultPort is the default server port
	DefaultPort = 5138
	// DefaultBind is the default server bind address
	DefaultBind = "127.0.0.1"
	// DefaultServerURI is the default server URI used by workers and seeders
	DefaultServerURI = "http://localhost:5138"
	// DefaultStoreURI is the default queue store backend
	DefaultStoreURI = "memory:///"
	// DefaultGroupBy is the default batch-selection policy
	DefaultGroupBy = "timings"
	// DefaultOutputDir is the default directory for saved reports
	DefaultOutputDir = ".parwrk"
	// DefaultTimeoutSeconds is the default wait budget for server availability
	DefaultTimeoutSeconds = 5
	// DefaultTestFileSuffix is the default filename suffix for discovery
	DefaultTestFileSuffix = "_spec.rb"
	// DefaultFilePoolSize is the worker-pool size for file store fan-out
	DefaultFilePoolSize = 24
)

// DefaultPathsToIgnore are the default directories skipped during discovery
var DefaultPathsToIgnore = []string{
	"vendor",
	"node_modules",
	"tmp",
	"log",
	".git",
}
