package cli

import "parwrk/internal/config"

// Flags holds command-line flags
type Flags struct {
	Port          int
	Bind          string
	StoreURI      string
	Key           string
	GroupBy       string
	SingleRun     bool
	ServerURI     string
	RunID         string
	WorkerID      string
	WorkerCommand string
	TestPath      string
	NameFilter    string
	MaxRetries    int
	Timeout       int
	OutputDir     string
	Interactive   bool
	Verbose       bool
}

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		Port:          f.Port,
		Bind:          f.Bind,
		StoreURI:      f.StoreURI,
		Key:           f.Key,
		GroupBy:       f.GroupBy,
		SingleRun:     f.SingleRun,
		ServerURI:     f.ServerURI,
		RunID:         f.RunID,
		WorkerID:      f.WorkerID,
		WorkerCommand: f.WorkerCommand,
		TestPath:      f.TestPath,
		NameFilter:    f.NameFilter,
		MaxRetries:    f.MaxRetries,
		Timeout:       f.Timeout,
		OutputDir:     f.OutputDir,
		Interactive:   f.Interactive,
		Verbose:       f.Verbose,
	}
}
