package storage

import "time"

type BadgerDBConfig struct {
	DataDir        string
	DisableLogging bool
	InMemory       bool
	SyncWrites     bool
	GCInterval     time.Duration // 0 to disable
}

func DefaultConfig(dataDir string) BadgerDBConfig {
	return BadgerDBConfig{
		DataDir:        dataDir,
		DisableLogging: true,
		InMemory:       false,
		SyncWrites:     true,
		GCInterval:     time.Hour,
	}
}

// InMemoryConfig keeps the whole database in RAM.
func InMemoryConfig() BadgerDBConfig {
	return BadgerDBConfig{DisableLogging: true, InMemory: true}
}
