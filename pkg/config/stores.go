package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/fileverse/omnifs/pkg/store"
	badgerstore "github.com/fileverse/omnifs/pkg/store/badger"
	"github.com/fileverse/omnifs/pkg/store/memory"
)

// CreateStore builds the store selected by the configuration. The admin
// account from cfg.Admin is passed down so the store can seed it.
func CreateStore(cfg StoreConfig) (store.Store, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryStore(cfg)
	case "badger":
		return createBadgerStore(cfg)
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}

// createMemoryStore creates the in-memory store.
func createMemoryStore(cfg StoreConfig) (store.Store, error) {
	var memCfg memory.Config
	if err := mapstructure.Decode(cfg.Memory, &memCfg); err != nil {
		return nil, fmt.Errorf("invalid memory config: %w", err)
	}
	memCfg.AdminUsername = cfg.Admin.Username
	memCfg.AdminPassword = cfg.Admin.Password

	return memory.New(memCfg)
}

// createBadgerStore creates the BadgerDB-backed store.
func createBadgerStore(cfg StoreConfig) (store.Store, error) {
	var badgerCfg badgerstore.Config
	if err := mapstructure.Decode(cfg.Badger, &badgerCfg); err != nil {
		return nil, fmt.Errorf("invalid badger config: %w", err)
	}
	badgerCfg.AdminUsername = cfg.Admin.Username
	badgerCfg.AdminPassword = cfg.Admin.Password

	s, err := badgerstore.Open(badgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return s, nil
}
