package config

import (
	"os"
	"reflect"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.Store != StoreMemory {
		t.Errorf("Store = %q, want %q", cfg.Store, StoreMemory)
	}
	if cfg.RetentionMaxEntries != 10000 {
		t.Errorf("RetentionMaxEntries = %d, want 10000", cfg.RetentionMaxEntries)
	}
	if cfg.KafkaTopic != "spyglass-entries" {
		t.Errorf("KafkaTopic = %q, want default", cfg.KafkaTopic)
	}
	if !cfg.WatchRequest || !cfg.WatchBatch || !cfg.WatchRedis {
		t.Error("watchers should default to enabled")
	}
	if cfg.BatchTrackMemory {
		t.Error("BatchTrackMemory should default to false")
	}
	if cfg.QuerySlowMs != 500 {
		t.Errorf("QuerySlowMs = %d, want 500", cfg.QuerySlowMs)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("WATCH_CACHE", "false")
	os.Setenv("QUERY_SLOW_MS", "250")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.WatchCache {
		t.Error("WATCH_CACHE=false should disable the cache watcher")
	}
	if cfg.QuerySlowMs != 250 {
		t.Errorf("QuerySlowMs = %d, want 250", cfg.QuerySlowMs)
	}
}

func TestLoad_StoreValidation(t *testing.T) {
	os.Clearenv()
	os.Setenv("STORE", "badger")
	if _, err := Load(); err == nil {
		t.Error("STORE=badger without BADGER_PATH should fail")
	}

	os.Clearenv()
	os.Setenv("STORE", "postgres")
	if _, err := Load(); err == nil {
		t.Error("STORE=postgres without DATABASE_URL should fail")
	}

	os.Clearenv()
	os.Setenv("STORE", "cassandra")
	if _, err := Load(); err == nil {
		t.Error("unknown STORE should fail")
	}

	os.Clearenv()
	os.Setenv("STORE", "badger")
	os.Setenv("BADGER_PATH", "/tmp/spyglass-badger")
	if _, err := Load(); err != nil {
		t.Errorf("valid badger config should load: %v", err)
	}
}

func TestKafkaBrokersList(t *testing.T) {
	cfg := &Config{KafkaBrokers: "localhost:9092, broker2:9092 ,"}
	want := []string{"localhost:9092", "broker2:9092"}
	if got := cfg.KafkaBrokersList(); !reflect.DeepEqual(got, want) {
		t.Errorf("KafkaBrokersList = %v, want %v", got, want)
	}

	empty := &Config{}
	if got := empty.KafkaBrokersList(); got != nil {
		t.Errorf("empty brokers should return nil, got %v", got)
	}
}

func TestIsProduction(t *testing.T) {
	if (&Config{Env: "development"}).IsProduction() {
		t.Error("development should not be production")
	}
	if !(&Config{Env: "production"}).IsProduction() {
		t.Error("production should be production")
	}
}

func TestWatcherConfig_MapsFlags(t *testing.T) {
	cfg := &Config{
		WatchRequest:     true,
		WatchBatch:       true,
		BatchTrackMemory: true,
		QuerySlowMs:      100,
	}
	wc := cfg.WatcherConfig()
	if !wc.BatchOptions.TrackMemory {
		t.Error("BatchTrackMemory should carry into the batch options")
	}
	if wc.QueryOptions.SlowThresholdMs != 100 {
		t.Errorf("SlowThresholdMs = %d, want 100", wc.QueryOptions.SlowThresholdMs)
	}
	if wc.Cache {
		t.Error("unset WatchCache should disable the cache watcher")
	}
}
