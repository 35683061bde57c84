package main

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{port: 8080, lookupTimeout: 10 * time.Second, sessionTimeout: time.Hour}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"tls pair", func(c *Config) { c.tlsCert, c.tlsKey = "cert.pem", "key.pem" }, false},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, true},
		{"key without cert", func(c *Config) { c.tlsKey = "key.pem" }, true},
		{"port zero", func(c *Config) { c.port = 0 }, true},
		{"port too high", func(c *Config) { c.port = 65536 }, true},
		{"lookups never time out", func(c *Config) { c.lookupTimeout = 0 }, false},
		{"negative lookup timeout", func(c *Config) { c.lookupTimeout = -time.Second }, true},
		{"sessions never reaped", func(c *Config) { c.sessionTimeout = 0 }, false},
		{"negative session timeout", func(c *Config) { c.sessionTimeout = -time.Minute }, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.mutate(&cfg)

			err := cfg.validate()
			if (err != nil) != test.wantErr {
				t.Errorf("validate() = %v, wantErr %v", err, test.wantErr)
			}
		})
	}
}

func TestFlagsFromEnvironment(t *testing.T) {
	t.Setenv("BANANAGRAMS_PORT", "9090")
	t.Setenv("BANANAGRAMS_LOOKUP_TIMEOUT", "3s")
	t.Setenv("BANANAGRAMS_WORD_LIST", "/tmp/words.txt")

	cfg := &Config{}
	newCmd(cfg)

	if cfg.port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.port)
	}
	if cfg.lookupTimeout != 3*time.Second {
		t.Errorf("lookup timeout = %s, want 3s", cfg.lookupTimeout)
	}
	if cfg.wordList != "/tmp/words.txt" {
		t.Errorf("word list = %q", cfg.wordList)
	}
	if cfg.sessionTimeout != time.Hour {
		t.Errorf("session timeout = %s, want default 1h0m0s", cfg.sessionTimeout)
	}
}

func TestHumanReadableSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1000, "1.0 kB"},
		{1500, "1.5 kB"},
		{2_500_000, "2.5 MB"},
		{3_000_000_000, "3.0 GB"},
	}

	for _, test := range tests {
		if got := humanReadableSize(test.in); got != test.want {
			t.Errorf("humanReadableSize(%d) = %q, want %q", test.in, got, test.want)
		}
	}
}
