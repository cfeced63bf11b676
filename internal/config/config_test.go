package config

import "testing"

func validConfig() *Config {
	return &Config{
		DatabaseURL:             "./data/slpdex.sqlite",
		Port:                    7501,
		LogLevel:                "info",
		LogDir:                  "./logs",
		PeerAddress:             "node.example.com:8333",
		BitdbURL:                "https://bitdb.example.com",
		SlpdbURL:                "https://slpdb.example.com",
		RemoteRequestsPerSecond: 10,
		ExchLokad:               "EXCH",
		ExchVersion:             2,
		FeeAddress:              "bitcoincash:qqexamplefeeaddress",
		FeeDivisor:              500,
		DustLimit:               546,
		ResyncPageSize:          200,
	}
}

func TestValidateValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidateInvalidPort(t *testing.T) {
	tests := []int{0, -1, 65536, 100000}
	for _, port := range tests {
		cfg := validConfig()
		cfg.Port = port
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate() expected error for port=%d, got nil", port)
		}
	}
}

func TestValidateValidPortBoundaries(t *testing.T) {
	tests := []int{1, 65535, 7501}
	for _, port := range tests {
		cfg := validConfig()
		cfg.Port = port
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v for port=%d, want nil", err, port)
		}
	}
}

func TestValidateRejectsWrongLokadID(t *testing.T) {
	cfg := validConfig()
	cfg.ExchLokad = "WRONG"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for mismatched exch lokad id")
	}
}

func TestValidateRejectsOversizedExchVersion(t *testing.T) {
	cfg := validConfig()
	cfg.ExchVersion = 256
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for exch version exceeding a byte")
	}
}

func TestValidateRejectsZeroFeeDivisor(t *testing.T) {
	cfg := validConfig()
	cfg.FeeDivisor = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for zero fee divisor")
	}
}

func TestValidateRejectsNonPositiveResyncPageSize(t *testing.T) {
	cfg := validConfig()
	cfg.ResyncPageSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for non-positive resync page size")
	}
}

func TestValidateRejectsNonPositiveRemoteRequestsPerSecond(t *testing.T) {
	tests := []int{0, -1}
	for _, rps := range tests {
		cfg := validConfig()
		cfg.RemoteRequestsPerSecond = rps
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate() expected error for RemoteRequestsPerSecond=%d, got nil", rps)
		}
	}
}
