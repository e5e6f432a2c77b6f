package config

import "testing"

func validRunConfig() RunConfig {
	return RunConfig{
		Source:     0,
		Mode:       "directed",
		GraphPath:  "graph.txt",
		Iterations: 1,
		Peers:      1,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				App:       AppConfig{Name: "shmemsssp"},
				Log:       LogConfig{Level: "info"},
				Transport: TransportConfig{Backend: "local"},
				Run:       validRunConfig(),
			},
			wantErr: false,
		},
		{
			name: "missing app name",
			cfg: Config{
				Log:       LogConfig{Level: "info"},
				Transport: TransportConfig{Backend: "local"},
				Run:       validRunConfig(),
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			cfg: Config{
				App:       AppConfig{Name: "test"},
				Log:       LogConfig{Level: "invalid"},
				Transport: TransportConfig{Backend: "local"},
				Run:       validRunConfig(),
			},
			wantErr: true,
		},
		{
			name: "unknown transport backend",
			cfg: Config{
				App:       AppConfig{Name: "test"},
				Log:       LogConfig{Level: "info"},
				Transport: TransportConfig{Backend: "carrier-pigeon"},
				Run:       validRunConfig(),
			},
			wantErr: true,
		},
		{
			name: "redis backend without addr",
			cfg: Config{
				App:       AppConfig{Name: "test"},
				Log:       LogConfig{Level: "info"},
				Transport: TransportConfig{Backend: "redis"},
				Run:       validRunConfig(),
			},
			wantErr: true,
		},
		{
			name: "redis backend with addr",
			cfg: Config{
				App:       AppConfig{Name: "test"},
				Log:       LogConfig{Level: "info"},
				Transport: TransportConfig{Backend: "redis", Redis: RedisConfig{Addr: "localhost:6379"}},
				Run:       validRunConfig(),
			},
			wantErr: false,
		},
		{
			name: "invalid run mode",
			cfg: Config{
				App:       AppConfig{Name: "test"},
				Log:       LogConfig{Level: "info"},
				Transport: TransportConfig{Backend: "local"},
				Run: RunConfig{
					Mode: "sideways", GraphPath: "g.txt", Iterations: 1, Peers: 1,
				},
			},
			wantErr: true,
		},
		{
			name: "missing graph path",
			cfg: Config{
				App:       AppConfig{Name: "test"},
				Log:       LogConfig{Level: "info"},
				Transport: TransportConfig{Backend: "local"},
				Run: RunConfig{
					Mode: "directed", Iterations: 1, Peers: 1,
				},
			},
			wantErr: true,
		},
		{
			name: "non-positive iterations",
			cfg: Config{
				App:       AppConfig{Name: "test"},
				Log:       LogConfig{Level: "info"},
				Transport: TransportConfig{Backend: "local"},
				Run: RunConfig{
					Mode: "directed", GraphPath: "g.txt", Iterations: 0, Peers: 1,
				},
			},
			wantErr: true,
		},
		{
			name: "history enabled without dsn",
			cfg: Config{
				App:       AppConfig{Name: "test"},
				Log:       LogConfig{Level: "info"},
				Transport: TransportConfig{Backend: "local"},
				Run:       validRunConfig(),
				History:   HistoryConfig{Enabled: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"dev", true},
		{"production", false},
		{"staging", false},
	}

	for _, tt := range tests {
		cfg := &Config{App: AppConfig{Environment: tt.env}}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment() for %s = %v, want %v", tt.env, got, tt.want)
		}
	}
}
