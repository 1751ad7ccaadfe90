package hash

import (
	"testing"

	"github.com/ELEVATE-Project/chat-communications/pkg/config"
)

func testConfig() config.HashConfig {
	return config.HashConfig{
		UsernameSalt:   "username-salt",
		UsernameLength: 8,
		PasswordSalt:   "password-salt",
		PasswordLength: 12,
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.HashConfig
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     testConfig(),
			wantErr: false,
		},
		{
			name: "missing username salt",
			cfg: config.HashConfig{
				PasswordSalt: "password-salt",
			},
			wantErr: true,
		},
		{
			name: "missing password salt",
			cfg: config.HashConfig{
				UsernameSalt: "username-salt",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDigestDeterminism(t *testing.T) {
	h, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	inputs := []string{"u1", "user-with-long-identifier-0001", "a@x.com", "日本語"}
	for _, input := range inputs {
		first, err := h.Digest(KindUsername, input)
		if err != nil {
			t.Fatalf("Digest(%q) failed: %v", input, err)
		}
		for i := 0; i < 10; i++ {
			again, err := h.Digest(KindUsername, input)
			if err != nil {
				t.Fatalf("Digest(%q) failed on repeat: %v", input, err)
			}
			if again != first {
				t.Fatalf("Digest(%q) not deterministic: %q != %q", input, again, first)
			}
		}
	}
}

func TestDigestLengthAndKinds(t *testing.T) {
	h, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	username, err := h.Digest(KindUsername, "u1")
	if err != nil {
		t.Fatalf("Digest(username) failed: %v", err)
	}
	if len(username) != 8 {
		t.Errorf("username digest length = %d, want 8", len(username))
	}

	password, err := h.Digest(KindPassword, "u1")
	if err != nil {
		t.Fatalf("Digest(password) failed: %v", err)
	}
	if len(password) != 12 {
		t.Errorf("password digest length = %d, want 12", len(password))
	}

	// Different salts must give unrelated outputs for the same input
	if username == password[:len(username)] {
		t.Errorf("username and password digests share a prefix, salts not applied")
	}
}

func TestDigestDistinctInputs(t *testing.T) {
	h, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	a, _ := h.Digest(KindUsername, "u1")
	b, _ := h.Digest(KindUsername, "u2")
	if a == b {
		t.Errorf("distinct inputs produced the same digest: %q", a)
	}
}

func TestDigestRejectsEmptyInput(t *testing.T) {
	h, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if _, err := h.Digest(KindUsername, ""); err == nil {
		t.Error("Digest(\"\") should fail")
	}
	if _, err := h.Digest(Kind("avatar"), "u1"); err == nil {
		t.Error("Digest with unknown kind should fail")
	}
}
