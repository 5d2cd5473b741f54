package password

import "testing"

func BenchmarkVerifier(b *testing.B) {
	cfg := DefaultConfig()
	v := NewVerifier(cfg)
	pw := "this is a strong password 123!"

	h, err := cfg.Hash(pw)
	if err != nil {
		b.Fatalf("Hash error: %v", err)
	}

	b.Run("argon2id/match", func(b *testing.B) {
		for b.Loop() {
			if !v.Matches(pw, h) {
				b.Fatal("expected match")
			}
		}
	})
	b.Run("unknown-scheme", func(b *testing.B) {
		for b.Loop() {
			if v.Matches(pw, "plain:"+pw) {
				b.Fatal("unexpected match")
			}
		}
	})
}

func BenchmarkHash_DefaultConfig(b *testing.B) {
	cfg := DefaultConfig()
	for b.Loop() {
		if _, err := cfg.Hash("this is a strong password 123!"); err != nil {
			b.Fatalf("Hash error: %v", err)
		}
	}
}
