package main

import "testing"

func TestIsTestKey(t *testing.T) {
	cases := map[string]bool{
		"pk_test_abc":      true,
		" PK_TEST_abc ":    true,
		"FLWPUBK_TEST-123": true,
		"pk_live_abc":      false,
		"":                 false,
	}
	for key, want := range cases {
		if got := isTestKey(key); got != want {
			t.Fatalf("isTestKey(%q) want %v got %v", key, want, got)
		}
	}
}
