// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"strings"
	"testing"

	"github.com/paqkit/paqkit/lib/testutil"
)

func TestReadFromPath(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain", "hunter2", "hunter2"},
		{"trailing newline", "hunter2\n", "hunter2"},
		{"crlf", "hunter2\r\n", "hunter2"},
		{"inner spaces kept", "  two words  \n", "  two words  "},
		{"first line only", "first\nsecond\n", "first"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := testutil.WriteFile(t, "passphrase", []byte(test.content))
			buffer, err := ReadFromPath(path)
			if err != nil {
				t.Fatalf("ReadFromPath: %v", err)
			}
			defer buffer.Close()
			if got := string(buffer.Bytes()); got != test.want {
				t.Errorf("passphrase = %q, want %q", got, test.want)
			}
		})
	}
}

func TestReadFromPathMissing(t *testing.T) {
	if _, err := ReadFromPath(t.TempDir() + "/absent"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadFromPathEmpty(t *testing.T) {
	for _, content := range []string{"", "\n"} {
		path := testutil.WriteFile(t, "passphrase", []byte(content))
		if _, err := ReadFromPath(path); err == nil {
			t.Errorf("content %q: expected error", content)
		}
	}
}

func TestReadLine(t *testing.T) {
	buffer, err := readLine(strings.NewReader("from stdin\nignored"))
	if err != nil {
		t.Fatalf("readLine: %v", err)
	}
	defer buffer.Close()
	if got := string(buffer.Bytes()); got != "from stdin" {
		t.Errorf("readLine = %q", got)
	}
	if _, err := readLine(strings.NewReader("")); err == nil {
		t.Error("readLine on empty input succeeded")
	}
}
