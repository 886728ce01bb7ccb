//go:build !windows

package repl_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"grol.io/rhai/repl"
)

func TestRunCommand(t *testing.T) {
	tests := []struct {
		cmd     string
		out     string
		wantErr string
	}{
		{`echo "hello  world" 'a\b'`, "hello  world a\\b\n", ""},
		{"   ", "", "no command provided"},
		{`echo "oops`, "", "unclosed quote"},
		{"false", "", "exit status 1"},
		{"this_command_does_not_exist_12345", "", "not found"},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		err := repl.RunCommand(context.Background(), tt.cmd, &out)
		if tt.wantErr == "" && err != nil {
			t.Errorf("RunCommand(%q) unexpected error %v", tt.cmd, err)
		}
		if tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)) {
			t.Errorf("RunCommand(%q) error %v, want %q", tt.cmd, err, tt.wantErr)
		}
		if out.String() != tt.out {
			t.Errorf("RunCommand(%q) output %q, want %q", tt.cmd, out.String(), tt.out)
		}
	}
}
