//go:build !windows

package main_test

import (
	"os"
	"testing"

	"fortio.org/testscript"
	main "grol.io/rhai"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"rhai": main.Main,
	}))
}

func TestRhaiCli(t *testing.T) {
	testscript.Run(t, testscript.Params{Dir: "./"})
}
