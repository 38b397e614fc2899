package config

import (
	lua "github.com/yuin/gopher-lua"
)

// blockedGlobals reach outside the VM: commands and environment (os), files
// (io), code loading and debug, which could undo the rest.
var blockedGlobals = []string{
	"os", "io", "debug",
	"require", "dofile", "loadfile", "load", "loadstring",
}

// newSandboxedVM returns a VM where only the pure libraries (string, table,
// math) and base functions remain.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
