package settings

import (
	lua "github.com/yuin/gopher-lua"
)

// sandboxLuaVM strips the VM down to declarative use: no process control
// (os.*), no filesystem (io.*), no code loading (require, dofile, loadfile,
// load, loadstring), and no debug library, which could otherwise reach
// around the sandbox. string, table, math, and the basic utilities
// (type, tostring, tonumber, pairs, ipairs) stay available.
func sandboxLuaVM(L *lua.LState) {
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)
	L.SetGlobal("debug", lua.LNil)
}

// newSandboxedVM creates the Lua state every settings parse runs in.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	sandboxLuaVM(L)
	return L
}
