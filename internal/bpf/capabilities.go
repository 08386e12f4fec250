package bpf

import (
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// Capabilities describes what the host offers for uprobe instrumentation.
type Capabilities struct {
	Supported     bool
	KernelRelease string
	BTFAvailable  bool
	Privileged    bool
}

// DetectCapabilities inspects the running kernel.
func DetectCapabilities() Capabilities {
	if runtime.GOOS != "linux" {
		return Capabilities{KernelRelease: runtime.GOOS + " (not Linux)"}
	}

	return Capabilities{
		Supported:     true,
		KernelRelease: kernelRelease(),
		BTFAvailable:  checkBTF(),
		Privileged:    os.Geteuid() == 0,
	}
}

func kernelRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "unknown"
	}
	return unix.ByteSliceToString(uts.Release[:])
}

// checkBTF checks for kernel BTF, required by CO-RE builds of the program.
func checkBTF() bool {
	_, err := os.Stat("/sys/kernel/btf/vmlinux")
	return err == nil
}
