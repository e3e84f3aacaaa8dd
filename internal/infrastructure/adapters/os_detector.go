package adapters

import (
	"fmt"
	"runtime"

	"multinic-bond/internal/domain/errors"
	"multinic-bond/internal/domain/interfaces"
)

// RealOSDetector is an OSDetector implementation that reports the platform the agent runs on
type RealOSDetector struct {
	goos string
}

// NewRealOSDetector creates a new RealOSDetector for the running platform
func NewRealOSDetector() interfaces.OSDetector {
	return &RealOSDetector{goos: runtime.GOOS}
}

// NewOSDetectorFor creates a detector for an explicit GOOS value
func NewOSDetectorFor(goos string) interfaces.OSDetector {
	return &RealOSDetector{goos: goos}
}

// DetectOS returns the current operating system type.
// Only platforms with a per-interface metric / route table model are supported.
func (d *RealOSDetector) DetectOS() (interfaces.OSType, error) {
	switch d.goos {
	case "windows":
		return interfaces.OSTypeWindows, nil
	case "linux":
		return interfaces.OSTypeLinux, nil
	default:
		return "", errors.NewSystemError(fmt.Sprintf("unsupported OS type: '%s'", d.goos), nil)
	}
}
