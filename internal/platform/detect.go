package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector reads the running process's platform.
type RealDetector struct{}

// NewDetector returns the detector for the current machine.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect takes OS and architecture from the Go runtime. On Linux the
// distribution comes from gopsutil. Failing to read it only leaves the distro
// fields empty; a cancelled ctx is the one error returned.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      runtime.GOOS,
		ArchRaw: runtime.GOARCH,
		Arch:    normalizeArch(runtime.GOARCH),
	}

	if runtime.GOOS != "linux" {
		return info, nil
	}

	platform, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}

	if id := lowerTrim(platform); id != "" {
		info.Platform = id
		info.Version = lowerTrim(version)
		// gopsutil leaves family empty on some distros; fall back to the ID.
		if info.Family = mapFamily(family); info.Family == FamilyUnknown {
			info.Family = mapFamily(id)
		}
	}
	return info, nil
}
