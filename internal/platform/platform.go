// Package platform detects the host OS, architecture, and Linux
// distribution, and expands placeholders in release-asset URL
// templates.
//
// It uses gopsutil for Linux distribution detection and falls back
// gracefully when detection fails: basic OS/arch detection always
// works, distro fields are best-effort.
package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // "amd64", "arm64" (normalized)
	ArchRaw  string // original GOARCH (e.g., "x86_64", "aarch64")
	Platform string // distro ID (Linux only, e.g., "ubuntu", "arch")
	Version  string // distro version (Linux only, e.g., "22.04")
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// RealDetector implements Detector using actual platform detection.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect performs platform detection and returns platform information.
// It uses runtime.GOOS and runtime.GOARCH for OS and architecture, and
// gopsutil for Linux distribution details. Distro detection failures
// fall back to OS/arch only; context cancellation is a hard failure.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      runtime.GOOS,
		ArchRaw: runtime.GOARCH,
	}

	arch, err := normalizeArch(runtime.GOARCH)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}
	info.Arch = arch

	if runtime.GOOS == "linux" {
		platform, _, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			// Graceful fallback: most asset templates only need os/arch
			return info, nil
		}
		info.Platform = normalize(platform)
		info.Version = normalize(version)
	}

	return info, nil
}

// ExpandURL substitutes {os}, {arch}, {platform}, and {version}
// placeholders in a release-asset URL template.
func ExpandURL(template string, info *Info) string {
	replacer := strings.NewReplacer(
		"{os}", info.OS,
		"{arch}", info.Arch,
		"{platform}", info.Platform,
		"{version}", info.Version,
	)
	return replacer.Replace(template)
}

// normalizeArch converts GOARCH values to normalized architecture names.
func normalizeArch(arch string) (string, error) {
	switch arch {
	case "amd64", "x86_64":
		return "amd64", nil
	case "arm64", "aarch64":
		return "arm64", nil
	case "386", "i386":
		return "386", nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s", arch)
	}
}

// normalize lowercases and trims detection output for consistency.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
