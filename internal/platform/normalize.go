package platform

import (
	"strings"
)

// familyMembers lists the distribution IDs gopsutil reports for each family.
// Only Alpine changes asset selection (musl builds); the rest is shown to the
// Lua config as platform.distro.family.
var familyMembers = map[string][]string{
	FamilyDebian: {"debian", "ubuntu", "linuxmint", "pop"},
	FamilyRHEL:   {"rhel", "centos", "rocky", "almalinux"},
	FamilyFedora: {"fedora"},
	FamilySUSE:   {"suse", "opensuse", "sles"},
	FamilyArch:   {"arch", "manjaro", "endeavouros"},
	FamilyAlpine: {"alpine"},
	FamilyGentoo: {"gentoo"},
}

var familyOf = func() map[string]string {
	m := make(map[string]string)
	for family, ids := range familyMembers {
		for _, id := range ids {
			m[id] = family
		}
	}
	return m
}()

// archAliases maps uname and vendor spellings onto GOARCH names.
var archAliases = map[string]string{
	"x86_64":  "amd64",
	"x64":     "amd64",
	"aarch64": "arm64",
	"i386":    "386",
	"i686":    "386",
	"x86":     "386",
	"armv7":   "arm",
	"armv7l":  "arm",
}

// normalizeArch converts GOARCH-style or uname-style names to Go names.
// Unknown values pass through lower-cased; asset selection falls back to the
// first keyword match for them.
func normalizeArch(arch string) string {
	a := lowerTrim(arch)
	if goarch, ok := archAliases[a]; ok {
		return goarch
	}
	return a
}

// mapFamily returns the canonical family for a gopsutil family or ID.
func mapFamily(family string) string {
	if canonical, ok := familyOf[lowerTrim(family)]; ok {
		return canonical
	}
	return FamilyUnknown
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
