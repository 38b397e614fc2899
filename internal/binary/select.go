package binary

import (
	"strings"

	"github.com/ZebulonRouseFrantzich/vdlaunch/internal/release"
)

// Choose picks the asset to download from assets.
//
// Assets whose name contains keyword (case-insensitive) are candidates. The
// platform tags are tried in order; the first candidate containing the current
// tag is returned. Without a tag match the first candidate is returned. With no
// candidate at all the result is false, unless mode is SelectLegacy and the list
// is non-empty, in which case the first asset is returned.
func Choose(assets []release.Asset, keyword string, platformTags []string, mode SelectMode) (release.Asset, bool) {
	kw := strings.ToLower(keyword)

	var candidates []release.Asset
	for _, a := range assets {
		if strings.Contains(strings.ToLower(a.Name), kw) {
			candidates = append(candidates, a)
		}
	}

	if len(candidates) == 0 {
		if mode == SelectLegacy && len(assets) > 0 {
			return assets[0], true
		}
		return release.Asset{}, false
	}

	for _, tag := range platformTags {
		tag = strings.ToLower(tag)
		if tag == "" {
			continue
		}
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c.Name), tag) {
				return c, true
			}
		}
	}

	return candidates[0], true
}
