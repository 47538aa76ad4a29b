package services

import (
	"strings"

	"auto_sniper/identity"
	"auto_sniper/models"
)

// MergeListings collapses listings of the same car posted on several
// marketplaces. Listings sharing a merge key keep the first one as the base,
// with its location normalized and its platform replaced by the union of
// the group's platforms. Unique listings pass through untouched. Output
// order follows the first appearance of each key.
func MergeListings(listings []models.Listing) []models.Listing {
	groups := make(map[string][]int, len(listings))
	var order []string

	for i, l := range listings {
		key := identity.MergeKey(l)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	merged := make([]models.Listing, 0, len(order))
	for _, key := range order {
		members := groups[key]
		base := listings[members[0]]
		if len(members) == 1 {
			merged = append(merged, base)
			continue
		}

		base.Metadata.Location = identity.NormalizeLocation(base.Metadata.Location)
		base.Metadata.Platform = unionPlatforms(listings, members)
		merged = append(merged, base)
	}

	return merged
}

func unionPlatforms(listings []models.Listing, members []int) string {
	seen := make(map[string]bool)
	var platforms []string
	for _, i := range members {
		for _, p := range strings.Split(listings[i].Metadata.Platform, ",") {
			p = strings.TrimSpace(p)
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			platforms = append(platforms, p)
		}
	}
	return strings.Join(platforms, ", ")
}
