package normalize

import (
	"regexp"
	"strings"

	"github.com/jonathan/lead-ranker/internal/types"
)

// sizeBuckets maps normalized employee-range strings to their ordinal bucket.
// The table carries the textual variants seen in upload data; anything else is
// an unknown bucket, which callers treat as its own category.
var sizeBuckets = map[string]types.SizeBucket{
	"1-10":       types.BucketStartup,
	"1-20":       types.BucketStartup,
	"2-10":       types.BucketStartup,
	"11-50":      types.BucketStartup,
	"1-50":       types.BucketStartup,
	"51-200":     types.BucketSMB,
	"50-200":     types.BucketSMB,
	"51-100":     types.BucketSMB,
	"101-200":    types.BucketSMB,
	"201-500":    types.BucketMidMarket,
	"201-1000":   types.BucketMidMarket,
	"501-1000":   types.BucketMidMarket,
	"500-1000":   types.BucketMidMarket,
	"1001+":      types.BucketEnterprise,
	"1000+":      types.BucketEnterprise,
	"1001-5000":  types.BucketEnterprise,
	"5001-10000": types.BucketEnterprise,
	"10000+":     types.BucketEnterprise,
	"10001+":     types.BucketEnterprise,
}

var dashRe = regexp.MustCompile(`[\x{2010}-\x{2015}]`)

// SizeBucket maps a free-text employee range onto a fixed ordinal bucket.
// Returns (BucketUnknown, false) when no variant matches.
func SizeBucket(employeeRange string) (types.SizeBucket, bool) {
	normalized := strings.ToLower(strings.TrimSpace(employeeRange))
	if normalized == "" {
		return types.BucketUnknown, false
	}

	normalized = dashRe.ReplaceAllString(normalized, "-")
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.ReplaceAll(normalized, "employees", "")
	normalized = strings.ReplaceAll(normalized, ",", "")
	normalized = strings.TrimSuffix(normalized, ".")

	if bucket, ok := sizeBuckets[normalized]; ok {
		return bucket, true
	}
	return types.BucketUnknown, false
}
