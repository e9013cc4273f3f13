package fulfill

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var tagPattern = regexp.MustCompile(`(?i)tg:\s*(\w+)`)

// TargetSpec is the resolved search constraint for one order.
type TargetSpec struct {
	Tag      string
	Region   string
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
	Origins  []string
}

// ParseTag extracts the upper-cased target tag from an order description.
func ParseTag(description string) (string, bool) {
	match := tagPattern.FindStringSubmatch(description)
	if match == nil {
		return "", false
	}

	return strings.ToUpper(match[1]), true
}

// ResolveTarget matches the order's tag against the configured regions.
// The first region, in configured order, whose code prefixes the tag wins.
func ResolveTarget(settings Settings, description string) (TargetSpec, bool) {
	tag, ok := ParseTag(description)
	if !ok {
		return TargetSpec{}, false
	}

	for _, region := range settings.Regions {
		code := strings.ToUpper(strings.TrimSpace(region.Code))
		if code == "" || !strings.HasPrefix(tag, code) {
			continue
		}

		origins := make([]string, len(settings.Origins))
		copy(origins, settings.Origins)

		return TargetSpec{
			Tag:      tag,
			Region:   code,
			MinPrice: region.MinPrice,
			MaxPrice: region.MaxPrice,
			Origins:  origins,
		}, true
	}

	return TargetSpec{Tag: tag}, false
}
