package utils

import (
	"strconv"
	"strings"
)

const PatientsCachePrefix = "patients:"

// BuildPatientsListCacheKey derives a stable cache key from the list query.
// Filters are normalized so equivalent queries share an entry.
func BuildPatientsListCacheKey(page, limit int, sort string, search, condition *string) string {
	s := ""
	if search != nil {
		s = strings.ToLower(strings.TrimSpace(*search))
	}
	c := ""
	if condition != nil {
		c = strings.ToLower(strings.TrimSpace(*condition))
	}

	return PatientsCachePrefix + "list:v1:page=" + strconv.Itoa(page) +
		":limit=" + strconv.Itoa(limit) +
		":sort=" + sort +
		":search=" + s +
		":condition=" + c
}

func PatientsSummaryCacheKey() string {
	return PatientsCachePrefix + "analytics:v1:summary"
}

func PatientsBreakdownCacheKey() string {
	return PatientsCachePrefix + "analytics:v1:breakdown"
}
