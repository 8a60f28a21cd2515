package sushi

import (
	"net/url"
	"strings"
)

const (
	Release5  = "5"
	Release51 = "5.1"
)

var (
	titleAttributes5   = []string{"Data_Type", "Section_Type", "YOP", "Access_Type", "Access_Method"}
	titleAttributes51  = []string{"Data_Type", "YOP", "Access_Type", "Access_Method"}
	platformAttributes = []string{"Data_Type", "Access_Method"}

	itemAttributes5 = []string{
		"Authors", "Publication_Date", "Article_Version",
		"Parent_Title", "Parent_Authors", "Parent_Publication_Date", "Parent_Article_Version",
		"Parent_Data_Type", "Parent_DOI", "Parent_Proprietary_ID", "Parent_ISBN",
		"Parent_Print_ISSN", "Parent_Online_ISSN", "Parent_URI",
		"Data_Type", "YOP", "Access_Type", "Access_Method",
	}
	itemAttributes51 = []string{"Authors", "Publication_Date", "Article_Version", "Data_Type", "YOP", "Access_Type", "Access_Method"}
)

// reportParams returns the attribute list and flags for a master report
// under a release. Unknown report codes get no extra parameters.
func reportParams(report, release string) url.Values {
	params := url.Values{}
	var attrs []string
	switch strings.ToUpper(report) {
	case "TR":
		attrs = titleAttributes5
		if release == Release51 {
			attrs = titleAttributes51
		}
	case "DR", "PR":
		attrs = platformAttributes
	case "IR":
		attrs = itemAttributes5
		if release == Release51 {
			attrs = itemAttributes51
			params.Set("include_parent_details", "True")
		}
	}
	if len(attrs) > 0 {
		params.Set("attributes_to_show", strings.Join(attrs, "|"))
	}
	return params
}
