package connector

// Presets returns the built-in board definitions keyed by domain.
func Presets() map[string]BoardSpec {
	return map[string]BoardSpec{
		"naukri.com": {
			Domain:      "naukri.com",
			Name:        "Naukri",
			SearchURL:   "https://www.naukri.com/{keyword}-jobs-{location}",
			BaseURL:     "https://www.naukri.com",
			Item:        "article.jobTuple",
			Title:       "a.title",
			Company:     "a.subTitle",
			Location:    "li.fleft.br2.placeHolderCls",
			Date:        "div.mt-8",
			Description: "li.desc",
		},
		"timesjobs.com": {
			Domain:      "timesjobs.com",
			Name:        "TimesJobs",
			SearchURL:   "https://www.timesjobs.com/candidate/job-search.html?searchType=home_page&from=submit&txtKeywords={keyword_q}&txtLocation={location_q}",
			BaseURL:     "https://www.timesjobs.com",
			Item:        "li.clearfix.job-bx.wht-shd-bx",
			Title:       "h3",
			Company:     "h4.company-name",
			Location:    "ul.top-in-srp li",
			Date:        "span.sim-posted",
			DateTrim:    []string{"Card Poste"},
			Description: "ul.list-job-dtl.clearfix",
		},
		"shine.com": {
			Domain:      "shine.com",
			Name:        "Shine",
			SearchURL:   "https://www.shine.com/job-search/{keyword}-jobs-{location}",
			BaseURL:     "https://www.shine.com",
			Item:        "div.job_card_list",
			Title:       "h2",
			Company:     "div.jobCard_jobCard_cName",
			Location:    "li.jobCard_jobCard_location",
			Date:        "div.jobCard_jobCard_posted",
			DateTrim:    []string{"Posted "},
			Description: "div.jobCard_jobCard_desc",
		},
		"jobstreet.com": {
			Domain:      "jobstreet.com",
			Name:        "JobStreet",
			SearchURL:   "https://www.jobstreet.com.my/job/{keyword}-in-{location}",
			BaseURL:     "https://www.jobstreet.com.my",
			Item:        "div.FYwKg._1GAu4._2Svoz",
			Title:       "div._1hr6a._2UwQw",
			Company:     "span._2nWYu",
			Location:    "span._2nWYu",
			Date:        "time._3h0JT._1lTZw",
			DateAttr:    "datetime",
			Description: "div._2B3hr",
		},
	}
}
