// Package scrape extracts structured review entries from a reviewer's
// public feed page on the community site. The feed markup is an
// unversioned external format; every selector lives here so that markup
// changes never reach the aggregation layer.
package scrape

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// ReviewEntry is one review scraped from a reviewer's feed page. Optional
// fields are nil/empty when the corresponding markup is missing; that is
// never an error.
type ReviewEntry struct {
	AppID         string     `json:"appid"`
	GameName      string     `json:"game_name,omitempty"`
	CoverURL      string     `json:"cover_url,omitempty"`
	Recommended   bool       `json:"recommended"`
	HoursTotal    *float64   `json:"hours_total,omitempty"`
	HoursAtReview *float64   `json:"hours_at_review,omitempty"`
	Content       string     `json:"content"`
	PostedDate    string     `json:"posted_date"`
	PostedAt      *time.Time `json:"posted_at,omitempty"`
	Permalink     string     `json:"permalink"`
}

type Pagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// Page is the parsed form of one feed page.
type Page struct {
	Entries    []ReviewEntry `json:"entries"`
	Pagination Pagination    `json:"pagination"`
}

// The hours line is rendered in English or German depending on the
// reviewer's locale; both carry the same two numbers.
var hoursPattern = regexp.MustCompile(
	`([\d.,]+)\s*(?:hrs on record|Std\. insgesamt)(?:\s*\(([\d.,]+)\s*(?:hrs at review time|Std\. zum Zeitpunkt des Reviews)\))?`)

var appIDPattern = regexp.MustCompile(`/recommended/(\d+)`)

// ParsePage parses one feed page into entries plus pagination metadata.
// A page without pagination controls is a single-page feed.
func ParsePage(html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing feed page: %w", err)
	}

	page := &Page{Pagination: Pagination{CurrentPage: 1, TotalPages: 1}}
	parsePagination(doc, &page.Pagination)

	doc.Find(".review_box").Each(func(_ int, sel *goquery.Selection) {
		page.Entries = append(page.Entries, parseEntry(sel))
	})

	return page, nil
}

func parseEntry(sel *goquery.Selection) ReviewEntry {
	var e ReviewEntry

	title := sel.Find(".vote_header .title a").First()
	if href, ok := title.Attr("href"); ok {
		e.Permalink = href
		if m := appIDPattern.FindStringSubmatch(href); m != nil {
			e.AppID = m[1]
		}
	}

	capsule := sel.Find(".leftcol img").First()
	e.GameName = strings.TrimSpace(capsule.AttrOr("alt", ""))
	e.CoverURL = capsule.AttrOr("src", "")

	sel.Find(".vote_header .thumb img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if strings.Contains(img.AttrOr("src", ""), "icon_thumbsUp") {
			e.Recommended = true
			return false
		}
		return true
	})

	e.HoursTotal, e.HoursAtReview = parseHours(sel.Find(".hours").First().Text())
	e.Content = strings.TrimSpace(sel.Find(".content").First().Text())
	e.PostedDate, e.PostedAt = parsePosted(sel.Find(".posted").First().Text())

	return e
}

func parseHours(text string) (total, atReview *float64) {
	m := hoursPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}
	total = parseFloat(m[1])
	if m[2] != "" {
		atReview = parseFloat(m[2])
	}
	return total, atReview
}

// parseFloat accepts both US-formatted ("1,024.5") and German-formatted
// ("1.024,5") numbers. The decimal separator is whichever of "." or ","
// appears last; the other is stripped as a grouping separator.
func parseFloat(s string) *float64 {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	if lastComma > lastDot {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// parsePosted keeps the display string as rendered and additionally
// attempts a best-effort normalization. The upstream date format is
// locale-formatted and not guaranteed parseable, so PostedAt stays nil on
// failure.
func parsePosted(text string) (string, *time.Time) {
	s := strings.TrimSpace(text)
	for _, prefix := range []string{"Posted: ", "Verfasst: "} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if s == "" {
		return "", nil
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return s, nil
	}
	return s, &t
}

func parsePagination(doc *goquery.Document, p *Pagination) {
	controls := doc.Find(".workshopBrowsePagingControls").First()
	if controls.Length() == 0 {
		return
	}

	if cur := strings.TrimSpace(controls.Find(".pagingCurrentPage").First().Text()); cur != "" {
		if n, err := strconv.Atoi(cur); err == nil && n > 0 {
			p.CurrentPage = n
		}
	}

	links := controls.Find("a.pagingPageLink")
	if links.Length() == 0 {
		return
	}
	href, ok := links.Last().Attr("href")
	if !ok {
		return
	}
	u, err := url.Parse(href)
	if err != nil {
		return
	}
	if n, err := strconv.Atoi(u.Query().Get("p")); err == nil && n > 0 {
		p.TotalPages = n
	}
}
