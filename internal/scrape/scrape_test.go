package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedPageFixture = `
<html><body>
<div class="review_box">
  <div class="leftcol">
    <a href="https://steamcommunity.com/profiles/76561198000000001/recommended/620/">
      <img src="https://cdn.example/steam/apps/620/capsule_184x69.jpg" alt="Portal 2">
    </a>
  </div>
  <div class="rightcol">
    <div class="vote_header">
      <div class="thumb"><img src="https://community.example/public/shared/images/userreviews/icon_thumbsUp_v6.png"></div>
      <div class="title"><a href="https://steamcommunity.com/profiles/76561198000000001/recommended/620/">Recommended</a></div>
      <div class="hours">245.3 hrs on record (51.2 hrs at review time)</div>
    </div>
    <div class="posted">Posted: September 17, 2023.</div>
    <div class="content">The cake may be a lie but this game is not.</div>
  </div>
</div>
<div class="review_box">
  <div class="leftcol">
    <a href="https://steamcommunity.com/profiles/76561198000000001/recommended/570/">
      <img src="https://cdn.example/steam/apps/570/capsule_184x69.jpg" alt="Dota 2">
    </a>
  </div>
  <div class="rightcol">
    <div class="vote_header">
      <div class="thumb"><img src="https://community.example/public/shared/images/userreviews/icon_thumbsDown_v6.png"></div>
      <div class="title"><a href="https://steamcommunity.com/profiles/76561198000000001/recommended/570/">Not Recommended</a></div>
      <div class="hours">1.024,5 Std. insgesamt</div>
    </div>
    <div class="posted">Verfasst: vor 3 Tagen.</div>
    <div class="content">Stole my life.</div>
  </div>
</div>
<div class="workshopBrowsePagingControls">
  <span class="pagebtn disabled">&lt;</span>
  <span class="pagingCurrentPage">1</span>
  <a class="pagingPageLink" href="?p=2">2</a>
  <a class="pagingPageLink" href="?p=3">3</a>
  <a class="pagingPageLink" href="?p=7">7</a>
  <a class="pagebtn" href="?p=2">&gt;</a>
</div>
</body></html>`

func TestParsePageFixture(t *testing.T) {
	page, err := ParsePage(feedPageFixture)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)

	first := page.Entries[0]
	assert.Equal(t, "620", first.AppID)
	assert.Equal(t, "Portal 2", first.GameName)
	assert.Equal(t, "https://cdn.example/steam/apps/620/capsule_184x69.jpg", first.CoverURL)
	assert.True(t, first.Recommended)
	require.NotNil(t, first.HoursTotal)
	assert.InDelta(t, 245.3, *first.HoursTotal, 0.001)
	require.NotNil(t, first.HoursAtReview)
	assert.InDelta(t, 51.2, *first.HoursAtReview, 0.001)
	assert.Equal(t, "The cake may be a lie but this game is not.", first.Content)
	assert.Equal(t, "September 17, 2023", first.PostedDate)
	require.NotNil(t, first.PostedAt)
	assert.Equal(t, 2023, first.PostedAt.Year())
	assert.Equal(t, "https://steamcommunity.com/profiles/76561198000000001/recommended/620/", first.Permalink)

	second := page.Entries[1]
	assert.Equal(t, "570", second.AppID)
	assert.False(t, second.Recommended, "no thumbs-up marker means negative")
	require.NotNil(t, second.HoursTotal)
	assert.InDelta(t, 1024.5, *second.HoursTotal, 0.001, "German grouping dot and decimal comma")
	assert.Nil(t, second.HoursAtReview, "German line carries no at-review hours")
	assert.Equal(t, "vor 3 Tagen", second.PostedDate)
	assert.Nil(t, second.PostedAt, "relative date is unparseable, display string kept")

	assert.Equal(t, Pagination{CurrentPage: 1, TotalPages: 7}, page.Pagination)
}

// Parsing is a pure function: identical input, identical output.
func TestParsePageIdempotent(t *testing.T) {
	a, err := ParsePage(feedPageFixture)
	require.NoError(t, err)
	b, err := ParsePage(feedPageFixture)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParsePageNoPaginationControls(t *testing.T) {
	page, err := ParsePage(`<html><body><div class="review_box"></div></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, Pagination{CurrentPage: 1, TotalPages: 1}, page.Pagination)
}

func TestParsePageEmptyDocument(t *testing.T) {
	page, err := ParsePage("")
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.Equal(t, Pagination{CurrentPage: 1, TotalPages: 1}, page.Pagination)
}

func TestParseEntryMissingOptionalFields(t *testing.T) {
	html := `
<div class="review_box">
  <div class="rightcol">
    <div class="vote_header">
      <div class="thumb"><img src="icon_thumbsUp.png"></div>
      <div class="title"><a href="/profiles/1/recommended/440/">Recommended</a></div>
    </div>
    <div class="content">Hats.</div>
  </div>
</div>`
	page, err := ParsePage(html)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)

	e := page.Entries[0]
	assert.Equal(t, "440", e.AppID)
	assert.True(t, e.Recommended)
	assert.Nil(t, e.HoursTotal)
	assert.Nil(t, e.HoursAtReview)
	assert.Empty(t, e.GameName)
	assert.Empty(t, e.PostedDate)
	assert.Nil(t, e.PostedAt)
}

func TestParseHoursNoMatch(t *testing.T) {
	total, atReview := parseHours("played a lot")
	assert.Nil(t, total)
	assert.Nil(t, atReview)
}

func TestParseHoursThousandsSeparator(t *testing.T) {
	total, _ := parseHours("1,203.4 hrs on record")
	require.NotNil(t, total)
	assert.InDelta(t, 1203.4, *total, 0.001)
}

func TestParseHoursGermanLocale(t *testing.T) {
	total, atReview := parseHours("1.024,5 Std. insgesamt (12,3 Std. zum Zeitpunkt des Reviews)")
	require.NotNil(t, total)
	assert.InDelta(t, 1024.5, *total, 0.001)
	require.NotNil(t, atReview)
	assert.InDelta(t, 12.3, *atReview, 0.001)
}

func TestPaginationWithoutLastPageLink(t *testing.T) {
	html := `
<div class="workshopBrowsePagingControls">
  <span class="pagingCurrentPage">1</span>
</div>`
	page, err := ParsePage(html)
	require.NoError(t, err)
	assert.Equal(t, Pagination{CurrentPage: 1, TotalPages: 1}, page.Pagination)
}
